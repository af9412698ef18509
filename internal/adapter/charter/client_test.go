package charter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-activation-etl/internal/domain"
	"github.com/couchcryptid/flood-activation-etl/internal/observability"
)

const testUserAgent = "flood-etl-test"

type countingLimiter struct {
	calls atomic.Int32
	err   error
}

func (l *countingLimiter) Wait(context.Context) error {
	l.calls.Add(1)
	return l.err
}

func testClient(t *testing.T, srvURL string, retries int) (*Client, *countingLimiter) {
	t.Helper()
	base, err := url.Parse(srvURL)
	require.NoError(t, err)
	lim := &countingLimiter{}
	return &Client{
		baseURL:        base,
		httpClient:     &http.Client{Timeout: 5 * time.Second},
		downloadClient: &http.Client{Timeout: 5 * time.Second},
		limiter:        lim,
		userAgent:      testUserAgent,
		maxRetries:     retries,
		backoff:        time.Millisecond,
		metrics:        observability.NewMetricsForTesting(),
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, lim
}

func TestClient_FetchActivations_Global(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/activations", r.URL.Path)
		assert.Equal(t, "flood", r.URL.Query().Get("disaster"))
		assert.False(t, r.URL.Query().Has("location"))
		assert.Equal(t, activationsToken, r.URL.Query().Get("_rsc"))
		assert.Equal(t, "1", r.Header.Get("Rsc"))
		assert.Equal(t, testUserAgent, r.Header.Get("User-Agent"))
		assert.Contains(t, r.Header.Get("Referer"), "/activations")
		_, _ = io.WriteString(w, "0:payload\n")
	}))
	defer srv.Close()

	c, lim := testClient(t, srv.URL, 0)
	body, err := c.FetchActivations(context.Background(), domain.Query{Region: domain.GlobalRegion, Disaster: "flood"})
	require.NoError(t, err)
	assert.Equal(t, "0:payload\n", body)
	assert.Equal(t, int32(1), lim.calls.Load())
}

func TestClient_FetchActivations_Region(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "south america", r.URL.Query().Get("location"))
		_, _ = io.WriteString(w, "ok")
	}))
	defer srv.Close()

	c, _ := testClient(t, srv.URL, 0)
	_, err := c.FetchActivations(context.Background(), domain.Query{Region: "south america", Disaster: "flood"})
	require.NoError(t, err)
}

func TestClient_FetchDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/activations/flood-in-kenya-activation-900-", r.URL.Path)
		_, _ = io.WriteString(w, "<p>lasted 4 days</p>")
	}))
	defer srv.Close()

	c, _ := testClient(t, srv.URL, 0)
	page, err := c.FetchDetail(context.Background(), "flood-in-kenya-activation-900-")
	require.NoError(t, err)
	assert.Equal(t, "<p>lasted 4 days</p>", page)

	_, err = c.FetchDetail(context.Background(), "")
	var fault *domain.TransportFault
	assert.ErrorAs(t, err, &fault)
}

func TestClient_LibraryListings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/library/quickviews":
			assert.Equal(t, quickviewsToken, r.URL.Query().Get("_rsc"))
			assert.Equal(t, "flood", r.URL.Query().Get("disaster"))
			assert.Equal(t, "/en/library/quickviews", r.Header.Get("Next-Url"))
			_, _ = io.WriteString(w, "quickviews")
		case "/library/documents":
			assert.Equal(t, documentsToken, r.URL.Query().Get("_rsc"))
			_, _ = io.WriteString(w, "documents")
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, _ := testClient(t, srv.URL, 0)
	qv, err := c.FetchQuickviews(context.Background(), "flood")
	require.NoError(t, err)
	assert.Equal(t, "quickviews", qv)

	docs, err := c.FetchDocuments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "documents", docs)
}

func TestClient_RetriesTransientStatus(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		switch hits.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_, _ = io.WriteString(w, "finally")
		}
	}))
	defer srv.Close()

	c, lim := testClient(t, srv.URL, 3)
	body, err := c.FetchDocuments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "finally", body)
	assert.Equal(t, int32(3), hits.Load())
	assert.Equal(t, int32(3), lim.calls.Load(), "every attempt passes the limiter")
	assert.Equal(t, 1, testutil.CollectAndCount(c.metrics.FetchDuration), "one series for the documents endpoint")
}

func TestClient_GivesUpAfterMaxRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _ := testClient(t, srv.URL, 2)
	_, err := c.FetchDocuments(context.Background())

	var fault *domain.TransportFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, http.StatusBadGateway, fault.StatusCode)
	assert.Equal(t, int32(3), hits.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c, _ := testClient(t, srv.URL, 3)
	_, err := c.FetchDetail(context.Background(), "missing")

	var fault *domain.TransportFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, http.StatusNotFound, fault.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
	assert.Contains(t, fault.Error(), "status 404")
}

func TestClient_LimiterErrorStopsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("request must not be sent")
	}))
	defer srv.Close()

	c, lim := testClient(t, srv.URL, 3)
	lim.err = context.Canceled
	_, err := c.FetchDocuments(context.Background())
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClient_Download(t *testing.T) {
	payload := bytes.Repeat([]byte{0xFF}, 2048)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	c, _ := testClient(t, srv.URL, 0)
	var buf bytes.Buffer
	ct, n, err := c.Download(context.Background(), srv.URL+"/img/1.jpg", &buf)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", ct)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, buf.Bytes())
}

func TestIntervalLimiter(t *testing.T) {
	lim := NewIntervalLimiter(40 * time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	require.NoError(t, lim.Wait(ctx))
	require.NoError(t, lim.Wait(ctx))
	require.NoError(t, lim.Wait(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 70*time.Millisecond)
}

func TestIntervalLimiter_Disabled(t *testing.T) {
	lim := NewIntervalLimiter(0)
	for range 100 {
		require.NoError(t, lim.Wait(context.Background()))
	}
}

func TestIntervalLimiter_Cancelled(t *testing.T) {
	lim := NewIntervalLimiter(time.Hour)
	require.NoError(t, lim.Wait(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, lim.Wait(ctx))
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, nextBackoff(time.Second, maxBackoff))
	assert.Equal(t, maxBackoff, nextBackoff(4*time.Second, maxBackoff))
}
