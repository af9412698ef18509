// Package charter fetches activation listings, detail pages, library
// listings and media files from disasterscharter.org.
//
// Listing responses are returned as opaque text; decoding is left to the
// domain package. Every request, retries included, passes through the shared
// Limiter.
package charter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/flood-activation-etl/internal/config"
	"github.com/couchcryptid/flood-activation-etl/internal/domain"
	"github.com/couchcryptid/flood-activation-etl/internal/observability"
)

// Flight router state tokens the site expects on listing requests.
const (
	activationsToken = "ryiee"
	quickviewsToken  = "dzz1n"
	documentsToken   = "1ieop"
)

const (
	endpointActivations = "activations"
	endpointDetail      = "detail"
	endpointQuickviews  = "quickviews"
	endpointDocuments   = "documents"
	endpointDownload    = "download"

	maxBackoff = 5 * time.Second
)

// Client is a rate-limited, retrying client for the Charter site.
type Client struct {
	baseURL        *url.URL
	httpClient     *http.Client
	downloadClient *http.Client
	limiter        Limiter
	userAgent      string
	maxRetries     int
	backoff        time.Duration
	metrics        *observability.Metrics
	logger         *slog.Logger
}

// NewClient creates a client from cfg. All requests share limiter.
func NewClient(cfg *config.Config, limiter Limiter, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		baseURL:        cfg.BaseURL,
		httpClient:     newHTTPClient(cfg.RequestTimeout),
		downloadClient: newHTTPClient(cfg.DownloadTimeout),
		limiter:        limiter,
		userAgent:      cfg.UserAgent,
		maxRetries:     cfg.MaxRetries,
		backoff:        cfg.RetryBackoff,
		metrics:        metrics,
		logger:         logger,
	}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{Timeout: timeout, Transport: tr}
}

// BaseURL returns the site root used to resolve relative media URLs.
func (c *Client) BaseURL() *url.URL { return c.baseURL }

// FetchActivations returns the activations listing for q. The global query
// carries no location filter.
func (c *Client) FetchActivations(ctx context.Context, q domain.Query) (string, error) {
	params := url.Values{"disaster": {q.Disaster}}
	if !q.IsGlobal() {
		params.Set("location", q.Region)
	}
	params.Set("_rsc", activationsToken)

	hdr := http.Header{}
	hdr.Set("Rsc", "1")
	hdr.Set("Referer", c.pageURL("/activations"))
	return c.fetchText(ctx, endpointActivations, c.endpoint("/activations", params), hdr)
}

// FetchDetail returns the HTML detail page for an activation slug.
func (c *Client) FetchDetail(ctx context.Context, slug string) (string, error) {
	if slug == "" {
		return "", &domain.TransportFault{URL: c.pageURL("/activations/"), Err: errors.New("empty slug")}
	}
	hdr := http.Header{}
	hdr.Set("Referer", c.pageURL("/activations"))
	return c.fetchText(ctx, endpointDetail, c.pageURL("/activations/"+url.PathEscape(slug)), hdr)
}

// FetchQuickviews returns the quickviews library listing for a disaster type.
func (c *Client) FetchQuickviews(ctx context.Context, disaster string) (string, error) {
	params := url.Values{"disaster": {disaster}, "_rsc": {quickviewsToken}}

	hdr := http.Header{}
	hdr.Set("Rsc", "1")
	hdr.Set("Next-Url", "/en/library/quickviews")
	hdr.Set("Referer", c.pageURL("/library/quickviews"))
	return c.fetchText(ctx, endpointQuickviews, c.endpoint("/library/quickviews", params), hdr)
}

// FetchDocuments returns the documents library listing.
func (c *Client) FetchDocuments(ctx context.Context) (string, error) {
	params := url.Values{"_rsc": {documentsToken}}

	hdr := http.Header{}
	hdr.Set("Rsc", "1")
	hdr.Set("Referer", c.pageURL("/library/documents"))
	return c.fetchText(ctx, endpointDocuments, c.endpoint("/library/documents", params), hdr)
}

// Download streams the file at rawURL into w and returns its content type and
// size. A failed copy is not retried since w may already hold partial data.
func (c *Client) Download(ctx context.Context, rawURL string, w io.Writer) (contentType string, n int64, err error) {
	resp, err := c.do(ctx, endpointDownload, rawURL, nil, c.downloadClient)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	n, err = io.Copy(w, resp.Body)
	if err != nil {
		return "", n, &domain.TransportFault{URL: rawURL, Err: fmt.Errorf("read body: %w", err)}
	}
	return resp.Header.Get("Content-Type"), n, nil
}

func (c *Client) fetchText(ctx context.Context, endpoint, u string, hdr http.Header) (string, error) {
	resp, err := c.do(ctx, endpoint, u, hdr, c.httpClient)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &domain.TransportFault{URL: u, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	return string(body), nil
}

// do sends a GET, retrying network errors, 429 and 5xx responses up to
// maxRetries times with doubling backoff. The caller owns the returned body.
func (c *Client) do(ctx context.Context, endpoint, u string, hdr http.Header, hc *http.Client) (*http.Response, error) {
	start := time.Now()
	defer func() {
		c.metrics.FetchDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}()

	backoff := c.backoff
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying request", "url", u, "attempt", attempt, "error", lastErr)
			if !sleepWithContext(ctx, backoff) {
				return nil, &domain.TransportFault{URL: u, Err: ctx.Err()}
			}
			backoff = nextBackoff(backoff, maxBackoff)
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &domain.TransportFault{URL: u, Err: err}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, &domain.TransportFault{URL: u, Err: fmt.Errorf("create request: %w", err)}
		}
		c.setHeaders(req, hdr)

		resp, err := hc.Do(req)
		if err != nil {
			lastErr = &domain.TransportFault{URL: u, Err: err}
			if ctx.Err() != nil {
				return nil, lastErr
			}
			continue
		}
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		lastErr = &domain.TransportFault{URL: u, StatusCode: resp.StatusCode, Err: errors.New(http.StatusText(resp.StatusCode))}
		if !retryable(resp.StatusCode) {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

func (c *Client) setHeaders(req *http.Request, extra http.Header) {
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Sec-Fetch-Dest", "empty")
	req.Header.Set("Sec-Fetch-Mode", "cors")
	req.Header.Set("Sec-Fetch-Site", "same-origin")
	for k, vs := range extra {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
}

func (c *Client) pageURL(path string) string {
	return c.baseURL.JoinPath(path).String()
}

func (c *Client) endpoint(path string, params url.Values) string {
	u := c.baseURL.JoinPath(path)
	u.RawQuery = params.Encode()
	return u.String()
}

func retryable(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func nextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if next > limit {
		return limit
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
