package media

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/flood-activation-etl/internal/domain"
	"github.com/couchcryptid/flood-activation-etl/internal/observability"
)

type fakeFetcher struct {
	bodies      map[string]string
	contentType string
	calls       []string
}

func (f *fakeFetcher) Download(_ context.Context, rawURL string, w io.Writer) (string, int64, error) {
	f.calls = append(f.calls, rawURL)
	body, ok := f.bodies[rawURL]
	if !ok {
		return "", 0, &domain.TransportFault{URL: rawURL, StatusCode: 404, Err: errors.New("not found")}
	}
	n, err := io.Copy(w, strings.NewReader(body))
	return f.contentType, n, err
}

func testDownloader(f Fetcher, minBytes int64) (*Downloader, *observability.Metrics) {
	m := observability.NewMetricsForTesting()
	return NewDownloader(f, minBytes, slog.New(slog.NewTextHandler(io.Discard, nil)), m), m
}

func TestSafeTitle(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Flood in Brazil - Post-disaster", "Flood_in_Brazil_Post_disaster"},
		{"Report: 2024 (annual)!", "Report_2024_annual"},
		{"  spaced   out  ", "_spaced_out_"},
		{"São Paulo enchente", "São_Paulo_enchente"},
		{strings.Repeat("a", 80), strings.Repeat("a", 50)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SafeTitle(tt.in), tt.in)
	}
}

func TestImageFilename(t *testing.T) {
	assert.Equal(t, "satellite_01_Flood_Post_disaster.png",
		ImageFilename(1, "Flood - Post-disaster", "https://example.org/a/b.PNG?x=1"))
	assert.Equal(t, "satellite_12_x.tiff", ImageFilename(12, "x", "https://example.org/img.tif"))
	assert.Equal(t, "satellite_03_x.jpg", ImageFilename(3, "x", "https://example.org/article-image/123"))
	assert.Equal(t, "report_02_Annual_Report.pdf", ReportFilename(2, "Annual Report"))
}

func TestLooksLikeImage(t *testing.T) {
	assert.True(t, LooksLikeImage("image/png", "https://x/y"))
	assert.True(t, LooksLikeImage("application/octet-stream", "https://x/y.jpeg"))
	assert.False(t, LooksLikeImage("text/html", "https://x/y"))
}

func TestDownloader_SaveRejectsSmallFiles(t *testing.T) {
	f := &fakeFetcher{bodies: map[string]string{"u": "tiny"}}
	d, _ := testDownloader(f, 1024)
	path := filepath.Join(t.TempDir(), "out.bin")

	_, size, err := d.Save(context.Background(), "u", path)
	require.ErrorIs(t, err, ErrTooSmall)
	assert.Equal(t, int64(4), size)
	assert.NoFileExists(t, path)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Empty(t, entries, "temp file removed")
}

func TestDownloader_ImagesNumbersBySuccess(t *testing.T) {
	big := strings.Repeat("x", 2048)
	f := &fakeFetcher{
		contentType: "image/jpeg",
		bodies: map[string]string{
			"https://x/ok1.jpg": big,
			"https://x/small":   "abc",
			"https://x/ok2.png": big,
		},
	}
	d, m := testDownloader(f, 1024)
	dir := t.TempDir()

	records := []domain.SatelliteImageRecord{
		{Title: "First", ImageURL: "https://x/ok1.jpg"},
		{Title: "No URL"},
		{Title: "Missing", ImageURL: "https://x/missing"},
		{Title: "Small", ImageURL: "https://x/small"},
		{Title: "Second", ImageURL: "https://x/ok2.png"},
	}
	saved, err := d.Images(context.Background(), records, dir)
	require.NoError(t, err)
	require.Len(t, saved, 2)

	assert.Equal(t, "satellite_01_First.jpg", saved[0].Filename)
	assert.Equal(t, "satellite_02_Second.png", saved[1].Filename)
	assert.Equal(t, int64(2048), saved[1].FileSize)
	assert.FileExists(t, filepath.Join(dir, "satellite_02_Second.png"))
	assert.Len(t, f.calls, 4, "records without url are not fetched")

	assert.InDelta(t, 2, testutil.ToFloat64(m.Downloads.WithLabelValues("image", "ok")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Downloads.WithLabelValues("image", "failed")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Downloads.WithLabelValues("image", "too_small")), 0)
}

func TestDownloader_ReportsRespectsLimit(t *testing.T) {
	big := strings.Repeat("%PDF", 600)
	f := &fakeFetcher{bodies: map[string]string{"a": big, "b": big, "c": big}}
	d, _ := testDownloader(f, 1024)

	docs := []domain.DocumentRecord{
		{Title: "Annual Report", DocumentURL: "a"},
		{Title: "Skipped", DocumentURL: ""},
		{Title: "Guidelines", DocumentURL: "b"},
		{Title: "Other", DocumentURL: "c"},
	}
	saved, err := d.Reports(context.Background(), docs, t.TempDir(), 2)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, "report_01_Annual_Report.pdf", saved[0].Filename)
	assert.Equal(t, "report_02_Guidelines.pdf", saved[1].Filename)
	assert.Equal(t, []string{"a", "b"}, f.calls)
}

func TestDownloader_PersistFaultAborts(t *testing.T) {
	f := &fakeFetcher{bodies: map[string]string{"a": strings.Repeat("x", 4096)}}
	d, _ := testDownloader(f, 1024)

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	_, err := d.Reports(context.Background(), []domain.DocumentRecord{{Title: "A", DocumentURL: "a"}}, filepath.Join(blocker, "reports"), 5)
	var fault *domain.PersistFault
	require.ErrorAs(t, err, &fault)
}
