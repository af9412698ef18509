package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"github.com/couchcryptid/flood-activation-etl/internal/domain"
	"github.com/couchcryptid/flood-activation-etl/internal/fragment"
	"github.com/couchcryptid/flood-activation-etl/internal/media"
	"github.com/couchcryptid/flood-activation-etl/internal/observability"
)

// Library manifest sources.
const (
	QuickviewsSource = domain.SourceCharter + "/library/quickviews"
	DocumentsSource  = domain.SourceCharter + "/library/documents"
)

// LibraryFetcher returns the raw library listings.
type LibraryFetcher interface {
	BaseURL() *url.URL
	FetchQuickviews(ctx context.Context, disaster string) (string, error)
	FetchDocuments(ctx context.Context) (string, error)
}

// ManifestStore persists library manifests and resolves output paths.
type ManifestStore interface {
	Path(rel string) string
	WriteImageManifest(m domain.ImageManifest) (string, error)
	WriteReportManifest(m domain.ReportManifest) (string, error)
}

// Library downloads satellite images and reports and records what was saved.
type Library struct {
	fetcher    LibraryFetcher
	downloader *media.Downloader
	manifests  ManifestStore
	mirror     ObjectMirror
	disaster   string
	maxReports int
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// LibraryOptions configures a Library.
type LibraryOptions struct {
	Disaster   string
	MaxReports int
	// Mirror is optional.
	Mirror ObjectMirror
}

// NewLibrary creates a Library.
func NewLibrary(f LibraryFetcher, d *media.Downloader, manifests ManifestStore, opts LibraryOptions, logger *slog.Logger, metrics *observability.Metrics) *Library {
	return &Library{
		fetcher:    f,
		downloader: d,
		manifests:  manifests,
		mirror:     opts.Mirror,
		disaster:   opts.Disaster,
		maxReports: opts.MaxReports,
		logger:     logger,
		metrics:    metrics,
	}
}

// Images lists quickviews (from inputPath when set, otherwise upstream),
// falls back to built-in images when the listing yields nothing, downloads
// every image, and writes the images manifest.
func (l *Library) Images(ctx context.Context, inputPath string) (domain.ImageManifest, string, error) {
	body, err := l.listing(ctx, inputPath, func(ctx context.Context) (string, error) {
		return l.fetcher.FetchQuickviews(ctx, l.disaster)
	})
	var records []domain.SatelliteImageRecord
	if err == nil {
		records, err = domain.ParseQuickviews(body, l.fetcher.BaseURL())
	}
	if err != nil {
		l.listingFailed("quickviews", err)
	}

	source, synthetic := QuickviewsSource, false
	if len(records) == 0 {
		l.logger.Warn("no quickview images found, using built-in images")
		l.metrics.FallbackUsed.WithLabelValues("images").Inc()
		records = domain.PlaceholderImages()
		source, synthetic = domain.SourcePlaceholder, true
	}
	l.logger.Info("downloading satellite images", "images", len(records))

	dir := l.manifests.Path("images")
	saved, err := l.downloader.Images(ctx, records, dir)
	if err != nil {
		return domain.ImageManifest{}, "", err
	}

	manifest := domain.NewImageManifest(saved, dir, source, synthetic)
	path, err := l.manifests.WriteImageManifest(manifest)
	if err != nil {
		return domain.ImageManifest{}, "", err
	}
	l.logger.Info("images manifest written", "path", path, "images", manifest.TotalCount, "bytes", manifest.TotalSizeBytes)

	files := make([]string, 0, len(saved)+1)
	for _, img := range saved {
		files = append(files, img.Filepath)
	}
	l.mirrorFiles(ctx, append(files, path))
	return manifest, path, nil
}

// Reports lists library documents (from inputPath when set), ranks them by
// priority, downloads up to the configured maximum, and writes the reports
// manifest.
func (l *Library) Reports(ctx context.Context, inputPath string) (domain.ReportManifest, string, error) {
	body, err := l.listing(ctx, inputPath, l.fetcher.FetchDocuments)
	var docs []domain.DocumentRecord
	if err == nil {
		docs, err = domain.ParseDocuments(body, l.fetcher.BaseURL())
	}
	if err != nil {
		l.listingFailed("documents", err)
	}

	source, synthetic := DocumentsSource, false
	if len(docs) == 0 {
		l.logger.Warn("no documents found, using built-in documents")
		l.metrics.FallbackUsed.WithLabelValues("documents").Inc()
		docs = domain.PlaceholderDocuments()
		source, synthetic = domain.SourcePlaceholder, true
	}
	docs = domain.RankDocuments(docs)
	l.logger.Info("downloading reports", "documents", len(docs), "limit", l.maxReports)

	dir := l.manifests.Path("reports")
	saved, err := l.downloader.Reports(ctx, docs, dir, l.maxReports)
	if err != nil {
		return domain.ReportManifest{}, "", err
	}

	manifest := domain.NewReportManifest(saved, dir, source, synthetic)
	path, err := l.manifests.WriteReportManifest(manifest)
	if err != nil {
		return domain.ReportManifest{}, "", err
	}
	l.logger.Info("reports manifest written", "path", path, "reports", manifest.TotalCount)

	files := make([]string, 0, len(saved)+1)
	for _, r := range saved {
		files = append(files, r.Filepath)
	}
	l.mirrorFiles(ctx, append(files, path))
	return manifest, path, nil
}

func (l *Library) listing(ctx context.Context, inputPath string, fetch func(context.Context) (string, error)) (string, error) {
	if inputPath == "" {
		return fetch(ctx)
	}
	b, err := os.ReadFile(inputPath)
	if err != nil {
		return "", fmt.Errorf("read listing %s: %w", inputPath, err)
	}
	l.logger.Info("using saved listing", "path", inputPath)
	return string(b), nil
}

func (l *Library) listingFailed(listing string, err error) {
	var fault *fragment.DecodeFault
	switch {
	case errors.Is(err, fragment.ErrExtractionMiss):
		l.logger.Debug("no items in listing", "listing", listing)
	case errors.As(err, &fault):
		l.metrics.DecodeFaults.WithLabelValues(listing).Inc()
		l.logger.Warn("listing fragment malformed", "listing", listing, "line", fault.Line, "error", fault.Err)
	default:
		l.logger.Error("listing fetch failed", "listing", listing, "error", err)
	}
}

func (l *Library) mirrorFiles(ctx context.Context, paths []string) {
	if l.mirror == nil {
		return
	}
	if _, err := l.mirror.Upload(ctx, paths...); err != nil {
		l.metrics.SinkErrors.WithLabelValues("s3").Inc()
		l.logger.Error("sink write failed", "sink", "s3", "error", err)
	}
}
