package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/flood-activation-etl/internal/domain"
	"github.com/couchcryptid/flood-activation-etl/internal/observability"
)

// ErrTooSmall is returned when a download is not larger than the configured
// minimum size. The partial file is removed.
var ErrTooSmall = errors.New("downloaded file too small")

const (
	kindImage  = "image"
	kindReport = "report"
)

// Fetcher streams the body of a URL into w.
type Fetcher interface {
	Download(ctx context.Context, rawURL string, w io.Writer) (contentType string, n int64, err error)
}

// Downloader saves images and reports, numbering files by successful saves.
type Downloader struct {
	fetcher  Fetcher
	minBytes int64
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewDownloader creates a Downloader that keeps only files larger than minBytes.
func NewDownloader(f Fetcher, minBytes int64, logger *slog.Logger, metrics *observability.Metrics) *Downloader {
	return &Downloader{fetcher: f, minBytes: minBytes, logger: logger, metrics: metrics}
}

// Save downloads rawURL to path through a temporary file in the same
// directory. Transport failures and undersized bodies leave nothing behind;
// local I/O failures are returned as *domain.PersistFault.
func (d *Downloader) Save(ctx context.Context, rawURL, path string) (contentType string, size int64, err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, &domain.PersistFault{Path: dir, Err: err}
	}
	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return "", 0, &domain.PersistFault{Path: path, Err: err}
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after rename

	contentType, size, err = d.fetcher.Download(ctx, rawURL, tmp)
	closeErr := tmp.Close()
	if err != nil {
		return contentType, size, err
	}
	if closeErr != nil {
		return contentType, size, &domain.PersistFault{Path: path, Err: closeErr}
	}
	if size <= d.minBytes {
		return contentType, size, fmt.Errorf("%w: %d bytes", ErrTooSmall, size)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return contentType, size, &domain.PersistFault{Path: path, Err: err}
	}
	return contentType, size, nil
}

// Images saves every record that has an image URL into dir.
func (d *Downloader) Images(ctx context.Context, records []domain.SatelliteImageRecord, dir string) ([]domain.DownloadedImage, error) {
	var saved []domain.DownloadedImage
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return saved, err
		}
		if rec.ImageURL == "" {
			d.logger.Warn("image without url", "title", rec.Title)
			continue
		}
		name := ImageFilename(len(saved)+1, rec.Title, rec.ImageURL)
		path := filepath.Join(dir, name)
		contentType, size, err := d.Save(ctx, rec.ImageURL, path)
		if err != nil {
			if fatal := d.failed(kindImage, name, rec.ImageURL, err); fatal != nil {
				return saved, fatal
			}
			continue
		}
		if !LooksLikeImage(contentType, rec.ImageURL) {
			d.logger.Warn("download may not be an image", "url", rec.ImageURL, "content_type", contentType)
		}
		d.metrics.Downloads.WithLabelValues(kindImage, "ok").Inc()
		d.logger.Info("image saved", "file", name, "bytes", size)
		saved = append(saved, domain.DownloadedImage{
			SatelliteImageRecord: rec,
			Filename:             name,
			Filepath:             path,
			FileSize:             size,
		})
	}
	return saved, nil
}

// Reports saves up to limit documents, in the given order, into dir.
func (d *Downloader) Reports(ctx context.Context, docs []domain.DocumentRecord, dir string, limit int) ([]domain.DownloadedReport, error) {
	var saved []domain.DownloadedReport
	for _, doc := range docs {
		if len(saved) >= limit {
			break
		}
		if err := ctx.Err(); err != nil {
			return saved, err
		}
		if doc.DocumentURL == "" {
			continue
		}
		name := ReportFilename(len(saved)+1, doc.Title)
		path := filepath.Join(dir, name)
		_, size, err := d.Save(ctx, doc.DocumentURL, path)
		if err != nil {
			if fatal := d.failed(kindReport, name, doc.DocumentURL, err); fatal != nil {
				return saved, fatal
			}
			continue
		}
		d.metrics.Downloads.WithLabelValues(kindReport, "ok").Inc()
		d.logger.Info("report saved", "file", name, "bytes", size, "index", len(saved)+1, "limit", limit)
		saved = append(saved, domain.DownloadedReport{
			DocumentRecord: doc,
			Filename:       name,
			Filepath:       path,
			FileSize:       size,
		})
	}
	return saved, nil
}

// failed logs and counts a failed download. It returns err when the failure
// is local and must abort the run.
func (d *Downloader) failed(kind, name, rawURL string, err error) error {
	var persist *domain.PersistFault
	switch {
	case errors.As(err, &persist):
		d.metrics.Downloads.WithLabelValues(kind, "failed").Inc()
		return err
	case errors.Is(err, ErrTooSmall):
		d.metrics.Downloads.WithLabelValues(kind, "too_small").Inc()
		d.logger.Error("download empty or too small", "file", name, "url", rawURL, "error", err)
	default:
		d.metrics.Downloads.WithLabelValues(kind, "failed").Inc()
		d.logger.Error("download failed", "file", name, "url", rawURL, "error", err)
	}
	return nil
}
