package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/flood-activation-etl/internal/domain"
	"github.com/couchcryptid/flood-activation-etl/internal/observability"
)

// DetailFetcher returns the HTML of an activation detail page.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, slug string) (string, error)
}

// Enricher fetches detail pages and extracts duration details. Non-empty
// results are cached by slug when a cache size is configured.
type Enricher struct {
	fetcher DetailFetcher
	cache   *lruCache[domain.DurationDetail]
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewEnricher creates an Enricher. A cacheSize of zero disables caching.
func NewEnricher(f DetailFetcher, cacheSize int, logger *slog.Logger, metrics *observability.Metrics) *Enricher {
	e := &Enricher{fetcher: f, logger: logger, metrics: metrics}
	if cacheSize > 0 {
		e.cache = newLRUCache[domain.DurationDetail](cacheSize)
	}
	return e
}

// Enrich never fails: a failed fetch yields an all-null DurationDetail.
func (e *Enricher) Enrich(ctx context.Context, slug, articleID string) domain.DurationDetail {
	if e.cache != nil {
		if d, ok := e.cache.get(slug); ok {
			e.metrics.Enrichments.WithLabelValues("cached").Inc()
			return d
		}
	}

	page, err := e.fetcher.FetchDetail(ctx, slug)
	if err != nil {
		e.logger.Warn("detail fetch failed", "slug", slug, "article_id", articleID, "error", err)
		e.metrics.Enrichments.WithLabelValues("failed").Inc()
		return domain.DurationDetail{}
	}

	d := domain.ExtractDetail(page)
	if d.IsEmpty() {
		e.metrics.Enrichments.WithLabelValues("empty").Inc()
		return d
	}
	e.metrics.Enrichments.WithLabelValues("found").Inc()
	// Empty results are not cached so a later run can retry the page.
	if e.cache != nil {
		e.cache.put(slug, d)
	}
	return d
}

// EnrichAll returns a copy of events with Duration set on every entry.
// Synthetic events get an all-null detail without a fetch. It stops between
// fetches when ctx is cancelled.
func (e *Enricher) EnrichAll(ctx context.Context, events []domain.DisasterEvent) ([]domain.DisasterEvent, error) {
	out := make([]domain.DisasterEvent, len(events))
	copy(out, events)
	for i := range out {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var d domain.DurationDetail
		if !out[i].Synthetic {
			e.logger.Debug("enriching event", "index", i+1, "total", len(out), "title", out[i].Title)
			d = e.Enrich(ctx, out[i].Metadata.Slug, out[i].Metadata.ArticleID)
		}
		out[i].Duration = &d
	}
	return out, nil
}
