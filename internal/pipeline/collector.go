package pipeline

import (
	"context"
	"errors"
	"log/slog"

	"github.com/couchcryptid/flood-activation-etl/internal/domain"
	"github.com/couchcryptid/flood-activation-etl/internal/fragment"
	"github.com/couchcryptid/flood-activation-etl/internal/observability"
)

// ListingFetcher returns the raw activations listing for one query.
type ListingFetcher interface {
	FetchActivations(ctx context.Context, q domain.Query) (string, error)
}

// Collection is the merged result of running a query plan.
type Collection struct {
	Events  []domain.DisasterEvent
	Regions []domain.RegionOutcome
	Stats   domain.MergeStats
}

// Collector runs a query plan and merges every region's activations into one
// first-seen-wins set. A failing query never stops the plan.
type Collector struct {
	fetcher ListingFetcher
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewCollector creates a Collector.
func NewCollector(f ListingFetcher, logger *slog.Logger, metrics *observability.Metrics) *Collector {
	return &Collector{fetcher: f, logger: logger, metrics: metrics}
}

// Collect runs plan in order. It returns early only when ctx is cancelled.
func (c *Collector) Collect(ctx context.Context, plan domain.QueryPlan) (Collection, error) {
	if err := plan.Validate(); err != nil {
		return Collection{}, err
	}

	set := domain.NewEventSet()
	var col Collection
	for _, q := range plan {
		if err := ctx.Err(); err != nil {
			return Collection{}, err
		}
		outcome, stats := c.query(ctx, q, set)
		col.Regions = append(col.Regions, outcome)
		col.Stats.Added += stats.Added
		col.Stats.Duplicates += stats.Duplicates
		col.Stats.MissingID += stats.MissingID
	}
	if err := ctx.Err(); err != nil {
		return Collection{}, err
	}
	col.Events = set.Events()
	return col, nil
}

func (c *Collector) query(ctx context.Context, q domain.Query, set *domain.EventSet) (domain.RegionOutcome, domain.MergeStats) {
	outcome := domain.RegionOutcome{Region: q.Region}
	defer func() {
		c.metrics.Queries.WithLabelValues(q.Region, outcome.Outcome).Inc()
	}()

	body, err := c.fetcher.FetchActivations(ctx, q)
	if err != nil {
		c.logger.Error("activations query failed", "region", q.Region, "error", err)
		outcome.Outcome = domain.OutcomeTransportFault
		outcome.Error = err.Error()
		return outcome, domain.MergeStats{}
	}

	events, err := domain.ParseActivations(body, q)
	var fault *fragment.DecodeFault
	switch {
	case errors.Is(err, fragment.ErrExtractionMiss):
		c.logger.Debug("no activations in response", "region", q.Region)
		outcome.Outcome = domain.OutcomeEmpty
		return outcome, domain.MergeStats{}
	case errors.As(err, &fault):
		c.logger.Warn("activations fragment malformed", "region", q.Region, "line", fault.Line, "error", fault.Err)
		c.metrics.DecodeFaults.WithLabelValues("activations").Inc()
		outcome.Outcome = domain.OutcomeDecodeFault
		outcome.Error = err.Error()
		return outcome, domain.MergeStats{}
	case err != nil:
		c.logger.Error("activations parse failed", "region", q.Region, "error", err)
		outcome.Outcome = domain.OutcomeDecodeFault
		outcome.Error = err.Error()
		return outcome, domain.MergeStats{}
	}

	stats := set.Merge(events)
	c.metrics.EventsNormalized.Add(float64(len(events)))
	c.metrics.DuplicatesDropped.Add(float64(stats.Duplicates))
	c.metrics.MissingID.Add(float64(stats.MissingID))

	outcome.Outcome = domain.OutcomeOK
	if len(events) == 0 {
		outcome.Outcome = domain.OutcomeEmpty
	}
	outcome.Events = len(events)
	outcome.Added = stats.Added
	c.logger.Info("region collected",
		"region", q.Region,
		"events", len(events),
		"added", stats.Added,
		"duplicates", stats.Duplicates,
		"missing_id", stats.MissingID,
	)
	return outcome, stats
}
