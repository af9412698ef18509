package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/flood-activation-etl/internal/domain"
	"github.com/couchcryptid/flood-activation-etl/internal/observability"
)

// ErrRunInProgress is returned when Run is called while another run is active.
var ErrRunInProgress = errors.New("collection run already in progress")

const topCountriesLogged = 5

// SnapshotStore persists collection output files.
type SnapshotStore interface {
	WriteRaw(events []domain.DisasterEvent) (string, error)
	WriteProcessed(s domain.Snapshot) (string, error)
	WriteEnriched(s domain.Snapshot) (string, error)
	LoadProcessed() (domain.Snapshot, error)
}

// EventPublisher streams collected events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, runID string, events []domain.DisasterEvent) (int, error)
}

// EventStore keeps a first-seen-wins history of events and runs.
type EventStore interface {
	SaveEvents(ctx context.Context, runID string, events []domain.DisasterEvent) (int, error)
	SaveDuration(ctx context.Context, activationID string, d domain.DurationDetail) (bool, error)
	RecordRun(ctx context.Context, s domain.RunSummary) error
}

// ObjectMirror copies output files to remote storage.
type ObjectMirror interface {
	Upload(ctx context.Context, paths ...string) ([]string, error)
}

// Sinks are optional destinations fed after the snapshot is written. Nil
// fields are skipped. Sink failures are logged and counted, never fatal.
type Sinks struct {
	Publisher EventPublisher
	Store     EventStore
	Mirror    ObjectMirror
}

// Pipeline orchestrates collect, enrich, persist, and deliver.
type Pipeline struct {
	collector *Collector
	enricher  *Enricher
	snapshots SnapshotStore
	sinks     Sinks
	logger    *slog.Logger
	metrics   *observability.Metrics

	ready   atomic.Bool
	running atomic.Bool

	mu   sync.Mutex
	last *domain.RunSummary
}

// New creates a Pipeline. enricher may be nil when enrichment is never requested.
func New(collector *Collector, enricher *Enricher, snapshots SnapshotStore, sinks Sinks, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		collector: collector,
		enricher:  enricher,
		snapshots: snapshots,
		sinks:     sinks,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once a run has written its snapshot.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no collection run has completed yet")
	}
	return nil
}

// LastRun returns the summary of the most recent completed run.
func (p *Pipeline) LastRun() (domain.RunSummary, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.last == nil {
		return domain.RunSummary{}, false
	}
	return *p.last, true
}

// Run executes plan, substitutes placeholders when the whole plan yields
// nothing, optionally enriches every event, writes the raw and processed
// snapshots, and feeds the configured sinks. A *domain.PersistFault aborts
// the run.
func (p *Pipeline) Run(ctx context.Context, plan domain.QueryPlan, enrich bool) (domain.RunSummary, error) {
	if !p.running.CompareAndSwap(false, true) {
		return domain.RunSummary{}, ErrRunInProgress
	}
	defer p.running.Store(false)

	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	summary := domain.RunSummary{RunID: uuid.NewString(), StartedAt: domain.Now()}
	logger := p.logger.With("run_id", summary.RunID)
	logger.Info("collection started", "queries", len(plan), "enrich", enrich)

	col, err := p.collector.Collect(ctx, plan)
	if err != nil {
		return summary, fmt.Errorf("collect: %w", err)
	}
	summary.Regions = col.Regions
	summary.Duplicates = col.Stats.Duplicates
	summary.MissingID = col.Stats.MissingID

	events := col.Events
	if len(events) == 0 {
		logger.Warn("no activations collected, using built-in placeholders")
		p.metrics.FallbackUsed.WithLabelValues("activations").Inc()
		events = domain.PlaceholderActivations()
		summary.Synthetic = true
	}

	enriched := enrich && p.enricher != nil
	if enriched {
		events, err = p.enricher.EnrichAll(ctx, events)
		if err != nil {
			return summary, fmt.Errorf("enrich: %w", err)
		}
		summary.Enriched = countFound(events)
	}
	summary.TotalEvents = len(events)

	outputs, err := p.writeSnapshots(events, summary.StartedAt, summary.Synthetic, enriched)
	if err != nil {
		return summary, err
	}
	summary.Outputs = outputs
	p.ready.Store(true)

	logTopCountries(logger, events)
	p.deliver(ctx, logger, &summary, events, enriched)

	summary.FinishedAt = domain.Now()
	if p.sinks.Store != nil {
		if err := p.sinks.Store.RecordRun(ctx, summary); err != nil {
			p.sinkFailed(logger, "sqlite", err)
		}
	}
	p.metrics.LastSuccess.Set(float64(summary.FinishedAt.Unix()))
	p.metrics.RunDuration.Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())
	p.setLast(summary)

	logger.Info("collection finished",
		"events", summary.TotalEvents,
		"duplicates", summary.Duplicates,
		"missing_id", summary.MissingID,
		"enriched", summary.Enriched,
		"synthetic", summary.Synthetic,
	)
	return summary, nil
}

// EnrichSnapshot loads the processed snapshot, enriches every event, and
// writes the enriched snapshot. It returns duration statistics and the
// written path.
func (p *Pipeline) EnrichSnapshot(ctx context.Context) (domain.DurationStats, string, error) {
	if p.enricher == nil {
		return domain.DurationStats{}, "", errors.New("enrichment is not configured")
	}
	snap, err := p.snapshots.LoadProcessed()
	if err != nil {
		return domain.DurationStats{}, "", err
	}
	p.logger.Info("enriching snapshot", "events", len(snap.Events))

	events, err := p.enricher.EnrichAll(ctx, snap.Events)
	if err != nil {
		return domain.DurationStats{}, "", fmt.Errorf("enrich: %w", err)
	}
	snap.Events = events

	path, err := p.snapshots.WriteEnriched(snap)
	if err != nil {
		return domain.DurationStats{}, "", err
	}

	stats := domain.SummarizeDurations(events)
	p.logger.Info("enrichment finished",
		"path", path,
		"enriched", stats.Enriched,
		"with_duration", stats.WithDays,
		"avg_days", stats.Avg,
		"min_days", stats.Min,
		"max_days", stats.Max,
	)

	if p.sinks.Store != nil {
		p.saveDurations(ctx, p.logger, events)
	}
	if p.sinks.Mirror != nil {
		if _, err := p.sinks.Mirror.Upload(ctx, path); err != nil {
			p.sinkFailed(p.logger, "s3", err)
		}
	}
	return stats, path, nil
}

func (p *Pipeline) writeSnapshots(events []domain.DisasterEvent, collectedAt time.Time, synthetic, enriched bool) ([]string, error) {
	rawPath, err := p.snapshots.WriteRaw(events)
	if err != nil {
		return nil, err
	}
	snap := domain.BuildSnapshot(events, collectedAt, synthetic)
	processedPath, err := p.snapshots.WriteProcessed(snap)
	if err != nil {
		return nil, err
	}
	outputs := []string{rawPath, processedPath}
	if enriched {
		enrichedPath, err := p.snapshots.WriteEnriched(snap)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, enrichedPath)
	}
	p.logger.Info("snapshot written", "path", processedPath, "events", snap.Metadata.TotalEvents)
	return outputs, nil
}

func (p *Pipeline) deliver(ctx context.Context, logger *slog.Logger, summary *domain.RunSummary, events []domain.DisasterEvent, enriched bool) {
	if p.sinks.Store != nil {
		collected := nonSynthetic(events)
		if len(collected) > 0 {
			n, err := p.sinks.Store.SaveEvents(ctx, summary.RunID, collected)
			if err != nil {
				p.sinkFailed(logger, "sqlite", err)
			} else {
				summary.Stored = n
				logger.Info("events stored", "inserted", n, "events", len(collected))
			}
			if enriched {
				p.saveDurations(ctx, logger, collected)
			}
		}
	}

	if p.sinks.Publisher != nil {
		n, err := p.sinks.Publisher.Publish(ctx, summary.RunID, events)
		if err != nil {
			p.sinkFailed(logger, "kafka", err)
		} else {
			summary.Published = n
		}
	}

	if p.sinks.Mirror != nil {
		keys, err := p.sinks.Mirror.Upload(ctx, summary.Outputs...)
		if err != nil {
			p.sinkFailed(logger, "s3", err)
		} else {
			logger.Info("outputs mirrored", "objects", len(keys))
		}
	}
}

func (p *Pipeline) saveDurations(ctx context.Context, logger *slog.Logger, events []domain.DisasterEvent) {
	for _, e := range events {
		if e.Duration == nil || e.Synthetic {
			continue
		}
		if _, err := p.sinks.Store.SaveDuration(ctx, e.ActivationID, *e.Duration); err != nil {
			p.sinkFailed(logger, "sqlite", err)
			return
		}
	}
}

func (p *Pipeline) sinkFailed(logger *slog.Logger, sink string, err error) {
	p.metrics.SinkErrors.WithLabelValues(sink).Inc()
	logger.Error("sink write failed", "sink", sink, "error", err)
}

func (p *Pipeline) setLast(s domain.RunSummary) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last = &s
}

func logTopCountries(logger *slog.Logger, events []domain.DisasterEvent) {
	for i, c := range domain.TopCountries(events, topCountriesLogged) {
		logger.Info("top country", "rank", i+1, "country", c.Country, "events", c.Count)
	}
}

func countFound(events []domain.DisasterEvent) int {
	n := 0
	for _, e := range events {
		if e.Duration != nil && !e.Duration.IsEmpty() {
			n++
		}
	}
	return n
}

func nonSynthetic(events []domain.DisasterEvent) []domain.DisasterEvent {
	out := make([]domain.DisasterEvent, 0, len(events))
	for _, e := range events {
		if !e.Synthetic {
			out = append(out, e)
		}
	}
	return out
}
