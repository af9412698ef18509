package main

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/couchcryptid/flood-activation-etl/internal/adapter/charter"
	kafkaadapter "github.com/couchcryptid/flood-activation-etl/internal/adapter/kafka"
	"github.com/couchcryptid/flood-activation-etl/internal/adapter/s3mirror"
	"github.com/couchcryptid/flood-activation-etl/internal/adapter/snapshot"
	"github.com/couchcryptid/flood-activation-etl/internal/adapter/sqlite"
	"github.com/couchcryptid/flood-activation-etl/internal/config"
	"github.com/couchcryptid/flood-activation-etl/internal/media"
	"github.com/couchcryptid/flood-activation-etl/internal/observability"
	"github.com/couchcryptid/flood-activation-etl/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

// app holds the wired components shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *observability.Metrics
	pipeline *pipeline.Pipeline
	library  *pipeline.Library
	closers  []io.Closer
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics := observability.NewMetrics()
	a := &app{cfg: cfg, logger: logger, metrics: metrics}

	client := charter.NewClient(cfg, charter.NewIntervalLimiter(cfg.RequestDelay), metrics, logger)
	snapshots := snapshot.NewWriter(cfg.OutputDir)

	sinks, err := a.openSinks(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	collector := pipeline.NewCollector(client, logger, metrics)
	enricher := pipeline.NewEnricher(client, cfg.DetailCacheSize, logger, metrics)
	a.pipeline = pipeline.New(collector, enricher, snapshots, sinks, logger, metrics)

	downloader := media.NewDownloader(client, cfg.MinDownloadBytes, logger, metrics)
	a.library = pipeline.NewLibrary(client, downloader, snapshots, pipeline.LibraryOptions{
		Disaster:   cfg.Disaster,
		MaxReports: cfg.MaxReports,
		Mirror:     sinks.Mirror,
	}, logger, metrics)

	logger.Info("configured",
		"base_url", cfg.BaseURL.String(),
		"output_dir", cfg.OutputDir,
		"request_delay", cfg.RequestDelay,
		"kafka", cfg.KafkaEnabled(),
		"sqlite", cfg.SQLiteEnabled(),
		"s3", cfg.S3Enabled(),
	)
	return a, nil
}

// openSinks connects the optional sinks. Interface fields stay nil for
// disabled sinks.
func (a *app) openSinks(ctx context.Context) (pipeline.Sinks, error) {
	var sinks pipeline.Sinks

	if a.cfg.KafkaEnabled() {
		w := kafkaadapter.NewWriter(a.cfg, a.logger)
		a.closers = append(a.closers, w)
		sinks.Publisher = w
		a.logger.Info("kafka sink enabled", "brokers", a.cfg.KafkaBrokers, "topic", a.cfg.KafkaTopic)
	}

	if a.cfg.SQLiteEnabled() {
		store, err := sqlite.Open(a.cfg.SQLitePath)
		if err != nil {
			return pipeline.Sinks{}, err
		}
		a.closers = append(a.closers, store)
		sinks.Store = store
		a.logger.Info("sqlite sink enabled", "path", store.Path())
	}

	if a.cfg.S3Enabled() {
		mirror, err := s3mirror.New(ctx, a.cfg.S3Bucket, a.cfg.S3Prefix, a.cfg.OutputDir, a.logger)
		if err != nil {
			return pipeline.Sinks{}, err
		}
		sinks.Mirror = mirror
		a.logger.Info("s3 mirror enabled", "bucket", a.cfg.S3Bucket, "prefix", a.cfg.S3Prefix)
	}
	return sinks, nil
}

func (a *app) close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Error("close error", "error", err)
	}
}
