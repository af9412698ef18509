package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	httpadapter "github.com/couchcryptid/flood-activation-etl/internal/adapter/http"
)

func newServeCmd() *cobra.Command {
	var runNow bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Collect on a schedule and expose health, status, and metrics",
		Long: `Runs the collection on COLLECT_SCHEDULE (cron syntax or @every) and
serves /healthz, /readyz, /status, and /metrics on HTTP_ADDR. A run that is
still going when the next one is due is skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				return serve(ctx, a, runNow)
			})
		},
	}
	cmd.Flags().BoolVar(&runNow, "run-now", true, "start a collection immediately instead of waiting for the schedule")
	return cmd
}

func serve(ctx context.Context, a *app, runNow bool) error {
	logger := a.logger

	collect := func() {
		plan, err := a.cfg.QueryPlan()
		if err != nil {
			logger.Error("query plan error", "error", err)
			return
		}
		if _, err := a.pipeline.Run(ctx, plan, a.cfg.EnrichDetails); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduled collection failed", "error", err)
		}
	}

	cl := cronLogger{logger: logger}
	scheduler := cron.New(cron.WithLogger(cl))
	job := cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)).Then(cron.FuncJob(collect))
	if _, err := scheduler.AddJob(a.cfg.CollectSchedule, job); err != nil {
		return fmt.Errorf("invalid COLLECT_SCHEDULE %q: %w", a.cfg.CollectSchedule, err)
	}

	srv := httpadapter.NewServer(a.cfg.HTTPAddr, a.pipeline, a.pipeline, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start scheduled collections.
	scheduler.Start()
	logger.Info("collection scheduled", "schedule", a.cfg.CollectSchedule)
	var initial sync.WaitGroup
	if runNow {
		initial.Go(job.Run)
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	stopped := make(chan struct{})
	go func() {
		<-scheduler.Stop().Done()
		initial.Wait()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-shutdownCtx.Done():
		logger.Warn("collection still running at shutdown deadline")
	}

	logger.Info("shutdown complete")
	return nil
}

// cronLogger routes scheduler messages to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
