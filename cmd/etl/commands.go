package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/flood-activation-etl/internal/domain"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "flood-etl",
		Short: "Collect flood activations from the International Charter site",
		Long: `flood-etl collects flood activations from disasterscharter.org, enriches
them from activation detail pages, and writes JSON snapshots. It also
downloads satellite quickview images and Charter reports.

Configuration is read from environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newCollectCmd(),
		newEnrichCmd(),
		newImagesCmd(),
		newReportsCmd(),
		newServeCmd(),
	)
	return root
}

// withApp wires the application, runs fn with a context cancelled on
// SIGINT/SIGTERM, and releases the sinks afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a)
}

func newCollectCmd() *cobra.Command {
	var (
		region string
		enrich bool
	)
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Run the activation query plan and write snapshots",
		Long: `Runs the global query followed by every Charter region (or the plan in
QUERY_PLAN_FILE), deduplicates by activation ID, and writes the raw and
processed snapshots. With --region only that location filter is queried.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				plan, err := a.cfg.QueryPlan()
				if err != nil {
					return err
				}
				if region != "" {
					plan = domain.SingleRegionPlan(a.cfg.Disaster, region)
				}
				if !cmd.Flags().Changed("enrich") {
					enrich = a.cfg.EnrichDetails
				}

				summary, err := a.pipeline.Run(ctx, plan, enrich)
				if err != nil {
					return err
				}
				for _, path := range summary.Outputs {
					cmd.Println(path)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&region, "region", "", "query a single location filter instead of the full plan")
	cmd.Flags().BoolVar(&enrich, "enrich", false, "fetch detail pages for every event (default from ENRICH_DETAILS)")
	return cmd
}

func newEnrichCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enrich",
		Short: "Enrich the processed snapshot from activation detail pages",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				stats, path, err := a.pipeline.EnrichSnapshot(ctx)
				if err != nil {
					return err
				}
				cmd.Printf("%s (%d enriched, %d with duration)\n", path, stats.Enriched, stats.WithDays)
				return nil
			})
		},
	}
}

func newImagesCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "images",
		Short: "Download satellite quickview images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				m, path, err := a.library.Images(ctx, input)
				if err != nil {
					return err
				}
				cmd.Printf("%s (%d images, %d bytes)\n", path, m.TotalCount, m.TotalSizeBytes)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "parse a saved quickviews response instead of fetching")
	return cmd
}

func newReportsCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Download Charter library reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				m, path, err := a.library.Reports(ctx, input)
				if err != nil {
					return err
				}
				cmd.Printf("%s (%d reports)\n", path, m.TotalCount)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "parse a saved documents response instead of fetching")
	return cmd
}
