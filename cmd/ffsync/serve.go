package main

import (
	"context"
	"errors"

	"ffsync/internal/cli"
	"ffsync/internal/worker"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run a collection pass now and then every RUN_INTERVAL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := cli.NewApp(cmd.Context(), root.cfg, root.overrides(), root.logger)
			if err != nil {
				return err
			}
			defer app.Close()

			sched, err := worker.NewScheduler(app.Collector, root.cfg.RunInterval, root.logger)
			if err != nil {
				return err
			}

			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return sched.Start(ctx)
			})
			g.Go(func() error {
				<-ctx.Done()
				root.logger.Info("Shutdown signal received")
				return nil
			})

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			root.logger.Info("Shutdown complete", "runs", sched.Runs())
			return nil
		},
	}
}
