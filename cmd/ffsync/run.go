package main

import (
	"fmt"

	"ffsync/internal/cli"

	"github.com/spf13/cobra"
)

func newRunCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one collection pass and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, err := cli.NewApp(ctx, root.cfg, root.overrides(), root.logger)
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := app.Collector.Run(ctx)
			written := 0
			for _, r := range res.Reports {
				written += r.AppliedCount()
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d managers, %d accounts, %d reports, %d cells written\n",
				res.RunID, res.Managers, res.Accounts, len(res.Reports), written)
			return err
		},
	}
}
