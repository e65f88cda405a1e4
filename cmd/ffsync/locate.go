package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"ffsync/internal/cli"
	"ffsync/internal/services"

	"github.com/spf13/cobra"
)

func newLocateCmd(root *rootOptions) *cobra.Command {
	var layoutName string

	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Print the anchor and planned cells of a layout for one manager",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(root.managers) != 1 {
				return errors.New("locate needs exactly one --manager")
			}
			manager := root.managers[0]

			ctx := cmd.Context()
			app, err := cli.NewApp(ctx, root.cfg, root.overrides(), root.logger)
			if err != nil {
				return err
			}
			defer app.Close()

			layout, ok := app.Layouts.Find(layoutName)
			if !ok {
				return fmt.Errorf("unknown layout %q (have %v)", layoutName, app.Layouts.Names())
			}

			report, err := services.PlanLayout(ctx, app.Backend.Opener, app.Writer, app.Layouts.Roster, layout, manager)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "layout:      %s\n", layout.Name)
			target := layout.ForManager(manager)
			fmt.Fprintf(out, "sheet:       %s / %s\n", target.SpreadsheetID, target.SheetName)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "date cell:   %s\n", report.Anchor.Date.A1())
			fmt.Fprintf(out, "manager row: %s\n", report.Anchor.Manager)
			fmt.Fprintf(out, "anchor:      %s\n\n", report.Anchor.Origin.A1())

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ACCOUNT\tMETRIC\tCELL")
			for _, e := range report.Entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Account, e.Metric, e.Address)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&layoutName, "layout", "", "Layout name (required)")
	_ = cmd.MarkFlagRequired("layout")
	return cmd
}
