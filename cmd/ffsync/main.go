package main

import (
	"context"
	"fmt"
	"os"

	"ffsync/internal/cli"
	"ffsync/internal/config"
	"ffsync/internal/log"

	"github.com/spf13/cobra"
)

// rootOptions are the flags shared by every command.
type rootOptions struct {
	dryRun      bool
	layoutsFile string
	managers    []string

	cfg    *config.Config
	logger *log.Logger
}

func (o *rootOptions) overrides() cli.Overrides {
	return cli.Overrides{LayoutsFile: o.layoutsFile, DryRun: o.dryRun, Managers: o.managers}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "ffsync",
		Short:         "Write follower and following counts into dated sheet layouts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cli.LoadEnvFile()
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			logger, err := cli.SetupLogger(cfg.LogLevel, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.logger = logger
			return nil
		},
	}

	cmd.PersistentFlags().BoolVar(&opts.dryRun, "dry-run", false, "Resolve and log every cell without writing (overrides DRY_RUN)")
	cmd.PersistentFlags().StringVar(&opts.layoutsFile, "layouts", "", "Layouts TOML file (default: LAYOUTS_FILE)")
	cmd.PersistentFlags().StringSliceVar(&opts.managers, "manager", nil, "Restrict to these manager labels (repeatable)")

	cmd.AddCommand(
		newRunCmd(opts),
		newServeCmd(opts),
		newLocateCmd(opts),
		newReportsCmd(opts),
		newAuthCmd(),
	)
	return cmd
}

func main() {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "ffsync:", err)
		os.Exit(1)
	}
}
