package main

import (
	"context"
	"errors"

	"ffsync/internal/amqp"
	"ffsync/internal/worker"

	"github.com/spf13/cobra"
)

func newReportsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reports",
		Short: "Consume published write reports and log them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if cfg.AMQPURL == "" {
				return errors.New("AMQP_URL is required to consume reports")
			}
			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRoutingKey)
			if err != nil {
				return err
			}
			defer client.Close()

			h := worker.NewReportLogger(root.logger)
			root.logger.Info("Consuming write reports", "queue", cfg.AMQPRoutingKey)
			err = client.ConsumeReports(cmd.Context(), h.Handle)
			root.logger.Info("Report consumer stopped", "handled", h.Seen())
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
