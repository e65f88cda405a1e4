package worker

import (
	"errors"
	"sync/atomic"

	"ffsync/internal/amqp"
	"ffsync/internal/log"
)

// ReportLogger logs write reports consumed from the report queue.
type ReportLogger struct {
	logger *log.Logger
	seen   atomic.Int64
}

func NewReportLogger(logger *log.Logger) *ReportLogger {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &ReportLogger{logger: logger.WithComponent(log.ComponentAMQP)}
}

// Handle matches the handler signature of amqp.Client.ConsumeReports.
func (h *ReportLogger) Handle(msg *amqp.ReportMessage) error {
	if msg == nil {
		return errors.New("nil report message")
	}
	h.seen.Add(1)

	r := msg.Report
	failed := r.Failed()
	logger := h.logger.With(
		log.FieldRunID, msg.RunID,
		log.FieldLayout, r.Layout,
		log.FieldSheet, r.SheetName,
		log.FieldManager, r.Manager,
	)
	logger.Info("Write report received",
		"message_id", msg.ID,
		log.FieldDryRun, r.DryRun,
		"entries", len(r.Entries),
		"applied", r.AppliedCount(),
		"failed", len(failed),
		"published_at", msg.Timestamp)

	for _, e := range failed {
		logger.Warn("Cell write failed",
			log.FieldAccount, e.Account,
			log.FieldMetric, e.Metric,
			log.FieldCell, e.Address,
			log.FieldError, e.Error)
	}
	return nil
}

// Seen reports how many messages were handled.
func (h *ReportLogger) Seen() int64 { return h.seen.Load() }
