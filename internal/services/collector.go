package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"ffsync/internal/core"
	"ffsync/internal/log"
	"ffsync/internal/metrics"
	"ffsync/internal/sheets"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// MetricsFetcher returns the metric counts of one account.
type MetricsFetcher interface {
	Fetch(ctx context.Context, handle, key string) (map[string]int64, error)
}

// ReportPublisher ships write reports to other systems.
type ReportPublisher interface {
	PublishReport(ctx context.Context, runID string, report core.WriteReport) error
}

// CollectorConfig holds what one collection pass needs besides its collaborators.
type CollectorConfig struct {
	Roster  core.RosterSource
	Layouts []core.SheetLayout
	APIKeys []string
	DryRun  bool
	// FetchDelay is the minimum spacing between two account fetches. Zero
	// disables pacing.
	FetchDelay time.Duration
	// Managers restricts the run to these labels when non-empty.
	Managers []string
}

// RunResult summarises one collection pass.
type RunResult struct {
	RunID    string
	Managers int
	Accounts int
	Reports  []core.WriteReport
}

// Collector reads the roster, fetches metrics for every account and writes
// them through every configured layout.
type Collector struct {
	opener    sheets.Opener
	writer    *BatchWriter
	fetcher   MetricsFetcher
	publisher ReportPublisher
	limiter   *rate.Limiter
	cfg       CollectorConfig
	metrics   []string
	logger    *log.Logger
}

// NewCollector wires a collector. publisher may be nil.
func NewCollector(opener sheets.Opener, writer *BatchWriter, fetcher MetricsFetcher, publisher ReportPublisher, cfg CollectorConfig, logger *log.Logger) *Collector {
	limit := rate.Inf
	if cfg.FetchDelay > 0 {
		limit = rate.Every(cfg.FetchDelay)
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Collector{
		opener:    opener,
		writer:    writer,
		fetcher:   fetcher,
		publisher: publisher,
		limiter:   rate.NewLimiter(limit, 1),
		cfg:       cfg,
		metrics:   metricNames(cfg.Layouts),
		logger:    logger.WithComponent(log.ComponentCollector),
	}
}

// Run performs one collection pass. A failure for one (manager, layout) pair
// is logged and collected and the pass continues; the collected failures are
// returned joined alongside every report produced.
func (c *Collector) Run(ctx context.Context) (RunResult, error) {
	res := RunResult{RunID: uuid.NewString()}
	logger := c.logger.With(log.FieldRunID, res.RunID)
	start := time.Now()

	roster, err := ReadRoster(ctx, c.opener, c.cfg.Roster)
	if err != nil {
		return res, fmt.Errorf("read roster: %w", err)
	}

	var errs []error

	for _, group := range roster {
		if group.Manager == "" {
			logger.WarnContext(ctx, "Skipping accounts without manager", "accounts", len(group.Handles))
			continue
		}
		if len(c.cfg.Managers) > 0 && !slices.Contains(c.cfg.Managers, group.Manager) {
			continue
		}
		res.Managers++
		res.Accounts += len(group.Handles)

		accounts, err := c.fetchAll(ctx, logger, group)
		if err != nil {
			return res, err
		}

		for _, base := range c.cfg.Layouts {
			layout := base.ForManager(group.Manager)
			report, err := c.writer.Write(ctx, layout, group.Manager, accounts, c.cfg.DryRun)
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			c.logReport(ctx, logger, report)
			if err != nil {
				logger.ErrorContext(ctx, "Write failed",
					log.NewFields().WithLayout(layout.Name, layout.SpreadsheetID, layout.SheetName, group.Manager).WithOperation(log.OpWrite).WithError(err).ToSlice()...)
				errs = append(errs, fmt.Errorf("manager %q, layout %q: %w", group.Manager, layout.Name, err))
			}
			if len(report.Entries) == 0 {
				continue
			}
			res.Reports = append(res.Reports, report)
			c.publish(ctx, logger, res.RunID, report)
		}
	}

	logger.InfoContext(ctx, "Collection pass finished",
		log.FieldOperation, log.OpRun,
		"managers", res.Managers,
		"accounts", res.Accounts,
		"reports", len(res.Reports),
		"failures", len(errs),
		log.FieldDryRun, c.cfg.DryRun,
		log.FieldDuration, time.Since(start).Milliseconds())
	return res, errors.Join(errs...)
}

// fetchAll keeps one entry per handle in roster order. A failed fetch yields
// an entry whose metrics all hold the error sentinel.
func (c *Collector) fetchAll(ctx context.Context, logger *log.Logger, group core.ManagerAccounts) ([]core.AccountMetrics, error) {
	out := make([]core.AccountMetrics, 0, len(group.Handles))
	for i, handle := range group.Handles {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wait for fetch slot: %w", err)
		}

		counts, err := c.fetcher.Fetch(ctx, handle, metrics.KeyFor(c.cfg.APIKeys, i))
		am := core.AccountMetrics{Handle: handle, Metrics: map[string]core.MetricValue{}}
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.WarnContext(ctx, "Failed to fetch metrics",
				log.FieldOperation, log.OpFetch,
				log.FieldManager, group.Manager,
				log.FieldAccount, handle,
				log.FieldError, err)
			for _, name := range c.metrics {
				am.Metrics[name] = core.ErrorValue(err)
			}
		} else {
			for name, n := range counts {
				am.Metrics[name] = core.CountValue(n)
			}
		}
		out = append(out, am)
	}
	return out, nil
}

func (c *Collector) logReport(ctx context.Context, logger *log.Logger, report core.WriteReport) {
	for _, e := range report.Entries {
		fields := log.NewFields().
			WithLayout(report.Layout, report.SpreadsheetID, report.SheetName, report.Manager).
			WithTarget(e.Account, e.Metric, e.Address, e.Value)
		switch {
		case report.DryRun:
			logger.InfoContext(ctx, "Dry run: would write value", fields.ToSlice()...)
		case e.Error != "":
			logger.ErrorContext(ctx, "Failed to write value", fields.WithError(errors.New(e.Error)).ToSlice()...)
		default:
			logger.DebugContext(ctx, "Wrote value", fields.ToSlice()...)
		}
	}
	if len(report.Entries) > 0 {
		logger.InfoContext(ctx, "Layout written",
			log.FieldLayout, report.Layout,
			log.FieldManager, report.Manager,
			log.FieldAnchor, report.Anchor.Origin.A1(),
			log.FieldManagerRow, report.Anchor.Manager.String(),
			"applied", report.AppliedCount(),
			"entries", len(report.Entries))
	}
}

func (c *Collector) publish(ctx context.Context, logger *log.Logger, runID string, report core.WriteReport) {
	if c.publisher == nil {
		return
	}
	if err := c.publisher.PublishReport(ctx, runID, report); err != nil {
		logger.ErrorContext(ctx, "Failed to publish write report",
			log.FieldOperation, log.OpPublish,
			log.FieldLayout, report.Layout,
			log.FieldManager, report.Manager,
			log.FieldError, err)
	}
}

// metricNames lists every metric the layouts write, in first-seen order.
func metricNames(layouts []core.SheetLayout) []string {
	var names []string
	for _, l := range layouts {
		for _, m := range l.Metrics {
			if !slices.Contains(names, m.Metric) {
				names = append(names, m.Metric)
			}
		}
	}
	return names
}
