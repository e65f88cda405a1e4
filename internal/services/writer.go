package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ffsync/internal/core"
	"ffsync/internal/sheets"
)

// BatchWriter writes account metrics into the cells a layout resolves to.
// It does not log; callers inspect the returned report.
type BatchWriter struct {
	opener sheets.Opener
	now    func() time.Time
}

type WriterOption func(*BatchWriter)

// WithClock replaces time.Now when computing today's date.
func WithClock(now func() time.Time) WriterOption {
	return func(w *BatchWriter) { w.now = now }
}

func NewBatchWriter(opener sheets.Opener, opts ...WriterOption) *BatchWriter {
	w := &BatchWriter{opener: opener, now: time.Now}
	for _, o := range opts {
		o(w)
	}
	return w
}

// Write resolves today's anchor for manager, expands the layout into cell
// targets and writes them in order, metrics outer and row offsets inner.
// With dryRun set nothing is written and every entry has Applied=false.
//
// Layout, sheet and anchor problems fail the whole call before any write.
// A failed cell write is recorded on its entry and the remaining targets
// are still written; the failures are returned joined.
func (w *BatchWriter) Write(ctx context.Context, layout core.SheetLayout, manager string, accounts []core.AccountMetrics, dryRun bool) (core.WriteReport, error) {
	report := core.WriteReport{
		Layout:        layout.Name,
		SpreadsheetID: layout.SpreadsheetID,
		SheetName:     layout.SheetName,
		Manager:       manager,
		DryRun:        dryRun,
	}

	sh, anchor, err := w.open(ctx, layout, manager)
	if err != nil {
		return report, err
	}
	report.Anchor = anchor

	targets, err := core.ExpandTargets(layout, anchor.Origin, accounts)
	if err != nil {
		return report, fmt.Errorf("layout %q: %w", layout.Name, err)
	}

	var errs []error
	for _, t := range targets {
		entry := core.ReportEntry{
			Account: t.Account,
			Metric:  t.Metric,
			Address: t.Cell.A1(),
			Row:     t.Cell.Row,
			Col:     t.Cell.Col,
			Value:   t.Value,
		}
		if !dryRun {
			if err := sh.SetCellValue(ctx, t.Cell.Row, t.Cell.Col, t.Value); err != nil {
				entry.Error = err.Error()
				errs = append(errs, fmt.Errorf("write %s (%s/%s): %w", entry.Address, t.Account, t.Metric, err))
			} else {
				entry.Applied = true
			}
		}
		report.Entries = append(report.Entries, entry)
	}

	if f, ok := sh.(sheets.Flusher); ok && !dryRun && report.AppliedCount() > 0 {
		if err := f.Flush(ctx); err != nil {
			errs = append(errs, fmt.Errorf("flush %s: %w", layout.SheetName, err))
		}
	}
	return report, errors.Join(errs...)
}

// Locate resolves the anchor a write would use without touching the sheet.
func (w *BatchWriter) Locate(ctx context.Context, layout core.SheetLayout, manager string) (core.Anchor, error) {
	_, anchor, err := w.open(ctx, layout, manager)
	return anchor, err
}

func (w *BatchWriter) open(ctx context.Context, layout core.SheetLayout, manager string) (sheets.Sheet, core.Anchor, error) {
	if err := layout.Validate(); err != nil {
		return nil, core.Anchor{}, err
	}

	sh, err := w.opener.OpenSheet(ctx, layout.SpreadsheetID, layout.SheetName)
	if err != nil {
		return nil, core.Anchor{}, fmt.Errorf("open sheet %q: %w", layout.SheetName, err)
	}

	anchor, err := w.resolve(ctx, sh, layout, manager)
	if err != nil {
		return nil, core.Anchor{}, err
	}
	return sh, anchor, nil
}

func (w *BatchWriter) resolve(ctx context.Context, sh sheets.Sheet, layout core.SheetLayout, manager string) (core.Anchor, error) {
	dates, err := sh.GetRange(ctx, layout.DateRange)
	if err != nil {
		return core.Anchor{}, fmt.Errorf("read date range %s: %w", layout.DateRange, err)
	}

	var surnames *core.Grid
	if layout.SurnameRange != nil {
		g, err := sh.GetRange(ctx, *layout.SurnameRange)
		if err != nil {
			return core.Anchor{}, fmt.Errorf("read surname range %s: %w", layout.SurnameRange, err)
		}
		surnames = &g
	}

	key := core.DateKey(w.now(), layout.DateFormat)
	anchor, err := core.ResolveAnchor(dates, surnames, key, manager)
	if err != nil {
		return core.Anchor{}, fmt.Errorf("%w: layout %q, date %s: %w", core.ErrAnchorNotFound, layout.Name, key, err)
	}

	if layout.RequireManagerRow && surnames != nil && !anchor.Manager.Found {
		return anchor, fmt.Errorf("%w: %q below row %d of %s", core.ErrManagerNotFound, manager, anchor.Date.Row, layout.SurnameRange)
	}
	return anchor, nil
}
