package services

import (
	"context"
	"fmt"

	"ffsync/internal/core"
	"ffsync/internal/sheets"
)

// PlanLayout resolves where a layout would write a manager's accounts
// without fetching metrics or touching the sheet. Planned values are zero.
func PlanLayout(ctx context.Context, opener sheets.Opener, writer *BatchWriter, roster core.RosterSource, layout core.SheetLayout, manager string) (core.WriteReport, error) {
	groups, err := ReadRoster(ctx, opener, roster)
	if err != nil {
		return core.WriteReport{}, err
	}

	var handles []string
	for _, g := range groups {
		if g.Manager == manager {
			handles = g.Handles
			break
		}
	}
	if handles == nil {
		return core.WriteReport{}, fmt.Errorf("%w: no accounts for manager %q in roster", core.ErrNotFound, manager)
	}

	accounts := make([]core.AccountMetrics, len(handles))
	for i, h := range handles {
		accounts[i] = core.AccountMetrics{Handle: h, Metrics: map[string]core.MetricValue{}}
		for _, m := range layout.Metrics {
			accounts[i].Metrics[m.Metric] = core.CountValue(0)
		}
	}
	return writer.Write(ctx, layout.ForManager(manager), manager, accounts, true)
}
