package core

import "fmt"

// Target is one planned cell write.
type Target struct {
	Account string
	Metric  string
	Cell    Cell
	Value   any
}

// ExpandTargets turns the layout's column rules and row offsets into the
// ordered list of cell writes, metrics outer and row offsets inner. The j-th
// row offset belongs to the j-th account. Accounts without the metric, and
// row offsets without an account, are skipped.
//
// All columns are resolved before any target is produced so a bad rule never
// yields a partial plan.
func ExpandTargets(layout SheetLayout, origin Cell, accounts []AccountMetrics) ([]Target, error) {
	cols := make([]int, len(layout.Metrics))
	for i, m := range layout.Metrics {
		col, err := m.Column.Resolve(origin.Col)
		if err != nil {
			return nil, fmt.Errorf("metric %q: %w", m.Metric, err)
		}
		cols[i] = col
	}

	var targets []Target
	for i, m := range layout.Metrics {
		for j, off := range layout.RowOffsets {
			if j >= len(accounts) {
				break
			}
			acct := accounts[j]
			v, ok := acct.Metrics[m.Metric]
			if !ok {
				continue
			}
			row := origin.Row + off
			if row < 1 {
				return nil, fmt.Errorf("%w: row offset %d from row %d is out of the sheet", ErrInvalidLayout, off, origin.Row)
			}
			targets = append(targets, Target{
				Account: acct.Handle,
				Metric:  m.Metric,
				Cell:    Cell{Row: row, Col: cols[i]},
				Value:   v.CellValue(),
			})
		}
	}
	return targets, nil
}
