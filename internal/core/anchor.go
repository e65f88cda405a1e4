package core

import (
	"fmt"
	"time"
)

// DefaultDateFormat matches the way the tracking sheets display dates.
const DefaultDateFormat = "2006/01/02"

// ManagerRowResolution tells whether the manager sub-search moved the origin.
type ManagerRowResolution struct {
	Found bool
	Row   int
}

// Anchor is the resolved write origin for one write call.
type Anchor struct {
	Date    Cell
	Origin  Cell
	Manager ManagerRowResolution
}

func (m ManagerRowResolution) String() string {
	if m.Found {
		return fmt.Sprintf("found(row %d)", m.Row)
	}
	return "fallback_to_anchor"
}

// DateKey renders t at midnight of its own day in the given layout.
func DateKey(t time.Time, layout string) string {
	if layout == "" {
		layout = DefaultDateFormat
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).Format(layout)
}

// ResolveManagerRow scans surnames from the row of anchorRow down to the end
// of the grid and returns the first row holding manager. Rows above the
// anchor are never considered.
func ResolveManagerRow(surnames Grid, anchorRow int, manager string) ManagerRowResolution {
	start := anchorRow - surnames.Origin.Row
	if start < 0 {
		start = 0
	}
	for i := start; i < len(surnames.Values); i++ {
		for _, v := range surnames.Values[i] {
			if Stringify(v) == manager {
				return ManagerRowResolution{Found: true, Row: surnames.Origin.Row + i}
			}
		}
	}
	return ManagerRowResolution{}
}

// ResolveAnchor locates dateKey in dates and, when surnames is given, moves
// the origin row down to the manager's block.
func ResolveAnchor(dates Grid, surnames *Grid, dateKey any, manager string) (Anchor, error) {
	date, err := dates.Find(dateKey, true)
	if err != nil {
		return Anchor{}, fmt.Errorf("%w: %w", ErrDateNotFound, err)
	}

	a := Anchor{Date: date, Origin: date}
	if surnames != nil {
		a.Manager = ResolveManagerRow(*surnames, date.Row, manager)
		if a.Manager.Found {
			a.Origin.Row = a.Manager.Row
		}
	}
	return a, nil
}
