package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateKeyNormalizesToMidnight(t *testing.T) {
	loc := time.FixedZone("JST", 9*3600)
	late := time.Date(2026, 10, 17, 23, 59, 0, 0, loc)
	if got := DateKey(late, ""); got != "2026/10/17" {
		t.Fatalf("default format: got %q", got)
	}
	if got := DateKey(late, "2006-01-02 15:04"); got != "2026-10-17 00:00" {
		t.Fatalf("time of day not reset: got %q", got)
	}
}

func TestResolveAnchorDateOnly(t *testing.T) {
	dates := Grid{Origin: Cell{Row: 1, Col: 1}, Values: [][]any{
		{"date"}, {"2026/10/15"}, {"2026/10/16"}, {"2026/10/17"},
	}}
	a, err := ResolveAnchor(dates, nil, "2026/10/17", "Kishi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Cell{Row: 4, Col: 1}
	if a.Date != want || a.Origin != want {
		t.Fatalf("got %+v, want origin %+v", a, want)
	}
	if a.Manager.Found {
		t.Fatal("manager resolution should not run without a surname range")
	}
}

func TestResolveAnchorDateNotFound(t *testing.T) {
	dates := Grid{Origin: Cell{Row: 1, Col: 1}, Values: [][]any{{"2026/10/16"}}}
	_, err := ResolveAnchor(dates, nil, "2026/10/17", "")
	if !errors.Is(err, ErrDateNotFound) {
		t.Fatalf("expected ErrDateNotFound, got %v", err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected the matcher error to stay visible, got %v", err)
	}
}

// Dates run along row 5 and managers are listed in column A below it.
func teamGrids() (Grid, Grid) {
	dates := Grid{Origin: Cell{Row: 5, Col: 1}, Values: [][]any{
		{"", "", "2026/10/16", "", "2026/10/17", ""},
	}}
	surnames := Grid{Origin: Cell{Row: 1, Col: 1}, Values: [][]any{
		{"Mitarai"}, // row 1, above the date row
		{},
		{},
		{},
		{"date"},    // row 5
		{"Mitarai"}, // row 6
		{},
		{"Kishi"}, // row 8
		{},
		{"Kishi"}, // row 10
	}}
	return dates, surnames
}

func TestResolveAnchorManagerFound(t *testing.T) {
	dates, surnames := teamGrids()
	a, err := ResolveAnchor(dates, &surnames, "2026/10/17", "Kishi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Date != (Cell{Row: 5, Col: 5}) {
		t.Fatalf("date cell: %+v", a.Date)
	}
	if !a.Manager.Found || a.Manager.Row != 8 {
		t.Fatalf("manager: %+v", a.Manager)
	}
	if a.Origin != (Cell{Row: 8, Col: 5}) {
		t.Fatalf("origin: %+v", a.Origin)
	}
}

func TestResolveAnchorNeverLooksAboveDateRow(t *testing.T) {
	dates, surnames := teamGrids()
	surnames.Values[5] = []any{} // remove the Mitarai below the date row
	a, err := ResolveAnchor(dates, &surnames, "2026/10/17", "Mitarai")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Manager.Found {
		t.Fatalf("row 1 is above the date row and must not match: %+v", a.Manager)
	}
	if a.Origin.Row != 5 {
		t.Fatalf("fallback should keep the date row, got %d", a.Origin.Row)
	}
	if a.Manager.String() != "fallback_to_anchor" {
		t.Fatalf("resolution name: %s", a.Manager)
	}
}

func TestResolveManagerRowOffsets(t *testing.T) {
	surnames := Grid{Origin: Cell{Row: 10, Col: 1}, Values: [][]any{{"a"}, {"b"}, {"c"}, {"d"}}}
	cases := []struct {
		anchorRow int
		manager   string
		found     bool
		row       int
	}{
		{10, "c", true, 12},
		{12, "c", true, 12},
		{13, "c", false, 0},
		{2, "a", true, 10},
		{40, "d", false, 0},
	}
	for _, tc := range cases {
		got := ResolveManagerRow(surnames, tc.anchorRow, tc.manager)
		if got.Found != tc.found || got.Row != tc.row {
			t.Fatalf("anchor %d manager %q: got %+v", tc.anchorRow, tc.manager, got)
		}
	}
}
