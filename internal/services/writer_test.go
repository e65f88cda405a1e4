package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"ffsync/internal/core"
	"ffsync/internal/sheets"
	"ffsync/internal/sheets/memory"
)

var today = time.Date(2026, 10, 17, 9, 30, 0, 0, time.Local)

func fixedClock() time.Time { return today }

// dailySheet puts today's date at C10 with yesterday above it.
func dailySheet(store *memory.Store) *memory.Sheet {
	rows := make([][]any, 20)
	rows[8] = []any{nil, nil, "2026/10/16"}
	rows[9] = []any{nil, nil, "2026/10/17"}
	return store.Put("book", "daily", rows)
}

func scenarioLayout() core.SheetLayout {
	return core.SheetLayout{
		Name:          "daily",
		SpreadsheetID: "book",
		SheetName:     "daily",
		DateRange:     core.MustParseRange("C:C"),
		Metrics: []core.MetricRule{
			{Metric: "followers", Column: core.OffsetRule(0)},
			{Metric: "following", Column: core.OffsetRule(1)},
		},
		RowOffsets: []int{0, 1},
	}
}

func counts(followers, following int64) map[string]core.MetricValue {
	return map[string]core.MetricValue{
		"followers": core.CountValue(followers),
		"following": core.CountValue(following),
	}
}

func scenarioAccounts() []core.AccountMetrics {
	return []core.AccountMetrics{
		{Handle: "alice", Metrics: counts(10, 5)},
		{Handle: "bob", Metrics: counts(20, 8)},
	}
}

func TestBatchWriterScenario(t *testing.T) {
	store := memory.New()
	sh := dailySheet(store)
	w := NewBatchWriter(store, WithClock(fixedClock))

	report, err := w.Write(context.Background(), scenarioLayout(), "Kishi", scenarioAccounts(), false)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if report.Anchor.Date != (core.Cell{Row: 10, Col: 3}) || report.Anchor.Origin != report.Anchor.Date {
		t.Fatalf("anchor: %+v", report.Anchor)
	}

	want := []memory.Write{
		{Cell: core.Cell{Row: 10, Col: 3}, Value: int64(10)},
		{Cell: core.Cell{Row: 11, Col: 3}, Value: int64(20)},
		{Cell: core.Cell{Row: 10, Col: 4}, Value: int64(5)},
		{Cell: core.Cell{Row: 11, Col: 4}, Value: int64(8)},
	}
	got := sh.Writes()
	if len(got) != len(want) {
		t.Fatalf("got %d writes, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("write %d: got %+v, want %+v", i, got[i], want[i])
		}
	}
	if report.AppliedCount() != 4 || report.Entries[1].Address != "C11" {
		t.Fatalf("report: %+v", report.Entries)
	}
}

func TestBatchWriterDryRunMatchesLivePlan(t *testing.T) {
	store := memory.New()
	sh := dailySheet(store)
	w := NewBatchWriter(store, WithClock(fixedClock))

	dry, err := w.Write(context.Background(), scenarioLayout(), "Kishi", scenarioAccounts(), true)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if len(sh.Writes()) != 0 {
		t.Fatal("dry run must not write")
	}
	if !dry.DryRun || dry.AppliedCount() != 0 {
		t.Fatalf("dry run report: %+v", dry)
	}

	live, err := w.Write(context.Background(), scenarioLayout(), "Kishi", scenarioAccounts(), false)
	if err != nil {
		t.Fatalf("live: %v", err)
	}
	if len(dry.Entries) != len(live.Entries) {
		t.Fatalf("entry count differs: %d vs %d", len(dry.Entries), len(live.Entries))
	}
	for i := range dry.Entries {
		d, l := dry.Entries[i], live.Entries[i]
		l.Applied = false
		if d != l {
			t.Errorf("entry %d: dry %+v, live %+v", i, d, l)
		}
	}
}

func TestBatchWriterSkipsMissingMetricAndExtraOffsets(t *testing.T) {
	store := memory.New()
	sh := dailySheet(store)
	w := NewBatchWriter(store, WithClock(fixedClock))

	layout := scenarioLayout()
	layout.RowOffsets = []int{0, 1, 2}
	accounts := []core.AccountMetrics{
		{Handle: "alice", Metrics: map[string]core.MetricValue{"followers": core.CountValue(10)}},
		{Handle: "bob", Metrics: counts(20, 8)},
	}

	report, err := w.Write(context.Background(), layout, "Kishi", accounts, false)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(report.Entries) != 3 || len(sh.Writes()) != 3 {
		t.Fatalf("expected 3 writes, got %+v", report.Entries)
	}
	if sh.Value(10, 4) != nil {
		t.Fatal("alice has no following count; D10 must stay empty")
	}
	if sh.Value(12, 3) != nil {
		t.Fatal("third row offset has no account")
	}
}

func TestBatchWriterWritesErrorSentinel(t *testing.T) {
	store := memory.New()
	sh := dailySheet(store)
	w := NewBatchWriter(store, WithClock(fixedClock))

	fail := core.ErrorValue(errors.New("user suspended"))
	accounts := []core.AccountMetrics{
		{Handle: "alice", Metrics: counts(10, 5)},
		{Handle: "bob", Metrics: map[string]core.MetricValue{"followers": fail, "following": fail}},
	}
	if _, err := w.Write(context.Background(), scenarioLayout(), "Kishi", accounts, false); err != nil {
		t.Fatalf("write: %v", err)
	}
	if sh.Value(11, 3) != core.ErrorSentinel || sh.Value(11, 4) != core.ErrorSentinel {
		t.Fatalf("bob's row should hold the sentinel, got %v / %v", sh.Value(11, 3), sh.Value(11, 4))
	}
}

func TestBatchWriterDateNotFound(t *testing.T) {
	store := memory.New()
	sh := dailySheet(store)
	w := NewBatchWriter(store, WithClock(func() time.Time { return today.AddDate(0, 0, 5) }))

	_, err := w.Write(context.Background(), scenarioLayout(), "Kishi", scenarioAccounts(), false)
	if !errors.Is(err, core.ErrAnchorNotFound) || !errors.Is(err, core.ErrDateNotFound) {
		t.Fatalf("expected anchor/date not found, got %v", err)
	}
	if len(sh.Writes()) != 0 {
		t.Fatal("no cell may be written when the anchor is missing")
	}
}

func TestBatchWriterCellFailureDoesNotBlockOthers(t *testing.T) {
	store := memory.New()
	sh := dailySheet(store)
	boom := errors.New("protected range")
	sh.FailOn(11, 3, boom)
	w := NewBatchWriter(store, WithClock(fixedClock))

	report, err := w.Write(context.Background(), scenarioLayout(), "Kishi", scenarioAccounts(), false)
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined cell error, got %v", err)
	}
	if report.AppliedCount() != 3 || len(sh.Writes()) != 3 {
		t.Fatalf("other cells should be written: %+v", report.Entries)
	}
	failed := report.Failed()
	if len(failed) != 1 || failed[0].Address != "C11" || failed[0].Applied {
		t.Fatalf("failed entries: %+v", failed)
	}
}

func TestBatchWriterManagerRow(t *testing.T) {
	newStore := func() (*memory.Store, *memory.Sheet) {
		store := memory.New()
		sh := dailySheet(store)
		// Above the anchor, never considered
		_ = sh.SetCellValue(context.Background(), 5, 2, "Kishi")
		_ = sh.SetCellValue(context.Background(), 14, 2, "Kishi")
		_ = sh.SetCellValue(context.Background(), 16, 2, "Kishi")
		return store, sh
	}
	surnames := core.MustParseRange("B:B")

	t.Run("found", func(t *testing.T) {
		store, _ := newStore()
		layout := scenarioLayout()
		layout.SurnameRange = &surnames

		report, err := NewBatchWriter(store, WithClock(fixedClock)).Write(context.Background(), layout, "Kishi", scenarioAccounts(), true)
		if err != nil {
			t.Fatalf("write: %v", err)
		}
		if !report.Anchor.Manager.Found || report.Anchor.Origin != (core.Cell{Row: 14, Col: 3}) {
			t.Fatalf("anchor: %+v", report.Anchor)
		}
		if report.Entries[0].Address != "C14" || report.Entries[1].Address != "C15" {
			t.Fatalf("entries: %+v", report.Entries)
		}
	})

	t.Run("fallback", func(t *testing.T) {
		store, _ := newStore()
		layout := scenarioLayout()
		layout.SurnameRange = &surnames

		report, err := NewBatchWriter(store, WithClock(fixedClock)).Write(context.Background(), layout, "Mitarai", scenarioAccounts(), true)
		if err != nil {
			t.Fatalf("write: %v", err)
		}
		if report.Anchor.Manager.Found || report.Anchor.Origin != (core.Cell{Row: 10, Col: 3}) {
			t.Fatalf("expected fallback to the date anchor, got %+v", report.Anchor)
		}
		if report.Anchor.Manager.String() != "fallback_to_anchor" {
			t.Fatalf("resolution: %s", report.Anchor.Manager)
		}
	})

	t.Run("required", func(t *testing.T) {
		store, sh := newStore()
		layout := scenarioLayout()
		layout.SurnameRange = &surnames
		layout.RequireManagerRow = true

		before := len(sh.Writes())
		_, err := NewBatchWriter(store, WithClock(fixedClock)).Write(context.Background(), layout, "Mitarai", scenarioAccounts(), false)
		if !errors.Is(err, core.ErrManagerNotFound) {
			t.Fatalf("expected ErrManagerNotFound, got %v", err)
		}
		if len(sh.Writes()) != before {
			t.Fatal("no cell may be written when the manager row is required and missing")
		}
	})
}

func TestBatchWriterLabelColumns(t *testing.T) {
	store := memory.New()
	sh := dailySheet(store)
	layout := scenarioLayout()
	layout.Metrics = []core.MetricRule{
		{Metric: "followers", Column: core.LabelRule("f")},
		{Metric: "following", Column: core.LabelRule("AA")},
	}

	if _, err := NewBatchWriter(store, WithClock(fixedClock)).Write(context.Background(), layout, "Kishi", scenarioAccounts(), false); err != nil {
		t.Fatalf("write: %v", err)
	}
	if sh.Value(10, 6) != int64(10) || sh.Value(11, 27) != int64(8) {
		t.Fatalf("label columns not honoured: %+v", sh.Writes())
	}
}

func TestBatchWriterConfigurationErrors(t *testing.T) {
	store := memory.New()
	dailySheet(store)
	w := NewBatchWriter(store, WithClock(fixedClock))

	t.Run("invalid layout", func(t *testing.T) {
		layout := scenarioLayout()
		layout.RowOffsets = nil
		if _, err := w.Write(context.Background(), layout, "Kishi", scenarioAccounts(), false); !errors.Is(err, core.ErrInvalidLayout) {
			t.Fatalf("expected ErrInvalidLayout, got %v", err)
		}
	})

	t.Run("missing sheet", func(t *testing.T) {
		layout := scenarioLayout()
		layout.SheetName = "weekly"
		if _, err := w.Write(context.Background(), layout, "Kishi", scenarioAccounts(), false); !errors.Is(err, sheets.ErrSheetNotFound) {
			t.Fatalf("expected ErrSheetNotFound, got %v", err)
		}
	})

	t.Run("offset leaves the sheet", func(t *testing.T) {
		layout := scenarioLayout()
		layout.Metrics = []core.MetricRule{{Metric: "followers", Column: core.OffsetRule(-5)}}
		if _, err := w.Write(context.Background(), layout, "Kishi", scenarioAccounts(), false); !errors.Is(err, core.ErrInvalidLayout) {
			t.Fatalf("expected ErrInvalidLayout, got %v", err)
		}
	})
}

func TestBatchWriterLocate(t *testing.T) {
	store := memory.New()
	sh := dailySheet(store)
	anchor, err := NewBatchWriter(store, WithClock(fixedClock)).Locate(context.Background(), scenarioLayout(), "Kishi")
	if err != nil {
		t.Fatalf("locate: %v", err)
	}
	if anchor.Origin != (core.Cell{Row: 10, Col: 3}) || len(sh.Writes()) != 0 {
		t.Fatalf("locate: %+v", anchor)
	}
}
