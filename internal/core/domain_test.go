package core

import (
	"errors"
	"strings"
	"testing"
)

func validLayout() SheetLayout {
	return SheetLayout{
		Name:          "team",
		SpreadsheetID: "sheet-id",
		SheetName:     "ff",
		DateRange:     MustParseRange("5:5"),
		Metrics: []MetricRule{
			{Metric: "followers", Column: OffsetRule(0)},
			{Metric: "following", Column: OffsetRule(1)},
		},
		RowOffsets: []int{0, 1, 2},
	}
}

func TestSheetLayoutValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*SheetLayout)
		want   string
	}{
		{"valid", func(*SheetLayout) {}, ""},
		{"missing spreadsheet", func(l *SheetLayout) { l.SpreadsheetID = "" }, "spreadsheet id is empty"},
		{"missing sheet name", func(l *SheetLayout) { l.SheetName = "" }, "sheet name is empty"},
		{"per manager sheet without name", func(l *SheetLayout) { l.SheetName = ""; l.PerManagerSheet = true }, ""},
		{"no date range", func(l *SheetLayout) { l.DateRange = RangeRef{} }, "date range is not set"},
		{"no row offsets", func(l *SheetLayout) { l.RowOffsets = nil }, "row offsets are empty"},
		{"no metrics", func(l *SheetLayout) { l.Metrics = nil }, "no metrics configured"},
		{"duplicate metric", func(l *SheetLayout) { l.Metrics[1].Metric = "followers" }, "configured twice"},
		{"bad label", func(l *SheetLayout) { l.Metrics[0].Column = LabelRule("C3") }, "invalid column label"},
		{"unset rule", func(l *SheetLayout) { l.Metrics[0].Column = ColumnRule{} }, "has no column rule"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			l := validLayout()
			tc.mutate(&l)
			err := l.Validate()
			if tc.want == "" {
				if err != nil {
					t.Fatalf("expected valid layout, got %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidLayout) {
				t.Fatalf("expected ErrInvalidLayout, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestBuildMetricRules(t *testing.T) {
	rules, err := BuildMetricRules(
		[]string{"followers", "following", "posts"},
		map[string]string{"posts": "g", "followers": "D"},
		[]int{0, 1},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []MetricRule{
		{Metric: "followers", Column: OffsetRule(0)},
		{Metric: "following", Column: OffsetRule(1)},
		{Metric: "posts", Column: LabelRule("G")},
	}
	if len(rules) != len(want) {
		t.Fatalf("got %d rules, want %d", len(rules), len(want))
	}
	for i := range want {
		if rules[i] != want[i] {
			t.Fatalf("rule %d: got %+v, want %+v", i, rules[i], want[i])
		}
	}

	if _, err := BuildMetricRules([]string{"followers"}, nil, nil); !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("expected ErrInvalidLayout when no rule applies, got %v", err)
	}
}

func TestColumnRuleResolve(t *testing.T) {
	if col, err := OffsetRule(2).Resolve(5); err != nil || col != 7 {
		t.Fatalf("offset: got %d, %v", col, err)
	}
	if col, err := LabelRule("C").Resolve(40); err != nil || col != 3 {
		t.Fatalf("label ignores anchor column: got %d, %v", col, err)
	}
	if _, err := OffsetRule(-3).Resolve(2); !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("expected out of sheet error, got %v", err)
	}
	if _, err := (ColumnRule{}).Resolve(1); !errors.Is(err, ErrInvalidLayout) {
		t.Fatalf("expected unset rule error, got %v", err)
	}
}

func TestForManagerDoesNotShareState(t *testing.T) {
	sr := MustParseRange("A:A")
	base := validLayout()
	base.PerManagerSheet = true
	base.SheetName = ""
	base.SurnameRange = &sr

	l := base.ForManager("Kishi")
	if l.SheetName != "Kishi" {
		t.Fatalf("sheet name: got %q", l.SheetName)
	}
	l.RowOffsets[0] = 99
	l.SurnameRange.StartCol = 4
	if base.RowOffsets[0] != 0 || base.SurnameRange.StartCol != 1 || base.SheetName != "" {
		t.Fatalf("base layout was mutated: %+v", base)
	}

	fixed := validLayout().ForManager("Kishi")
	if fixed.SheetName != "ff" {
		t.Fatalf("fixed sheet name should be kept, got %q", fixed.SheetName)
	}
}

func TestMetricValueCellValue(t *testing.T) {
	if v := CountValue(42).CellValue(); v != int64(42) {
		t.Fatalf("count: got %v", v)
	}
	failed := ErrorValue(errors.New("boom"))
	if !failed.IsError() || failed.CellValue() != ErrorSentinel {
		t.Fatalf("error value: %+v", failed)
	}
}
