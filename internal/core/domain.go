package core

import (
	"fmt"
	"strings"
)

// ErrorSentinel is written in place of a metric whose retrieval failed.
const ErrorSentinel = "ERROR"

const (
	ByOffset ColumnRuleKind = iota + 1
	ByLabel
)

type (
	ColumnRuleKind int

	// ColumnRule selects the destination column of a metric. ByOffset is
	// relative to the date anchor column, ByLabel is an absolute column.
	ColumnRule struct {
		Kind   ColumnRuleKind
		Offset int
		Label  string
	}

	MetricRule struct {
		Metric string
		Column ColumnRule
	}

	// SheetLayout describes where dates, manager labels and metrics live in a
	// sheet. It is a value: callers derive per-call variants with ForManager
	// instead of mutating a shared instance.
	SheetLayout struct {
		Name          string
		SpreadsheetID string
		SheetName     string
		// PerManagerSheet writes into the sheet named after the manager.
		PerManagerSheet bool
		DateRange       RangeRef
		SurnameRange    *RangeRef
		// DateFormat is the Go time layout used to render today's date the
		// way the sheet displays it.
		DateFormat        string
		Metrics           []MetricRule
		RowOffsets        []int
		RequireManagerRow bool
	}

	// MetricValue is either a count or a retrieval failure.
	MetricValue struct {
		Count int64
		Err   string
	}

	// AccountMetrics pairs an account handle with its metrics. Accounts are
	// always handled as an ordered slice: the position of an entry decides the
	// row it is written to.
	AccountMetrics struct {
		Handle  string
		Metrics map[string]MetricValue
	}
)

func OffsetRule(offset int) ColumnRule {
	return ColumnRule{Kind: ByOffset, Offset: offset}
}

func LabelRule(label string) ColumnRule {
	return ColumnRule{Kind: ByLabel, Label: strings.ToUpper(strings.TrimSpace(label))}
}

// Resolve returns the 1-based destination column for the rule.
func (r ColumnRule) Resolve(colStart int) (int, error) {
	switch r.Kind {
	case ByOffset:
		col := colStart + r.Offset
		if col < 1 {
			return 0, fmt.Errorf("%w: column offset %d from column %d is out of the sheet", ErrInvalidLayout, r.Offset, colStart)
		}
		return col, nil
	case ByLabel:
		return LetterToIndex(r.Label)
	default:
		return 0, fmt.Errorf("%w: column rule has no offset or label", ErrInvalidLayout)
	}
}

func (r ColumnRule) String() string {
	switch r.Kind {
	case ByOffset:
		return fmt.Sprintf("offset(%+d)", r.Offset)
	case ByLabel:
		return fmt.Sprintf("column(%s)", r.Label)
	default:
		return "unset"
	}
}

// BuildMetricRules turns the positional configuration form (metric list,
// optional column labels, optional column offsets aligned with the metric
// list) into explicit rules. An offset at index i wins over a label.
func BuildMetricRules(metrics []string, labels map[string]string, colOffsets []int) ([]MetricRule, error) {
	rules := make([]MetricRule, 0, len(metrics))
	for i, m := range metrics {
		m = strings.TrimSpace(m)
		if i < len(colOffsets) {
			rules = append(rules, MetricRule{Metric: m, Column: OffsetRule(colOffsets[i])})
			continue
		}
		label := strings.TrimSpace(labels[m])
		if label == "" {
			return nil, fmt.Errorf("%w: metric %q has neither a column offset nor a column label", ErrInvalidLayout, m)
		}
		rules = append(rules, MetricRule{Metric: m, Column: LabelRule(label)})
	}
	return rules, nil
}

// Validate checks everything that can be checked without reading the sheet.
func (l SheetLayout) Validate() error {
	var problems []string

	if strings.TrimSpace(l.SpreadsheetID) == "" {
		problems = append(problems, "spreadsheet id is empty")
	}
	if !l.PerManagerSheet && strings.TrimSpace(l.SheetName) == "" {
		problems = append(problems, "sheet name is empty")
	}
	if l.DateRange.IsZero() {
		problems = append(problems, "date range is not set")
	}
	if l.SurnameRange != nil && l.SurnameRange.IsZero() {
		problems = append(problems, "surname range is empty")
	}
	if len(l.RowOffsets) == 0 {
		problems = append(problems, "row offsets are empty")
	}
	if len(l.Metrics) == 0 {
		problems = append(problems, "no metrics configured")
	}

	seen := make(map[string]struct{}, len(l.Metrics))
	for _, m := range l.Metrics {
		if m.Metric == "" {
			problems = append(problems, "metric with empty name")
			continue
		}
		if _, dup := seen[m.Metric]; dup {
			problems = append(problems, fmt.Sprintf("metric %q configured twice", m.Metric))
		}
		seen[m.Metric] = struct{}{}

		switch m.Column.Kind {
		case ByOffset:
		case ByLabel:
			if _, err := LetterToIndex(m.Column.Label); err != nil {
				problems = append(problems, fmt.Sprintf("metric %q: %v", m.Metric, err))
			}
		default:
			problems = append(problems, fmt.Sprintf("metric %q has no column rule", m.Metric))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w %q: %s", ErrInvalidLayout, l.Name, strings.Join(problems, "; "))
	}
	return nil
}

// ForManager returns a copy of the layout bound to one manager.
func (l SheetLayout) ForManager(manager string) SheetLayout {
	out := l
	out.Metrics = append([]MetricRule(nil), l.Metrics...)
	out.RowOffsets = append([]int(nil), l.RowOffsets...)
	if l.SurnameRange != nil {
		sr := *l.SurnameRange
		out.SurnameRange = &sr
	}
	if l.PerManagerSheet {
		out.SheetName = manager
	}
	return out
}

func CountValue(n int64) MetricValue {
	return MetricValue{Count: n}
}

func ErrorValue(err error) MetricValue {
	if err == nil {
		return MetricValue{Err: ErrorSentinel}
	}
	return MetricValue{Err: err.Error()}
}

func (v MetricValue) IsError() bool {
	return v.Err != ""
}

// CellValue is what ends up in the sheet.
func (v MetricValue) CellValue() any {
	if v.IsError() {
		return ErrorSentinel
	}
	return v.Count
}

func (a AccountMetrics) Has(metric string) bool {
	_, ok := a.Metrics[metric]
	return ok
}
