package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"ffsync/internal/core"

	"github.com/pelletier/go-toml/v2"
)

// LayoutFile is the TOML form of the sheet layouts.
//
//	[accounts]
//	spreadsheet_id = "..."
//	sheet_name     = "アカウント一覧"
//	manager_range  = "B18:B27"
//	username_range = "C18:C27"
//
//	[[layouts]]
//	name        = "daily"
//	date_range  = "A:A"
//	metrics     = ["followers", "following"]
//	col_offsets = [3, 4]
//	row_offsets = [0, 1, 2]
type LayoutFile struct {
	Accounts AccountsSection `toml:"accounts"`
	Layouts  []LayoutSection `toml:"layouts"`
}

type AccountsSection struct {
	SpreadsheetID string `toml:"spreadsheet_id"`
	SheetName     string `toml:"sheet_name"`
	ManagerRange  string `toml:"manager_range"`
	UsernameRange string `toml:"username_range"`
}

type LayoutSection struct {
	Name              string `toml:"name"`
	SpreadsheetID     string `toml:"spreadsheet_id"`
	SheetName         string `toml:"sheet_name"`
	PerManagerSheet   bool   `toml:"per_manager_sheet"`
	DateRange         string `toml:"date_range"`
	DateFormat        string `toml:"date_format"`
	SurnameRange      string `toml:"surname_range"`
	RequireManagerRow bool   `toml:"require_manager_row"`
	// Metrics is the declared metric order. Each metric takes the column
	// offset at the same index, or else its entry in Columns.
	Metrics    []string          `toml:"metrics"`
	Columns    map[string]string `toml:"columns"`
	ColOffsets []int             `toml:"col_offsets"`
	RowOffsets []int             `toml:"row_offsets"`
}

// Layouts is the validated, immutable result of a layout file.
type Layouts struct {
	Roster core.RosterSource
	Sheets []core.SheetLayout
}

// LoadLayouts reads and validates a layout file.
func LoadLayouts(path string) (*Layouts, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read layouts file: %w", err)
	}
	l, err := ParseLayouts(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

// ParseLayouts decodes TOML layouts. Unknown keys are rejected and every
// layout problem is reported at once.
func ParseLayouts(data []byte) (*Layouts, error) {
	var raw LayoutFile
	dec := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			keys := make([]string, len(strict.Errors))
			for i, e := range strict.Errors {
				keys[i] = strings.Join(e.Key(), ".")
			}
			return nil, fmt.Errorf("%w: unknown keys %s", core.ErrInvalidLayout, strings.Join(keys, ", "))
		}
		return nil, fmt.Errorf("decode layouts: %w", err)
	}

	var errs []error
	out := &Layouts{}

	roster, err := raw.Accounts.toSource()
	if err != nil {
		errs = append(errs, err)
	}
	out.Roster = roster

	if len(raw.Layouts) == 0 {
		errs = append(errs, fmt.Errorf("%w: no [[layouts]] defined", core.ErrInvalidLayout))
	}
	seen := map[string]bool{}
	for i, sec := range raw.Layouts {
		if sec.Name == "" {
			sec.Name = fmt.Sprintf("layout-%d", i+1)
		}
		if seen[sec.Name] {
			errs = append(errs, fmt.Errorf("%w: duplicate layout name %q", core.ErrInvalidLayout, sec.Name))
			continue
		}
		seen[sec.Name] = true

		layout, err := sec.toLayout(roster.SpreadsheetID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out.Sheets = append(out.Sheets, layout)
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return out, nil
}

// Find returns the layout with the given name.
func (l *Layouts) Find(name string) (core.SheetLayout, bool) {
	for _, s := range l.Sheets {
		if s.Name == name {
			return s, true
		}
	}
	return core.SheetLayout{}, false
}

// Names lists the layout names in file order.
func (l *Layouts) Names() []string {
	names := make([]string, len(l.Sheets))
	for i, s := range l.Sheets {
		names[i] = s.Name
	}
	return names
}

func (a AccountsSection) toSource() (core.RosterSource, error) {
	var problems []string
	src := core.RosterSource{SpreadsheetID: a.SpreadsheetID, SheetName: a.SheetName}
	if a.SpreadsheetID == "" {
		problems = append(problems, "spreadsheet_id is empty")
	}
	if a.SheetName == "" {
		problems = append(problems, "sheet_name is empty")
	}
	var err error
	if src.ManagerRange, err = core.ParseRange(a.ManagerRange); err != nil {
		problems = append(problems, "manager_range: "+err.Error())
	}
	if src.UsernameRange, err = core.ParseRange(a.UsernameRange); err != nil {
		problems = append(problems, "username_range: "+err.Error())
	}
	if len(problems) > 0 {
		return src, fmt.Errorf("%w [accounts]: %s", core.ErrInvalidLayout, strings.Join(problems, "; "))
	}
	return src, nil
}

// toLayout builds a layout; the spreadsheet id defaults to the roster's.
func (s LayoutSection) toLayout(defaultSpreadsheet string) (core.SheetLayout, error) {
	layout := core.SheetLayout{
		Name:              s.Name,
		SpreadsheetID:     s.SpreadsheetID,
		SheetName:         s.SheetName,
		PerManagerSheet:   s.PerManagerSheet,
		DateFormat:        s.DateFormat,
		RowOffsets:        append([]int(nil), s.RowOffsets...),
		RequireManagerRow: s.RequireManagerRow,
	}
	if layout.SpreadsheetID == "" {
		layout.SpreadsheetID = defaultSpreadsheet
	}
	if layout.DateFormat == "" {
		layout.DateFormat = core.DefaultDateFormat
	}

	var problems []string
	var err error
	if layout.DateRange, err = core.ParseRange(s.DateRange); err != nil {
		problems = append(problems, "date_range: "+err.Error())
	}
	if s.SurnameRange != "" {
		r, err := core.ParseRange(s.SurnameRange)
		if err != nil {
			problems = append(problems, "surname_range: "+err.Error())
		} else {
			layout.SurnameRange = &r
		}
	} else if s.RequireManagerRow {
		problems = append(problems, "require_manager_row needs a surname_range")
	}
	if len(s.ColOffsets) > len(s.Metrics) {
		problems = append(problems, fmt.Sprintf("%d col_offsets for %d metrics", len(s.ColOffsets), len(s.Metrics)))
	}
	if layout.Metrics, err = core.BuildMetricRules(s.Metrics, s.Columns, s.ColOffsets); err != nil {
		problems = append(problems, err.Error())
	}
	if len(problems) > 0 {
		return layout, fmt.Errorf("%w %q: %s", core.ErrInvalidLayout, s.Name, strings.Join(problems, "; "))
	}

	if err := layout.Validate(); err != nil {
		return layout, err
	}
	return layout, nil
}
