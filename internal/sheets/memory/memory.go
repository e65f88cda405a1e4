package memory

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"ffsync/internal/core"
	"ffsync/internal/sheets"
)

// Write is one recorded SetCellValue call.
type Write struct {
	Cell  core.Cell
	Value any
}

// Store keeps spreadsheets in memory, keyed by spreadsheet id and sheet name.
type Store struct {
	mu    sync.Mutex
	books map[string]map[string]*Sheet
}

// Sheet is an in-memory sheet. It records every write in call order.
type Sheet struct {
	mu     sync.Mutex
	name   string
	cells  map[core.Cell]any
	writes []Write
	fail   map[core.Cell]error
}

var (
	_ sheets.Opener = (*Store)(nil)
	_ sheets.Sheet  = (*Sheet)(nil)
)

func New() *Store {
	return &Store{books: map[string]map[string]*Sheet{}}
}

// NewFromDir seeds a store from <dir>/<spreadsheet id>/<sheet name>.csv files.
// A missing directory yields an empty store.
func NewFromDir(dir string) (*Store, error) {
	s := New()
	err := WalkSeed(dir, func(spreadsheetID, sheetName string, rows [][]any) error {
		s.Put(spreadsheetID, sheetName, rows)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// WalkSeed calls fn for every <dir>/<spreadsheet id>/<sheet name>.csv file.
// A missing directory is not an error.
func WalkSeed(dir string, fn func(spreadsheetID, sheetName string, rows [][]any) error) error {
	books, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read seed directory: %w", err)
	}
	for _, book := range books {
		if !book.IsDir() {
			continue
		}
		files, err := filepath.Glob(filepath.Join(dir, book.Name(), "*.csv"))
		if err != nil {
			return fmt.Errorf("list sheets of %s: %w", book.Name(), err)
		}
		for _, f := range files {
			rows, err := readCSV(f)
			if err != nil {
				return err
			}
			name := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
			if err := fn(book.Name(), name, rows); err != nil {
				return err
			}
		}
	}
	return nil
}

// Put creates or replaces a sheet whose rows start at A1.
func (s *Store) Put(spreadsheetID, sheetName string, rows [][]any) *Sheet {
	sh := &Sheet{name: sheetName, cells: map[core.Cell]any{}}
	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			sh.cells[core.Cell{Row: r + 1, Col: c + 1}] = v
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.books[spreadsheetID] == nil {
		s.books[spreadsheetID] = map[string]*Sheet{}
	}
	s.books[spreadsheetID][sheetName] = sh
	return sh
}

// OpenSheet implements sheets.Opener.
func (s *Store) OpenSheet(_ context.Context, spreadsheetID, sheetName string) (sheets.Sheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sh, ok := s.books[spreadsheetID][sheetName]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", sheets.ErrSheetNotFound, spreadsheetID, sheetName)
	}
	return sh, nil
}

// GetRange implements sheets.Sheet.
func (sh *Sheet) GetRange(_ context.Context, ref core.RangeRef) (core.Grid, error) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return ref.Clip(sh.rowsLocked()), nil
}

// SetCellValue implements sheets.Sheet.
func (sh *Sheet) SetCellValue(_ context.Context, row, col int, value any) error {
	if row < 1 || col < 1 {
		return fmt.Errorf("cell R%dC%d is outside the sheet", row, col)
	}
	c := core.Cell{Row: row, Col: col}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if err := sh.fail[c]; err != nil {
		return err
	}
	sh.cells[c] = value
	sh.writes = append(sh.writes, Write{Cell: c, Value: value})
	return nil
}

// Value returns the current content of a cell.
func (sh *Sheet) Value(row, col int) any {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.cells[core.Cell{Row: row, Col: col}]
}

// Writes returns the recorded writes in call order.
func (sh *Sheet) Writes() []Write {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return append([]Write(nil), sh.writes...)
}

// FailOn makes every write to the cell return err.
func (sh *Sheet) FailOn(row, col int, err error) {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.fail == nil {
		sh.fail = map[core.Cell]error{}
	}
	sh.fail[core.Cell{Row: row, Col: col}] = err
}

func (sh *Sheet) rowsLocked() [][]any {
	maxRow, maxCol := 0, 0
	for c := range sh.cells {
		if c.Row > maxRow {
			maxRow = c.Row
		}
		if c.Col > maxCol {
			maxCol = c.Col
		}
	}
	rows := make([][]any, maxRow)
	for i := range rows {
		rows[i] = make([]any, maxCol)
	}
	for c, v := range sh.cells {
		rows[c.Row-1][c.Col-1] = v
	}
	return rows
}

func readCSV(path string) ([][]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	rows := make([][]any, len(records))
	for i, rec := range records {
		rows[i] = make([]any, len(rec))
		for j, v := range rec {
			rows[i][j] = v
		}
	}
	return rows, nil
}
