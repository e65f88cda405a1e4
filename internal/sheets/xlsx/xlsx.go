// Package xlsx serves sheet handles from local .xlsx workbooks. The
// spreadsheet id names the workbook file inside the store directory.
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ffsync/internal/core"
	"ffsync/internal/sheets"

	"github.com/xuri/excelize/v2"
)

type Store struct {
	dir   string
	mu    sync.Mutex
	files map[string]*excelize.File
}

type Sheet struct {
	mu   *sync.Mutex
	file *excelize.File
	name string
}

var (
	_ sheets.Opener  = (*Store)(nil)
	_ sheets.Sheet   = (*Sheet)(nil)
	_ sheets.Flusher = (*Sheet)(nil)
)

func New(dir string) *Store {
	return &Store{dir: dir, files: map[string]*excelize.File{}}
}

// Path returns the workbook path used for a spreadsheet id.
func (s *Store) Path(spreadsheetID string) string {
	return filepath.Join(s.dir, spreadsheetID+".xlsx")
}

// OpenSheet implements sheets.Opener. Workbooks stay open until Close.
func (s *Store) OpenSheet(_ context.Context, spreadsheetID, sheetName string) (sheets.Sheet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[spreadsheetID]
	if !ok {
		path := s.Path(spreadsheetID)
		var err error
		f, err = excelize.OpenFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("%w: workbook %s", sheets.ErrSheetNotFound, path)
			}
			return nil, fmt.Errorf("open workbook %s: %w", path, err)
		}
		s.files[spreadsheetID] = f
	}

	idx, err := f.GetSheetIndex(sheetName)
	if err != nil {
		return nil, fmt.Errorf("look up sheet %q: %w", sheetName, err)
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q in %s", sheets.ErrSheetNotFound, sheetName, spreadsheetID)
	}
	return &Sheet{mu: &s.mu, file: f, name: sheetName}, nil
}

// Close closes every open workbook without saving.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var errs []error
	for id, f := range s.files {
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", id, err))
		}
		delete(s.files, id)
	}
	return errors.Join(errs...)
}

// GetRange implements sheets.Sheet. Values are the formatted cell texts.
func (sh *Sheet) GetRange(_ context.Context, ref core.RangeRef) (core.Grid, error) {
	sh.mu.Lock()
	rows, err := sh.file.GetRows(sh.name)
	sh.mu.Unlock()
	if err != nil {
		return core.Grid{}, fmt.Errorf("read rows of %q: %w", sh.name, err)
	}

	block := make([][]any, len(rows))
	for i, row := range rows {
		block[i] = make([]any, len(row))
		for j, v := range row {
			block[i][j] = v
		}
	}
	return ref.Clip(block), nil
}

// SetCellValue implements sheets.Sheet. The write stays in memory until Flush.
func (sh *Sheet) SetCellValue(_ context.Context, row, col int, value any) error {
	addr, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return fmt.Errorf("cell R%dC%d: %w", row, col, err)
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if err := sh.file.SetCellValue(sh.name, addr, value); err != nil {
		return fmt.Errorf("set %s!%s: %w", sh.name, addr, err)
	}
	return nil
}

// Flush implements sheets.Flusher by saving the workbook in place.
func (sh *Sheet) Flush(_ context.Context) error {
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if err := sh.file.Save(); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}
