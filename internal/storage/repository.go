// Package storage keeps sheets in a SQLite database, one row per
// non-empty cell. It is a local stand-in for a remote spreadsheet.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"ffsync/internal/core"
	"ffsync/internal/log"
	"ffsync/internal/sheets"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db            *sql.DB
	schemaVersion uint
}

// Sheet is a handle on one stored sheet.
type Sheet struct {
	db            *sql.DB
	spreadsheetID string
	sheetName     string
}

var (
	_ sheets.Opener = (*SQLiteRepository)(nil)
	_ sheets.Sheet  = (*Sheet)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// modernc sqlite serialises writers; one connection avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, schemaVersion: version}, nil
}

// SchemaVersion is the migration version the store opened at.
func (r *SQLiteRepository) SchemaVersion() uint { return r.schemaVersion }

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateSheet registers an empty sheet. Creating an existing sheet is a no-op.
func (r *SQLiteRepository) CreateSheet(ctx context.Context, spreadsheetID, sheetName string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sheets (spreadsheet_id, sheet_name) VALUES (?, ?)
		 ON CONFLICT (spreadsheet_id, sheet_name) DO NOTHING`,
		spreadsheetID, sheetName)
	if err != nil {
		return fmt.Errorf("create sheet %s/%s: %w", spreadsheetID, sheetName, err)
	}
	return nil
}

// ImportRows creates the sheet if needed and stores rows starting at A1.
// Nil and empty-string values are skipped.
func (r *SQLiteRepository) ImportRows(ctx context.Context, spreadsheetID, sheetName string, rows [][]any) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sheets (spreadsheet_id, sheet_name) VALUES (?, ?)
		 ON CONFLICT (spreadsheet_id, sheet_name) DO NOTHING`,
		spreadsheetID, sheetName); err != nil {
		return fmt.Errorf("create sheet %s/%s: %w", spreadsheetID, sheetName, err)
	}

	count := 0
	for i, row := range rows {
		for j, v := range row {
			if v == nil || v == "" {
				continue
			}
			if err := upsertCell(ctx, tx, spreadsheetID, sheetName, i+1, j+1, v); err != nil {
				return err
			}
			count++
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}

	log.FromContext(ctx).WithComponent(log.ComponentStorage).InfoContext(ctx, "Rows imported into SQLite sheet",
		"spreadsheet_id", spreadsheetID,
		"sheet", sheetName,
		"cells", count)
	return nil
}

// OpenSheet implements sheets.Opener.
func (r *SQLiteRepository) OpenSheet(ctx context.Context, spreadsheetID, sheetName string) (sheets.Sheet, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM sheets WHERE spreadsheet_id = ? AND sheet_name = ?`,
		spreadsheetID, sheetName).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", sheets.ErrSheetNotFound, spreadsheetID, sheetName)
	}
	if err != nil {
		return nil, fmt.Errorf("look up sheet %s/%s: %w", spreadsheetID, sheetName, err)
	}
	return &Sheet{db: r.db, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

// GetRange implements sheets.Sheet.
func (s *Sheet) GetRange(ctx context.Context, ref core.RangeRef) (core.Grid, error) {
	q := `SELECT row_idx, col_idx, kind, value FROM cells
	      WHERE spreadsheet_id = ? AND sheet_name = ?`
	args := []any{s.spreadsheetID, s.sheetName}
	if ref.StartRow > 0 {
		q += ` AND row_idx >= ?`
		args = append(args, ref.StartRow)
	}
	if ref.EndRow > 0 {
		q += ` AND row_idx <= ?`
		args = append(args, ref.EndRow)
	}
	if ref.StartCol > 0 {
		q += ` AND col_idx >= ?`
		args = append(args, ref.StartCol)
	}
	if ref.EndCol > 0 {
		q += ` AND col_idx <= ?`
		args = append(args, ref.EndCol)
	}

	rs, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return core.Grid{}, fmt.Errorf("query cells: %w", err)
	}
	defer rs.Close()

	origin := ref.Origin()
	var values [][]any
	for rs.Next() {
		var (
			row, col    int
			kind, value string
		)
		if err := rs.Scan(&row, &col, &kind, &value); err != nil {
			return core.Grid{}, fmt.Errorf("scan cell: %w", err)
		}
		v, err := decodeValue(kind, value)
		if err != nil {
			return core.Grid{}, fmt.Errorf("cell %s: %w", core.Cell{Row: row, Col: col}.A1(), err)
		}
		r, c := row-origin.Row, col-origin.Col
		for len(values) <= r {
			values = append(values, nil)
		}
		for len(values[r]) <= c {
			values[r] = append(values[r], nil)
		}
		values[r][c] = v
	}
	if err := rs.Err(); err != nil {
		return core.Grid{}, fmt.Errorf("iterate cells: %w", err)
	}
	return core.Grid{Origin: origin, Values: values}, nil
}

// SetCellValue implements sheets.Sheet.
func (s *Sheet) SetCellValue(ctx context.Context, row, col int, value any) error {
	if row < 1 || col < 1 {
		return fmt.Errorf("cell R%dC%d is outside the sheet", row, col)
	}
	return upsertCell(ctx, s.db, s.spreadsheetID, s.sheetName, row, col, value)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertCell(ctx context.Context, db execer, spreadsheetID, sheetName string, row, col int, value any) error {
	kind, text := encodeValue(value)
	_, err := db.ExecContext(ctx,
		`INSERT INTO cells (spreadsheet_id, sheet_name, row_idx, col_idx, kind, value)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (spreadsheet_id, sheet_name, row_idx, col_idx)
		 DO UPDATE SET kind = excluded.kind, value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		spreadsheetID, sheetName, row, col, kind, text)
	if err != nil {
		return fmt.Errorf("write cell %s: %w", core.Cell{Row: row, Col: col}.A1(), err)
	}
	return nil
}

func encodeValue(v any) (kind, text string) {
	switch x := v.(type) {
	case int:
		return "int", strconv.FormatInt(int64(x), 10)
	case int32:
		return "int", strconv.FormatInt(int64(x), 10)
	case int64:
		return "int", strconv.FormatInt(x, 10)
	case float32:
		return "float", strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return "float", strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return "text", core.Stringify(v)
	}
}

func decodeValue(kind, text string) (any, error) {
	switch kind {
	case "int":
		return strconv.ParseInt(text, 10, 64)
	case "float":
		return strconv.ParseFloat(text, 64)
	case "text":
		return text, nil
	default:
		return nil, fmt.Errorf("unknown value kind %q", kind)
	}
}
