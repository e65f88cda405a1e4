package sheets

import (
	"context"
	"errors"

	"ffsync/internal/core"
)

// ErrSheetNotFound is returned by openers when the named sheet does not exist.
var ErrSheetNotFound = errors.New("sheet not found")

// Ports for outbound adapters.
type (
	// Sheet is a handle on one named sheet of a spreadsheet.
	Sheet interface {
		// GetRange returns the values inside ref. Grid.Origin is the range's
		// top-left cell even when leading rows or columns are empty.
		GetRange(ctx context.Context, ref core.RangeRef) (core.Grid, error)
		// SetCellValue writes a single cell at an absolute 1-based position.
		SetCellValue(ctx context.Context, row, col int, value any) error
	}

	// Opener resolves a sheet handle from a spreadsheet id and sheet name.
	Opener interface {
		OpenSheet(ctx context.Context, spreadsheetID, sheetName string) (Sheet, error)
	}

	// Flusher is implemented by sheets that buffer writes (local workbooks).
	Flusher interface {
		Flush(ctx context.Context) error
	}
)
