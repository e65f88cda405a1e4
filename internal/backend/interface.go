package backend

import (
	"context"

	"ffsync/internal/sheets"
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result is an opened sheet backend and its optional cleanup.
type Result struct {
	Opener  sheets.Opener
	Cleanup CleanupFunc
}

// Close runs the cleanup, if any.
func (r *Result) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates sheet backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type Type

	// Google Sheets
	ServiceAccountJSON string
	ServiceAccountFile string
	OAuthClientJSON    string
	OAuthTokenJSON     string

	XLSXDir      string
	SQLiteDBPath string

	// CSV seed, <dir>/<spreadsheet id>/<sheet>.csv. Loaded by the memory
	// backend and imported into missing sqlite sheets.
	SeedDir string
}

// Type names a sheet backend.
type Type string

const (
	SheetsBackend Type = "sheets"
	XLSXBackend   Type = "xlsx"
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is known
func (t Type) IsValid() bool {
	switch t {
	case SheetsBackend, XLSXBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
