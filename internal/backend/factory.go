package backend

import (
	"context"
	"errors"
	"fmt"

	"ffsync/internal/log"
	"ffsync/internal/sheets"
	gsheet "ffsync/internal/sheets/google"
	"ffsync/internal/sheets/memory"
	"ffsync/internal/sheets/xlsx"
	"ffsync/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case XLSXBackend:
		return f.createXLSXBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(ctx, config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*Result, error) {
	cli, err := gsheet.New(ctx, gsheet.Credentials{
		ServiceAccountJSON: config.ServiceAccountJSON,
		ServiceAccountFile: config.ServiceAccountFile,
		OAuthClientJSON:    config.OAuthClientJSON,
		OAuthTokenJSON:     config.OAuthTokenJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend",
		"service_account", config.ServiceAccountJSON != "" || config.ServiceAccountFile != "")
	return &Result{Opener: cli}, nil
}

func (f *DefaultFactory) createXLSXBackend(config Config) (*Result, error) {
	store := xlsx.New(config.XLSXDir)
	f.logger.Info("Initialized XLSX backend", "directory", config.XLSXDir)
	return &Result{Opener: store, Cleanup: store.Close}, nil
}

func (f *DefaultFactory) createSQLiteBackend(ctx context.Context, config Config) (*Result, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	imported, err := seedSQLite(ctx, repo, config.SeedDir)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to seed SQLite backend: %w", err)
	}
	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"schema_version", repo.SchemaVersion(),
		"seeded_sheets", imported)
	return &Result{Opener: repo, Cleanup: repo.Close}, nil
}

// seedSQLite imports seed CSV sheets the database does not hold yet.
// Existing sheets are never overwritten.
func seedSQLite(ctx context.Context, repo *storage.SQLiteRepository, dir string) (int, error) {
	if dir == "" {
		return 0, nil
	}
	imported := 0
	err := memory.WalkSeed(dir, func(spreadsheetID, sheetName string, rows [][]any) error {
		_, err := repo.OpenSheet(ctx, spreadsheetID, sheetName)
		if err == nil {
			return nil
		}
		if !errors.Is(err, sheets.ErrSheetNotFound) {
			return err
		}
		if err := repo.ImportRows(ctx, spreadsheetID, sheetName, rows); err != nil {
			return err
		}
		imported++
		return nil
	})
	return imported, err
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*Result, error) {
	store, err := memory.NewFromDir(config.SeedDir)
	if err != nil {
		return nil, fmt.Errorf("failed to seed memory backend: %w", err)
	}
	f.logger.Info("Initialized memory backend", "seed_directory", config.SeedDir)
	return &Result{Opener: store}, nil
}
