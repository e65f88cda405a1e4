package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"ffsync/internal/sheets"
)

func TestRunMigrationsIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cells.db")

	v1, err := RunMigrations(path)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	v2, err := RunMigrations(path)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if v1 != 1 || v2 != v1 {
		t.Fatalf("schema versions %d then %d, want 1", v1, v2)
	}
}

func TestResetSchemaDropsCells(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cells.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatal(err)
	}
	if repo.SchemaVersion() != 1 {
		t.Fatalf("schema version %d", repo.SchemaVersion())
	}
	ctx := context.Background()
	if err := repo.ImportRows(ctx, "book", "daily", [][]any{{"2026/10/17"}}); err != nil {
		t.Fatal(err)
	}
	repo.Close()

	if err := ResetSchema(path); err != nil {
		t.Fatalf("reset: %v", err)
	}

	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	if _, err := repo.OpenSheet(ctx, "book", "daily"); !errors.Is(err, sheets.ErrSheetNotFound) {
		t.Fatalf("sheet should be gone after reset, got %v", err)
	}
}
