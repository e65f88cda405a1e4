package backend

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ffsync/internal/config"
	"ffsync/internal/core"
	"ffsync/internal/log"
	"ffsync/internal/sheets"
)

func TestTypeIsValid(t *testing.T) {
	for _, tt := range Types() {
		if !tt.IsValid() {
			t.Errorf("%s should be valid", tt)
		}
	}
	if Type("csv").IsValid() {
		t.Error("csv should not be valid")
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := FromAppConfig(&config.Config{SheetBackend: "csv"}); err == nil {
		t.Fatal("expected error for unknown backend")
	}

	cfg, err := FromAppConfig(&config.Config{
		SheetBackend:             "sheets",
		GoogleServiceAccountFile: "/etc/sa.json",
		XLSXDir:                  "x",
		SQLiteDBPath:             "db",
		MemorySeedDir:            "seed",
	})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != SheetsBackend || cfg.ServiceAccountFile != "/etc/sa.json" || cfg.SeedDir != "seed" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"memory without seed", Config{Type: MemoryBackend}, false},
		{"sqlite without path", Config{Type: SQLiteBackend}, true},
		{"xlsx without directory", Config{Type: XLSXBackend}, true},
		{"sheets without credentials", Config{Type: SheetsBackend}, true},
		{"sheets with OAuth client only", Config{Type: SheetsBackend, OAuthClientJSON: "{}"}, true},
		{"sheets with OAuth client and token", Config{Type: SheetsBackend, OAuthClientJSON: "{}", OAuthTokenJSON: "{}"}, false},
		{"sheets with service account", Config{Type: SheetsBackend, ServiceAccountFile: "sa.json"}, false},
		{"unknown", Config{Type: "csv"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.config.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func testFactory(buf *bytes.Buffer) Factory {
	return NewFactory(log.New(log.Config{Component: log.ComponentApp, Output: buf}))
}

func TestCreateMemoryBackend(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "book"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "book", "list.csv"), []byte("Kishi,alice\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var logs bytes.Buffer
	res, err := testFactory(&logs).CreateBackend(context.Background(), Config{Type: MemoryBackend, SeedDir: dir})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Close()

	sh, err := res.Opener.OpenSheet(context.Background(), "book", "list")
	if err != nil {
		t.Fatalf("OpenSheet: %v", err)
	}
	g, err := sh.GetRange(context.Background(), core.MustParseRange("B1"))
	if err != nil || g.At(0, 0) != "alice" {
		t.Fatalf("seeded value: %v %v", g, err)
	}
	if !strings.Contains(logs.String(), "component=backend") {
		t.Fatalf("factory should log as backend component:\n%s", logs.String())
	}
}

func TestCreateSQLiteBackend(t *testing.T) {
	res, err := testFactory(&bytes.Buffer{}).CreateBackend(context.Background(), Config{
		Type:         SQLiteBackend,
		SQLiteDBPath: filepath.Join(t.TempDir(), "cells.db"),
	})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if res.Cleanup == nil {
		t.Fatal("sqlite backend needs a cleanup")
	}
	if _, err := res.Opener.OpenSheet(context.Background(), "book", "missing"); !errors.Is(err, sheets.ErrSheetNotFound) {
		t.Fatalf("expected ErrSheetNotFound, got %v", err)
	}
	if err := res.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestCreateSQLiteBackendSeedsMissingSheets(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	seed := filepath.Join(dir, "seed")
	if err := os.MkdirAll(filepath.Join(seed, "book"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(seed, "book", "list.csv"), []byte("Kishi,alice\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(dir, "cells.db"), SeedDir: seed}

	var logs bytes.Buffer
	res, err := testFactory(&logs).CreateBackend(ctx, cfg)
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	if !strings.Contains(logs.String(), "seeded_sheets=1") {
		t.Fatalf("first open should import the seed:\n%s", logs.String())
	}
	sh, err := res.Opener.OpenSheet(ctx, "book", "list")
	if err != nil {
		t.Fatalf("OpenSheet: %v", err)
	}
	if err := sh.SetCellValue(ctx, 1, 2, "bob"); err != nil {
		t.Fatal(err)
	}
	res.Close()

	logs.Reset()
	res, err = testFactory(&logs).CreateBackend(ctx, cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer res.Close()
	if !strings.Contains(logs.String(), "seeded_sheets=0") {
		t.Fatalf("existing sheets must not be re-imported:\n%s", logs.String())
	}
	sh, _ = res.Opener.OpenSheet(ctx, "book", "list")
	g, err := sh.GetRange(ctx, core.MustParseRange("B1"))
	if err != nil || g.At(0, 0) != "bob" {
		t.Fatalf("seed overwrote live data: %v %v", g, err)
	}
}

func TestCreateXLSXBackend(t *testing.T) {
	res, err := testFactory(&bytes.Buffer{}).CreateBackend(context.Background(), Config{Type: XLSXBackend, XLSXDir: t.TempDir()})
	if err != nil {
		t.Fatalf("CreateBackend: %v", err)
	}
	defer res.Close()
	if _, err := res.Opener.OpenSheet(context.Background(), "absent", "Sheet1"); !errors.Is(err, sheets.ErrSheetNotFound) {
		t.Fatalf("expected ErrSheetNotFound, got %v", err)
	}
}

func TestCreateBackendRejectsInvalidConfig(t *testing.T) {
	if _, err := testFactory(&bytes.Buffer{}).CreateBackend(context.Background(), Config{Type: SQLiteBackend}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestResultCloseNil(t *testing.T) {
	var r *Result
	if err := r.Close(); err != nil {
		t.Fatal(err)
	}
	if err := (&Result{}).Close(); err != nil {
		t.Fatal(err)
	}
}
