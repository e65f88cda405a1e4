package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrDirtySchema means a previous migration stopped halfway.
var ErrDirtySchema = errors.New("cell store schema is dirty")

// migrator owns its own connection; closing it leaves the repository's pool alone.
type migrator struct {
	m  *migrate.Migrate
	db *sql.DB
}

func openMigrator(dbPath string) (*migrator, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open migration database: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite driver: %w", err)
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("read embedded migrations: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return &migrator{m: m, db: db}, nil
}

func (mg *migrator) close() {
	mg.m.Close()
	mg.db.Close()
}

// RunMigrations applies pending cell store migrations and returns the
// resulting schema version.
func RunMigrations(dbPath string) (uint, error) {
	mg, err := openMigrator(dbPath)
	if err != nil {
		return 0, err
	}
	defer mg.close()

	if _, dirty, err := mg.m.Version(); err == nil && dirty {
		return 0, ErrDirtySchema
	}
	if err := mg.m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("run migrations: %w", err)
	}
	version, _, err := mg.m.Version()
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return version, nil
}

// ResetSchema rolls every migration back. Cell data is lost.
func ResetSchema(dbPath string) error {
	mg, err := openMigrator(dbPath)
	if err != nil {
		return err
	}
	defer mg.close()

	if err := mg.m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("roll back migrations: %w", err)
	}
	return nil
}
