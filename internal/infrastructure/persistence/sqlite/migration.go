package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/YoshitsuguKoike/align/internal/infrastructure/persistence/dbstate"
	"github.com/YoshitsuguKoike/align/internal/infrastructure/persistence/migration"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Open opens (creating if needed) the database at path and applies migrations
func Open(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(dbstate.SQLite.Driver, path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate applies the embedded schema
func Migrate(ctx context.Context, db *sql.DB) error {
	migrations, err := migration.Load(migrationFS, "migrations")
	if err != nil {
		return err
	}
	if err := migration.NewMigrator(db, dbstate.SQLite, migrations).Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// NewStateStore returns a workflow state store for session on db
func NewStateStore(db *sql.DB, session string) *dbstate.Store {
	return dbstate.NewStore(db, dbstate.SQLite, session)
}
