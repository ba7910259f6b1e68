package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/YoshitsuguKoike/align/internal/infrastructure/persistence/dbstate"
	"github.com/YoshitsuguKoike/align/internal/infrastructure/persistence/migration"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Open connects to dsn, verifies the connection and applies migrations
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is empty")
	}

	db, err := sql.Open(dbstate.Postgres.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	migrations, err := migration.Load(migrationFS, "migrations")
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := migration.NewMigrator(db, dbstate.Postgres, migrations).Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate postgres: %w", err)
	}
	return db, nil
}

// NewStateStore returns a workflow state store for session on db
func NewStateStore(db *sql.DB, session string) *dbstate.Store {
	return dbstate.NewStore(db, dbstate.Postgres, session)
}
