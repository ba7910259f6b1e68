package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/align/internal/infrastructure/persistence/dbstate"
	"github.com/YoshitsuguKoike/align/internal/infrastructure/persistence/migration"
)

func TestOpenAppliesSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "align.db")

	db, err := Open(ctx, path)
	require.NoError(t, err)
	defer db.Close()

	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'workflow_states'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "workflow_states", name)
}

func TestMigrateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "align.db"))
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(ctx, db))
	require.NoError(t, Migrate(ctx, db))

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&count))
	assert.Equal(t, 1, count)

	migrations, err := migration.Load(migrationFS, "migrations")
	require.NoError(t, err)
	version, err := migration.NewMigrator(db, dbstate.SQLite, migrations).Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, "001", version)
}
