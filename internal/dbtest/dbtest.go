// Package dbtest opens migrated in-memory SQLite databases for tests.
package dbtest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/dmitrijs2005/suspectsources/internal/migrations"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// Open returns a fresh database with the full schema applied. A single
// connection is kept open so the in-memory database lives for the test.
func Open(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`PRAGMA foreign_keys = ON`)
	require.NoError(t, err)

	require.NoError(t, migrations.Up(context.Background(), db, migrations.DialectSQLite))
	return db
}
