// Package repomanager vends dialect specific repositories and runs the
// embedded schema migrations.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/suspectsources/internal/dbx"
	"github.com/dmitrijs2005/suspectsources/internal/migrations"
	"github.com/dmitrijs2005/suspectsources/internal/repositories/auditlog"
	"github.com/dmitrijs2005/suspectsources/internal/repositories/sources"
	"github.com/dmitrijs2005/suspectsources/internal/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	AuditLog(db dbx.DBTX) auditlog.Repository
	Sources(db dbx.DBTX) sources.Repository
}

// migrateUp is a seam for tests.
var migrateUp = migrations.Up

// PostgresRepositoryManager vends PostgreSQL-backed repositories.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) AuditLog(db dbx.DBTX) auditlog.Repository {
	return auditlog.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Sources(db dbx.DBTX) sources.Repository {
	return sources.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrateUp(ctx, db, migrations.DialectPostgres)
}

// SQLiteRepositoryManager vends SQLite-backed repositories.
type SQLiteRepositoryManager struct{}

func (m *SQLiteRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) AuditLog(db dbx.DBTX) auditlog.Repository {
	return auditlog.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Sources(db dbx.DBTX) sources.Repository {
	return sources.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrateUp(ctx, db, migrations.DialectSQLite)
}

// ForDriver returns the manager for a configured driver name.
func ForDriver(driver string) (RepositoryManager, error) {
	switch driver {
	case "postgres", "pgx":
		return &PostgresRepositoryManager{}, nil
	case "sqlite":
		return &SQLiteRepositoryManager{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// sqlOpen is a seam for tests.
var sqlOpen = sql.Open

// Open connects to the database, verifies the connection and applies
// pending migrations.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, RepositoryManager, error) {
	m, err := ForDriver(driver)
	if err != nil {
		return nil, nil, err
	}

	sqlDriver := "pgx"
	if _, ok := m.(*SQLiteRepositoryManager); ok {
		sqlDriver = "sqlite"
	}

	db, err := sqlOpen(sqlDriver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if sqlDriver == "sqlite" {
		// one writer; the database/sql pool would otherwise hit SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}

	if err := m.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	return db, m, nil
}
