// Package store implements the relational catalog store for bunbetsu:
// categories, items, and the single-row catalog version counter that every
// mutation bumps inside its own transaction.
//
// Two dialects are supported. SQLite (modernc.org/sqlite, pure Go) keeps the
// catalog in DataDir/catalog.db; PostgreSQL is reached through the pgx
// database/sql driver.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/bunbetsu/pkg/types"
)

// DatabaseFile is the SQLite catalog file name inside DataDir.
const DatabaseFile = "catalog.db"

// Backend owns the catalog database connection.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	dialect  dialect
}

// NewBackend creates a new catalog backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{}
}

// Attach opens the database selected by config and applies the schema.
// Creates DataDir if it does not exist. The version row is seeded at 0 so the
// first mutation reports version 1.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	var (
		d   dialect
		dsn string
	)
	switch config.Backend {
	case types.BackendSQLite:
		dataDir := config.DataDir
		if dataDir == "" {
			dataDir = "."
		}
		if err := os.MkdirAll(dataDir, 0755); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		d = sqliteDialect
		dsn = sqliteDSN(filepath.Join(dataDir, DatabaseFile))
	case types.BackendPostgres:
		d = postgresDialect
		dsn = config.PostgresDSN
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return fmt.Errorf("opening %s database: %w", config.Backend, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("connecting to %s database: %w", config.Backend, err)
	}
	for _, stmt := range d.schema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return fmt.Errorf("applying schema: %w", err)
		}
	}

	b.db = db
	b.dialect = d
	b.config = config
	b.attached = true
	return nil
}

// Detach closes the database connection. Detaching a detached backend is a
// no-op.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}
	b.attached = false
	err := b.db.Close()
	b.db = nil
	return err
}

// Config returns the configuration the backend was attached with.
func (b *Backend) Config() types.Config {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.config
}

// Ping checks that the database is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return types.ErrDetached
	}
	return b.db.PingContext(ctx)
}

// query runs a read-only statement written with ? placeholders.
// Caller must hold b.mu.RLock.
func (b *Backend) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return b.db.QueryContext(ctx, b.dialect.rebind(q), args...)
}

// queryRow is the single-row form of query.
// Caller must hold b.mu.RLock.
func (b *Backend) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return b.db.QueryRowContext(ctx, b.dialect.rebind(q), args...)
}
