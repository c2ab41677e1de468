package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mesh-intelligence/bunbetsu/pkg/types"
)

// Tx is a catalog write transaction handed to Mutate callbacks.
type Tx struct {
	tx      *sql.Tx
	dialect dialect
	now     time.Time
}

// Mutate runs fn inside one transaction and bumps the catalog version in the
// same transaction after fn succeeds. It returns the new version. When fn or
// the bump fails the transaction is rolled back and the version is unchanged,
// so a mutation and its bump are durable together or not at all.
func (b *Backend) Mutate(ctx context.Context, fn func(*Tx) error) (int64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return 0, types.ErrDetached
	}

	sqlTx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer sqlTx.Rollback()

	tx := &Tx{tx: sqlTx, dialect: b.dialect, now: time.Now().UTC()}
	if err := fn(tx); err != nil {
		return 0, err
	}

	var version int64
	if err := tx.queryRow(ctx, bumpVersionSQL).Scan(&version); err != nil {
		return 0, fmt.Errorf("bumping catalog version: %w", err)
	}
	if err := sqlTx.Commit(); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	return version, nil
}

func (t *Tx) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, t.dialect.rebind(q), args...)
}

func (t *Tx) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, t.dialect.rebind(q), args...)
}

func (t *Tx) timestamp() string {
	return t.now.Format(time.RFC3339)
}

// exists reports whether a row matches the query.
func (t *Tx) exists(ctx context.Context, q string, args ...any) (bool, error) {
	var n int
	if err := t.queryRow(ctx, q, args...).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// Reset deletes every item and category.
func (t *Tx) Reset(ctx context.Context) error {
	if _, err := t.exec(ctx, "DELETE FROM items"); err != nil {
		return fmt.Errorf("deleting items: %w", err)
	}
	if _, err := t.exec(ctx, "DELETE FROM categories"); err != nil {
		return fmt.Errorf("deleting categories: %w", err)
	}
	return nil
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}
