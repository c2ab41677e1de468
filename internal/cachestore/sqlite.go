package cachestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrInvalidName is returned for empty bucket names or names containing NUL.
var ErrInvalidName = errors.New("invalid cache name")

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache_names (
    name TEXT PRIMARY KEY,
    created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS cache_entries (
    entry_id TEXT PRIMARY KEY,
    cache_name TEXT NOT NULL,
    request_key TEXT NOT NULL,
    status INTEGER NOT NULL,
    header TEXT NOT NULL,
    body BLOB NOT NULL,
    stored_at TEXT NOT NULL,
    UNIQUE (cache_name, request_key)
);
`

// SQLite is a Storage persisted to a single SQLite file.
type SQLite struct {
	db *sql.DB
}

var _ Storage = (*SQLite)(nil)

// OpenSQLite opens or creates the cache database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating cache directory: %w", err)
	}
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening cache database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying cache schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Open implements Storage.
func (s *SQLite) Open(ctx context.Context, name string) (Bucket, error) {
	if err := validName(name); err != nil {
		return nil, err
	}
	if err := s.ensureName(ctx, s.db, name); err != nil {
		return nil, err
	}
	return &sqliteBucket{store: s, name: name}, nil
}

// Has implements Storage.
func (s *SQLite) Has(ctx context.Context, name string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM cache_names WHERE name = ?", name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking cache %q: %w", name, err)
	}
	return n > 0, nil
}

// Delete implements Storage.
func (s *SQLite) Delete(ctx context.Context, name string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM cache_names WHERE name = ?", name)
	if err != nil {
		return false, fmt.Errorf("deleting cache %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM cache_entries WHERE cache_name = ?", name); err != nil {
		return false, fmt.Errorf("deleting entries of cache %q: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing cache delete: %w", err)
	}
	return n > 0, nil
}

// Names implements Storage.
func (s *SQLite) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM cache_names ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("listing caches: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLite) ensureName(ctx context.Context, db execer, name string) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO cache_names (name, created_at) VALUES (?, ?) ON CONFLICT (name) DO NOTHING",
		name, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("creating cache %q: %w", name, err)
	}
	return nil
}

type sqliteBucket struct {
	store *SQLite
	name  string
}

func (b *sqliteBucket) Name() string { return b.name }

func (b *sqliteBucket) Match(ctx context.Context, key string) (*Response, bool, error) {
	var (
		resp           Response
		header, stored string
	)
	err := b.store.db.QueryRowContext(ctx,
		"SELECT status, header, body, stored_at FROM cache_entries WHERE cache_name = ? AND request_key = ?",
		b.name, key,
	).Scan(&resp.Status, &header, &resp.Body, &stored)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("matching %q in cache %q: %w", key, b.name, err)
	}
	resp.Header = make(http.Header)
	if err := json.Unmarshal([]byte(header), &resp.Header); err != nil {
		return nil, false, fmt.Errorf("decoding stored header: %w", err)
	}
	resp.StoredAt, _ = time.Parse(time.RFC3339Nano, stored)
	return &resp, true, nil
}

// Put stores resp, replacing any previous entry for key. Putting into a
// deleted bucket recreates it.
func (b *sqliteBucket) Put(ctx context.Context, key string, resp *Response) error {
	header, err := json.Marshal(resp.Header)
	if err != nil {
		return fmt.Errorf("encoding header: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generating UUID v7: %w", err)
	}
	body := resp.Body
	if body == nil {
		body = []byte{}
	}

	tx, err := b.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := b.store.ensureName(ctx, tx, b.name); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO cache_entries
    (entry_id, cache_name, request_key, status, header, body, stored_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (cache_name, request_key) DO UPDATE SET
    status = excluded.status,
    header = excluded.header,
    body = excluded.body,
    stored_at = excluded.stored_at`,
		id.String(), b.name, key, resp.Status, string(header), body,
		resp.StoredAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("storing %q in cache %q: %w", key, b.name, err)
	}
	return tx.Commit()
}

func (b *sqliteBucket) Delete(ctx context.Context, key string) (bool, error) {
	res, err := b.store.db.ExecContext(ctx,
		"DELETE FROM cache_entries WHERE cache_name = ? AND request_key = ?", b.name, key)
	if err != nil {
		return false, fmt.Errorf("deleting %q from cache %q: %w", key, b.name, err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (b *sqliteBucket) Keys(ctx context.Context) ([]string, error) {
	rows, err := b.store.db.QueryContext(ctx,
		"SELECT request_key FROM cache_entries WHERE cache_name = ? ORDER BY request_key", b.name)
	if err != nil {
		return nil, fmt.Errorf("listing keys of cache %q: %w", b.name, err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func validName(name string) error {
	if name == "" || strings.Contains(name, keySep) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
