// Package store keeps ledger-go's local state in a single SQLite database:
// a small key/value table that can hold the session credential, and a cache
// of raw query responses for offline display.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

const (
	sqlGetKV    = `SELECT value FROM kv WHERE key = ?`
	sqlDeleteKV = `DELETE FROM kv WHERE key = ?`
	sqlUpsertKV = `INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
		 value = excluded.value,
		 updated_at = excluded.updated_at`
)

// DB is the local state database. It is the sole writer to its file.
type DB struct {
	db      *sql.DB
	path    string
	logger  *slog.Logger
	nowFunc func() time.Time
}

// Open opens (creating if needed) the SQLite database at path and applies
// pending migrations.
func Open(ctx context.Context, path string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("store: creating database directory: %w", err)
	}

	// DSN parameters ensure pragmas apply to every connection from the pool.
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)"+
			"&_pragma=busy_timeout(5000)",
		path,
	)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: opening database %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("state database opened", slog.String("db_path", path))

	return &DB{
		db:      db,
		path:    path,
		logger:  logger,
		nowFunc: time.Now,
	}, nil
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// Close closes the database.
func (d *DB) Close() error {
	if err := d.db.Close(); err != nil {
		return fmt.Errorf("store: closing database: %w", err)
	}

	return nil
}

// Get returns the value stored under key. ok is false if the key is absent.
func (d *DB) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	err = d.db.QueryRowContext(ctx, sqlGetKV, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("store: reading %q: %w", key, err)
	}

	return value, true, nil
}

// Put stores value under key, replacing any previous value.
func (d *DB) Put(ctx context.Context, key, value string) error {
	if _, err := d.db.ExecContext(ctx, sqlUpsertKV, key, value, d.nowFunc().UnixNano()); err != nil {
		return fmt.Errorf("store: writing %q: %w", key, err)
	}

	return nil
}

// Delete removes key. Deleting an absent key is not an error.
func (d *DB) Delete(ctx context.Context, key string) error {
	if _, err := d.db.ExecContext(ctx, sqlDeleteKV, key); err != nil {
		return fmt.Errorf("store: deleting %q: %w", key, err)
	}

	return nil
}
