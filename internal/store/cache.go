package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/churchfinance/ledger-go/internal/resource"
)

const (
	sqlGetCache = `SELECT body, stored_at FROM query_cache WHERE key = ?`
	sqlPutCache = `INSERT INTO query_cache (key, body, stored_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
		 body = excluded.body,
		 stored_at = excluded.stored_at`
	sqlInvalidateCache = `DELETE FROM query_cache WHERE substr(key, 1, length(?)) = ?`
)

// Cache is a persistent resource.Cache.
type Cache struct {
	db *DB
}

var _ resource.Cache = (*Cache)(nil)

// Cache returns the query response cache backed by d.
func (d *DB) Cache() *Cache {
	return &Cache{db: d}
}

// Get returns the cached response for key.
func (c *Cache) Get(key string) (resource.CacheEntry, bool, error) {
	var (
		body     []byte
		storedAt int64
	)

	err := c.db.db.QueryRowContext(context.Background(), sqlGetCache, key).Scan(&body, &storedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return resource.CacheEntry{}, false, nil
	}

	if err != nil {
		return resource.CacheEntry{}, false, fmt.Errorf("store: reading cached %q: %w", key, err)
	}

	return resource.CacheEntry{Body: body, StoredAt: time.Unix(0, storedAt)}, true, nil
}

// Put stores body under key.
func (c *Cache) Put(key string, body []byte) error {
	if body == nil {
		body = []byte{}
	}

	_, err := c.db.db.ExecContext(context.Background(), sqlPutCache, key, body, c.db.nowFunc().UnixNano())
	if err != nil {
		return fmt.Errorf("store: caching %q: %w", key, err)
	}

	return nil
}

// Invalidate removes every cached response whose key starts with prefix.
func (c *Cache) Invalidate(prefix string) error {
	res, err := c.db.db.ExecContext(context.Background(), sqlInvalidateCache, prefix, prefix)
	if err != nil {
		return fmt.Errorf("store: invalidating %q: %w", prefix, err)
	}

	if n, err := res.RowsAffected(); err == nil && n > 0 {
		c.db.logger.Debug("cached responses evicted",
			slog.String("prefix", prefix),
			slog.Int64("count", n),
		)
	}

	return nil
}
