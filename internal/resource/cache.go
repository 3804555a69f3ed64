package resource

import (
	"strings"
	"sync"
	"time"
)

// CacheEntry is a raw response body and the time it was stored.
type CacheEntry struct {
	Body     []byte
	StoredAt time.Time
}

// Cache stores raw query responses keyed by endpoint key.
type Cache interface {
	Get(key string) (CacheEntry, bool, error)
	Put(key string, body []byte) error
	// Invalidate removes every entry whose key starts with prefix.
	Invalidate(prefix string) error
}

// MemoryCache is an in-process Cache.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]CacheEntry
	nowFunc func() time.Time
}

// NewMemoryCache returns an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]CacheEntry),
		nowFunc: time.Now,
	}
}

// Get returns the entry stored under key.
func (c *MemoryCache) Get(key string) (CacheEntry, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]

	return e, ok, nil
}

// Put stores a copy of body under key.
func (c *MemoryCache) Put(key string, body []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = CacheEntry{
		Body:     append([]byte(nil), body...),
		StoredAt: c.nowFunc(),
	}

	return nil
}

// Invalidate removes every entry whose key starts with prefix.
func (c *MemoryCache) Invalidate(prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}

	return nil
}

// Lookup decodes the entry cached under key without issuing a request.
// ok is false when nothing is cached for key.
func Lookup[T any](c Cache, key string) (data *T, storedAt time.Time, ok bool, err error) {
	entry, found, err := c.Get(key)
	if err != nil || !found {
		return nil, time.Time{}, false, err
	}

	data, err = decode[T](entry.Body)
	if err != nil {
		return nil, time.Time{}, false, err
	}

	return data, entry.StoredAt, true, nil
}
