package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(t.Context(), filepath.Join(t.TempDir(), "state", "ledger.db"), nil)
	require.NoError(t, err)

	t.Cleanup(func() { db.Close() })

	return db
}

func TestOpen_AppliesMigrations(t *testing.T) {
	db := openTestDB(t)

	var n int
	err := db.db.QueryRowContext(t.Context(),
		"SELECT COUNT(*) FROM goose_db_version WHERE version_id > 0").Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")

	db, err := Open(t.Context(), path, nil)
	require.NoError(t, err)
	require.NoError(t, db.Put(t.Context(), "k", "v"))
	require.NoError(t, db.Close())

	db, err = Open(t.Context(), path, nil)
	require.NoError(t, err)
	defer db.Close()

	v, ok, err := db.Get(t.Context(), "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)
	assert.Equal(t, path, db.Path())
}

func TestKV_GetPutDelete(t *testing.T) {
	db := openTestDB(t)

	_, ok, err := db.Get(t.Context(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, db.Put(t.Context(), "a", "1"))
	require.NoError(t, db.Put(t.Context(), "a", "2"))

	v, ok, err := db.Get(t.Context(), "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2", v)

	require.NoError(t, db.Delete(t.Context(), "a"))
	require.NoError(t, db.Delete(t.Context(), "a"))

	_, ok, err = db.Get(t.Context(), "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCredentials_RoundTrip(t *testing.T) {
	creds := openTestDB(t).Credentials()

	tok, err := creds.Load()
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, creds.Save("tok-123"))

	tok, err = creds.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok-123", tok)

	require.NoError(t, creds.Clear())

	tok, err = creds.Load()
	require.NoError(t, err)
	assert.Empty(t, tok)
}

func TestCache_PutGetInvalidate(t *testing.T) {
	db := openTestDB(t)
	now := time.Date(2025, 6, 30, 8, 0, 0, 0, time.UTC)
	db.nowFunc = func() time.Time { return now }
	c := db.Cache()

	require.NoError(t, c.Put("/resources/budgets?year=2025", []byte(`[{"id":1}]`)))
	require.NoError(t, c.Put("/resources/budgets/1", []byte(`{"id":1}`)))
	require.NoError(t, c.Put("/resources/projects", []byte(`[]`)))
	require.NoError(t, c.Put("/resources/provinces", nil))

	e, ok, err := c.Get("/resources/budgets?year=2025")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `[{"id":1}]`, string(e.Body))
	assert.True(t, now.Equal(e.StoredAt))

	require.NoError(t, c.Invalidate("/resources/budgets"))

	_, ok, err = c.Get("/resources/budgets?year=2025")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = c.Get("/resources/budgets/1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = c.Get("/resources/projects")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCache_PrefixIsLiteral(t *testing.T) {
	c := openTestDB(t).Cache()

	require.NoError(t, c.Put("/resources/a_b", []byte(`1`)))
	require.NoError(t, c.Put("/resources/axb", []byte(`2`)))

	require.NoError(t, c.Invalidate("/resources/a_"))

	_, ok, _ := c.Get("/resources/a_b")
	assert.False(t, ok)
	_, ok, _ = c.Get("/resources/axb")
	assert.True(t, ok, "underscore is not a wildcard")
}
