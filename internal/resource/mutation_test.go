package resource

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutation_Success(t *testing.T) {
	s := &recordingSender{body: []byte(`{"id":3,"name":"Roof"}`)}
	m := Create[item](s)

	res := m.Do(t.Context(), "/resources/projects", map[string]string{"name": "Roof"})

	require.True(t, res.Success)
	require.NotNil(t, res.Data)
	assert.Equal(t, item{ID: 3, Name: "Roof"}, *res.Data)
	assert.Empty(t, res.Err)
	assert.False(t, m.Loading())
	assert.Empty(t, m.Err())
	assert.Equal(t, res.Data, m.Data())

	require.Len(t, s.sent, 1)
	assert.Equal(t, http.MethodPost, s.sent[0].method)
	assert.Equal(t, "/resources/projects", s.sent[0].path)
}

func TestMutation_FailureIsResultNotError(t *testing.T) {
	s := &recordingSender{err: &detailErr{status: 422, detail: "amount: must be positive"}}
	m := Update[item](s)

	res := m.Do(t.Context(), "/resources/transactions/4", map[string]any{"amount": -1})

	assert.False(t, res.Success)
	assert.Nil(t, res.Data)
	assert.Equal(t, "amount: must be positive", res.Err)
	assert.Equal(t, "amount: must be positive", m.Err())
	assert.Equal(t, http.MethodPut, s.sent[0].method)
}

func TestMutation_DeleteWithEmptyBody(t *testing.T) {
	s := &recordingSender{}
	m := Delete[struct{}](s)

	res := m.Do(t.Context(), "/resources/obligations/2", nil)

	assert.True(t, res.Success)
	assert.Nil(t, res.Data)
	assert.Equal(t, http.MethodDelete, s.sent[0].method)
	assert.Nil(t, s.sent[0].payload)
}

func TestMutation_ErrClearedByNextSuccess(t *testing.T) {
	s := &recordingSender{err: errors.New("connection reset")}
	m := Create[item](s)

	m.Do(t.Context(), "/a", nil)
	assert.Equal(t, "connection reset", m.Err())

	s.err = nil
	s.body = []byte(`{"id":1}`)
	m.Do(t.Context(), "/a", nil)
	assert.Empty(t, m.Err())
}

func TestMutation_DoesNotTouchPairedQuery(t *testing.T) {
	g := &staticGetter{bodies: map[string]string{"/resources/budgets": `[{"id":1}]`}}
	q := NewQuery[[]item](g)
	q.SetKey(t.Context(), "/resources/budgets")

	m := Create[item](&recordingSender{body: []byte(`{"id":2}`)})
	res := m.Do(t.Context(), "/resources/budgets", item{ID: 2})
	require.True(t, res.Success)

	assert.Len(t, *q.State().Data, 1, "query data is stale until refetched")
	assert.Equal(t, 1, g.calls())
}

func TestMutation_InvalidatesRefetchesQueries(t *testing.T) {
	g := &staticGetter{bodies: map[string]string{"/resources/budgets": `[{"id":1}]`}}
	q := NewQuery[[]item](g)
	q.SetKey(t.Context(), "/resources/budgets")

	s := &recordingSender{body: []byte(`{"id":2}`)}
	m := Create[item](s, Invalidates(q))

	g.mu.Lock()
	g.bodies["/resources/budgets"] = `[{"id":1},{"id":2}]`
	g.mu.Unlock()

	res := m.Do(t.Context(), "/resources/budgets", item{ID: 2})
	require.True(t, res.Success)

	assert.Equal(t, 2, g.calls())
	assert.Equal(t, []item{{ID: 1}, {ID: 2}}, *q.State().Data)
}

func TestMutation_FailureDoesNotInvalidate(t *testing.T) {
	g := &staticGetter{bodies: map[string]string{"/a": `[]`}}
	q := NewQuery[[]item](g)
	q.SetKey(t.Context(), "/a")

	m := Create[item](&recordingSender{err: errors.New("nope")}, Invalidates(q))
	m.Do(t.Context(), "/a", nil)

	assert.Equal(t, 1, g.calls())
}

func TestMutation_EvictsCachedPrefix(t *testing.T) {
	cache := NewMemoryCache()
	require.NoError(t, cache.Put("/resources/budgets?year=2025", []byte(`[]`)))
	require.NoError(t, cache.Put("/resources/budgets/1", []byte(`{}`)))
	require.NoError(t, cache.Put("/resources/projects", []byte(`[]`)))

	m := Create[item](&recordingSender{body: []byte(`{"id":1}`)},
		WithCache(cache), Evicts("/resources/budgets"))
	require.True(t, m.Do(t.Context(), "/resources/budgets", nil).Success)

	_, ok, _ := cache.Get("/resources/budgets?year=2025")
	assert.False(t, ok)
	_, ok, _ = cache.Get("/resources/budgets/1")
	assert.False(t, ok)
	_, ok, _ = cache.Get("/resources/projects")
	assert.True(t, ok)
}

func TestMutation_LoadingUntilEveryCallSettles(t *testing.T) {
	s := newGatedSender("/a", "/b")
	m := Create[item](s)

	first := make(chan Result[item], 1)
	second := make(chan Result[item], 1)

	go func() { first <- m.Do(context.Background(), "/a", nil) }()
	<-s.entered
	go func() { second <- m.Do(context.Background(), "/b", nil) }()
	<-s.entered

	assert.True(t, m.Loading())

	close(s.release["/a"])
	assert.True(t, (<-first).Success)
	assert.True(t, m.Loading(), "second call is still in flight")

	close(s.release["/b"])
	assert.True(t, (<-second).Success)
	assert.False(t, m.Loading())
}
