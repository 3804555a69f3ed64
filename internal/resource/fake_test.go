package resource

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type item struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type reply struct {
	body []byte
	err  error
}

// pendingGet is one Get call parked until the test replies to it.
type pendingGet struct {
	path  string
	reply chan reply
}

// gatedGetter hands every Get call to the test through calls, so the test
// decides the order in which overlapping requests settle.
type gatedGetter struct {
	calls chan *pendingGet
	count atomic.Int32
}

func newGatedGetter() *gatedGetter {
	return &gatedGetter{calls: make(chan *pendingGet, 8)}
}

func (g *gatedGetter) Get(ctx context.Context, path string) ([]byte, error) {
	g.count.Add(1)

	pg := &pendingGet{path: path, reply: make(chan reply, 1)}
	g.calls <- pg

	select {
	case r := <-pg.reply:
		return r.body, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gatedGetter) next(t *testing.T) *pendingGet {
	t.Helper()

	select {
	case pg := <-g.calls:
		return pg
	case <-time.After(5 * time.Second):
		require.FailNow(t, "timed out waiting for a Get call")
		return nil
	}
}

// staticGetter answers every path from a fixed map.
type staticGetter struct {
	mu     sync.Mutex
	bodies map[string]string
	err    error
	paths  []string
}

func (g *staticGetter) Get(_ context.Context, path string) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.paths = append(g.paths, path)
	if g.err != nil {
		return nil, g.err
	}

	body, ok := g.bodies[path]
	if !ok {
		return nil, errors.New("unexpected path " + path)
	}

	return []byte(body), nil
}

func (g *staticGetter) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.paths)
}

type sent struct {
	method  string
	path    string
	payload any
}

// recordingSender records every Send and answers with body or err.
type recordingSender struct {
	mu   sync.Mutex
	sent []sent
	body []byte
	err  error
}

func (s *recordingSender) Send(_ context.Context, method, path string, payload any) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sent = append(s.sent, sent{method: method, path: path, payload: payload})

	return s.body, s.err
}

// detailErr mimics a server error carrying a human-readable detail.
type detailErr struct {
	status int
	detail string
}

func (e *detailErr) Error() string  { return "server error " + e.detail }
func (e *detailErr) Detail() string { return e.detail }

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()

	b, err := json.Marshal(v)
	require.NoError(t, err)

	return b
}

// awaitState runs fn in a goroutine and returns a channel delivering its result.
func awaitState[T any](fn func() State[T]) <-chan State[T] {
	ch := make(chan State[T], 1)
	go func() { ch <- fn() }()

	return ch
}

func recv[T any](t *testing.T, ch <-chan State[T]) State[T] {
	t.Helper()

	select {
	case st := <-ch:
		return st
	case <-time.After(5 * time.Second):
		require.FailNow(t, "timed out waiting for fetch to settle")
		return State[T]{}
	}
}

// gatedSender holds each Send until the test releases it through its
// per-path channel.
type gatedSender struct {
	entered chan string
	release map[string]chan struct{}
}

func newGatedSender(paths ...string) *gatedSender {
	g := &gatedSender{
		entered: make(chan string, len(paths)),
		release: make(map[string]chan struct{}, len(paths)),
	}
	for _, p := range paths {
		g.release[p] = make(chan struct{})
	}

	return g
}

func (g *gatedSender) Send(_ context.Context, _, path string, _ any) ([]byte, error) {
	g.entered <- path
	<-g.release[path]

	return []byte(`{"id":1}`), nil
}
