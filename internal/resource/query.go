package resource

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// State is the observable state of a Query. Err is "" when there is no
// error. After a fetch settles, exactly one of Data and Err is set and
// Loading is false.
type State[T any] struct {
	Data    *T
	Loading bool
	Err     string
}

// Query keeps the state of one subscription to an endpoint key. It is safe
// for concurrent use; network I/O happens outside the lock and each
// completion is applied as a single critical section.
type Query[T any] struct {
	client Getter
	opts   options

	mu        sync.Mutex
	key       string
	issued    uint64 // sequence number of the most recently issued fetch
	state     State[T]
	listeners map[int]func(State[T])
	nextID    int
	closed    bool
}

// NewQuery returns a detached Query. Nothing is fetched until SetKey.
func NewQuery[T any](client Getter, opts ...Option) *Query[T] {
	return &Query[T]{
		client:    client,
		opts:      buildOptions(opts),
		listeners: make(map[int]func(State[T])),
	}
}

// State returns a snapshot of the current state.
func (q *Query[T]) State() State[T] {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.state
}

// Key returns the endpoint key the query is subscribed to.
func (q *Query[T]) Key() string {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.key
}

// Subscribe registers fn to receive every state change. The returned
// function removes the subscription.
func (q *Query[T]) Subscribe(fn func(State[T])) func() {
	q.mu.Lock()
	defer q.mu.Unlock()

	id := q.nextID
	q.nextID++
	q.listeners[id] = fn

	return func() {
		q.mu.Lock()
		defer q.mu.Unlock()

		delete(q.listeners, id)
	}
}

// SetKey subscribes the query to key and blocks until the fetch settles.
// An empty key settles immediately to an empty, non-loading state without
// issuing a request. Setting the key it already has is a no-op; use Refetch
// to re-issue.
func (q *Query[T]) SetKey(ctx context.Context, key string) State[T] {
	q.mu.Lock()

	if q.closed || (key == q.key && q.issued > 0) {
		st := q.state
		q.mu.Unlock()

		return st
	}

	q.key = key
	q.mu.Unlock()

	return q.fetch(ctx, true)
}

// Refetch re-issues the request for the current key and blocks until it
// settles. Safe to call repeatedly and from several goroutines.
func (q *Query[T]) Refetch(ctx context.Context) State[T] {
	return q.fetch(ctx, false)
}

// Invalidate refetches the query. It satisfies Invalidator.
func (q *Query[T]) Invalidate(ctx context.Context) {
	q.fetch(ctx, false)
}

// Close detaches the query. In-flight requests still complete, but their
// results are discarded and listeners are no longer called.
func (q *Query[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	clear(q.listeners)
}

// Cached returns the last successful response stored for the current key,
// decoded, along with the time it was stored. ok is false when the query
// has no cache or nothing is cached for the key.
func (q *Query[T]) Cached() (data *T, storedAt time.Time, ok bool, err error) {
	key := q.Key()
	if q.opts.cache == nil || key == "" {
		return nil, time.Time{}, false, nil
	}

	return Lookup[T](q.opts.cache, key)
}

func (q *Query[T]) fetch(ctx context.Context, reset bool) State[T] {
	q.mu.Lock()

	if q.closed {
		st := q.state
		q.mu.Unlock()

		return st
	}

	q.issued++
	seq := q.issued
	key := q.key

	if key == "" {
		q.state = State[T]{}
		st, listeners := q.snapshotLocked()
		q.mu.Unlock()
		notify(listeners, st)

		return st
	}

	if reset {
		q.state.Data = nil
	}

	q.state.Loading = true
	q.state.Err = ""
	st, listeners := q.snapshotLocked()
	q.mu.Unlock()
	notify(listeners, st)

	q.opts.logger.Debug("query issued",
		slog.String("key", key),
		slog.Uint64("seq", seq),
	)

	body, err := q.client.Get(ctx, key)

	var data *T
	if err == nil {
		data, err = decode[T](body)
	}

	if err == nil && data == nil {
		err = ErrEmptyResponse
	}

	q.mu.Lock()

	if !q.appliesLocked(seq, key) {
		st, latest := q.state, q.issued
		q.mu.Unlock()

		q.opts.logger.Debug("query completion discarded",
			slog.String("key", key),
			slog.Uint64("seq", seq),
			slog.Uint64("latest", latest),
		)

		return st
	}

	if err != nil {
		q.state = State[T]{Err: Message(err)}
	} else {
		q.state = State[T]{Data: data}
	}

	st, listeners = q.snapshotLocked()
	q.mu.Unlock()

	if err != nil {
		q.opts.logger.Debug("query failed",
			slog.String("key", key),
			slog.Uint64("seq", seq),
			slog.String("error", st.Err),
		)
	} else {
		q.store(key, body)
	}

	notify(listeners, st)

	return st
}

// appliesLocked reports whether the completion of fetch seq for key may be
// written into the state. Completions for a key the query has moved away
// from never apply; ordering decides between completions for the same key.
func (q *Query[T]) appliesLocked(seq uint64, key string) bool {
	if q.closed || key != q.key {
		return false
	}

	if q.opts.ordering == LatestIssued && seq != q.issued {
		return false
	}

	return true
}

func (q *Query[T]) snapshotLocked() (State[T], []func(State[T])) {
	listeners := make([]func(State[T]), 0, len(q.listeners))
	for _, fn := range q.listeners {
		listeners = append(listeners, fn)
	}

	return q.state, listeners
}

func (q *Query[T]) store(key string, body []byte) {
	if q.opts.cache == nil {
		return
	}

	if err := q.opts.cache.Put(key, body); err != nil {
		q.opts.logger.Warn("caching query response failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
}

func notify[T any](listeners []func(State[T]), st State[T]) {
	for _, fn := range listeners {
		fn(st)
	}
}

// decode unmarshals a JSON body into a fresh T. An empty body (204 No
// Content) decodes to nil.
func decode[T any](body []byte) (*T, error) {
	if len(body) == 0 {
		return nil, nil //nolint:nilnil // no content
	}

	v := new(T)
	if err := json.Unmarshal(body, v); err != nil {
		return nil, fmt.Errorf("resource: decoding response: %w", err)
	}

	return v, nil
}
