package resource

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
)

// Result is the tagged outcome of a mutation. Callers must branch on
// Success; a failed mutation is never returned as a Go error.
type Result[T any] struct {
	Success bool
	Data    *T
	Err     string
}

// Mutation issues one kind of write (create, update, or delete) and keeps
// its own loading/error state, independent of any Query.
type Mutation[T any] struct {
	client Sender
	method string
	opts   options

	mu       sync.Mutex
	inflight int
	err      string
	data     *T
}

// NewMutation returns a Mutation that sends requests with the given HTTP
// method.
func NewMutation[T any](client Sender, method string, opts ...Option) *Mutation[T] {
	return &Mutation[T]{
		client: client,
		method: method,
		opts:   buildOptions(opts),
	}
}

// Create returns a POST mutation.
func Create[T any](client Sender, opts ...Option) *Mutation[T] {
	return NewMutation[T](client, http.MethodPost, opts...)
}

// Update returns a PUT mutation.
func Update[T any](client Sender, opts ...Option) *Mutation[T] {
	return NewMutation[T](client, http.MethodPut, opts...)
}

// Delete returns a DELETE mutation.
func Delete[T any](client Sender, opts ...Option) *Mutation[T] {
	return NewMutation[T](client, http.MethodDelete, opts...)
}

// Do sends payload to path and returns the tagged result. On success, any
// configured cache prefixes are evicted and invalidated queries refetched
// before Do returns; without Invalidates the caller must refetch paired
// queries itself.
func (m *Mutation[T]) Do(ctx context.Context, path string, payload any) Result[T] {
	m.mu.Lock()
	m.inflight++
	m.err = ""
	m.mu.Unlock()

	m.opts.logger.Debug("mutation issued",
		slog.String("method", m.method),
		slog.String("path", path),
	)

	body, err := m.client.Send(ctx, m.method, path, payload)

	var data *T
	if err == nil {
		data, err = decode[T](body)
	}

	m.mu.Lock()
	m.inflight--

	if err != nil {
		m.err = Message(err)
		res := Result[T]{Err: m.err}
		m.mu.Unlock()

		m.opts.logger.Info("mutation failed",
			slog.String("method", m.method),
			slog.String("path", path),
			slog.String("error", res.Err),
		)

		return res
	}

	m.data = data
	m.mu.Unlock()

	m.afterSuccess(ctx)

	return Result[T]{Success: true, Data: data}
}

// Loading reports whether any call is in flight.
func (m *Mutation[T]) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.inflight > 0
}

// Err returns the message of the last failed call, or "".
func (m *Mutation[T]) Err() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.err
}

// Data returns the response of the last successful call.
func (m *Mutation[T]) Data() *T {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.data
}

func (m *Mutation[T]) afterSuccess(ctx context.Context) {
	if m.opts.cache != nil {
		for _, prefix := range m.opts.evicts {
			if err := m.opts.cache.Invalidate(prefix); err != nil {
				m.opts.logger.Warn("evicting cached responses failed",
					slog.String("prefix", prefix),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	for _, target := range m.opts.invalidates {
		target.Invalidate(ctx)
	}
}
