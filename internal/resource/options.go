package resource

import (
	"context"
	"log/slog"
)

// Ordering selects how overlapping completions of the same Query are applied.
type Ordering int

const (
	// LatestIssued tags every request with a per-query sequence number and
	// applies a completion only if it belongs to the newest issued request.
	LatestIssued Ordering = iota
	// LastSettled applies every completion as it arrives, so a stale
	// response that settles late overwrites fresher state.
	LastSettled
)

func (o Ordering) String() string {
	switch o {
	case LatestIssued:
		return "latest-issued"
	case LastSettled:
		return "last-settled"
	default:
		return "unknown"
	}
}

// Invalidator is anything a successful mutation can mark stale.
// *Query[T] implements it by refetching.
type Invalidator interface {
	Invalidate(ctx context.Context)
}

type options struct {
	logger      *slog.Logger
	cache       Cache
	ordering    Ordering
	invalidates []Invalidator
	evicts      []string
}

// Option configures a Query or a Mutation. Options that only make sense for
// one of them are ignored by the other.
type Option func(*options)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithCache stores successful query responses in c, and lets a mutation
// evict entries from it (see Evicts).
func WithCache(c Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithOrdering selects the completion policy of a Query.
func WithOrdering(ord Ordering) Option {
	return func(o *options) {
		o.ordering = ord
	}
}

// Invalidates makes a Mutation refetch the given queries after every
// successful call, before the call returns.
func Invalidates(targets ...Invalidator) Option {
	return func(o *options) {
		o.invalidates = append(o.invalidates, targets...)
	}
}

// Evicts makes a Mutation drop every cached entry whose key starts with
// prefix after every successful call. Requires WithCache.
func Evicts(prefix string) Option {
	return func(o *options) {
		o.evicts = append(o.evicts, prefix)
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:   slog.Default(),
		ordering: LatestIssued,
	}

	for _, opt := range opts {
		opt(&o)
	}

	return o
}
