// Package session owns "who is logged in": it acquires, persists, validates
// and discards the bearer credential, and resolves the identity and role the
// rest of ledger-go reads. Resolution failures never surface as errors; they
// settle the session as Unauthenticated.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/churchfinance/ledger-go/internal/api"
)

// loginFailed is the reason reported when the server gives none.
const loginFailed = "Login failed"

// AuthAPI is the part of the service the session talks to.
// *api.Client implements it.
type AuthAPI interface {
	Identity(ctx context.Context, token string) (*api.Identity, error)
	Login(ctx context.Context, identifier, secret string) (string, error)
	ExchangeCode(ctx context.Context, code string) (string, error)
}

// CredentialStore persists the opaque credential. Load returns "" when
// nothing is stored.
type CredentialStore interface {
	Load() (string, error)
	Save(credential string) error
	Clear() error
}

// Watcher reports changes made to a CredentialStore by other processes.
type Watcher interface {
	Watch(ctx context.Context, onChange func()) error
}

// Manager is the single source of truth for the session. It is safe for
// concurrent use and implements api.TokenSource.
type Manager struct {
	auth   AuthAPI
	store  CredentialStore
	logger *slog.Logger

	checkExpiry bool
	nowFunc     func() time.Time

	mu         sync.Mutex
	gen        uint64 // bumped by every settled transition
	credential string
	state      State
	consumed   map[string]bool
	observers  map[int]func(State)
	nextID     int

	identities singleflight.Group
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithExpiryCheck enables or disables discarding expired JWT credentials
// locally, before any network call. Enabled by default.
func WithExpiryCheck(enabled bool) Option {
	return func(m *Manager) {
		m.checkExpiry = enabled
	}
}

// WithClock replaces the clock used for the expiry check.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// NewManager returns a Manager in the Resolving state. Call Resolve once at
// startup.
func NewManager(auth AuthAPI, store CredentialStore, opts ...Option) *Manager {
	m := &Manager{
		auth:        auth,
		store:       store,
		logger:      slog.Default(),
		checkExpiry: true,
		nowFunc:     time.Now,
		state:       State{Resolving: true},
		consumed:    make(map[string]bool),
		observers:   make(map[int]func(State)),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// State returns a snapshot of the session.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.state
}

// Status returns the coarse session status.
func (m *Manager) Status() Status {
	return m.State().Status()
}

// Identity returns the resolved identity, or nil.
func (m *Manager) Identity() *Identity {
	return m.State().Identity
}

// Role returns the role of the resolved identity, or "".
func (m *Manager) Role() string {
	if id := m.Identity(); id != nil {
		return id.Role
	}

	return ""
}

// Token returns the current credential. It implements api.TokenSource.
func (m *Manager) Token() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.credential == "" {
		return "", ErrNotLoggedIn
	}

	return m.credential, nil
}

// OnChange registers fn to be called after every settled transition. The
// returned function removes it.
func (m *Manager) OnChange(fn func(State)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.observers[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		delete(m.observers, id)
	}
}

// Resolve settles the session from, in order: the persisted credential, an
// authorization code in inbound, or nothing. It returns inbound with any
// authorization code removed, so resolving the returned URL again never
// repeats an exchange. inbound may be nil. If another transition (a Login
// or Logout) settles while Resolve is in flight, Resolve's outcome is
// dropped.
func (m *Manager) Resolve(ctx context.Context, inbound *url.URL) *url.URL {
	out := ConsumeCode(inbound)
	gen := m.generation()

	cred, err := m.store.Load()
	if err != nil {
		m.logger.Warn("reading stored credential failed", slog.String("error", err.Error()))
		m.commit(gen, "", nil, fmt.Errorf("session: reading stored credential: %w", err), m.clearStore)

		return out
	}

	if cred != "" {
		m.adopt(ctx, gen, cred)
		return out
	}

	if code, ok := CodeFromURL(inbound); ok {
		if m.markConsumed(code) {
			m.exchange(ctx, gen, code)
			return out
		}

		m.logger.Debug("authorization code already consumed")
	}

	m.commit(gen, "", nil, ErrNoCredential, nil)

	return out
}

// adopt validates a stored credential and settles the session on it, or
// discards it on any failure. Nothing is applied if the session moved on
// from gen meanwhile.
func (m *Manager) adopt(ctx context.Context, gen uint64, cred string) {
	id, err := m.validate(ctx, cred)
	if err != nil {
		if applied, _ := m.commit(gen, "", nil, err, m.clearStore); applied {
			m.logger.Info("stored credential discarded", slog.String("reason", err.Error()))
		}

		return
	}

	if applied, _ := m.commit(gen, cred, id, nil, nil); applied {
		m.logger.Info("session resolved",
			slog.String("user", id.Email),
			slog.String("role", id.Role),
		)
	}
}

// exchange redeems an inbound authorization code during Resolve.
func (m *Manager) exchange(ctx context.Context, gen uint64, code string) {
	tok, id, err := m.redeem(ctx, code)

	applied := false
	if err == nil {
		applied, err = m.commit(gen, tok, id, nil, m.saveStore(tok))
	}

	if err != nil {
		m.logger.Info("authorization code exchange failed", slog.String("error", err.Error()))
		m.commit(gen, "", nil, fmt.Errorf("%w: %w", ErrExchangeFailed, err), nil)

		return
	}

	if !applied {
		return
	}

	m.logger.Info("federated login succeeded",
		slog.String("user", id.Email),
		slog.String("role", id.Role),
	)
}

// redeem trades an authorization code for a credential and resolves its
// identity. It neither persists the credential nor touches the session.
func (m *Manager) redeem(ctx context.Context, code string) (string, *Identity, error) {
	tok, err := m.auth.ExchangeCode(ctx, code)
	if err != nil {
		return "", nil, err
	}

	id, err := m.identity(ctx, tok)
	if err != nil {
		return "", nil, err
	}

	return tok, id, nil
}

// Login exchanges identifier and secret for a credential. On success the
// credential is persisted and the identity resolved. On failure nothing
// changes: the stored credential and the identity are left as they were.
func (m *Manager) Login(ctx context.Context, identifier, secret string) LoginResult {
	tok, err := m.auth.Login(ctx, identifier, secret)
	if err != nil {
		m.logger.Info("login rejected", slog.String("user", identifier), slog.String("error", err.Error()))
		return LoginResult{Err: reason(err)}
	}

	id, err := m.identity(ctx, tok)
	if err != nil {
		m.logger.Info("identity fetch after login failed", slog.String("error", err.Error()))
		return LoginResult{Err: reason(err)}
	}

	if _, err := m.commit(anyGeneration, tok, id, nil, m.saveStore(tok)); err != nil {
		m.logger.Warn("persisting credential failed", slog.String("error", err.Error()))
		return LoginResult{Err: fmt.Sprintf("%s: %v", loginFailed, err)}
	}

	m.logger.Info("login succeeded",
		slog.String("user", id.Email),
		slog.String("role", id.Role),
	)

	return LoginResult{Success: true, Identity: id}
}

// Logout clears the stored credential and the identity. It makes no network
// call. The in-memory session is cleared even if the store fails.
func (m *Manager) Logout() error {
	m.mu.Lock()
	err := m.store.Clear()
	st, observers := m.applyLocked("", nil, ErrLoggedOut)
	m.mu.Unlock()

	notifyAll(observers, st)
	m.logger.Info("logged out")

	if err != nil {
		return fmt.Errorf("session: clearing stored credential: %w", err)
	}

	return nil
}

// Revalidate re-checks the current credential against the identity
// endpoint. A rejected or expired credential ends the session; a transport
// failure leaves it as it was.
func (m *Manager) Revalidate(ctx context.Context) {
	m.mu.Lock()
	cred, gen := m.credential, m.gen
	m.mu.Unlock()

	if cred == "" {
		return
	}

	id, err := m.validate(ctx, cred)
	if err == nil {
		m.commit(gen, cred, id, nil, nil)
		return
	}

	if errors.Is(err, ErrCredentialExpired) || errors.Is(err, ErrCredentialRejected) {
		if applied, _ := m.commit(gen, "", nil, err, m.clearStore); applied {
			m.logger.Info("credential no longer valid", slog.String("reason", err.Error()))
		}

		return
	}

	m.logger.Warn("revalidation failed, keeping session", slog.String("error", err.Error()))
}

// Follow re-resolves the session whenever w reports that the credential
// store changed outside this Manager, for example a login or logout in
// another process. It blocks until ctx is canceled.
func (m *Manager) Follow(ctx context.Context, w Watcher) error {
	return w.Watch(ctx, func() {
		m.reload(ctx)
	})
}

func (m *Manager) reload(ctx context.Context) {
	m.mu.Lock()
	current, gen := m.credential, m.gen
	m.mu.Unlock()

	cred, err := m.store.Load()
	if err != nil {
		m.logger.Warn("reloading stored credential failed", slog.String("error", err.Error()))
		return
	}

	if cred == current {
		return
	}

	if cred == "" {
		m.logger.Info("credential removed externally")
		m.commit(gen, "", nil, ErrLoggedOut, nil)

		return
	}

	m.logger.Info("credential changed externally")
	m.adopt(ctx, gen, cred)
}

// validate checks cred locally for expiry, then against the identity
// endpoint.
func (m *Manager) validate(ctx context.Context, cred string) (*Identity, error) {
	if m.checkExpiry && expired(cred, m.nowFunc()) {
		return nil, ErrCredentialExpired
	}

	id, err := m.identity(ctx, cred)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) || errors.Is(err, api.ErrForbidden) {
			return nil, fmt.Errorf("%w: %w", ErrCredentialRejected, err)
		}

		return nil, err
	}

	return id, nil
}

// identity fetches the identity for cred. Concurrent fetches for the same
// credential share one request.
func (m *Manager) identity(ctx context.Context, cred string) (*Identity, error) {
	v, err, _ := m.identities.Do(cred, func() (any, error) {
		return m.auth.Identity(ctx, cred)
	})
	if err != nil {
		return nil, err
	}

	id, ok := v.(*Identity)
	if !ok || id == nil {
		return nil, errors.New("session: identity endpoint returned no identity")
	}

	return id, nil
}

// markConsumed records code and reports whether it was new.
func (m *Manager) markConsumed(code string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.consumed[code] {
		return false
	}

	m.consumed[code] = true

	return true
}

// anyGeneration makes commit apply regardless of intervening transitions.
const anyGeneration = ^uint64(0)

func (m *Manager) generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.gen
}

func (m *Manager) saveStore(cred string) func() error {
	return func() error {
		if err := m.store.Save(cred); err != nil {
			return fmt.Errorf("session: persisting credential: %w", err)
		}

		return nil
	}
}

// clearStore purges the stored credential. A failure is logged, not
// returned: the session ends either way.
func (m *Manager) clearStore() error {
	if err := m.store.Clear(); err != nil {
		m.logger.Warn("clearing stored credential failed", slog.String("error", err.Error()))
	}

	return nil
}

// commit settles the session together with its store write, as one step
// under the lock. Unless gen is anyGeneration, it is dropped when another
// transition settled after gen was read. A write error leaves the session
// unchanged and is returned.
func (m *Manager) commit(gen uint64, cred string, id *Identity, reason error, write func() error) (bool, error) {
	m.mu.Lock()

	if gen != anyGeneration && gen != m.gen {
		m.mu.Unlock()
		m.logger.Debug("dropping stale session transition")

		return false, nil
	}

	if write != nil {
		if err := write(); err != nil {
			m.mu.Unlock()
			return false, err
		}
	}

	st, observers := m.applyLocked(cred, id, reason)
	m.mu.Unlock()

	notifyAll(observers, st)

	return true, nil
}

// applyLocked is the only writer of the session state. A nil id means
// Unauthenticated, and the credential is cleared with it.
func (m *Manager) applyLocked(cred string, id *Identity, reason error) (State, []func(State)) {
	if id == nil {
		cred = ""
	}

	m.gen++
	m.credential = cred
	m.state = State{Identity: id, Err: reason}

	observers := make([]func(State), 0, len(m.observers))
	for _, fn := range m.observers {
		observers = append(observers, fn)
	}

	return m.state, observers
}

func notifyAll(observers []func(State), st State) {
	for _, fn := range observers {
		fn(st)
	}
}

// detailer is implemented by errors carrying a server-supplied reason.
type detailer interface {
	Detail() string
}

// reason renders a login failure: the server's detail, or the generic
// fallback.
func reason(err error) string {
	var d detailer
	if errors.As(err, &d) && d.Detail() != "" {
		return d.Detail()
	}

	return loginFailed
}
