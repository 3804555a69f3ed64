package session

import (
	"context"
	"errors"
	"sync"

	"github.com/churchfinance/ledger-go/internal/api"
)

// serverErr mimics an *api.APIError carrying a server detail.
type serverErr struct {
	detail   string
	sentinel error
}

func (e *serverErr) Error() string  { return "HTTP error: " + e.detail }
func (e *serverErr) Detail() string { return e.detail }
func (e *serverErr) Unwrap() error  { return e.sentinel }

var (
	errRejected  = &serverErr{detail: "Could not validate credentials", sentinel: api.ErrUnauthorized}
	errTransport = errors.New("api: service unreachable: dial tcp: connection refused")
)

type account struct {
	secret string
	token  string
}

// fakeAuth is an in-memory identity service.
type fakeAuth struct {
	mu          sync.Mutex
	identities  map[string]*api.Identity // token -> identity
	accounts    map[string]account       // identifier -> account
	codes       map[string]string        // code -> token
	identityErr error                    // forced failure for Identity

	identityCalls int
	loginCalls    int
	exchangeCalls int
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{
		identities: map[string]*api.Identity{
			"tok-treasurer": {ID: "7", DisplayName: "Ama Owusu", Role: "Treasurer", Email: "treasurer@x.org"},
			"tok-viewer":    {ID: "8", DisplayName: "Yaw Boateng", Role: "Viewer", Email: "viewer@x.org"},
		},
		accounts: map[string]account{
			"treasurer@x.org": {secret: "correct-secret", token: "tok-treasurer"},
		},
		codes: map[string]string{
			"code-viewer": "tok-viewer",
		},
	}
}

func (f *fakeAuth) Identity(_ context.Context, token string) (*api.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.identityCalls++

	if f.identityErr != nil {
		return nil, f.identityErr
	}

	id, ok := f.identities[token]
	if !ok {
		return nil, errRejected
	}

	cp := *id

	return &cp, nil
}

func (f *fakeAuth) Login(_ context.Context, identifier, secret string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.loginCalls++

	acct, ok := f.accounts[identifier]
	if !ok || acct.secret != secret {
		return "", &serverErr{detail: "Incorrect email or password", sentinel: api.ErrUnauthorized}
	}

	return acct.token, nil
}

func (f *fakeAuth) ExchangeCode(_ context.Context, code string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.exchangeCalls++

	tok, ok := f.codes[code]
	if !ok {
		return "", &serverErr{detail: "Authentication failed: invalid_grant", sentinel: api.ErrBadRequest}
	}

	return tok, nil
}

func (f *fakeAuth) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.identityCalls + f.loginCalls + f.exchangeCalls
}

// memStore is an in-memory CredentialStore.
type memStore struct {
	mu       sync.Mutex
	cred     string
	saveErr  error
	clearErr error
	clears   int
}

func (s *memStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cred, nil
}

func (s *memStore) Save(cred string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.saveErr != nil {
		return s.saveErr
	}

	s.cred = cred

	return nil
}

func (s *memStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clears++
	s.cred = ""

	return s.clearErr
}

func (s *memStore) get() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cred
}

func (s *memStore) set(cred string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cred = cred
}

// manualWatcher lets a test fire change notifications by hand.
type manualWatcher struct {
	ready    chan func()
	returned chan struct{}
}

func newManualWatcher() *manualWatcher {
	return &manualWatcher{ready: make(chan func(), 1), returned: make(chan struct{})}
}

func (w *manualWatcher) Watch(ctx context.Context, onChange func()) error {
	defer close(w.returned)

	w.ready <- onChange
	<-ctx.Done()

	return nil
}


// gatedAuth holds Identity calls until the test releases them.
type gatedAuth struct {
	*fakeAuth
	entered chan struct{}
	release chan struct{}
}

func newGatedAuth() *gatedAuth {
	return &gatedAuth{
		fakeAuth: newFakeAuth(),
		entered:  make(chan struct{}, 1),
		release:  make(chan struct{}),
	}
}

func (g *gatedAuth) Identity(ctx context.Context, token string) (*api.Identity, error) {
	g.entered <- struct{}{}
	<-g.release

	return g.fakeAuth.Identity(ctx, token)
}
