package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/churchfinance/ledger-go/internal/api"
	"github.com/churchfinance/ledger-go/internal/config"
	"github.com/churchfinance/ledger-go/internal/resource"
	"github.com/churchfinance/ledger-go/internal/session"
	"github.com/churchfinance/ledger-go/internal/store"
	"github.com/churchfinance/ledger-go/internal/tokenfile"
)

// app bundles the per-invocation wiring shared by every command: the API
// client, the session manager that feeds it tokens, and the optional local
// database behind the credential store and the response cache.
type app struct {
	cfg     *config.Resolved
	logger  *slog.Logger
	client  *api.Client
	paths   api.Paths
	session *session.Manager
	creds   session.CredentialStore
	cache   resource.Cache
	db      *store.DB
}

// newApp wires the client, the credential store and the session manager
// from resolvedCfg. The session is left in Resolving; call resolve before
// reading it.
func newApp(ctx context.Context, logger *slog.Logger) (*app, error) {
	cfg := resolvedCfg
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}

	if cfg.API.BaseURL == "" {
		return nil, errors.New("no service URL configured: set api.base_url, LEDGER_GO_BASE_URL or --base-url")
	}

	a := &app{
		cfg:    cfg,
		logger: logger,
		paths:  api.NewPaths(cfg.API.ResourcesPath),
	}

	a.client = api.NewClient(cfg.API.BaseURL, defaultHTTPClient(), nil, logger, cfg.UserAgent)
	a.client.SetMaxRetries(cfg.MaxRetries)
	a.client.SetAuthPaths(api.AuthPaths{
		Identity: cfg.API.IdentityPath,
		Login:    cfg.API.LoginPath,
		Callback: cfg.API.CallbackPath,
	})

	if cfg.CredentialStore == config.StoreSQLite || cfg.CacheEnabled {
		db, err := store.Open(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}

		a.db = db
	}

	if cfg.CredentialStore == config.StoreSQLite {
		a.creds = a.db.Credentials()
	} else {
		a.creds = tokenfile.NewStore(cfg.TokenFile, logger)
	}

	if cfg.CacheEnabled {
		a.cache = a.db.Cache()
	}

	a.session = session.NewManager(a.client, a.creds,
		session.WithLogger(logger),
		session.WithExpiryCheck(cfg.CheckExpiry),
	)
	a.client.SetTokenSource(a.session)

	return a, nil
}

// resolve settles the session from the stored credential.
func (a *app) resolve(ctx context.Context) session.State {
	a.session.Resolve(ctx, nil)
	return a.session.State()
}

// requireSession resolves the session and fails unless it is authenticated.
func (a *app) requireSession(ctx context.Context) (*session.Identity, error) {
	st := a.resolve(ctx)
	if st.Identity != nil {
		return st.Identity, nil
	}

	if st.Expired() {
		return nil, errors.New("session expired: run 'ledger-go login' again")
	}

	return nil, errors.New("not logged in: run 'ledger-go login'")
}

// watcher returns the change notifier for the credential store. Stores
// without one are followed through SIGHUP from announceChange.
func (a *app) watcher() session.Watcher {
	if w, ok := a.creds.(session.Watcher); ok {
		return w
	}

	return hangupWatcher{}
}

// queryOptions returns the options shared by every query and mutation.
func (a *app) queryOptions(extra ...resource.Option) []resource.Option {
	opts := []resource.Option{resource.WithLogger(a.logger)}
	if a.cache != nil {
		opts = append(opts, resource.WithCache(a.cache))
	}

	return append(opts, extra...)
}

func (a *app) Close() error {
	if a.db == nil {
		return nil
	}

	if err := a.db.Close(); err != nil {
		return fmt.Errorf("closing local database: %w", err)
	}

	return nil
}

// withApp builds the app, runs fn and closes the app, keeping the first
// error.
func withApp(ctx context.Context, fn func(*app) error) (err error) {
	a, err := newApp(ctx, buildLogger())
	if err != nil {
		return err
	}

	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(a)
}
