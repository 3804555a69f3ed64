package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

// Query parameters an identity provider adds to the redirect.
var redirectParams = []string{"code", "state", "session_state"}

// CodeFromURL returns the authorization code carried by a federation
// redirect. It has no side effects.
func CodeFromURL(u *url.URL) (string, bool) {
	if u == nil {
		return "", false
	}

	code := u.Query().Get("code")

	return code, code != ""
}

// ConsumeCode returns a copy of u with the authorization code and its
// companion parameters removed. Consuming an already consumed URL returns an
// equal URL. A nil u yields nil.
func ConsumeCode(u *url.URL) *url.URL {
	if u == nil {
		return nil
	}

	out := *u
	q := out.Query()

	for _, p := range redirectParams {
		q.Del(p)
	}

	out.RawQuery = q.Encode()

	return &out
}

// Federation describes the external identity provider whose authorization
// code the service's callback endpoint accepts.
type Federation struct {
	AuthorizeURL string
	ClientID     string
	Scopes       []string
	// RedirectPort is the localhost port the browser returns to. 0 picks a
	// free port, which only works with providers that ignore the port.
	RedirectPort int
}

// Enabled reports whether a provider is configured.
func (f Federation) Enabled() bool {
	return f.AuthorizeURL != "" && f.ClientID != ""
}

func (f Federation) oauthConfig(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    f.ClientID,
		Scopes:      f.Scopes,
		RedirectURL: redirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL: f.AuthorizeURL,
		},
	}
}

// AuthCodeURL returns the provider URL that starts a federated login and
// redirects back to redirectURL with a code.
func (f Federation) AuthCodeURL(redirectURL, state string) string {
	return f.oauthConfig(redirectURL).AuthCodeURL(state)
}

// ErrFederationDisabled is returned by LoginWithBrowser when no provider is
// configured.
var ErrFederationDisabled = errors.New("session: federated login is not configured")

// stateTokenBytes is the number of random bytes for the state parameter.
const stateTokenBytes = 16

// callbackPath is the HTTP path the redirect hits on the local server.
const callbackPath = "/"

// shutdownTimeout is how long to wait for the callback server to drain.
const shutdownTimeout = 5 * time.Second

type callbackResult struct {
	redirect *url.URL
	err      error
}

// LoginWithBrowser runs a federated login from a terminal: it serves a
// localhost callback, opens the provider's authorize page with openURL, and
// hands the code it receives to the service's callback endpoint. Like
// Login, failures are reported in the result and leave the session
// unchanged.
func (m *Manager) LoginWithBrowser(ctx context.Context, fed Federation, openURL func(string) error) LoginResult {
	if !fed.Enabled() {
		return LoginResult{Err: ErrFederationDisabled.Error()}
	}

	resultCh := make(chan callbackResult, 1)
	mux := http.NewServeMux()

	srv, port, err := startCallbackServer(ctx, fed.RedirectPort, mux, resultCh, m.logger)
	if err != nil {
		return LoginResult{Err: err.Error()}
	}

	defer shutdownCallbackServer(srv, m.logger)

	state, err := generateState()
	if err != nil {
		return LoginResult{Err: fmt.Sprintf("session: generating state token: %v", err)}
	}

	mux.HandleFunc("GET "+callbackPath, func(w http.ResponseWriter, r *http.Request) {
		handleCallback(w, r, state, resultCh)
	})

	authURL := fed.AuthCodeURL(fmt.Sprintf("http://localhost:%d%s", port, callbackPath), state)

	m.logger.Info("opening browser for authorization")

	if err := openURL(authURL); err != nil {
		m.logger.Warn("failed to open browser", slog.String("error", err.Error()))
		return LoginResult{Err: fmt.Sprintf("open this URL in your browser: %s", authURL)}
	}

	var res callbackResult
	select {
	case res = <-resultCh:
	case <-ctx.Done():
		return LoginResult{Err: fmt.Sprintf("session: browser login canceled: %v", ctx.Err())}
	}

	if res.err != nil {
		return LoginResult{Err: res.err.Error()}
	}

	return m.LoginWithRedirect(ctx, res.redirect)
}

// LoginWithRedirect completes a federated login from the URL the provider
// redirected to. Unlike Resolve it ignores any stored credential, and like
// Login a failure leaves the session and the stored credential unchanged.
func (m *Manager) LoginWithRedirect(ctx context.Context, redirect *url.URL) LoginResult {
	code, ok := CodeFromURL(redirect)
	if !ok {
		return LoginResult{Err: "session: callback missing authorization code"}
	}

	if !m.markConsumed(code) {
		return LoginResult{Err: "session: authorization code already used"}
	}

	tok, id, err := m.redeem(ctx, code)
	if err != nil {
		m.logger.Info("authorization code exchange failed", slog.String("error", err.Error()))
		return LoginResult{Err: reason(err)}
	}

	if _, err := m.commit(anyGeneration, tok, id, nil, m.saveStore(tok)); err != nil {
		return LoginResult{Err: fmt.Sprintf("%s: %v", loginFailed, err)}
	}

	m.logger.Info("federated login succeeded",
		slog.String("user", id.Email),
		slog.String("role", id.Role),
	)

	return LoginResult{Success: true, Identity: id}
}

// startCallbackServer binds 127.0.0.1:port (0 for any) and serves mux.
func startCallbackServer(
	ctx context.Context,
	port int,
	mux *http.ServeMux,
	resultCh chan<- callbackResult,
	logger *slog.Logger,
) (*http.Server, int, error) {
	lc := net.ListenConfig{}

	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, 0, fmt.Errorf("session: binding localhost listener: %w", err)
	}

	tcpAddr, ok := listener.Addr().(*net.TCPAddr)
	if !ok {
		listener.Close()
		return nil, 0, fmt.Errorf("session: listener address is not TCP")
	}

	logger.Info("callback server listening", slog.Int("port", tcpAddr.Port))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		if serveErr := srv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			select {
			case resultCh <- callbackResult{err: fmt.Errorf("session: callback server error: %w", serveErr)}:
			default:
			}
		}
	}()

	return srv, tcpAddr.Port, nil
}

// handleCallback validates the state and forwards the redirect URL.
func handleCallback(w http.ResponseWriter, r *http.Request, state string, resultCh chan<- callbackResult) {
	send := func(res callbackResult) {
		select {
		case resultCh <- res:
		default:
		}
	}

	q := r.URL.Query()

	if q.Get("state") != state {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		send(callbackResult{err: fmt.Errorf("session: state mismatch (possible CSRF)")})

		return
	}

	if errParam := q.Get("error"); errParam != "" {
		http.Error(w, "Authorization failed: "+errParam, http.StatusBadRequest)
		send(callbackResult{err: fmt.Errorf("session: authorization failed: %s: %s", errParam, q.Get("error_description"))})

		return
	}

	if q.Get("code") == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		send(callbackResult{err: fmt.Errorf("session: callback missing authorization code")})

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><h1>Signed in</h1>"+
		"<p>You can close this window and return to the terminal.</p></body></html>")
	send(callbackResult{redirect: r.URL})
}

func shutdownCallbackServer(srv *http.Server, logger *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("callback server shutdown error", slog.String("error", err.Error()))
	}
}

// generateState produces a random hex string for the state parameter.
func generateState() (string, error) {
	b := make([]byte, stateTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
