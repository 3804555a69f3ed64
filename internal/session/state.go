package session

import (
	"errors"

	"github.com/churchfinance/ledger-go/internal/api"
)

// Identity is the resolved profile of the logged-in user.
type Identity = api.Identity

// Status is the coarse session state.
type Status int

const (
	// Resolving is the initial status, held only until the first Resolve settles.
	Resolving Status = iota
	Unauthenticated
	Authenticated
)

func (s Status) String() string {
	switch s {
	case Resolving:
		return "resolving"
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Reasons a session settled as Unauthenticated. They are recorded in
// State.Err for callers that want to word the login prompt differently;
// resolution itself never fails.
var (
	ErrNoCredential       = errors.New("session: no stored credential")
	ErrCredentialExpired  = errors.New("session: stored credential expired")
	ErrCredentialRejected = errors.New("session: credential rejected by the identity endpoint")
	ErrExchangeFailed     = errors.New("session: authorization code exchange failed")
	ErrLoggedOut          = errors.New("session: logged out")
)

// ErrNotLoggedIn is returned by Token when there is no credential.
var ErrNotLoggedIn = errors.New("session: not logged in")

// State is a snapshot of the session. Identity is nil unless Authenticated.
// Err explains the most recent transition to Unauthenticated and is nil
// otherwise.
type State struct {
	Identity  *Identity
	Resolving bool
	Err       error
}

// Status derives the coarse status from the snapshot.
func (s State) Status() Status {
	switch {
	case s.Resolving:
		return Resolving
	case s.Identity != nil:
		return Authenticated
	default:
		return Unauthenticated
	}
}

// Expired reports whether the session ended because the stored credential
// had expired or was rejected, as opposed to never having been logged in.
func (s State) Expired() bool {
	return errors.Is(s.Err, ErrCredentialExpired) || errors.Is(s.Err, ErrCredentialRejected)
}

// LoginResult is the outcome of an interactive login. Login never returns a
// Go error; callers branch on Success.
type LoginResult struct {
	Success  bool
	Err      string
	Identity *Identity
}
