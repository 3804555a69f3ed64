package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Expiry returns the exp claim of a JWT credential. ok is false when the
// credential is not a JWT or carries no exp; such credentials are opaque and
// only the identity endpoint can judge them.
func Expiry(credential string) (exp time.Time, ok bool) {
	tok, _, err := jwt.NewParser().ParseUnverified(credential, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}

	t, err := tok.Claims.GetExpirationTime()
	if err != nil || t == nil {
		return time.Time{}, false
	}

	return t.Time, true
}

func expired(credential string, now time.Time) bool {
	exp, ok := Expiry(credential)

	return ok && !exp.After(now)
}
