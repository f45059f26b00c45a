// Package tokens inspects bearer credentials without verifying them. The
// session core only needs the claims; signature verification belongs to the
// remote service.
package tokens

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DeactivatedScope is the scope claim value the service puts on access
// tokens issued for deactivated accounts.
const DeactivatedScope = "com.atproto.deactivated"

// expirySkew treats tokens about to lapse as already lapsed, so a resume
// call is made while the refresh token is still warm.
const expirySkew = 30 * time.Second

type claims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope,omitempty"`
}

var parser = jwt.NewParser(jwt.WithoutClaimsValidation())

func decode(token string) (*claims, bool) {
	if token == "" {
		return nil, false
	}
	decoded := &claims{}
	if _, _, err := parser.ParseUnverified(token, decoded); err != nil {
		// Malformed tokens are unusable, never a crash.
		return nil, false
	}
	return decoded, true
}

// ExpiryInstant returns the token's expiry timestamp, when one can be
// decoded.
func ExpiryInstant(token string) (time.Time, bool) {
	decoded, ok := decode(token)
	if !ok || decoded.ExpiresAt == nil {
		return time.Time{}, false
	}
	return decoded.ExpiresAt.Time, true
}

// Expired reports whether the token can no longer be reused directly. An
// absent or undecodable token counts as expired.
func Expired(token string, now time.Time) bool {
	expiry, ok := ExpiryInstant(token)
	if !ok {
		return true
	}
	return !expiry.After(now.Add(expirySkew))
}

// Deactivated reports whether the token carries the deactivation scope.
// False for an absent or undecodable token; never an error.
func Deactivated(token string) bool {
	decoded, ok := decode(token)
	if !ok {
		return false
	}
	return decoded.Scope == DeactivatedScope
}
