package domain

import "strings"

// IsTestAccount reports whether the account is an internal test identity.
// Test identities get a dedicated moderation authority instead of the
// default label sources.
func IsTestAccount(account Account) bool {
	handle := strings.ToLower(strings.TrimSpace(account.Handle))
	return strings.HasSuffix(handle, ".test")
}
