package domain

// SessionEventType classifies a credential lifecycle notification coming
// from a protocol client.
type SessionEventType string

const (
	// EventRefreshed carries freshly rotated bearer tokens.
	EventRefreshed SessionEventType = "refreshed"
	// EventExpired means the service rejected the refresh token; the
	// session is gone and cannot be recovered without a new login.
	EventExpired SessionEventType = "expired"
	// EventCreateFailed means the service could not establish the session
	// in the first place. Handled the same way as EventExpired.
	EventCreateFailed SessionEventType = "create-failed"
	// EventNetworkError is transient; the session itself is still valid.
	EventNetworkError SessionEventType = "network-error"
)

// Terminal reports whether the event ends the session for its account.
func (t SessionEventType) Terminal() bool {
	return t == EventExpired || t == EventCreateFailed
}
