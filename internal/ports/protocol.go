package ports

import (
	"context"

	"github.com/bnema/atp-accounts-cli/internal/domain"
)

// SessionData is the session payload a protocol client holds after a
// successful auth call. It is the raw material an Account is derived from.
type SessionData struct {
	DID            domain.DID
	Handle         string
	Email          string
	EmailConfirmed bool
	AccessToken    string
	RefreshToken   string
}

// SessionEvent is the typed payload delivered on credential lifecycle
// changes. Session carries the client's session state at the time of the
// event; for terminal events the tokens in it are no longer usable.
type SessionEvent struct {
	Type    domain.SessionEventType
	Session SessionData
}

// CreateAccountParams are the inputs to the account-creation call.
// InviteCode, VerificationPhone and VerificationCode are optional.
type CreateAccountParams struct {
	Email             string
	Password          string
	Handle            string
	InviteCode        string
	VerificationPhone string
	VerificationCode  string
}

// ProtocolClient is one live connection to a remote service instance. The
// session core treats it as a capability object: it is built per account,
// swapped in whole on account switches, and never patched in place.
type ProtocolClient interface {
	// Service returns the endpoint URL the client is bound to.
	Service() string

	Login(ctx context.Context, identifier, password string) (SessionData, error)
	CreateAccount(ctx context.Context, params CreateAccountParams) (SessionData, error)

	// ResumeSession revalidates stored credentials over the network and
	// installs the refreshed session on the client.
	ResumeSession(ctx context.Context, session SessionData) (SessionData, error)

	// RefreshSession rotates the client's own credentials.
	RefreshSession(ctx context.Context) (SessionData, error)

	// RestoreSession installs cached credentials on the client without
	// any network call.
	RestoreSession(session SessionData)

	// Session returns the client's current session, if any.
	Session() (SessionData, bool)

	// Clone returns a fresh client handle carrying the same credentials.
	// The session core republishes a clone after a refresh so observers
	// see a new identity.
	Clone() ProtocolClient

	// SetEventHandler registers the credential lifecycle subscription.
	// Installed once at client creation; must tolerate repeat delivery of
	// stale events.
	SetEventHandler(handler func(SessionEvent))

	// PutBasicProfile seeds a freshly created account's profile. Best
	// effort; failures never invalidate the session.
	PutBasicProfile(ctx context.Context) error

	// SetDefaultLabelSource installs the baseline moderation authority.
	SetDefaultLabelSource(did domain.DID)

	// AddLabelSources attaches additional per-session label sources.
	AddLabelSources(dids []domain.DID)
}

// ClientFactory builds protocol clients bound to a service endpoint.
type ClientFactory interface {
	NewClient(service string) ProtocolClient
}
