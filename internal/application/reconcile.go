package application

import (
	"github.com/bnema/atp-accounts-cli/internal/domain"
	"github.com/bnema/atp-accounts-cli/internal/ports"
)

// DecisionKind is the action to take after another instance of the
// application wrote the snapshot.
type DecisionKind int

const (
	// DecisionNone: the external write matches in-memory state.
	DecisionNone DecisionKind = iota
	// DecisionSwitch: another instance switched accounts; re-init the
	// session on the persisted current account.
	DecisionSwitch
	// DecisionSpliceRefresh: another instance refreshed the current
	// account's credentials; splice them into the active client without a
	// network call.
	DecisionSpliceRefresh
	// DecisionSignOut: another instance signed out; drop the local
	// current-account designation. Credentials were already cleared
	// upstream, so nothing is wiped here.
	DecisionSignOut
)

// Decision pairs the action with the account it applies to.
type Decision struct {
	Kind    DecisionKind
	Account domain.Account
}

// Reconcile compares the in-memory current account with the latest external
// snapshot and decides what to do. Precedence: account switch, then
// credential refresh, then sign-out.
func Reconcile(current *domain.Account, latest ports.Snapshot) Decision {
	persisted := latest.Current

	switch {
	case persisted != nil && (current == nil || current.DID != persisted.DID):
		return Decision{Kind: DecisionSwitch, Account: *persisted}
	case persisted != nil && current.DID == persisted.DID && persisted.RefreshToken != "":
		return Decision{Kind: DecisionSpliceRefresh, Account: *persisted}
	case persisted == nil && current != nil:
		return Decision{Kind: DecisionSignOut, Account: *current}
	default:
		return Decision{Kind: DecisionNone}
	}
}
