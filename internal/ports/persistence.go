package ports

import (
	"context"

	"github.com/bnema/atp-accounts-cli/internal/domain"
)

// Snapshot is the durable projection of the session state. Current, when
// set, refers to an entry in Accounts by DID; the two are always written
// together, so subscribers never observe one without the other.
type Snapshot struct {
	Accounts domain.Roster
	Current  *domain.Account
}

// CurrentDID returns the DID of the persisted current account, if any.
func (s Snapshot) CurrentDID() (domain.DID, bool) {
	if s.Current == nil {
		return "", false
	}
	return s.Current.DID, true
}

// SnapshotStore is the durable, cross-instance store for the session
// snapshot. Subscribe delivers snapshots written by other instances of the
// application; the returned function cancels the subscription.
type SnapshotStore interface {
	Read(ctx context.Context) (Snapshot, error)
	Write(ctx context.Context, snapshot Snapshot) error
	Subscribe(onExternalUpdate func(Snapshot)) (func(), error)
}
