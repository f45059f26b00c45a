package application

import "github.com/bnema/atp-accounts-cli/internal/domain"

// StateReader is the read-only surface of the session manager, for
// observers that render state but never mutate it.
type StateReader interface {
	// AgentReady reports whether an authenticated client is active.
	AgentReady() bool
	IsInitialLoad() bool
	IsSwitchingAccounts() bool
	Accounts() domain.Roster
	CurrentAccount() (domain.Account, bool)
}

// AccountState summarizes one roster entry for display.
type AccountState string

const (
	AccountStateActive      AccountState = "active"
	AccountStateStored      AccountState = "stored"
	AccountStateSignedOut   AccountState = "signed-out"
	AccountStateDeactivated AccountState = "deactivated"
)

// Status is the per-account view handed to renderers.
type Status struct {
	Account domain.Account
	Current bool
	State   AccountState
}

// StatusAll projects the reader's roster into display statuses, preserving
// roster order.
func StatusAll(reader StateReader) []Status {
	current, hasCurrent := reader.CurrentAccount()

	accounts := reader.Accounts()
	statuses := make([]Status, 0, len(accounts))
	for _, account := range accounts {
		status := Status{Account: account, State: AccountStateSignedOut}
		switch {
		case account.Deactivated:
			status.State = AccountStateDeactivated
		case hasCurrent && account.DID == current.DID:
			status.Current = true
			status.State = AccountStateActive
		case account.HasCredentials():
			status.State = AccountStateStored
		}
		statuses = append(statuses, status)
	}

	return statuses
}
