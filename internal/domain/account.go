package domain

// DID is the stable decentralized identifier of an account. Handles may
// change over time; the DID never does, and it is the roster key.
type DID string

// Account is the durable record of one authenticated identity. Empty
// AccessToken/RefreshToken strings are a meaningful state (signed out, kept
// in the roster as a quick-switch target), not an error.
type Account struct {
	Service        string
	DID            DID
	Handle         string
	Email          string
	EmailConfirmed bool
	Deactivated    bool
	AccessToken    string
	RefreshToken   string

	// Extra carries snapshot fields this build does not know about, so
	// newer snapshots survive a round trip through an older binary.
	Extra map[string]any
}

// HasCredentials reports whether the account still holds a stored session.
func (a Account) HasCredentials() bool {
	return a.AccessToken != "" || a.RefreshToken != ""
}

// WithoutCredentials returns a copy of the account with both bearer tokens
// stripped. The roster entry itself stays intact.
func (a Account) WithoutCredentials() Account {
	a.AccessToken = ""
	a.RefreshToken = ""
	return a
}

// Roster is the ordered collection of known accounts, most recently used
// first. Only the session manager mutates it.
type Roster []Account

// Upsert inserts the account keyed by DID. An existing entry with the same
// DID is replaced, never duplicated, and the entry moves to the front.
func (r Roster) Upsert(account Account) Roster {
	out := make(Roster, 0, len(r)+1)
	out = append(out, account)
	for _, existing := range r {
		if existing.DID == account.DID {
			continue
		}
		out = append(out, existing)
	}
	return out
}

// Remove deletes the entry with the given DID, if present.
func (r Roster) Remove(did DID) Roster {
	out := make(Roster, 0, len(r))
	for _, existing := range r {
		if existing.DID == did {
			continue
		}
		out = append(out, existing)
	}
	return out
}

// Find returns the entry with the given DID.
func (r Roster) Find(did DID) (Account, bool) {
	for _, existing := range r {
		if existing.DID == did {
			return existing, true
		}
	}
	return Account{}, false
}

// ClearCredentials strips the bearer tokens from every entry while keeping
// the entries themselves. This is the full sign-out projection.
func (r Roster) ClearCredentials() Roster {
	out := make(Roster, 0, len(r))
	for _, existing := range r {
		out = append(out, existing.WithoutCredentials())
	}
	return out
}

// Clone returns a copy with a fresh backing array, so observer mutations
// cannot reach the manager's roster.
func (r Roster) Clone() Roster {
	if r == nil {
		return nil
	}
	out := make(Roster, len(r))
	copy(out, r)
	return out
}
