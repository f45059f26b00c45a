package application

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"pkt.systems/pslog"

	"github.com/bnema/atp-accounts-cli/internal/domain"
	"github.com/bnema/atp-accounts-cli/internal/moderation"
	"github.com/bnema/atp-accounts-cli/internal/ports"
	"github.com/bnema/atp-accounts-cli/internal/tokens"
)

// Config tunes the session manager.
type Config struct {
	// ResumeRetries is the number of extra resume attempts after the
	// first one fails with a transient error.
	ResumeRetries int
}

const defaultResumeRetries = 1

// Deps are the collaborators the manager orchestrates. Factory and Store
// are required; the rest default to no-ops or system implementations.
type Deps struct {
	Factory    ports.ClientFactory
	Store      ports.SnapshotStore
	Moderation *moderation.Configurator
	Notifier   ports.Notifier
	Clock      ports.Clock

	// Spawn schedules fire-and-forget work. Defaults to `go`; tests
	// inject a synchronous version.
	Spawn func(func())
}

// Manager owns the canonical in-memory session state: the account roster,
// the current account, and the single active protocol client. It keeps the
// persisted snapshot convergent with memory via a dirty flag flushed in
// batches, and reconciles external snapshot writes from other instances.
//
// Lifecycle operations are not mutex-guarded against each other: the lock
// only protects state reads and writes, never spans network I/O. Two
// overlapping SelectAccount calls therefore race benignly: every update is
// an upsert keyed by DID and the active client is replaced wholesale, so
// the last completed call wins.
type Manager struct {
	cfg        Config
	factory    ports.ClientFactory
	store      ports.SnapshotStore
	moderation *moderation.Configurator
	notifier   ports.Notifier
	clock      ports.Clock
	spawn      func(func())

	mu          sync.Mutex
	accounts    domain.Roster
	client      ports.ProtocolClient
	current     domain.DID
	initialLoad bool
	switching   bool
	dirty       bool
}

var (
	_ SessionOps  = (*Manager)(nil)
	_ StateReader = (*Manager)(nil)
)

func NewManager(deps Deps, cfg Config) *Manager {
	if deps.Notifier == nil {
		deps.Notifier = ports.NopNotifier{}
	}
	if deps.Clock == nil {
		deps.Clock = ports.SystemClock{}
	}
	if deps.Spawn == nil {
		deps.Spawn = func(fn func()) { go fn() }
	}
	if cfg.ResumeRetries < 0 {
		cfg.ResumeRetries = defaultResumeRetries
	}

	return &Manager{
		cfg:         cfg,
		factory:     deps.Factory,
		store:       deps.Store,
		moderation:  deps.Moderation,
		notifier:    deps.Notifier,
		clock:       deps.Clock,
		spawn:       deps.Spawn,
		initialLoad: true,
	}
}

// Load seeds the in-memory roster from the persisted snapshot and returns
// the persisted current account for the caller to resume.
func (m *Manager) Load(ctx context.Context) (*domain.Account, error) {
	snapshot, err := m.store.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("read session snapshot: %w", err)
	}

	m.mu.Lock()
	m.accounts = snapshot.Accounts
	// The designation survives the load even though no client is active
	// yet, so an unrelated mutation flushed later does not drop it.
	if snapshot.Current != nil {
		m.current = snapshot.Current.DID
	}
	m.mu.Unlock()

	return snapshot.Current, nil
}

// Login establishes a session via the sign-in call and makes the account
// current.
func (m *Manager) Login(ctx context.Context, params LoginParams) (domain.Account, error) {
	client := m.factory.NewClient(params.Service)

	session, err := client.Login(ctx, params.Identifier, params.Password)
	if err != nil {
		if errors.Is(err, domain.ErrAborted) {
			return domain.Account{}, err
		}
		return domain.Account{}, fmt.Errorf("%w: %v", domain.ErrAuth, err)
	}
	account, err := m.accountFromSession(params.Service, session)
	if err != nil {
		return domain.Account{}, err
	}

	m.configure(ctx, client, account)
	client.SetEventHandler(m.eventHandler(client))
	m.install(client, account)

	return account, nil
}

// CreateAccount establishes a session via the account-creation call. For
// accounts that come up live (not deactivated) it fires a non-blocking
// profile-initialization call whose failure never fails the creation.
func (m *Manager) CreateAccount(ctx context.Context, params CreateAccountParams) (domain.Account, error) {
	client := m.factory.NewClient(params.Service)

	session, err := client.CreateAccount(ctx, params.protocol())
	if err != nil {
		if errors.Is(err, domain.ErrAborted) {
			return domain.Account{}, err
		}
		return domain.Account{}, fmt.Errorf("%w: %v", domain.ErrAuth, err)
	}
	account, err := m.accountFromSession(params.Service, session)
	if err != nil {
		return domain.Account{}, err
	}

	if !account.Deactivated {
		profileCtx := context.WithoutCancel(ctx)
		m.spawn(func() {
			if err := client.PutBasicProfile(profileCtx); err != nil {
				pslog.Ctx(profileCtx).Debug("profile initialization failed", "did", string(account.DID), "err", err)
			}
		})
	}

	m.configure(ctx, client, account)
	client.SetEventHandler(m.eventHandler(client))
	m.install(client, account)

	return account, nil
}

// InitSession (re)activates a stored account: cold start and account
// switching both funnel through here. A cached, unexpired access token is
// reused without any network call; otherwise the session is resumed over
// the network with a bounded retry, and terminal failure partially signs
// the account out (the roster entry survives).
func (m *Manager) InitSession(ctx context.Context, account domain.Account) error {
	client := m.factory.NewClient(account.Service)

	// Moderation is configured optimistically, before any network round
	// trip completes.
	m.configure(ctx, client, account)
	client.SetEventHandler(m.eventHandler(client))

	if account.AccessToken != "" && !tokens.Expired(account.AccessToken, m.clock.Now()) {
		client.RestoreSession(sessionFromAccount(account))
		m.install(client, account)
		return nil
	}

	session, err := m.resumeWithRetry(ctx, client, account)
	if err != nil {
		if errors.Is(err, domain.ErrAborted) {
			return err
		}
		m.partialSignOut(account.DID)
		return fmt.Errorf("resume session: %w", err)
	}

	refreshed, err := m.accountFromSession(account.Service, session)
	if err != nil {
		m.partialSignOut(account.DID)
		return err
	}
	refreshed.Extra = account.Extra

	m.install(client, refreshed)
	return nil
}

func (m *Manager) resumeWithRetry(ctx context.Context, client ports.ProtocolClient, account domain.Account) (ports.SessionData, error) {
	var session ports.SessionData
	var err error

	for attempt := 0; attempt <= m.cfg.ResumeRetries; attempt++ {
		session, err = client.ResumeSession(ctx, sessionFromAccount(account))
		if err == nil {
			return session, nil
		}
		if errors.Is(err, domain.ErrAborted) || errors.Is(err, domain.ErrAuth) {
			return ports.SessionData{}, err
		}
		pslog.Ctx(ctx).Debug("resume attempt failed", "did", string(account.DID), "attempt", attempt+1, "err", err)
	}

	return ports.SessionData{}, err
}

// ResumeSession is the cold-start entry point. Failures are logged, never
// rethrown, and the initial-load flag clears regardless of outcome.
func (m *Manager) ResumeSession(ctx context.Context, account *domain.Account) {
	defer func() {
		m.mu.Lock()
		m.initialLoad = false
		m.mu.Unlock()
	}()

	if account == nil {
		return
	}

	if err := m.InitSession(ctx, *account); err != nil && !errors.Is(err, domain.ErrAborted) {
		pslog.Ctx(ctx).Warn("session resume failed", "did", string(account.DID), "err", err)
	}
}

// SelectAccount switches the active client to the given account. Unlike
// ResumeSession it rethrows failures so callers can react; the switching
// flag is advisory, not a lock.
func (m *Manager) SelectAccount(ctx context.Context, account domain.Account) error {
	m.setSwitching(true)
	defer m.setSwitching(false)

	if err := m.InitSession(ctx, account); err != nil {
		return fmt.Errorf("select account: %w", err)
	}
	return nil
}

// RefreshSession forces the active client to rotate its credentials, then
// republishes a cloned client handle so observers see a new identity for
// the same account.
func (m *Manager) RefreshSession(ctx context.Context) (domain.Account, error) {
	m.mu.Lock()
	client := m.client
	m.mu.Unlock()
	if client == nil {
		return domain.Account{}, domain.ErrNoSession
	}

	session, err := client.RefreshSession(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrAborted) {
			return domain.Account{}, err
		}
		return domain.Account{}, fmt.Errorf("refresh session: %w", err)
	}

	account, err := m.accountFromSession(client.Service(), session)
	if err != nil {
		return domain.Account{}, err
	}
	m.mu.Lock()
	if prior, ok := m.accounts.Find(account.DID); ok {
		account.Extra = prior.Extra
	}
	m.mu.Unlock()

	fresh := client.Clone()
	fresh.SetEventHandler(m.eventHandler(fresh))
	m.install(fresh, account)

	return account, nil
}

// Logout is the full sign-out: the active client reverts to the public
// state and every roster entry loses its stored credentials, while the
// entries themselves stay as switch targets.
func (m *Manager) Logout(ctx context.Context, reason string) {
	m.mu.Lock()
	m.client = nil
	m.current = ""
	m.accounts = m.accounts.ClearCredentials()
	m.dirty = true
	m.mu.Unlock()

	pslog.Ctx(ctx).Info("signed out", "reason", reason)
}

// ClearCurrentAccount is the partial sign-out: only the active-client
// designation changes, stored credentials stay untouched.
func (m *Manager) ClearCurrentAccount() {
	m.partialSignOut("")
}

// RemoveAccount deletes the account from the roster. Removing the account
// the active client is bound to is refused; switch or sign out first.
func (m *Manager) RemoveAccount(account domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != "" && m.current == account.DID {
		return domain.ErrAccountActive
	}
	if _, ok := m.accounts.Find(account.DID); !ok {
		return domain.ErrAccountNotFound
	}

	m.accounts = m.accounts.Remove(account.DID)
	m.dirty = true
	return nil
}

// Flush writes the snapshot when the state is dirty. Mutations from the
// same batch collapse into a single write; the accounts and the current
// account always land together.
func (m *Manager) Flush(ctx context.Context) error {
	m.mu.Lock()
	if !m.dirty {
		m.mu.Unlock()
		return nil
	}
	snapshot := m.snapshotLocked()
	m.mu.Unlock()

	if err := m.store.Write(ctx, snapshot); err != nil {
		return fmt.Errorf("write session snapshot: %w", err)
	}

	m.mu.Lock()
	m.dirty = false
	m.mu.Unlock()
	return nil
}

// Start subscribes to external snapshot writes from other instances. The
// returned function cancels the subscription.
func (m *Manager) Start(ctx context.Context) (func(), error) {
	return m.store.Subscribe(func(snapshot ports.Snapshot) {
		m.applyExternalSnapshot(ctx, snapshot)
	})
}

// applyExternalSnapshot adopts a snapshot written by another instance: the
// roster is taken as is (it is not re-marked dirty), then the three-way
// reconciliation decides what happens to the active client.
func (m *Manager) applyExternalSnapshot(ctx context.Context, snapshot ports.Snapshot) {
	m.mu.Lock()
	var current *domain.Account
	if account, ok := m.accounts.Find(m.current); ok && m.client != nil {
		current = &account
	}
	m.accounts = snapshot.Accounts
	client := m.client
	m.mu.Unlock()

	decision := Reconcile(current, snapshot)
	switch decision.Kind {
	case DecisionSwitch:
		if err := m.InitSession(ctx, decision.Account); err != nil && !errors.Is(err, domain.ErrAborted) {
			pslog.Ctx(ctx).Warn("external account switch failed", "did", string(decision.Account.DID), "err", err)
		}
	case DecisionSpliceRefresh:
		if client != nil {
			client.RestoreSession(sessionFromAccount(decision.Account))
		}
	case DecisionSignOut:
		m.partialSignOut("")
	case DecisionNone:
	}
}

// AgentReady reports whether an authenticated client is active.
func (m *Manager) AgentReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client != nil
}

func (m *Manager) IsInitialLoad() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.initialLoad
}

func (m *Manager) IsSwitchingAccounts() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.switching
}

func (m *Manager) Accounts() domain.Roster {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.accounts.Clone()
}

// CurrentAccount returns the roster entry matching the active client's
// identity.
func (m *Manager) CurrentAccount() (domain.Account, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil || m.current == "" {
		return domain.Account{}, false
	}
	return m.accounts.Find(m.current)
}

// install swaps in the new active client and upserts its account. The swap
// is atomic from an observer's perspective: client, current DID and roster
// move under one critical section.
func (m *Manager) install(client ports.ProtocolClient, account domain.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.client = client
	m.current = account.DID
	m.accounts = m.accounts.Upsert(account)
	m.dirty = true
}

// partialSignOut clears the current-account designation. When did is
// non-empty the sign-out only applies if that account is still current.
func (m *Manager) partialSignOut(did domain.DID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if did != "" && m.current != did {
		return
	}
	m.client = nil
	m.current = ""
	m.dirty = true
}

func (m *Manager) setSwitching(switching bool) {
	m.mu.Lock()
	m.switching = switching
	m.mu.Unlock()
}

func (m *Manager) snapshotLocked() ports.Snapshot {
	snapshot := ports.Snapshot{Accounts: m.accounts.Clone()}
	if account, ok := m.accounts.Find(m.current); ok {
		snapshot.Current = &account
	}
	return snapshot
}

func (m *Manager) configure(ctx context.Context, client ports.ProtocolClient, account domain.Account) {
	if m.moderation != nil {
		m.moderation.Configure(ctx, client, account)
	}
}

// eventHandler returns the credential lifecycle subscription for a client.
// Every branch is an upsert keyed by DID, so repeat delivery of stale
// events is harmless; last write wins per account.
func (m *Manager) eventHandler(client ports.ProtocolClient) func(ports.SessionEvent) {
	return func(event ports.SessionEvent) {
		switch {
		case event.Type == domain.EventNetworkError:
			// Transient: the session is intact, just tell listeners.
			m.notifier.EmitNetworkLost()

		case event.Type == domain.EventRefreshed:
			account, err := m.accountFromSession(client.Service(), event.Session)
			if err != nil {
				return
			}
			m.mu.Lock()
			if prior, ok := m.accounts.Find(account.DID); ok {
				account.Extra = prior.Extra
			}
			m.accounts = m.accounts.Upsert(account)
			m.dirty = true
			m.mu.Unlock()

		case event.Type.Terminal():
			did := event.Session.DID
			m.mu.Lock()
			if prior, ok := m.accounts.Find(did); ok {
				m.accounts = m.accounts.Upsert(prior.WithoutCredentials())
				m.dirty = true
			}
			m.mu.Unlock()

			m.notifier.EmitSessionDropped()
			m.partialSignOut(did)
		}
	}
}

// accountFromSession derives the normalized account record from a client's
// session payload. A payload without a DID or access token is not a usable
// session.
func (m *Manager) accountFromSession(service string, session ports.SessionData) (domain.Account, error) {
	if session.DID == "" || session.AccessToken == "" {
		return domain.Account{}, fmt.Errorf("%w: response carried no usable session", domain.ErrAuth)
	}

	return domain.Account{
		Service:        service,
		DID:            session.DID,
		Handle:         session.Handle,
		Email:          session.Email,
		EmailConfirmed: session.EmailConfirmed,
		Deactivated:    tokens.Deactivated(session.AccessToken),
		AccessToken:    session.AccessToken,
		RefreshToken:   session.RefreshToken,
	}, nil
}

func sessionFromAccount(account domain.Account) ports.SessionData {
	return ports.SessionData{
		DID:            account.DID,
		Handle:         account.Handle,
		Email:          account.Email,
		EmailConfirmed: account.EmailConfirmed,
		AccessToken:    account.AccessToken,
		RefreshToken:   account.RefreshToken,
	}
}
