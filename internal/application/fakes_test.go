package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/bnema/atp-accounts-cli/internal/domain"
	"github.com/bnema/atp-accounts-cli/internal/ports"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func mintToken(t *testing.T, scope string, expiresAt time.Time) string {
	t.Helper()

	mapClaims := jwt.MapClaims{"exp": expiresAt.Unix()}
	if scope != "" {
		mapClaims["scope"] = scope
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, mapClaims).SignedString([]byte("test-key"))
	require.NoError(t, err)
	return token
}

type resumeOutcome struct {
	session ports.SessionData
	err     error
}

type fakeClient struct {
	service string

	loginResult   ports.SessionData
	loginErr      error
	createResult  ports.SessionData
	createErr     error
	resumeScript  []resumeOutcome
	refreshResult ports.SessionData
	refreshErr    error
	profileErr    error

	loginCalls   int
	createCalls  int
	resumeCalls  int
	refreshCalls int
	profileCalls int
	restoreCalls int

	session    ports.SessionData
	hasSession bool
	handler    func(ports.SessionEvent)

	defaultLabel domain.DID
	extraLabels  []domain.DID
}

var _ ports.ProtocolClient = (*fakeClient)(nil)

func (c *fakeClient) Service() string { return c.service }

func (c *fakeClient) networkCalls() int {
	return c.loginCalls + c.createCalls + c.resumeCalls + c.refreshCalls
}

func (c *fakeClient) Login(_ context.Context, _, _ string) (ports.SessionData, error) {
	c.loginCalls++
	if c.loginErr != nil {
		return ports.SessionData{}, c.loginErr
	}
	c.session, c.hasSession = c.loginResult, true
	return c.loginResult, nil
}

func (c *fakeClient) CreateAccount(_ context.Context, _ ports.CreateAccountParams) (ports.SessionData, error) {
	c.createCalls++
	if c.createErr != nil {
		return ports.SessionData{}, c.createErr
	}
	c.session, c.hasSession = c.createResult, true
	return c.createResult, nil
}

func (c *fakeClient) ResumeSession(_ context.Context, _ ports.SessionData) (ports.SessionData, error) {
	c.resumeCalls++
	if len(c.resumeScript) == 0 {
		return ports.SessionData{}, domain.ErrAuth
	}
	outcome := c.resumeScript[0]
	if len(c.resumeScript) > 1 {
		c.resumeScript = c.resumeScript[1:]
	}
	if outcome.err != nil {
		return ports.SessionData{}, outcome.err
	}
	c.session, c.hasSession = outcome.session, true
	return outcome.session, nil
}

func (c *fakeClient) RefreshSession(_ context.Context) (ports.SessionData, error) {
	c.refreshCalls++
	if c.refreshErr != nil {
		return ports.SessionData{}, c.refreshErr
	}
	c.session, c.hasSession = c.refreshResult, true
	return c.refreshResult, nil
}

func (c *fakeClient) RestoreSession(session ports.SessionData) {
	c.restoreCalls++
	c.session, c.hasSession = session, true
}

func (c *fakeClient) Session() (ports.SessionData, bool) { return c.session, c.hasSession }

func (c *fakeClient) Clone() ports.ProtocolClient {
	clone := &fakeClient{service: c.service, session: c.session, hasSession: c.hasSession}
	return clone
}

func (c *fakeClient) SetEventHandler(handler func(ports.SessionEvent)) { c.handler = handler }

func (c *fakeClient) PutBasicProfile(_ context.Context) error {
	c.profileCalls++
	return c.profileErr
}

func (c *fakeClient) SetDefaultLabelSource(did domain.DID) { c.defaultLabel = did }

func (c *fakeClient) AddLabelSources(dids []domain.DID) {
	c.extraLabels = append(c.extraLabels, dids...)
}

type fakeFactory struct {
	queue   []*fakeClient
	created []*fakeClient
}

func (f *fakeFactory) NewClient(service string) ports.ProtocolClient {
	var client *fakeClient
	if len(f.queue) > 0 {
		client = f.queue[0]
		f.queue = f.queue[1:]
	} else {
		client = &fakeClient{}
	}
	client.service = service
	f.created = append(f.created, client)
	return client
}

type memStore struct {
	mu       sync.Mutex
	snapshot ports.Snapshot
	readErr  error
	writeErr error
	writes   int
	subs     []func(ports.Snapshot)
}

var _ ports.SnapshotStore = (*memStore)(nil)

func (s *memStore) Read(_ context.Context) (ports.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return ports.Snapshot{}, s.readErr
	}
	return s.snapshot, nil
}

func (s *memStore) Write(_ context.Context, snapshot ports.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.snapshot = snapshot
	s.writes++
	return nil
}

func (s *memStore) Subscribe(onExternalUpdate func(ports.Snapshot)) (func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, onExternalUpdate)
	return func() {}, nil
}

// pushExternal simulates another instance writing the snapshot.
func (s *memStore) pushExternal(snapshot ports.Snapshot) {
	s.mu.Lock()
	subs := append([]func(ports.Snapshot){}, s.subs...)
	s.mu.Unlock()
	for _, sub := range subs {
		sub(snapshot)
	}
}

type fakeNotifier struct {
	dropped int
	network int
}

func (n *fakeNotifier) EmitSessionDropped() { n.dropped++ }
func (n *fakeNotifier) EmitNetworkLost()    { n.network++ }

func syncSpawn(fn func()) { fn() }

func newTestManager(t *testing.T, factory *fakeFactory, store *memStore, notifier *fakeNotifier) *Manager {
	t.Helper()

	if store == nil {
		store = &memStore{}
	}
	if notifier == nil {
		notifier = &fakeNotifier{}
	}
	return NewManager(Deps{
		Factory:  factory,
		Store:    store,
		Notifier: notifier,
		Clock:    fixedClock{now: testNow},
		Spawn:    syncSpawn,
	}, Config{ResumeRetries: 1})
}
