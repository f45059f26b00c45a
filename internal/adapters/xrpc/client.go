// Package xrpc is the concrete protocol client: a thin JSON-over-HTTP
// binding to the com.atproto session endpoints. The session core only sees
// it through the ports.ProtocolClient interface.
package xrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/bnema/atp-accounts-cli/internal/domain"
	"github.com/bnema/atp-accounts-cli/internal/ports"
)

const (
	procCreateSession  = "com.atproto.server.createSession"
	procCreateAccount  = "com.atproto.server.createAccount"
	procRefreshSession = "com.atproto.server.refreshSession"
	procGetSession     = "com.atproto.server.getSession"
	procResolveHandle  = "com.atproto.identity.resolveHandle"
	procPutRecord      = "com.atproto.repo.putRecord"

	acceptLabelersHeader = "atproto-accept-labelers"
)

// wireError is the JSON error envelope the service returns on non-2xx.
type wireError struct {
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *wireError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Code
}

// terminalSessionCodes are the refresh failures that mean the session is
// gone for good, not just unreachable.
var terminalSessionCodes = map[string]struct{}{
	"ExpiredToken":           {},
	"InvalidToken":           {},
	"AccountTakedown":        {},
	"AuthenticationRequired": {},
}

type wireSession struct {
	DID            string `json:"did"`
	Handle         string `json:"handle"`
	Email          string `json:"email,omitempty"`
	EmailConfirmed bool   `json:"emailConfirmed,omitempty"`
	AccessJwt      string `json:"accessJwt"`
	RefreshJwt     string `json:"refreshJwt"`
}

func (w wireSession) toPort() ports.SessionData {
	return ports.SessionData{
		DID:            domain.DID(w.DID),
		Handle:         w.Handle,
		Email:          w.Email,
		EmailConfirmed: w.EmailConfirmed,
		AccessToken:    w.AccessJwt,
		RefreshToken:   w.RefreshJwt,
	}
}

// Client is one live connection to a service instance.
type Client struct {
	service string
	http    *http.Client

	mu         sync.Mutex
	session    ports.SessionData
	hasSession bool
	handler    func(ports.SessionEvent)
	labelers   []domain.DID
}

var _ ports.ProtocolClient = (*Client)(nil)

func NewClient(service string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{service: strings.TrimRight(service, "/"), http: httpClient}
}

// Factory builds clients sharing one HTTP transport.
type Factory struct {
	HTTP *http.Client
}

var _ ports.ClientFactory = (*Factory)(nil)

func (f *Factory) NewClient(service string) ports.ProtocolClient {
	return NewClient(service, f.HTTP)
}

func (c *Client) Service() string { return c.service }

func (c *Client) Login(ctx context.Context, identifier, password string) (ports.SessionData, error) {
	var session wireSession
	err := c.call(ctx, http.MethodPost, procCreateSession, nil, map[string]string{
		"identifier": identifier,
		"password":   password,
	}, "", &session)
	if err != nil {
		return ports.SessionData{}, fmt.Errorf("create session: %w", err)
	}

	c.setSession(session.toPort())
	return session.toPort(), nil
}

func (c *Client) CreateAccount(ctx context.Context, params ports.CreateAccountParams) (ports.SessionData, error) {
	body := map[string]string{
		"email":    params.Email,
		"password": params.Password,
		"handle":   params.Handle,
	}
	if params.InviteCode != "" {
		body["inviteCode"] = params.InviteCode
	}
	if params.VerificationPhone != "" {
		body["verificationPhone"] = params.VerificationPhone
	}
	if params.VerificationCode != "" {
		body["verificationCode"] = params.VerificationCode
	}

	var session wireSession
	if err := c.call(ctx, http.MethodPost, procCreateAccount, nil, body, "", &session); err != nil {
		c.emit(domain.EventCreateFailed, ports.SessionData{Handle: params.Handle})
		return ports.SessionData{}, fmt.Errorf("create account: %w", err)
	}

	c.setSession(session.toPort())
	return session.toPort(), nil
}

// ResumeSession revalidates stored credentials: the refresh token rotates
// the session, then getSession fills in the profile attributes.
func (c *Client) ResumeSession(ctx context.Context, session ports.SessionData) (ports.SessionData, error) {
	if session.RefreshToken == "" {
		c.emit(domain.EventExpired, session)
		return ports.SessionData{}, fmt.Errorf("resume session: %w: no refresh credential", domain.ErrAuth)
	}

	var rotated wireSession
	if err := c.call(ctx, http.MethodPost, procRefreshSession, nil, nil, session.RefreshToken, &rotated); err != nil {
		return ports.SessionData{}, c.classifyRefreshFailure(err, session)
	}

	resumed := rotated.toPort()

	var profile struct {
		Email          string `json:"email,omitempty"`
		EmailConfirmed bool   `json:"emailConfirmed,omitempty"`
	}
	if err := c.call(ctx, http.MethodGet, procGetSession, nil, nil, resumed.AccessToken, &profile); err == nil {
		resumed.Email = profile.Email
		resumed.EmailConfirmed = profile.EmailConfirmed
	}

	c.setSession(resumed)
	c.emit(domain.EventRefreshed, resumed)
	return resumed, nil
}

func (c *Client) RefreshSession(ctx context.Context) (ports.SessionData, error) {
	session, ok := c.Session()
	if !ok {
		return ports.SessionData{}, domain.ErrNoSession
	}

	var rotated wireSession
	if err := c.call(ctx, http.MethodPost, procRefreshSession, nil, nil, session.RefreshToken, &rotated); err != nil {
		return ports.SessionData{}, c.classifyRefreshFailure(err, session)
	}

	refreshed := rotated.toPort()
	refreshed.Email = session.Email
	refreshed.EmailConfirmed = session.EmailConfirmed

	c.setSession(refreshed)
	c.emit(domain.EventRefreshed, refreshed)
	return refreshed, nil
}

// classifyRefreshFailure sorts a refresh rejection into terminal and
// transient. Terminal codes mean the session is dead: the expiry event
// fires once here and the returned error carries ErrAuth so callers never
// retry it. Everything else leaves the session intact.
func (c *Client) classifyRefreshFailure(err error, session ports.SessionData) error {
	var wire *wireError
	if errors.As(err, &wire) {
		if _, terminal := terminalSessionCodes[wire.Code]; terminal {
			c.emit(domain.EventExpired, session)
			return fmt.Errorf("refresh session: %w: %v", domain.ErrAuth, err)
		}
	}
	if errors.Is(err, domain.ErrAborted) {
		return fmt.Errorf("refresh session: %w", err)
	}
	c.emit(domain.EventNetworkError, session)
	return fmt.Errorf("refresh session: %w", err)
}

func (c *Client) RestoreSession(session ports.SessionData) {
	c.setSession(session)
}

func (c *Client) Session() (ports.SessionData, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session, c.hasSession
}

func (c *Client) Clone() ports.ProtocolClient {
	c.mu.Lock()
	defer c.mu.Unlock()

	clone := NewClient(c.service, c.http)
	clone.session = c.session
	clone.hasSession = c.hasSession
	clone.labelers = append([]domain.DID(nil), c.labelers...)
	return clone
}

func (c *Client) SetEventHandler(handler func(ports.SessionEvent)) {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()
}

// PutBasicProfile seeds an empty profile record for a fresh account.
func (c *Client) PutBasicProfile(ctx context.Context) error {
	session, ok := c.Session()
	if !ok {
		return domain.ErrNoSession
	}

	body := map[string]any{
		"repo":       string(session.DID),
		"collection": "app.bsky.actor.profile",
		"rkey":       "self",
		"record": map[string]any{
			"$type":       "app.bsky.actor.profile",
			"displayName": "",
		},
	}
	if err := c.call(ctx, http.MethodPost, procPutRecord, nil, body, session.AccessToken, nil); err != nil {
		return fmt.Errorf("put profile record: %w", err)
	}
	return nil
}

func (c *Client) SetDefaultLabelSource(did domain.DID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.labelers = []domain.DID{did}
}

func (c *Client) AddLabelSources(dids []domain.DID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.labelers = append(c.labelers, dids...)
}

func (c *Client) emit(eventType domain.SessionEventType, session ports.SessionData) {
	c.mu.Lock()
	handler := c.handler
	c.mu.Unlock()
	if handler != nil {
		handler(ports.SessionEvent{Type: eventType, Session: session})
	}
}

func (c *Client) setSession(session ports.SessionData) {
	c.mu.Lock()
	c.session = session
	c.hasSession = true
	c.mu.Unlock()
}

func (c *Client) labelersHeader() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.labelers) == 0 {
		return ""
	}
	parts := make([]string, 0, len(c.labelers))
	for _, did := range c.labelers {
		parts = append(parts, string(did))
	}
	return strings.Join(parts, ", ")
}

func (c *Client) call(ctx context.Context, method, proc string, query url.Values, body any, bearer string, out any) error {
	endpoint := fmt.Sprintf("%s/xrpc/%s", c.service, proc)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	if labelers := c.labelersHeader(); labelers != "" {
		req.Header.Set(acceptLabelersHeader, labelers)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", domain.ErrAborted, err)
		}
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		wire := &wireError{}
		if decodeErr := json.Unmarshal(data, wire); decodeErr != nil || wire.Code == "" {
			wire.Code = http.StatusText(resp.StatusCode)
		}
		return wire
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response body: %w", err)
		}
	}
	return nil
}
