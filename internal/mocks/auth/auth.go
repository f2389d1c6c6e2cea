package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	domainauth "github.com/polibsk/incidents-ui-api/internal/domain/auth"
	"github.com/polibsk/incidents-ui-api/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.AuthProvider    = (*MockAuthProvider)(nil)
	_ ports.SessionStore    = (*MemorySessionStore)(nil)
	_ ports.RoleSource      = (*StaticRoleSource)(nil)
	_ ports.UserSyncer      = (*MockUserSyncer)(nil)
	_ ports.CredentialStore = (*MemoryCredentialStore)(nil)
)

// MockAuthProvider simulates an IdP for tests with deterministic state/nonce handling.
type MockAuthProvider struct {
	BeginFunc    func(ctx context.Context, in ports.BeginInput) (ports.BeginResult, error)
	ExchangeFunc func(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error)

	// Deterministic values for predictable testing
	AuthURL     string
	StatePrefix string
	NoncePrefix string
	DefaultUser domainauth.Identity

	// Internal state tracking for deterministic behavior
	callCount int
}

// NewMockAuthProvider creates a MockAuthProvider with sensible defaults.
func NewMockAuthProvider() *MockAuthProvider {
	return &MockAuthProvider{
		AuthURL:     "https://mock-idp/auth",
		StatePrefix: "state",
		NoncePrefix: "nonce",
		DefaultUser: domainauth.Identity{
			Subject:             "mock-user-1",
			DisplayName:         "Mock User",
			Email:               "mock.user@example.com",
			IdentityToken:       "mock-id-token",
			ProviderAccessToken: "mock-access-token",
			ExpiresAt:           time.Now().Add(time.Hour),
		},
	}
}

func (m *MockAuthProvider) Begin(ctx context.Context, in ports.BeginInput) (ports.BeginResult, error) {
	if m.BeginFunc != nil {
		return m.BeginFunc(ctx, in)
	}

	m.callCount++
	authURL := m.AuthURL
	if authURL == "" {
		authURL = "https://mock-idp/auth"
	}

	statePrefix := m.StatePrefix
	if statePrefix == "" {
		statePrefix = "state"
	}
	noncePrefix := m.NoncePrefix
	if noncePrefix == "" {
		noncePrefix = "nonce"
	}

	return ports.BeginResult{
		AuthURL:      authURL,
		State:        fmt.Sprintf("%s-%d", statePrefix, m.callCount),
		Nonce:        fmt.Sprintf("%s-%d", noncePrefix, m.callCount),
		PKCEVerifier: fmt.Sprintf("verifier-%d", m.callCount),
	}, nil
}

func (m *MockAuthProvider) Exchange(ctx context.Context, in ports.ExchangeInput) (domainauth.Identity, error) {
	if m.ExchangeFunc != nil {
		return m.ExchangeFunc(ctx, in)
	}

	// Return a copy of the default user with a fresh expiration time
	user := m.DefaultUser
	if user.Subject == "" {
		user = domainauth.Identity{
			Subject:             "mock-user-1",
			DisplayName:         "Mock User",
			Email:               "mock.user@example.com",
			IdentityToken:       "mock-id-token",
			ProviderAccessToken: "mock-access-token",
		}
	}
	user.ExpiresAt = time.Now().Add(time.Hour)

	return user, nil
}

// MemorySessionStore is an in-memory session store for unit tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]domainauth.Session

	SaveErr   error
	GetErr    error
	DeleteErr error
}

// NewMemorySessionStore creates a new in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]domainauth.Session),
	}
}

func (m *MemorySessionStore) Save(_ context.Context, sess domainauth.Session) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	if sess.ID == "" {
		return errors.New("session ID cannot be empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.ID] = sess
	return nil
}

func (m *MemorySessionStore) Get(_ context.Context, id string) (domainauth.Session, error) {
	if m.GetErr != nil {
		return domainauth.Session{}, m.GetErr
	}
	if id == "" {
		return domainauth.Session{}, ErrNotFound
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[id]
	if !ok {
		return domainauth.Session{}, ErrNotFound
	}
	return sess, nil
}

func (m *MemorySessionStore) Delete(_ context.Context, id string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	if id == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// ErrNotFound is returned by mocks when an entity is not present.
type notFoundError struct{}

func (notFoundError) Error() string { return "not found" }

var ErrNotFound error = notFoundError{}

// StaticRoleSource grants Admin to one fixed address and User to everyone else.
type StaticRoleSource struct {
	AdminEmail string
}

func (s StaticRoleSource) RolesFor(email string) []domainauth.Role {
	if s.AdminEmail != "" && email == s.AdminEmail {
		return []domainauth.Role{domainauth.RoleAdmin}
	}
	return []domainauth.Role{domainauth.RoleUser}
}

// MockUserSyncer records user-provisioning calls and optionally fails them.
type MockUserSyncer struct {
	mu sync.Mutex

	SyncErr error
	Calls   []SyncCall

	// Done is closed-notified (non-blocking send) after each call so tests
	// can wait for the fire-and-forget sync goroutine.
	Done chan struct{}
}

// SyncCall records one SyncUser invocation.
type SyncCall struct {
	Sync  domainauth.UserSync
	Token string
}

// NewMockUserSyncer creates a syncer double with a buffered completion channel.
func NewMockUserSyncer() *MockUserSyncer {
	return &MockUserSyncer{Done: make(chan struct{}, 16)}
}

func (m *MockUserSyncer) SyncUser(_ context.Context, sync domainauth.UserSync, token string) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, SyncCall{Sync: sync, Token: token})
	m.mu.Unlock()

	if m.Done != nil {
		select {
		case m.Done <- struct{}{}:
		default:
		}
	}
	return m.SyncErr
}

// CallCount returns how many times SyncUser was invoked.
func (m *MockUserSyncer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastCall returns the most recent SyncUser invocation.
func (m *MockUserSyncer) LastCall() (SyncCall, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return SyncCall{}, false
	}
	return m.Calls[len(m.Calls)-1], true
}

// MemoryCredentialStore is an in-memory durable credential store for tests.
type MemoryCredentialStore struct {
	mu    sync.Mutex
	token string
	roles []domainauth.Role
	set   bool

	PutErr   error
	GetErr   error
	ClearErr error
}

// NewMemoryCredentialStore creates an empty in-memory credential store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{}
}

func (m *MemoryCredentialStore) Put(_ context.Context, token string, roles []domainauth.Role) error {
	if m.PutErr != nil {
		return m.PutErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.roles = append([]domainauth.Role(nil), roles...)
	m.set = true
	return nil
}

func (m *MemoryCredentialStore) Get(_ context.Context) (string, []domainauth.Role, error) {
	if m.GetErr != nil {
		return "", nil, m.GetErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return "", nil, nil
	}
	return m.token, append([]domainauth.Role(nil), m.roles...), nil
}

func (m *MemoryCredentialStore) Clear(_ context.Context) error {
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.roles = nil
	m.set = false
	return nil
}
