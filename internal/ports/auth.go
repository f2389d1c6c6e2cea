package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/polibsk/incidents-ui-api/internal/domain/auth"
)

// BeginInput carries inputs for initiating an auth flow.
type BeginInput struct {
	RedirectURL string
}

// BeginResult carries everything the caller must hold onto between the
// redirect to the provider and the callback. PKCEVerifier is empty for
// providers that do not use PKCE.
type BeginResult struct {
	AuthURL      string
	State        string
	Nonce        string
	PKCEVerifier string
}

// ExchangeInput groups parameters for the code/token exchange.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
	// PKCEVerifier is the code verifier issued at Begin; replayed here so
	// the provider can complete the proof-of-possession check.
	PKCEVerifier string
}

// AuthProvider initiates and completes an authentication flow against an IdP.
type AuthProvider interface {
	// Begin starts the login flow, returning the provider auth URL plus the
	// state, nonce, and PKCE verifier to carry through the callback.
	Begin(ctx context.Context, in BeginInput) (BeginResult, error)

	// Exchange completes the login flow, verifying state and nonce, and
	// returns the authenticated identity including the raw provider tokens.
	// Any failure means "unauthenticated"; no partial identity is returned.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Identity, error)
}

// SessionStore persists and retrieves server-side session records.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	Delete(ctx context.Context, id string) error
}

// RoleSource derives the role set for an authenticated email address.
// Implementations must be deterministic total functions: any input, including
// an empty email, yields a non-empty role set.
type RoleSource interface {
	RolesFor(email string) []domainauth.Role
}

// UserSyncer pushes a derived identity to the backend's user-provisioning
// endpoint, authenticated with the session's backend trust token. The
// receiver upserts by email, so at-least-once delivery is safe.
type UserSyncer interface {
	SyncUser(ctx context.Context, sync domainauth.UserSync, bearerToken string) error
}

// CredentialStore is the durable half of the client session cache: two fixed
// well-known entries holding the current bearer token and the serialized role
// list. Both are written and cleared together; only the session cache
// component may call the write methods.
type CredentialStore interface {
	Put(ctx context.Context, token string, roles []domainauth.Role) error
	Get(ctx context.Context) (token string, roles []domainauth.Role, err error)
	Clear(ctx context.Context) error
}
