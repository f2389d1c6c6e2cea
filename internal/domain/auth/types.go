package auth

// Package auth contains domain-level types for authentication, sessions,
// and authorization. It is pure and free of framework/adapter concerns.

import "time"

// Role represents an application's authorization role.
// Keep string form for easy persistence and serialization.
// Valid values are defined as constants below.
type Role string

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

// RoleDisplayName returns a user-friendly name for a role.
func RoleDisplayName(r Role) string {
	if r == RoleAdmin {
		return "Administrator"
	}
	return string(r)
}

// Identity represents the authenticated principal returned by an IdP,
// including the raw provider tokens. Adapters map provider-specific claims
// into this shape. Immutable once produced for a given sign-in.
type Identity struct {
	Subject     string // stable user identifier (sub claim)
	DisplayName string
	Email       string

	// IdentityToken is the raw provider-issued identity assertion (id_token).
	IdentityToken string
	// ProviderAccessToken is the raw provider-API credential (access_token).
	// It has different audience semantics than the identity token and is
	// never what the incident backend trusts.
	ProviderAccessToken string

	ExpiresAt time.Time // absolute expiry from IdP token
}

// Session is the server-side record we persist for an authenticated user.
// ID is an opaque session identifier assigned at login; it is not part of
// derivation and survives refresh.
type Session struct {
	ID          string `json:"id"`
	Subject     string `json:"subject"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`

	// IdentityToken and ProviderAccessToken are carried verbatim from the
	// provider. BackendTrustToken is the one token the incident backend is
	// instructed to accept as a bearer credential; Derive pins it to
	// IdentityToken.
	IdentityToken       string `json:"identity_token"`
	ProviderAccessToken string `json:"provider_access_token"`
	BackendTrustToken   string `json:"backend_trust_token"`

	Roles     []Role    `json:"roles"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Claims rebuilds the Identity this session was derived from. Used on
// refresh, where re-derivation must not re-contact the provider.
func (s Session) Claims() Identity {
	return Identity{
		Subject:             s.Subject,
		DisplayName:         s.DisplayName,
		Email:               s.Email,
		IdentityToken:       s.IdentityToken,
		ProviderAccessToken: s.ProviderAccessToken,
		ExpiresAt:           s.ExpiresAt,
	}
}

// PrimaryRole returns the highest-privilege role in the set: Admin beats
// User. This is the single role the backend user record is provisioned with.
func PrimaryRole(roles []Role) Role {
	for _, r := range roles {
		if r == RoleAdmin {
			return RoleAdmin
		}
	}
	if len(roles) > 0 {
		return roles[0]
	}
	return RoleUser
}

// UserSync is the payload pushed to the backend's user-provisioning endpoint.
type UserSync struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
}

// SyncFor builds the user-provisioning payload for a session, carrying the
// highest-privilege role.
func (s Session) SyncFor() UserSync {
	return UserSync{
		Email: s.Email,
		Name:  s.DisplayName,
		Role:  PrimaryRole(s.Roles),
	}
}
