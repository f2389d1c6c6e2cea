package auth

// Derive turns provider identity claims and a derived role set into a
// Session record. It is a pure function: deriving twice from the same inputs
// yields identical records, and it never fails — partial claims degrade to a
// session with whatever assertion exists.
//
// Token selection invariant: BackendTrustToken is always the identity token,
// never the provider access token. The backend validates identity
// assertions; the access token has provider-API audience semantics and must
// not be presented as proof of identity.
func Derive(identity Identity, roles []Role) Session {
	if len(roles) == 0 {
		roles = []Role{RoleUser}
	}
	return Session{
		Subject:             identity.Subject,
		DisplayName:         identity.DisplayName,
		Email:               identity.Email,
		IdentityToken:       identity.IdentityToken,
		ProviderAccessToken: identity.ProviderAccessToken,
		BackendTrustToken:   identity.IdentityToken,
		Roles:               append([]Role(nil), roles...),
		ExpiresAt:           identity.ExpiresAt,
	}
}
