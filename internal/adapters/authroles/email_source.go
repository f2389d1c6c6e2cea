package authroles

import (
	domainauth "github.com/polibsk/incidents-ui-api/internal/domain/auth"
)

// EmailRoleSource derives roles from a configured administrator allowlist.
// The single-designated-admin deployment is the one-element case.
//
// Comparison is case-sensitive: provider emails are trusted verbatim, and the
// configured address must match exactly. The role set is replaced wholesale,
// never unioned: an allowlisted address gets {Admin}, everyone else {User}.
// An empty email still yields {User} so an authenticated session never ends
// up with an empty role set.
type EmailRoleSource struct {
	AdminEmails []string
}

// NewEmailRoleSource builds a role source from the configured admin addresses.
func NewEmailRoleSource(adminEmails []string) EmailRoleSource {
	return EmailRoleSource{AdminEmails: append([]string(nil), adminEmails...)}
}

// RolesFor returns the role set for the given email.
func (s EmailRoleSource) RolesFor(email string) []domainauth.Role {
	if email != "" {
		for _, admin := range s.AdminEmails {
			if admin != "" && email == admin {
				return []domainauth.Role{domainauth.RoleAdmin}
			}
		}
	}
	return []domainauth.Role{domainauth.RoleUser}
}
