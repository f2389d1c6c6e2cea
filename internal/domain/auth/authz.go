package auth

// Authorization predicates over a role set. This file is the single source
// of the capability-to-role policy; HTTP middleware, handlers, and the admin
// CLI must consult these functions rather than re-deriving the mapping.

// HasRole reports whether the role set contains the target role.
func HasRole(roles []Role, target Role) bool {
	for _, r := range roles {
		if r == target {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the role set carries the Admin role.
func IsAdmin(roles []Role) bool {
	return HasRole(roles, RoleAdmin)
}

// isAuthenticated is "role set non-empty": every authenticated session holds
// at least one role.
func isAuthenticated(roles []Role) bool {
	return len(roles) > 0
}

// CanDeleteIncidents reports whether the role set permits deleting incidents.
func CanDeleteIncidents(roles []Role) bool {
	return IsAdmin(roles)
}

// CanDeleteUsers reports whether the role set permits deleting users.
func CanDeleteUsers(roles []Role) bool {
	return IsAdmin(roles)
}

// CanViewUsersList reports whether the role set permits listing users.
func CanViewUsersList(roles []Role) bool {
	return IsAdmin(roles)
}

// CanCreateIncidents reports whether the role set permits creating incidents.
// All authenticated users can create incidents.
func CanCreateIncidents(roles []Role) bool {
	return isAuthenticated(roles)
}

// CanUpdateIncidentStatus reports whether the role set permits updating
// incident status. All authenticated users can.
func CanUpdateIncidentStatus(roles []Role) bool {
	return isAuthenticated(roles)
}

// CanAccessDashboard reports whether the role set permits viewing the
// dashboard. All authenticated users can.
func CanAccessDashboard(roles []Role) bool {
	return isAuthenticated(roles)
}

// RequireMode selects how a multi-role requirement is evaluated.
type RequireMode int

const (
	// RequireAny passes when at least one required role is present (default).
	RequireAny RequireMode = iota
	// RequireAll passes only when every required role is present.
	RequireAll
)

// HasRequiredRoles evaluates a multi-role requirement against the role set.
// With zero required roles the check degenerates to "is authenticated".
func HasRequiredRoles(roles []Role, required []Role, mode RequireMode) bool {
	if !isAuthenticated(roles) {
		return false
	}
	if len(required) == 0 {
		return true
	}
	if mode == RequireAll {
		for _, want := range required {
			if !HasRole(roles, want) {
				return false
			}
		}
		return true
	}
	for _, want := range required {
		if HasRole(roles, want) {
			return true
		}
	}
	return false
}
