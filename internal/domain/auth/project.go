package auth

// ProjectedUser is the client-visible user shape.
type ProjectedUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Projected is the client-visible reshaping of a Session. AccessToken is the
// value the client attaches to backend calls — it carries the session's
// BackendTrustToken, not the provider access token.
type Projected struct {
	User            ProjectedUser `json:"user"`
	Roles           []Role        `json:"roles"`
	IsAuthenticated bool          `json:"is_authenticated"`
	AccessToken     string        `json:"access_token"`
}

// Project maps a Session record to its client-visible projection. A nil
// session projects to the unauthenticated zero projection.
func Project(s *Session) Projected {
	if s == nil {
		return Projected{}
	}
	return Projected{
		User: ProjectedUser{
			Name:  s.DisplayName,
			Email: s.Email,
		},
		Roles:           append([]Role(nil), s.Roles...),
		IsAuthenticated: true,
		AccessToken:     s.BackendTrustToken,
	}
}
