package config

import (
	"fmt"
	"strings"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeOAuth uses OAuth/OIDC for authentication.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock)", v)
	}
}

// OAuthConfig contains OAuth/OIDC configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"     envDefault:"incidents-ui"`
	ClientSecret string `env:"CLIENT_SECRET" envDefault:"incidents-ui"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/callback"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	LogoutURL    string `env:"LOGOUT_URL"`
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	Subject     string `env:"SUBJECT" envDefault:"dev-user"`
	DisplayName string `env:"NAME"    envDefault:"Dev User"`
	Email       string `env:"EMAIL"   envDefault:"dev@example.com"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which authentication provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oauth"`

	// OAuth configuration (used when Mode=oauth).
	OAuth OAuthConfig `envPrefix:"OAUTH_"`

	// DevAuth configuration (used when Mode=mock).
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// AdminEmail is the designated administrator address. The comparison
	// against authenticated emails is case-sensitive.
	AdminEmail string `env:"AUTH_ADMIN_EMAIL"`

	// AdminEmails optionally extends the administrator set beyond the single
	// designated address. Entries are compared case-sensitively.
	AdminEmails []string `env:"AUTH_ADMIN_EMAILS" envSeparator:";"`
}

// AdminAllowlist returns the full set of administrator addresses, with the
// designated AdminEmail first when present.
func (c AuthConfig) AdminAllowlist() []string {
	out := make([]string, 0, len(c.AdminEmails)+1)
	if c.AdminEmail != "" {
		out = append(out, c.AdminEmail)
	}
	for _, e := range c.AdminEmails {
		if e != "" && e != c.AdminEmail {
			out = append(out, e)
		}
	}
	return out
}
