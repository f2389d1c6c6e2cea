package devauth

// Package devauth provides a simple, config-driven AuthProvider for local development.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	domainauth "github.com/polibsk/incidents-ui-api/internal/domain/auth"
	"github.com/polibsk/incidents-ui-api/internal/ports"
)

// Config controls the dev auth provider behavior.
type Config struct {
	Subject         string
	DisplayName     string
	Email           string
	SessionDuration time.Duration // default 8h when zero
}

// Provider implements ports.AuthProvider for local development.
// It short-circuits the OAuth flow by redirecting back to our own callback
// with locally generated state and nonce. Exchange ignores the code and
// returns the configured identity with synthetic tokens. The synthetic
// identity and access tokens are distinct values so that the token-selection
// invariant is exercised even in dev mode.
type Provider struct {
	identity        domainauth.Identity
	sessionDuration time.Duration
}

// NewProvider constructs a dev auth provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.Subject == "" {
		return nil, errors.New("dev auth: Subject is required")
	}
	if cfg.Email == "" {
		return nil, errors.New("dev auth: Email is required")
	}
	dur := cfg.SessionDuration
	if dur == 0 {
		dur = 8 * time.Hour
	}

	idToken, err := randomString(24)
	if err != nil {
		return nil, fmt.Errorf("generate dev identity token: %w", err)
	}
	accessToken, err := randomString(24)
	if err != nil {
		return nil, fmt.Errorf("generate dev access token: %w", err)
	}

	return &Provider{
		identity: domainauth.Identity{
			Subject:             cfg.Subject,
			DisplayName:         cfg.DisplayName,
			Email:               cfg.Email,
			IdentityToken:       "dev-id-" + idToken,
			ProviderAccessToken: "dev-access-" + accessToken,
			ExpiresAt:           time.Now().Add(dur),
		},
		sessionDuration: dur,
	}, nil
}

// Begin returns a local callback URL and cryptographically secure state and
// nonce. No PKCE verifier: there is no remote provider to prove possession to.
func (p *Provider) Begin(_ context.Context, _ ports.BeginInput) (ports.BeginResult, error) {
	state, err := randomString(24)
	if err != nil {
		return ports.BeginResult{}, fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomString(24)
	if err != nil {
		return ports.BeginResult{}, fmt.Errorf("generate nonce: %w", err)
	}
	// Our standard handler expects GET /auth/callback?code=...&state=...
	return ports.BeginResult{
		AuthURL: "/auth/callback?code=dev&state=" + state,
		State:   state,
		Nonce:   nonce,
	}, nil
}

// Exchange ignores the provided code/state/nonce (validation handled by handler) and returns the dev identity.
func (p *Provider) Exchange(_ context.Context, _ ports.ExchangeInput) (domainauth.Identity, error) {
	// Refresh expiry on each exchange for convenience
	if time.Until(p.identity.ExpiresAt) < 5*time.Minute {
		p.identity.ExpiresAt = time.Now().Add(p.sessionDuration)
	}
	return p.identity, nil
}

func randomString(n int) (string, error) {
	if n <= 0 {
		return "", nil
	}
	bLen := (n*3 + 3) / 4
	b := make([]byte, bLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	if len(s) < n {
		extra := make([]byte, 1)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:n], nil
}
