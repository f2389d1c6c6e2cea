package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domainauth "github.com/polibsk/incidents-ui-api/internal/domain/auth"
	"github.com/polibsk/incidents-ui-api/internal/observability/statsd"
	"github.com/polibsk/incidents-ui-api/internal/ports"
	"github.com/polibsk/incidents-ui-api/internal/sessioncache"
	"github.com/google/uuid"
)

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Provider ports.AuthProvider
	Sessions ports.SessionStore
	Roles    ports.RoleSource

	// Syncer pushes derived users to the incident backend after login and
	// refresh. Optional: nil disables provisioning entirely.
	Syncer ports.UserSyncer
	// Cache is the process-wide session cache updated on every auth
	// transition. Optional.
	Cache *sessioncache.Cache

	Metrics statsd.Sink
	Logger  *slog.Logger

	// SyncTimeout bounds each background provisioning call.
	SyncTimeout time.Duration
}

// AuthService orchestrates authentication flows: provider exchange, role
// derivation, session persistence, cache projection, and backend user
// provisioning.
type AuthService struct {
	provider ports.AuthProvider
	sessions ports.SessionStore
	roles    ports.RoleSource
	syncer   ports.UserSyncer
	cache    *sessioncache.Cache
	metrics  statsd.Sink
	log      *slog.Logger

	syncTimeout time.Duration
}

var errSessionExpired = errors.New("session expired")

const defaultSyncTimeout = 10 * time.Second

// NewAuthService constructs a new AuthService.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	metrics := opts.Metrics
	if metrics == nil {
		metrics = statsd.Noop{}
	}
	syncTimeout := opts.SyncTimeout
	if syncTimeout <= 0 {
		syncTimeout = defaultSyncTimeout
	}
	return &AuthService{
		provider:    opts.Provider,
		sessions:    opts.Sessions,
		roles:       opts.Roles,
		syncer:      opts.Syncer,
		cache:       opts.Cache,
		metrics:     metrics,
		log:         opts.Logger,
		syncTimeout: syncTimeout,
	}
}

func (s *AuthService) logger() *slog.Logger {
	if s.log != nil {
		return s.log
	}
	return slog.Default()
}

// BeginLoginResult contains the result of beginning a login flow.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
	// PKCEVerifier must survive the round trip to the provider; empty when
	// the provider does not use PKCE.
	PKCEVerifier string
}

// BeginLogin initiates an authentication flow and returns the provider auth
// URL with state and nonce. The session cache moves to unresolved until the
// flow completes one way or the other.
func (s *AuthService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if redirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}

	if s.cache != nil {
		s.cache.MarkUnresolved()
	}

	begin, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, s.failLogin(ctx, fmt.Errorf("begin auth flow: %w", err))
	}

	return &BeginLoginResult{
		AuthURL:      begin.AuthURL,
		State:        begin.State,
		Nonce:        begin.Nonce,
		PKCEVerifier: begin.PKCEVerifier,
	}, nil
}

// CompleteLoginInput groups parameters for completing a login flow.
type CompleteLoginInput struct {
	Code         string
	State        string
	Nonce        string
	PKCEVerifier string
}

// CompleteLoginResult contains the result of completing a login flow.
type CompleteLoginResult struct {
	Session domainauth.Session
}

// CompleteLogin completes an authentication flow: it exchanges the code for
// an identity, derives roles and the backend trust token, persists the
// session, updates the session cache, and kicks off backend user
// provisioning in the background. Any failure leaves the cache
// unauthenticated; this method never produces a partial session.
func (s *AuthService) CompleteLogin(ctx context.Context, input CompleteLoginInput) (*CompleteLoginResult, error) {
	if input.Code == "" {
		return nil, s.failLogin(ctx, errors.New("authorization code is required"))
	}
	if input.State == "" {
		return nil, s.failLogin(ctx, errors.New("state parameter is required"))
	}
	if input.Nonce == "" {
		return nil, s.failLogin(ctx, errors.New("nonce parameter is required"))
	}

	exchangeInput := ports.ExchangeInput{
		Code:         input.Code,
		State:        input.State,
		Nonce:        input.Nonce,
		PKCEVerifier: input.PKCEVerifier,
	}
	identity, err := s.provider.Exchange(ctx, exchangeInput)
	if err != nil {
		return nil, s.failLogin(ctx, fmt.Errorf("exchange authorization code: %w", err))
	}

	roles := s.roles.RolesFor(identity.Email)
	session := domainauth.Derive(identity, roles)
	session.ID = generateSessionID()

	if saveErr := s.sessions.Save(ctx, session); saveErr != nil {
		return nil, s.failLogin(ctx, fmt.Errorf("save session: %w", saveErr))
	}

	if s.cache != nil {
		s.cache.SetAuthenticated(ctx, domainauth.Project(&session))
	}
	s.metrics.Count("login.success", 1, nil)

	s.syncInBackground(session)

	return &CompleteLoginResult{
		Session: session,
	}, nil
}

// failLogin records a failed sign-in: the cache drops to unauthenticated so
// consumers degrade instead of observing a stale authenticated projection.
func (s *AuthService) failLogin(ctx context.Context, err error) error {
	if s.cache != nil {
		s.cache.SetUnauthenticated(ctx)
	}
	s.metrics.Count("login.failure", 1, nil)
	return err
}

// AbortLogin resolves an unresolved flow as a failure without completing the
// exchange. Callers use it when the provider never hands back a usable code,
// such as a user cancelling at the consent screen.
func (s *AuthService) AbortLogin(ctx context.Context, reason error) {
	_ = s.failLogin(ctx, reason)
}

// GetSession retrieves a session by ID, cleaning up expired records.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, errors.New("session ID is required")
	}

	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	if time.Now().After(session.ExpiresAt) {
		if deleteErr := s.sessions.Delete(ctx, sessionID); deleteErr != nil {
			return nil, errors.Join(errSessionExpired, fmt.Errorf("delete session: %w", deleteErr))
		}
		return nil, errSessionExpired
	}

	return &session, nil
}

// RefreshSession re-runs role derivation from the stored session's claims
// without re-contacting the provider. The session keeps its ID and expiry;
// roles and the backend trust token are replaced wholesale, so a role change
// in the role source takes effect on the next refresh.
func (s *AuthService) RefreshSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	current, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	roles := s.roles.RolesFor(current.Email)
	refreshed := domainauth.Derive(current.Claims(), roles)
	refreshed.ID = current.ID

	if saveErr := s.sessions.Save(ctx, refreshed); saveErr != nil {
		return nil, fmt.Errorf("save refreshed session: %w", saveErr)
	}

	if s.cache != nil {
		s.cache.SetAuthenticated(ctx, domainauth.Project(&refreshed))
	}
	s.metrics.Count("session.refresh", 1, nil)

	s.syncInBackground(refreshed)

	return &refreshed, nil
}

// Logout removes a session. The session cache (memory and durable
// credentials) is cleared first, before the server-side record goes away, so
// no consumer can pick up a token that is about to be invalidated.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if s.cache != nil {
		s.cache.SetUnauthenticated(ctx)
	}
	s.metrics.Count("logout", 1, nil)

	if sessionID == "" {
		return nil // Nothing to logout
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	return nil
}

// syncInBackground provisions the session's user on the incident backend
// without blocking the caller. Failures are soft: the session stays valid
// and the backend catches up on the next login or refresh.
func (s *AuthService) syncInBackground(session domainauth.Session) {
	if s.syncer == nil {
		return
	}

	go func() {
		// Detach from the request context: the caller has already returned.
		ctx, cancel := context.WithTimeout(context.Background(), s.syncTimeout)
		defer cancel()

		payload := session.SyncFor()
		if err := s.syncer.SyncUser(ctx, payload, session.BackendTrustToken); err != nil {
			s.metrics.Count("user_sync.failure", 1, nil)
			s.logger().WarnContext(ctx, "backend user sync failed",
				"email", payload.Email,
				"error", err)
			return
		}
		s.metrics.Count("user_sync.success", 1, nil)
	}()
}

// generateSessionID creates a cryptographically secure random session ID.
func generateSessionID() string {
	// UUID is URL-safe and has good entropy
	id := uuid.New()
	return id.String()
}
