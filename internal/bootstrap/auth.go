package bootstrap

import (
	"log/slog"

	"github.com/polibsk/incidents-ui-api/config"
	"github.com/polibsk/incidents-ui-api/internal/adapters/authroles"
	"github.com/polibsk/incidents-ui-api/internal/adapters/backend"
	"github.com/polibsk/incidents-ui-api/internal/adapters/devauth"
	"github.com/polibsk/incidents-ui-api/internal/adapters/oidc"
	redisadapter "github.com/polibsk/incidents-ui-api/internal/adapters/redis"
	"github.com/polibsk/incidents-ui-api/internal/observability/statsd"
	"github.com/polibsk/incidents-ui-api/internal/ports"
	"github.com/polibsk/incidents-ui-api/internal/service"
	"github.com/polibsk/incidents-ui-api/internal/sessioncache"
	"github.com/redis/go-redis/v9"
)

// AuthConfig contains configuration for the auth service.
type AuthConfig struct {
	Auth        config.AuthConfig
	Backend     config.BackendConfig
	RedisClient redis.UniversalClient
	// BackendClient provisions users on login/refresh; optional.
	BackendClient *backend.Client
	// Cache is the process-wide session cache; optional.
	Cache   *sessioncache.Cache
	Metrics statsd.Sink
	Logger  *slog.Logger
}

// BuildAuthService creates an auth service based on the configured auth mode.
// Returns nil if auth is not configured or configuration is invalid.
func BuildAuthService(cfg AuthConfig) *service.AuthService {
	if cfg.RedisClient == nil {
		if cfg.Logger != nil {
			cfg.Logger.Warn("auth service disabled: redis client not configured", "mode", cfg.Auth.Mode)
		}
		return nil
	}

	// Redis session store and role source are shared by both modes
	sessionStore := redisadapter.NewSessionStoreWithPrefix(cfg.RedisClient, "session:")
	roleSource := authroles.NewEmailRoleSource(cfg.Auth.AdminAllowlist())

	var syncer ports.UserSyncer
	if cfg.Backend.SyncEnabled && cfg.BackendClient != nil {
		syncer = cfg.BackendClient
	}

	opts := service.AuthServiceOptions{
		Sessions:    sessionStore,
		Roles:       roleSource,
		Syncer:      syncer,
		Cache:       cfg.Cache,
		Metrics:     cfg.Metrics,
		Logger:      cfg.Logger,
		SyncTimeout: cfg.Backend.SyncTimeout,
	}

	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		return buildDevAuthService(cfg, opts)

	case config.AuthModeOAuth:
		return buildOAuthService(cfg, opts)

	default:
		return nil
	}
}

func buildDevAuthService(cfg AuthConfig, opts service.AuthServiceOptions) *service.AuthService {
	// Explicitly enabled dev auth mode; build a local provider.
	prov, err := devauth.NewProvider(devauth.Config{
		Subject:     cfg.Auth.DevAuth.Subject,
		DisplayName: cfg.Auth.DevAuth.DisplayName,
		Email:       cfg.Auth.DevAuth.Email,
		// session duration defaults inside provider
	})
	if err != nil {
		if cfg.Logger != nil {
			cfg.Logger.Warn("failed to create dev auth provider, auth disabled", "error", err)
		}
		return nil
	}

	opts.Provider = prov
	return service.NewAuthService(opts)
}

func buildOAuthService(cfg AuthConfig, opts service.AuthServiceOptions) *service.AuthService {
	// Only enable when fully configured
	oauth := cfg.Auth.OAuth
	if oauth.DiscoveryURL == "" || oauth.ClientID == "" || oauth.ClientSecret == "" {
		if cfg.Logger != nil {
			cfg.Logger.Warn("AuthModeOAuth selected but required config missing; auth disabled",
				"discovery_url_empty", oauth.DiscoveryURL == "",
				"client_id_empty", oauth.ClientID == "",
				"client_secret_empty", oauth.ClientSecret == "",
			)
		}
		return nil
	}

	prov, err := oidc.NewProvider(oidc.ProviderConfig{
		ClientID:     oauth.ClientID,
		ClientSecret: oauth.ClientSecret,
		RedirectURL:  oauth.RedirectURL,
		Scope:        oauth.Scope,
		DiscoveryURL: oauth.DiscoveryURL,
		LogoutURL:    oauth.LogoutURL,
	})
	if err != nil {
		if cfg.Logger != nil {
			cfg.Logger.Warn("failed to create OIDC provider, auth disabled", "error", err)
		}
		return nil
	}

	opts.Provider = prov
	return service.NewAuthService(opts)
}

// BuildSessionCache constructs the session cache backed by the Redis
// credential store and restores any durable credentials from a previous run.
func BuildSessionCache(client redis.UniversalClient, logger *slog.Logger) *sessioncache.Cache {
	var store ports.CredentialStore
	if client != nil {
		store = redisadapter.NewCredentialStore(client)
	}
	return sessioncache.New(sessioncache.Options{Store: store, Logger: logger})
}
