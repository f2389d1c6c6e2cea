package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/polibsk/incidents-ui-api/config"
	"github.com/polibsk/incidents-ui-api/internal/adapters/backend"
	httpx "github.com/polibsk/incidents-ui-api/internal/http"
	"github.com/polibsk/incidents-ui-api/internal/service"
	"golang.org/x/sync/errgroup"
)

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	Config  *config.AppConfig
	Auth    *service.AuthService
	Backend *backend.Client
	Logger  *slog.Logger
}

// BuildHTTPServer wires the router and middleware into an http.Server.
func BuildHTTPServer(cfg HTTPServerConfig) *http.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	services := httpx.RouterServices{
		Auth:         authServiceOrNil(cfg.Auth),
		Backend:      cfg.Backend,
		CookieDomain: appCfg.HTTP.CookieDomain,
		LogoutURL:    appCfg.Auth.OAuth.LogoutURL,
		Logger:       logger,
	}

	// Order: Recover -> Logging -> Router
	handler := httpx.NewRouter(services)
	handler = httpx.Logging(logger)(handler)
	handler = httpx.Recover(logger)(handler)

	addr := appCfg.HTTP.Addr
	if addr == "" {
		addr = ":8080"
	}

	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// authServiceOrNil avoids storing a typed nil in the interface field, which
// would defeat the router's nil check.
//
//nolint:ireturn // adapting a concrete service to the handler interface.
func authServiceOrNil(svc *service.AuthService) httpx.AuthServiceInterface {
	if svc == nil {
		return nil
	}
	return svc
}

// RunHTTPServer runs the server until the context is cancelled or a signal
// arrives, then shuts it down gracefully.
func RunHTTPServer(ctx context.Context, server *http.Server, cfg *config.AppConfig, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	shutdownTimeout := 15 * time.Second
	if cfg != nil && cfg.HTTP.ShutdownTimeoutSeconds > 0 {
		shutdownTimeout = time.Duration(cfg.HTTP.ShutdownTimeoutSeconds) * time.Second
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(signalCtx)

	g.Go(func() error {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.Info("HTTP server stopped")
		return nil
	})

	return g.Wait()
}
