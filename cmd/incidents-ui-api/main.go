package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/polibsk/incidents-ui-api/internal/adapters/backend"
	"github.com/polibsk/incidents-ui-api/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting incidents-ui-api",
		"addr", cfg.HTTP.Addr,
		"auth_mode", cfg.Auth.Mode,
		"backend_url", cfg.Backend.BaseURL,
		"dev_mode", cfg.IsDev)

	redisClient, err := bootstrap.ConnectRedis(bootstrap.RedisConnectConfig{
		Redis:  cfg.Redis,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if cerr := redisClient.Close(); cerr != nil {
			logger.ErrorContext(ctx, "close redis failed", "error", cerr)
		}
	}()

	backendClient, err := backend.NewClient(backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.RequestTimeout,
	})
	if err != nil {
		return fmt.Errorf("build backend client: %w", err)
	}

	metrics, closeMetrics := bootstrap.BuildMetrics(cfg.Observability.Metrics, logger)
	defer func() {
		if cerr := closeMetrics(); cerr != nil {
			logger.ErrorContext(ctx, "close metrics failed", "error", cerr)
		}
	}()

	cache := bootstrap.BuildSessionCache(redisClient, logger)
	cache.Restore(ctx)

	authService := bootstrap.BuildAuthService(bootstrap.AuthConfig{
		Auth:          cfg.Auth,
		Backend:       cfg.Backend,
		RedisClient:   redisClient,
		BackendClient: backendClient,
		Cache:         cache,
		Metrics:       metrics,
		Logger:        logger,
	})

	server := bootstrap.BuildHTTPServer(bootstrap.HTTPServerConfig{
		Config:  &cfg,
		Auth:    authService,
		Backend: backendClient,
		Logger:  logger,
	})

	return bootstrap.RunHTTPServer(ctx, server, &cfg, logger)
}
