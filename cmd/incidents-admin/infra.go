package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/polibsk/incidents-ui-api/config"
	"github.com/polibsk/incidents-ui-api/internal/bootstrap"
	"github.com/redis/go-redis/v9"
)

var errRedisNotConfigured = errors.New("redis not configured")

// connectRedis wires up the Redis client every session command depends on.
//
//nolint:ireturn // returning redis.UniversalClient keeps sentinel support flexible.
func connectRedis(logger *slog.Logger, cfg *config.RedisConfig) (redis.UniversalClient, error) {
	if !hasRedisConfig(cfg) {
		return nil, errRedisNotConfigured
	}
	client, err := bootstrap.ConnectRedis(bootstrap.RedisConnectConfig{Redis: *cfg, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return client, nil
}

func hasRedisConfig(cfg *config.RedisConfig) bool {
	if cfg == nil {
		return false
	}
	if cfg.UseSentinel {
		return len(cfg.SentinelNodes) > 0
	}
	return cfg.URI != ""
}

func closeRedis(logger *slog.Logger, client redis.UniversalClient) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		logger.Error("close redis failed", "error", err)
	}
}
