package bootstrap

import (
	"log/slog"

	"github.com/polibsk/incidents-ui-api/config"
	"github.com/polibsk/incidents-ui-api/internal/observability/statsd"
)

// BuildMetrics constructs the StatsD client from configuration. A disabled or
// broken sink degrades to a no-op; metrics never block startup.
//
//nolint:ireturn // callers only need the Sink interface.
func BuildMetrics(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) (statsd.Sink, func() error) {
	client, err := statsd.NewClient(statsd.Config{
		Enabled: cfg.IsEnabled(),
		Address: cfg.StatsdAddress,
		Prefix:  cfg.StatsdPrefix,
		Logger:  logger,
	})
	if err != nil {
		if logger != nil {
			logger.Warn("statsd client unavailable, metrics disabled", "error", err)
		}
		return statsd.Noop{}, func() error { return nil }
	}
	return client, client.Close
}
