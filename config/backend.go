package config

import (
	"strings"
	"time"
)

// BackendConfig describes the external incident-tracking REST API this
// gateway attaches credentials to.
type BackendConfig struct {
	// BaseURL is the backend API root (e.g., "http://localhost:8082/api").
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8082/api"`

	// RequestTimeout bounds individual calls to the backend.
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`

	// SyncEnabled toggles the user-provisioning sync on login/refresh.
	SyncEnabled bool `env:"SYNC_ENABLED" envDefault:"true"`

	// SyncTimeout bounds the fire-and-forget user sync call. The sync is
	// never awaited by session construction, so this only caps the goroutine.
	SyncTimeout time.Duration `env:"SYNC_TIMEOUT" envDefault:"10s"`
}

// Sanitize applies guardrails to backend configuration values.
func (c *BackendConfig) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 15 * time.Second
	}
	if c.SyncTimeout <= 0 {
		c.SyncTimeout = 10 * time.Second
	}
}
