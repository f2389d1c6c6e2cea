package statsd

import (
	"fmt"
	"log/slog"
	"net"
	"sort"
	"strings"
	"sync"
)

// Sink describes the minimal interface required to emit StatsD-style metrics.
type Sink interface {
	Count(name string, value int64, tags map[string]string)
}

// Config describes how to connect to a StatsD-compatible sink.
type Config struct {
	Enabled bool
	Address string
	Prefix  string
	Logger  *slog.Logger
}

// Client emits metrics over UDP using the StatsD line protocol.
// It is safe for concurrent use. A disabled client swallows all metrics,
// so callers never need a nil check.
type Client struct {
	enabled bool
	address string
	prefix  string

	logger *slog.Logger
	conn   net.Conn
	mu     sync.Mutex
}

var _ Sink = (*Client)(nil)

// NewClient dials the configured StatsD endpoint unless disabled.
func NewClient(cfg Config) (*Client, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	address := strings.TrimSpace(cfg.Address)
	enabled := cfg.Enabled && address != ""

	client := &Client{
		enabled: enabled,
		address: address,
		prefix:  sanitizePrefix(cfg.Prefix),
		logger:  logger,
	}

	if !enabled {
		return client, nil
	}

	conn, err := net.Dial("udp", address)
	if err != nil {
		return nil, fmt.Errorf("dial statsd %s: %w", address, err)
	}
	client.conn = conn
	return client, nil
}

// Count emits a counter metric.
func (c *Client) Count(name string, value int64, tags map[string]string) {
	c.send(fmt.Sprintf("%s%s:%d|c%s", c.prefix, name, value, formatTags(tags)))
}

// Close releases the UDP socket.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) send(line string) {
	if !c.enabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return
	}
	if _, err := c.conn.Write([]byte(line)); err != nil {
		// Metrics are best-effort; log and keep serving.
		c.logger.Debug("statsd write failed", "error", err)
	}
}

func sanitizePrefix(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return ""
	}
	if !strings.HasSuffix(prefix, ".") {
		prefix += "."
	}
	return prefix
}

// formatTags renders tags in DogStatsD format, sorted for deterministic output.
func formatTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+":"+tags[k])
	}
	return "|#" + strings.Join(parts, ",")
}

// Noop is a Sink that discards all metrics.
type Noop struct{}

// Count implements Sink.
func (Noop) Count(string, int64, map[string]string) {}
