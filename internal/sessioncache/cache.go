package sessioncache

// Package sessioncache holds the process-wide view of the current projected
// session: an in-memory value for synchronous reads plus a durable
// credential-store entry that survives restarts until sign-out. It bridges
// the asynchronous identity-resolution flow and synchronous consumers.

import (
	"context"
	"log/slog"
	"sync"

	domainauth "github.com/polibsk/incidents-ui-api/internal/domain/auth"
	"github.com/polibsk/incidents-ui-api/internal/ports"
)

// Status is the cache's resolution state. Unresolved is distinct from
// Unauthenticated so consumers can tell "not logged in" apart from "haven't
// found out yet".
type Status int

const (
	// StatusUnresolved is the initial state, and the state whenever the
	// identity source is still resolving.
	StatusUnresolved Status = iota
	// StatusAuthenticated means a valid session record was produced.
	StatusAuthenticated
	// StatusUnauthenticated means the identity source reported no session.
	StatusUnauthenticated
)

// String returns the status name for logs.
func (s Status) String() string {
	switch s {
	case StatusAuthenticated:
		return "authenticated"
	case StatusUnauthenticated:
		return "unauthenticated"
	default:
		return "unresolved"
	}
}

// Options groups dependencies for the cache.
type Options struct {
	// Store is the durable half of the cache. Optional: with a nil store the
	// in-memory value is simply the only copy.
	Store  ports.CredentialStore
	Logger *slog.Logger
}

// Cache is the client session cache. All transitions replace the cached
// projection wholesale under one lock, so a reader never observes a
// half-updated record (old token with new roles, or vice versa). Durable
// store failures are soft: the in-memory copy stays authoritative and the
// failure is logged.
type Cache struct {
	store  ports.CredentialStore
	logger *slog.Logger

	mu        sync.RWMutex
	status    Status
	projected domainauth.Projected
}

// New creates a cache in the Unresolved state.
func New(opts Options) *Cache {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{
		store:  opts.Store,
		logger: logger,
		status: StatusUnresolved,
	}
}

// Current returns the cached projection and the resolution status. The
// projection is only meaningful when the status is StatusAuthenticated.
func (c *Cache) Current() (domainauth.Projected, Status) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.projected, c.status
}

// MarkUnresolved records that identity resolution is in flight. It does not
// touch durable storage: an unresolved state is not a sign-out.
func (c *Cache) MarkUnresolved() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = StatusUnresolved
	c.projected = domainauth.Projected{}
}

// SetAuthenticated replaces the cached projection wholesale and persists the
// token and role list durably.
func (c *Cache) SetAuthenticated(ctx context.Context, projected domainauth.Projected) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status = StatusAuthenticated
	c.projected = projected

	if c.store == nil {
		return
	}
	if err := c.store.Put(ctx, projected.AccessToken, projected.Roles); err != nil {
		// Soft failure: memory stays authoritative for this process lifetime.
		c.logger.WarnContext(ctx, "persist session credentials failed", "error", err)
	}
}

// SetUnauthenticated records that no session exists and clears both the
// in-memory and durable copies. Callers performing an explicit sign-out must
// invoke this before starting the external sign-out flow, so no consumer can
// read a token that is about to be invalidated server-side.
func (c *Cache) SetUnauthenticated(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status = StatusUnauthenticated
	c.projected = domainauth.Projected{}

	if c.store == nil {
		return
	}
	if err := c.store.Clear(ctx); err != nil {
		c.logger.WarnContext(ctx, "clear durable session credentials failed", "error", err)
	}
}

// Restore loads durable credentials into memory, moving the cache out of
// Unresolved on process start. Absent credentials resolve to Unauthenticated.
// Restore never fails hard: a broken store leaves the cache Unauthenticated
// and the user re-authenticates.
func (c *Cache) Restore(ctx context.Context) {
	if c.store == nil {
		c.mu.Lock()
		c.status = StatusUnauthenticated
		c.mu.Unlock()
		return
	}

	token, roles, err := c.store.Get(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.logger.WarnContext(ctx, "restore session credentials failed", "error", err)
		c.status = StatusUnauthenticated
		c.projected = domainauth.Projected{}
		return
	}
	// A token without roles is a torn write, not a session: an authenticated
	// role set is never empty, so restoring one would break every capability
	// check. Treat it as signed out.
	if token == "" || len(roles) == 0 {
		c.status = StatusUnauthenticated
		c.projected = domainauth.Projected{}
		return
	}

	c.status = StatusAuthenticated
	c.projected = domainauth.Projected{
		Roles:           roles,
		IsAuthenticated: true,
		AccessToken:     token,
	}
}
