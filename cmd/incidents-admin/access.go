package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/polibsk/incidents-ui-api/internal/adapters/authroles"
	"github.com/polibsk/incidents-ui-api/internal/adapters/backend"
	redisadapter "github.com/polibsk/incidents-ui-api/internal/adapters/redis"
	domainauth "github.com/polibsk/incidents-ui-api/internal/domain/auth"
)

func runSyncUser(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("sync-user", flag.ContinueOnError)
	id := fs.String("id", "", "session ID whose identity should be synced (required)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if *id == "" {
		return errors.New("-id is required")
	}

	client, err := connectRedis(ctx.Logger, &ctx.Config.Redis)
	if err != nil {
		return err
	}
	defer closeRedis(ctx.Logger, client)

	store := redisadapter.NewSessionStoreWithPrefix(client, sessionKeyPrefix)
	sess, err := store.Get(ctx.Ctx, *id)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	backendClient, err := backend.NewClient(backend.Config{
		BaseURL: ctx.Config.Backend.BaseURL,
		Timeout: ctx.Config.Backend.RequestTimeout,
	})
	if err != nil {
		return fmt.Errorf("build backend client: %w", err)
	}

	if err = backendClient.SyncUser(ctx.Ctx, sess.SyncFor(), sess.BackendTrustToken); err != nil {
		return fmt.Errorf("sync user: %w", err)
	}

	ctx.Logger.Info("user synced", "session_id", sess.ID, "email", sess.Email)
	return nil
}

func runCheckAccess(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("check-access", flag.ContinueOnError)
	email := fs.String("email", "", "email address to evaluate (required)")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if *email == "" {
		return errors.New("-email is required")
	}

	source := authroles.NewEmailRoleSource(ctx.Config.Auth.AdminAllowlist())
	roles := source.RolesFor(*email)

	if err := writef(os.Stdout, "Email: %s\nRoles:", *email); err != nil {
		return err
	}
	for _, r := range roles {
		if err := writef(os.Stdout, " %s", r); err != nil {
			return err
		}
	}
	if err := writef(os.Stdout, "\n\n"); err != nil {
		return err
	}

	capabilities := []struct {
		name string
		can  func([]domainauth.Role) bool
	}{
		{"access dashboard", domainauth.CanAccessDashboard},
		{"create incidents", domainauth.CanCreateIncidents},
		{"update incident status", domainauth.CanUpdateIncidentStatus},
		{"delete incidents", domainauth.CanDeleteIncidents},
		{"list users", domainauth.CanViewUsersList},
		{"delete users", domainauth.CanDeleteUsers},
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err := writef(w, "CAPABILITY\tALLOWED\n"); err != nil {
		return err
	}
	for _, c := range capabilities {
		if err := writef(w, "%s\t%t\n", c.name, c.can(roles)); err != nil {
			return err
		}
	}
	return w.Flush()
}
