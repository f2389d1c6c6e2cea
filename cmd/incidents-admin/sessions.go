package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	redisadapter "github.com/polibsk/incidents-ui-api/internal/adapters/redis"
	domainauth "github.com/polibsk/incidents-ui-api/internal/domain/auth"
	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

func runListSessions(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("list-sessions", flag.ContinueOnError)
	limit := fs.Int("limit", 100, "maximum number of sessions to display")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}

	client, err := connectRedis(ctx.Logger, &ctx.Config.Redis)
	if err != nil {
		return err
	}
	defer closeRedis(ctx.Logger, client)

	ids, err := scanSessionIDs(ctx.Ctx, client)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return writef(os.Stdout, "no active sessions\n")
	}
	if len(ids) > *limit {
		ids = ids[:*limit]
	}

	store := redisadapter.NewSessionStoreWithPrefix(client, sessionKeyPrefix)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err = writef(w, "SESSION ID\tEMAIL\tROLE\tEXPIRES\n"); err != nil {
		return err
	}
	for _, id := range ids {
		sess, getErr := store.Get(ctx.Ctx, id)
		if getErr != nil {
			if errors.Is(getErr, redisadapter.ErrNotFound) {
				continue
			}
			return fmt.Errorf("load session %s: %w", id, getErr)
		}
		if err = writef(w, "%s\t%s\t%s\t%s\n",
			sess.ID,
			sess.Email,
			domainauth.RoleDisplayName(domainauth.PrimaryRole(sess.Roles)),
			sess.ExpiresAt.Format(time.RFC3339)); err != nil {
			return err
		}
	}
	return w.Flush()
}

func runShowSession(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("show-session", flag.ContinueOnError)
	id := fs.String("id", "", "session ID to display (required)")
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

	out, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	return writef(os.Stdout, "%s\n", out)
}

type clearSessionsOptions struct {
	ID     string
	All    bool
	DryRun bool
	Yes    bool
}

func runClearSessions(ctx *commandContext, args []string) error {
	fs := flag.NewFlagSet("clear-sessions", flag.ContinueOnError)
	opts := clearSessionsOptions{}
	fs.StringVar(&opts.ID, "id", "", "single session ID to delete")
	fs.BoolVar(&opts.All, "all", false, "delete every session record")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "show what would be deleted without deleting")
	fs.BoolVar(&opts.Yes, "yes", false, "skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("parse flags: %w", err)
	}
	if opts.ID == "" && !opts.All {
		return errors.New("either -id or -all is required")
	}

	client, err := connectRedis(ctx.Logger, &ctx.Config.Redis)
	if err != nil {
		return err
	}
	defer closeRedis(ctx.Logger, client)

	ids := []string{opts.ID}
	if opts.All {
		ids, err = scanSessionIDs(ctx.Ctx, client)
		if err != nil {
			return err
		}
	}
	if len(ids) == 0 {
		return writef(os.Stdout, "no sessions to delete\n")
	}

	ctx.Logger.Info("deleting sessions", "count", len(ids), "dry_run", opts.DryRun)
	if opts.DryRun {
		for _, id := range ids {
			if err = writef(os.Stdout, "would delete %s\n", id); err != nil {
				return err
			}
		}
		return nil
	}

	if !opts.Yes && !confirm(fmt.Sprintf("Delete %d session(s)?", len(ids))) {
		return writef(os.Stdout, "aborted\n")
	}

	return deleteSessions(ctx.Ctx, ctx.Logger, client, ids)
}

func deleteSessions(ctx context.Context, logger *slog.Logger, client redis.UniversalClient, ids []string) error {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, sessionKeyPrefix+id)
	}
	for start := 0; start < len(keys); start += 100 {
		end := min(start+100, len(keys))
		if err := client.Del(ctx, keys[start:end]...).Err(); err != nil {
			return fmt.Errorf("delete session keys: %w", err)
		}
	}
	logger.Info("sessions deleted", "count", len(keys))
	return nil
}

func scanSessionIDs(ctx context.Context, client redis.UniversalClient) ([]string, error) {
	iter := client.Scan(ctx, 0, sessionKeyPrefix+"*", 1000).Iterator()
	ids := make([]string, 0)
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), sessionKeyPrefix))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("scan sessions: %w", err)
	}
	sort.Strings(ids)
	return ids, nil
}

func confirm(prompt string) bool {
	if err := writef(os.Stdout, "%s [y/N] ", prompt); err != nil {
		return false
	}
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
