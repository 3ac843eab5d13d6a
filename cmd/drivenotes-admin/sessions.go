package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/redis/go-redis/v9"

	redisadapter "github.com/target/drive-notes/internal/adapters/redis"
)

type listSessionsOptions struct {
	UserID string
}

type revokeSessionsOptions struct {
	UserID string
	All    bool
	DryRun bool
	Yes    bool
}

func runListSessions(cmdCtx *commandContext, args []string) error {
	opts, err := parseListSessionsFlags(args)
	if err != nil {
		return err
	}

	return withRedis(cmdCtx, defaultCommandTimeout, func(ctx context.Context, client redis.UniversalClient) error {
		store := redisadapter.NewSessionStore(client, cmdCtx.Config.Redis.SessionPrefix)
		sessions, listErr := store.List(ctx)
		if listErr != nil {
			return listErr
		}
		return printSessions(cmdCtx.Out, filterSessions(sessions, opts.UserID))
	})
}

func runRevokeSessions(cmdCtx *commandContext, args []string) error {
	opts, err := parseRevokeSessionsFlags(args)
	if err != nil {
		return err
	}

	return withRedis(cmdCtx, defaultCommandTimeout, func(ctx context.Context, client redis.UniversalClient) error {
		store := redisadapter.NewSessionStore(client, cmdCtx.Config.Redis.SessionPrefix)
		sessions, listErr := store.List(ctx)
		if listErr != nil {
			return listErr
		}
		targets := sessions
		if !opts.All {
			targets = filterSessions(sessions, opts.UserID)
		}

		if opts.DryRun {
			if printErr := writef(cmdCtx.Out, "Would revoke %d session(s)\n", len(targets)); printErr != nil {
				return printErr
			}
			return printSessions(cmdCtx.Out, targets)
		}

		revoked := 0
		for _, s := range targets {
			if delErr := store.Delete(ctx, s.ID); delErr != nil {
				return fmt.Errorf("revoke session %s: %w", s.ID, delErr)
			}
			revoked++
		}
		cmdCtx.Logger.Info("sessions revoked", "count", revoked, "user_id", opts.UserID, "all", opts.All)
		return writef(cmdCtx.Out, "Revoked %d session(s)\n", revoked)
	})
}

func filterSessions(sessions []redisadapter.StoredSession, userID string) []redisadapter.StoredSession {
	if userID == "" {
		return sessions
	}
	out := make([]redisadapter.StoredSession, 0, len(sessions))
	for _, s := range sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out
}

func printSessions(w io.Writer, sessions []redisadapter.StoredSession) error {
	if len(sessions) == 0 {
		return writeln(w, "(no sessions found)")
	}
	sorted := append([]redisadapter.StoredSession(nil), sessions...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].UserID != sorted[j].UserID {
			return sorted[i].UserID < sorted[j].UserID
		}
		return sorted[i].ID < sorted[j].ID
	})

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writef(tw, "SESSION\tUSER\tEMAIL\tROLE\tTTL\n"); err != nil {
		return err
	}
	for _, s := range sorted {
		if err := writef(tw, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.UserID, s.Email, s.Role, renderTTL(s.TTL)); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return writef(w, "\nTotal sessions: %d\n", len(sorted))
}

func parseListSessionsFlags(args []string) (listSessionsOptions, error) {
	fs := flag.NewFlagSet("list-sessions", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := listSessionsOptions{}
	fs.StringVar(&opts.UserID, "user", "", "Only show sessions of this user id")

	if err := fs.Parse(args); err != nil {
		return listSessionsOptions{}, err
	}
	return opts, nil
}

func parseRevokeSessionsFlags(args []string) (revokeSessionsOptions, error) {
	fs := flag.NewFlagSet("revoke-sessions", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := revokeSessionsOptions{}
	fs.StringVar(&opts.UserID, "user", "", "Revoke sessions of this user id")
	fs.BoolVar(&opts.All, "all", false, "Revoke every session")
	fs.BoolVar(&opts.DryRun, "dry-run", false, "Show what would be revoked")
	fs.BoolVar(&opts.Yes, "yes", false, "Confirm revocation")

	if err := fs.Parse(args); err != nil {
		return revokeSessionsOptions{}, err
	}
	if opts.All == (opts.UserID != "") {
		return revokeSessionsOptions{}, errors.New("exactly one of --user or --all is required")
	}
	if !opts.DryRun && !opts.Yes {
		return revokeSessionsOptions{}, errors.New("refusing to revoke without --yes (or use --dry-run)")
	}
	return opts, nil
}
