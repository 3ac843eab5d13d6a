package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/target/drive-notes/internal/data"
	"github.com/target/drive-notes/internal/domain/progress"
	"github.com/target/drive-notes/internal/migrate"
)

type migrateOptions struct {
	Timeout time.Duration
}

type listSummariesOptions struct {
	UserID string
	Limit  int
}

type forgetSummaryOptions struct {
	UserID string
	FileID string
}

func runMigrations(cmdCtx *commandContext, args []string) error {
	opts, err := parseMigrateFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, opts.Timeout, func(ctx context.Context, db *sql.DB) error {
		applied, migrateErr := migrate.Apply(ctx, db, cmdCtx.Logger)
		if migrateErr != nil {
			return fmt.Errorf("run migrations: %w", migrateErr)
		}
		if len(applied) == 0 {
			return writeln(cmdCtx.Out, "Schema is up to date")
		}
		for _, v := range applied {
			if printErr := writef(cmdCtx.Out, "Applied %s\n", v); printErr != nil {
				return printErr
			}
		}
		return nil
	})
}

func runListSummaries(cmdCtx *commandContext, args []string) error {
	opts, err := parseListSummariesFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		rows, listErr := data.NewSummaryRepo(db).ListForUser(ctx, opts.UserID, opts.Limit)
		if listErr != nil {
			return listErr
		}
		return printSummaries(cmdCtx.Out, opts.UserID, rows)
	})
}

func runForgetSummary(cmdCtx *commandContext, args []string) error {
	opts, err := parseForgetSummaryFlags(args)
	if err != nil {
		return err
	}

	return withDatabase(cmdCtx, defaultCommandTimeout, func(ctx context.Context, db *sql.DB) error {
		if forgetErr := data.NewSummaryRepo(db).Forget(ctx, opts.UserID, opts.FileID); forgetErr != nil {
			return forgetErr
		}
		cmdCtx.Logger.Info("summary forgotten", "user_id", opts.UserID, "file_id", opts.FileID)
		return nil
	})
}

func printSummaries(w io.Writer, userID string, rows []progress.Summary) error {
	if err := writef(w, "\nStored summaries for %s\n", userID); err != nil {
		return err
	}
	if len(rows) == 0 {
		return writeln(w, "(none)")
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if err := writef(tw, "FILE ID\tFILENAME\tPHASE\tUPDATED\tREASON\n"); err != nil {
		return err
	}
	for _, s := range rows {
		name := s.Filename
		if name == "" {
			name = "-"
		}
		if err := writef(tw, "%s\t%s\t%s\t%s\t%s\n",
			s.FileID, name, s.Phase, s.UpdatedAt.UTC().Format(time.RFC3339), s.Reason); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return writef(w, "\nTotal: %d\n", len(rows))
}

func parseMigrateFlags(args []string) (migrateOptions, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := migrateOptions{}
	fs.DurationVar(&opts.Timeout, "timeout", defaultMigrationTimeout,
		"Maximum duration to wait for migrations to complete")

	if err := fs.Parse(args); err != nil {
		return migrateOptions{}, err
	}
	if opts.Timeout <= 0 {
		return migrateOptions{}, errors.New("--timeout must be greater than zero")
	}
	return opts, nil
}

func parseListSummariesFlags(args []string) (listSummariesOptions, error) {
	fs := flag.NewFlagSet("list-summaries", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := listSummariesOptions{}
	fs.StringVar(&opts.UserID, "user", "", "User id whose summaries to show (required)")
	fs.IntVar(&opts.Limit, "limit", 50, "Maximum rows to show")

	if err := fs.Parse(args); err != nil {
		return listSummariesOptions{}, err
	}
	if opts.UserID == "" {
		return listSummariesOptions{}, errors.New("--user is required")
	}
	if opts.Limit <= 0 {
		return listSummariesOptions{}, errors.New("--limit must be greater than zero")
	}
	return opts, nil
}

func parseForgetSummaryFlags(args []string) (forgetSummaryOptions, error) {
	fs := flag.NewFlagSet("forget-summary", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	opts := forgetSummaryOptions{}
	fs.StringVar(&opts.UserID, "user", "", "User id (required)")
	fs.StringVar(&opts.FileID, "file", "", "Drive file id (required)")

	if err := fs.Parse(args); err != nil {
		return forgetSummaryOptions{}, err
	}
	if opts.UserID == "" || opts.FileID == "" {
		return forgetSummaryOptions{}, errors.New("--user and --file are required")
	}
	return opts, nil
}
