// Command drivenotes-admin is the operator CLI for the dashboard backend:
// schema migrations, stored summary history and signed-in sessions.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/target/drive-notes/config"
	"github.com/target/drive-notes/internal/bootstrap"
)

type command struct {
	name        string
	description string
	run         func(ctx *commandContext, args []string) error
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	Config config.AppConfig
	Out    io.Writer
}

const (
	defaultMigrationTimeout = 5 * time.Minute
	defaultCommandTimeout   = 2 * time.Minute
)

// Exit codes: 2 for usage errors, 1 for failures.
const (
	exitOK = iota
	exitFailure
	exitUsage
)

// commandTable is listed in the order usage prints it.
var commandTable = []command{
	{"migrate", "Run summary history migrations", runMigrations},
	{"list-summaries", "Show stored summarization outcomes for a user", runListSummaries},
	{"forget-summary", "Remove the stored outcome of one file", runForgetSummary},
	{"list-sessions", "Inspect signed-in sessions in Redis", runListSessions},
	{"revoke-sessions", "Sign out every session of a user, or all sessions", runRevokeSessions},
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, func() (config.AppConfig, error) { return bootstrap.LoadConfig() })) //nolint:forbidigo // exit status is the CLI contract
}

func run(args []string, stdout, stderr io.Writer, loadConfig func() (config.AppConfig, error)) int {
	logger := bootstrap.InitLogger(false)

	if len(args) == 0 {
		_ = printUsage(stderr)
		return exitUsage
	}
	cmd, ok := lookupCommand(args[0])
	if !ok {
		_ = writef(stderr, "unknown command %q\n\n", args[0])
		_ = printUsage(stderr)
		return exitUsage
	}

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("load config", "error", err)
		return exitFailure
	}

	cmdCtx := &commandContext{Ctx: context.Background(), Logger: logger, Config: cfg, Out: stdout}
	if err := cmd.run(cmdCtx, args[1:]); err != nil {
		logger.Error("command failed", "command", cmd.name, "error", err)
		return exitFailure
	}
	return exitOK
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commandTable {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func printUsage(w io.Writer) error {
	if err := writeln(w, "Usage: drivenotes-admin <command> [flags]\n\nAvailable commands:"); err != nil {
		return err
	}
	for _, c := range commandTable {
		if err := writef(w, "  %-18s %s\n", c.name, c.description); err != nil {
			return err
		}
	}
	return nil
}
