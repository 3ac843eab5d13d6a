package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/drive-notes/internal/bootstrap"
)

var errRedisNotConfigured = errors.New("redis not configured")

// scoped derives a context that ends on SIGINT, SIGTERM or after timeout.
func (c *commandContext) scoped(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(c.Ctx, os.Interrupt, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func (c *commandContext) closeQuietly(what string, closeFn func() error) {
	if err := closeFn(); err != nil {
		c.Logger.Warn(what+" close failed", "error", err)
	}
}

func withDatabase(cmdCtx *commandContext, timeout time.Duration, f func(context.Context, *sql.DB) error) error {
	ctx, done := cmdCtx.scoped(timeout)
	defer done()

	db, err := bootstrap.ConnectDB(ctx, cmdCtx.Config.Postgres, cmdCtx.Logger)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer cmdCtx.closeQuietly("db", db.Close)
	return f(ctx, db)
}

func withRedis(cmdCtx *commandContext, timeout time.Duration, f func(context.Context, redis.UniversalClient) error) error {
	if !cmdCtx.Config.Redis.Configured() {
		return errRedisNotConfigured
	}
	ctx, done := cmdCtx.scoped(timeout)
	defer done()

	client, err := bootstrap.ConnectRedis(ctx, cmdCtx.Config.Redis, cmdCtx.Logger)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer cmdCtx.closeQuietly("redis", client.Close)
	return f(ctx, client)
}
