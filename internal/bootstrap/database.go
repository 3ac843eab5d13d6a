package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/target/drive-notes/config"
	"github.com/target/drive-notes/internal/data/pgxutil"
	"github.com/target/drive-notes/internal/migrate"
)

const (
	connectTimeout = 5 * time.Second
	appName        = "drivenotes"
)

// ConnectDB opens the summary history pool and verifies it answers.
func ConnectDB(ctx context.Context, cfg config.DBConfig, logger *slog.Logger) (*sql.DB, error) {
	db, err := pgxutil.Open(cfg.DSN(), appName)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, CloseOnError(fmt.Errorf("ping database: %w", err), db.Close)
	}

	if logger != nil {
		logger.InfoContext(ctx, "database connected", "host", cfg.Host, "port", cfg.Port, "database", cfg.Name)
	}
	return db, nil
}

// MigrateDB applies pending summary history migrations.
func MigrateDB(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	applied, err := migrate.Apply(ctx, db, logger)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	logger.InfoContext(ctx, "database migrations completed", "applied", len(applied))
	return nil
}

// ConnectRedis builds a client for the configured mode and pings it.
//
//nolint:ireturn // the concrete client depends on the deployment mode.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (redis.UniversalClient, error) {
	opts, desc, err := redisOptions(cfg)
	if err != nil {
		return nil, err
	}

	var client redis.UniversalClient
	if cfg.Mode == config.RedisModeCluster {
		client = redis.NewClusterClient(opts.Cluster())
	} else {
		client = redis.NewUniversalClient(opts)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, CloseOnError(fmt.Errorf("ping redis: %w", err), client.Close)
	}

	if logger != nil {
		logger.InfoContext(ctx, "redis connected", "mode", cfg.Mode, "addr", desc)
	}
	return client, nil
}

// redisOptions maps cfg onto go-redis options. desc names the target
// without credentials.
func redisOptions(cfg config.RedisConfig) (*redis.UniversalOptions, string, error) {
	opts := &redis.UniversalOptions{Password: cfg.Password}

	switch cfg.Mode {
	case config.RedisModeSentinel:
		if len(cfg.Nodes) == 0 || cfg.MasterName == "" {
			return nil, "", errors.New("redis sentinel mode requires nodes and a master name")
		}
		opts.Addrs = cfg.Nodes
		opts.MasterName = cfg.MasterName
		opts.SentinelPassword = cfg.SentinelPassword
		return opts, "sentinel:" + cfg.MasterName, nil

	case config.RedisModeCluster:
		if len(cfg.Nodes) > 0 {
			opts.Addrs = cfg.Nodes
			return opts, "cluster:" + strings.Join(cfg.Nodes, ","), nil
		}
		if err := applyRedisURI(opts, cfg.URI); err != nil {
			return nil, "", err
		}
		if len(opts.Addrs) == 0 {
			return nil, "", errors.New("redis cluster mode requires nodes or a seed URI")
		}
		return opts, "cluster:" + opts.Addrs[0], nil

	default:
		if err := applyRedisURI(opts, cfg.URI); err != nil {
			return nil, "", err
		}
		if len(opts.Addrs) == 0 {
			return nil, "", errors.New("redis direct mode requires a URI")
		}
		return opts, opts.Addrs[0], nil
	}
}

// applyRedisURI accepts host:port or a redis:// URL. Credentials in the URL
// take precedence over the configured password.
func applyRedisURI(opts *redis.UniversalOptions, uri string) error {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil
	}
	if !strings.HasPrefix(uri, "redis://") && !strings.HasPrefix(uri, "rediss://") {
		opts.Addrs = []string{uri}
		return nil
	}

	parsed, err := redis.ParseURL(uri)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	opts.Addrs = []string{parsed.Addr}
	opts.Username = parsed.Username
	if parsed.Password != "" {
		opts.Password = parsed.Password
	}
	opts.DB = parsed.DB
	opts.TLSConfig = parsed.TLSConfig
	return nil
}

// CloseOnError runs closers and joins their failures onto err.
func CloseOnError(err error, closers ...func() error) error {
	errs := []error{err}
	for _, c := range closers {
		if cerr := c(); cerr != nil {
			errs = append(errs, cerr)
		}
	}
	return errors.Join(errs...)
}
