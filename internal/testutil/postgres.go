package testutil

import (
	"context"
	"database/sql"
	"net/url"
	"os"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"

	"github.com/target/drive-notes/config"
	"github.com/target/drive-notes/internal/data/pgxutil"
	"github.com/target/drive-notes/internal/migrate"
)

// localTestDBPort matches the docker-compose test profile; CI sets TEST_DB_PORT.
const localTestDBPort = 55432

// TestDBConfig reads TEST_DB_* variables over the application defaults.
func TestDBConfig() (config.DBConfig, error) {
	var cfg config.DBConfig
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "TEST_DB_"}); err != nil {
		return config.DBConfig{}, err
	}
	if os.Getenv("TEST_DB_PORT") == "" {
		cfg.Port = localTestDBPort
	}
	cfg.Sanitize()
	return cfg, nil
}

// SetupAutoDB returns a pool scoped to a fresh schema with migrations applied.
// The schema is dropped when the test ends.
func SetupAutoDB(t testing.TB) *sql.DB {
	t.Helper()

	cfg, err := TestDBConfig()
	if err != nil {
		t.Fatalf("parse test db config: %v", err)
	}

	admin := openPinged(t, cfg.DSN())
	schema := "t_" + uniqueSuffix()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := admin.ExecContext(ctx, "CREATE SCHEMA "+schema); err != nil {
		_ = admin.Close()
		t.Fatalf("create schema %s: %v", schema, err)
	}

	db := openPinged(t, withSearchPath(t, cfg.DSN(), schema))
	t.Cleanup(func() {
		_ = db.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := admin.ExecContext(ctx, "DROP SCHEMA IF EXISTS "+schema+" CASCADE"); err != nil {
			t.Logf("drop schema %s: %v", schema, err)
		}
		_ = admin.Close()
	})

	if _, err := migrate.Apply(ctx, db, nil); err != nil {
		t.Fatalf("migrate schema %s: %v", schema, err)
	}
	return db
}

func openPinged(t testing.TB, dsn string) *sql.DB {
	t.Helper()
	db, err := pgxutil.Open(dsn, "drivenotes-test")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		unavailable(t, "db", err)
	}
	return db
}

func withSearchPath(t testing.TB, dsn, schema string) string {
	t.Helper()
	u, err := url.Parse(dsn)
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String()
}
