// Package config declares the environment-driven settings of the dashboard
// backend. Each concern lives in its own file and is parsed by
// github.com/caarlos0/env; Sanitize fills gaps and Validate reports settings
// the server cannot start with.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// AppConfig composes every settings group.
type AppConfig struct {
	// IsDev switches on text logs and relaxed cookies. NODE_ENV=development
	// has the same effect.
	IsDev bool `env:"DEV" envDefault:"false"`

	Auth AuthConfig

	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`
	History  HistoryConfig

	HTTP HTTPConfig

	Drive     DriveConfig     `envPrefix:"DRIVE_"`
	JobServer JobServerConfig `envPrefix:"JOB_SERVER_"`
	Progress  ProgressConfig  `envPrefix:"PROGRESS_"`

	Observability ObservabilityConfig
}

// Sanitize normalizes values after parsing.
func (c *AppConfig) Sanitize() {
	for _, s := range []interface{ Sanitize() }{
		&c.Postgres, &c.Redis, &c.HTTP, &c.Auth,
		&c.Drive, &c.JobServer, &c.Progress, &c.Observability,
	} {
		s.Sanitize()
	}

	if !c.IsDev {
		switch strings.ToLower(os.Getenv("NODE_ENV")) {
		case "development", "dev":
			c.IsDev = true
		}
	}
}

// Validate reports every setting the API server cannot run with. The admin
// CLI skips it since it never talks to Google or the job server.
func (c *AppConfig) Validate() error {
	var errs []error
	if c.Auth.Mode == AuthModeOAuth {
		if c.Auth.OAuth.ClientID == "" || c.Auth.OAuth.ClientSecret == "" {
			errs = append(errs, errors.New("OAUTH_CLIENT_ID and OAUTH_CLIENT_SECRET are required in oauth mode"))
		}
	}
	if err := checkURL("JOB_SERVER_URL", c.JobServer.URL, "http", "https"); err != nil {
		errs = append(errs, err)
	}
	if err := checkURL("JOB_SERVER_WS_URL", c.JobServer.WSURL, "ws", "wss"); err != nil {
		errs = append(errs, err)
	}
	if c.History.Enabled && c.Postgres.Host == "" {
		errs = append(errs, errors.New("HISTORY_ENABLED requires DB_HOST"))
	}
	return errors.Join(errs...)
}

func checkURL(name, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return fmt.Errorf("%s: %q is not an absolute URL", name, raw)
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return fmt.Errorf("%s: scheme %q not one of %s", name, u.Scheme, strings.Join(schemes, ", "))
}
