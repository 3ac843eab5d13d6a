package config

import (
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DBConfig contains PostgreSQL configuration for the summary history.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"drivenotes"`
	Password string `env:"PASSWORD" envDefault:"drivenotes"`
	Name     string `env:"NAME"     envDefault:"drivenotes"`
	// SSLMode is passed through to the driver; use "require" outside local dev.
	SSLMode string `env:"SSL_MODE" envDefault:"disable"`

	MaxOpenConns    int           `env:"MAX_OPEN_CONNS"    envDefault:"10"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS"    envDefault:"2"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`

	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// DSN renders a postgres:// URL with escaped credentials.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	q := u.Query()
	if c.SSLMode != "" {
		q.Set("sslmode", c.SSLMode)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Sanitize keeps the pool settings usable.
func (c *DBConfig) Sanitize() {
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 10
	}
	if c.MaxIdleConns < 0 || c.MaxIdleConns > c.MaxOpenConns {
		c.MaxIdleConns = c.MaxOpenConns
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = 5 * time.Minute
	}
}

// Redis deployment modes.
const (
	RedisModeDirect   = "direct"
	RedisModeSentinel = "sentinel"
	RedisModeCluster  = "cluster"
)

// RedisConfig contains Redis configuration for the session store.
type RedisConfig struct {
	// Mode is one of direct, sentinel or cluster.
	Mode string `env:"MODE" envDefault:"direct"`
	// URI is a host:port or redis:// URL, used in direct mode and as the
	// seed node for a cluster without Nodes.
	URI      string `env:"URI"      envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	// Nodes lists sentinel or cluster addresses.
	Nodes            []string `env:"NODES"                envDefault:""`
	MasterName       string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	// SessionPrefix namespaces session keys.
	SessionPrefix string `env:"SESSION_PREFIX" envDefault:"drivenotes:session:"`
}

// Sanitize normalizes the mode and drops blank node entries.
func (c *RedisConfig) Sanitize() {
	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	switch c.Mode {
	case RedisModeSentinel, RedisModeCluster:
	default:
		c.Mode = RedisModeDirect
	}
	c.URI = strings.TrimSpace(c.URI)

	nodes := c.Nodes[:0]
	for _, n := range c.Nodes {
		if n = strings.TrimSpace(n); n != "" {
			nodes = append(nodes, n)
		}
	}
	c.Nodes = nodes
	if c.SessionPrefix == "" {
		c.SessionPrefix = "drivenotes:session:"
	}
}

// Configured reports whether enough is set to attempt a connection.
func (c RedisConfig) Configured() bool {
	switch c.Mode {
	case RedisModeSentinel:
		return len(c.Nodes) > 0 && c.MasterName != ""
	case RedisModeCluster:
		return len(c.Nodes) > 0 || c.URI != ""
	default:
		return c.URI != ""
	}
}

// HistoryConfig controls the Postgres-backed summary history. When disabled
// the service needs no database and files carry live job state only.
type HistoryConfig struct {
	Enabled bool `env:"HISTORY_ENABLED" envDefault:"false"`
}
