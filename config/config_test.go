package config

import (
	"reflect"
	"strings"
	"testing"
	"time"

	env "github.com/caarlos0/env/v11"
)

func TestAppConfig_Defaults(t *testing.T) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.JobServer.URL != "http://localhost:8051" {
		t.Errorf("unexpected job server URL %q", cfg.JobServer.URL)
	}
	if cfg.JobServer.WSURL != "ws://localhost:8051/progress" {
		t.Errorf("unexpected progress URL %q", cfg.JobServer.WSURL)
	}
	if cfg.JobServer.Timeout != 30*time.Second {
		t.Errorf("unexpected job server timeout %v", cfg.JobServer.Timeout)
	}
	if cfg.Progress.ReconnectBase != 3*time.Second || cfg.Progress.ReconnectMax != time.Minute {
		t.Errorf("unexpected backoff %v..%v", cfg.Progress.ReconnectBase, cfg.Progress.ReconnectMax)
	}
	if cfg.History.Enabled {
		t.Error("history should be off by default")
	}
	if cfg.Auth.Mode != AuthModeOAuth {
		t.Errorf("unexpected auth mode %q", cfg.Auth.Mode)
	}
	if cfg.Auth.OAuth.DiscoveryURL != "https://accounts.google.com" {
		t.Errorf("unexpected discovery URL %q", cfg.Auth.OAuth.DiscoveryURL)
	}
	if cfg.HTTP.MaxUploadBytes != 50<<20 {
		t.Errorf("unexpected upload cap %d", cfg.HTTP.MaxUploadBytes)
	}
}

func TestAppConfig_ParseAuthEnv(t *testing.T) {
	t.Setenv("AUTH_MODE", "mock")
	t.Setenv("OAUTH_CLIENT_ID", "app-client")
	t.Setenv("OAUTH_CLIENT_SECRET", "super-secret")
	t.Setenv("OAUTH_REDIRECT_URL", "https://app.example.com/auth/callback")
	t.Setenv("OAUTH_SCOPE", "openid email https://www.googleapis.com/auth/drive")
	t.Setenv("DEV_AUTH_USER_ID", "dev-user")
	t.Setenv("DEV_AUTH_EMAIL", "dev@example.com")
	t.Setenv("DEV_AUTH_ACCESS_TOKEN", "ya29.dev")
	t.Setenv("AUTH_ADMIN_EMAILS", "root@example.com, ")
	t.Setenv("AUTH_ALLOWED_DOMAINS", "example.com,partner.org")
	t.Setenv("AUTH_SESSION_TTL", "0s")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	expected := AuthConfig{
		Mode: AuthModeMock,
		OAuth: OAuthConfig{
			ClientID:     "app-client",
			ClientSecret: "super-secret",
			RedirectURL:  "https://app.example.com/auth/callback",
			Scope:        "openid email https://www.googleapis.com/auth/drive",
			DiscoveryURL: "https://accounts.google.com",
		},
		DevAuth: DevAuthConfig{
			UserID:      "dev-user",
			Email:       "dev@example.com",
			Name:        "Dev",
			AccessToken: "ya29.dev",
		},
		AdminEmails:    []string{"root@example.com"},
		AllowedDomains: []string{"example.com", "partner.org"},
		SessionTTL:     8 * time.Hour,
		RefreshSkew:    time.Minute,
	}

	if !reflect.DeepEqual(cfg.Auth, expected) {
		t.Fatalf("unexpected auth configuration:\nexpected: %#v\ngot:      %#v", expected, cfg.Auth)
	}
}

func TestAuthMode_UnmarshalText(t *testing.T) {
	t.Setenv("AUTH_MODE", "saml")

	var cfg AppConfig
	if err := env.Parse(&cfg); err == nil {
		t.Fatal("expected error for unknown auth mode")
	}
}

func TestAppConfig_ParseUpstreamEnv(t *testing.T) {
	t.Setenv("DRIVE_ENDPOINT", " http://drive.local/drive/v3/ ")
	t.Setenv("JOB_SERVER_URL", "https://jobs.example.com/")
	t.Setenv("JOB_SERVER_WS_URL", "wss://jobs.example.com/progress")
	t.Setenv("JOB_SERVER_TIMEOUT", "5s")
	t.Setenv("PROGRESS_RECONNECT_BASE", "1s")
	t.Setenv("PROGRESS_IDLE_GRACE", "0s")
	t.Setenv("HISTORY_ENABLED", "true")

	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		t.Fatalf("parse config: %v", err)
	}
	cfg.Sanitize()

	if cfg.Drive.Endpoint != "http://drive.local/drive/v3/" {
		t.Errorf("unexpected drive endpoint %q", cfg.Drive.Endpoint)
	}
	if cfg.JobServer.URL != "https://jobs.example.com" {
		t.Errorf("expected trailing slash trimmed, got %q", cfg.JobServer.URL)
	}
	if cfg.JobServer.WSURL != "wss://jobs.example.com/progress" {
		t.Errorf("unexpected ws url %q", cfg.JobServer.WSURL)
	}
	if cfg.JobServer.Timeout != 5*time.Second {
		t.Errorf("unexpected timeout %v", cfg.JobServer.Timeout)
	}
	if cfg.Progress.ReconnectBase != time.Second {
		t.Errorf("unexpected reconnect base %v", cfg.Progress.ReconnectBase)
	}
	if cfg.Progress.IdleGrace != 0 {
		t.Errorf("expected immediate unmount, got %v", cfg.Progress.IdleGrace)
	}
	if !cfg.History.Enabled {
		t.Error("expected history enabled")
	}
}

func TestProgressConfig_Sanitize(t *testing.T) {
	cfg := ProgressConfig{
		ReconnectBase:    -time.Second,
		ReconnectMax:     time.Second,
		PingInterval:     -1,
		IdleGrace:        -1,
		StallAfter:       -1,
		SubscriberBuffer: 0,
	}
	cfg.Sanitize()

	want := ProgressConfig{
		ReconnectBase:    3 * time.Second,
		ReconnectMax:     time.Minute,
		SubscriberBuffer: 64,
	}
	if cfg != want {
		t.Fatalf("unexpected sanitized config:\nexpected: %#v\ngot:      %#v", want, cfg)
	}

	cfg = ProgressConfig{ReconnectBase: 2 * time.Minute, ReconnectMax: time.Second, SubscriberBuffer: 8}
	cfg.Sanitize()
	if cfg.ReconnectMax != 2*time.Minute {
		t.Fatalf("expected max raised to base, got %v", cfg.ReconnectMax)
	}
}

func TestObservabilityMetricsConfig_Sanitize(t *testing.T) {
	cfg := ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " ",
	}

	cfg.Sanitize()

	if cfg.Enabled {
		t.Fatalf("expected enabled to be false when address is empty")
	}

	cfg = ObservabilityMetricsConfig{
		Enabled:       true,
		StatsdAddress: " statsd:1234 ",
		Prefix:        ".",
		Env:           " prod ",
	}

	cfg.Sanitize()

	if !cfg.IsEnabled() {
		t.Fatalf("expected metrics to remain enabled")
	}
	if cfg.StatsdAddress != "statsd:1234" {
		t.Fatalf("expected address to be trimmed, got %q", cfg.StatsdAddress)
	}
	if cfg.Prefix != "drive_notes" {
		t.Fatalf("expected default prefix, got %q", cfg.Prefix)
	}
	if got := cfg.GlobalTags(); !reflect.DeepEqual(got, map[string]string{"env": "prod"}) {
		t.Fatalf("unexpected global tags %v", got)
	}
}

func TestDetectDevMode(t *testing.T) {
	t.Setenv("NODE_ENV", "development")
	var cfg AppConfig
	cfg.Sanitize()
	if !cfg.IsDev {
		t.Fatal("expected NODE_ENV=development to enable dev mode")
	}
}

func TestDBConfig_DSNEscapesCredentials(t *testing.T) {
	cfg := DBConfig{Host: "db", Port: 5433, User: "app", Password: "p@ss/word", Name: "notes", SSLMode: "require"}
	want := "postgres://app:p%40ss%2Fword@db:5433/notes?sslmode=require"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}

func TestDBConfig_Sanitize(t *testing.T) {
	cfg := DBConfig{MaxOpenConns: 4, MaxIdleConns: 9}
	cfg.Sanitize()
	if cfg.MaxIdleConns != 4 {
		t.Errorf("idle conns not capped: %d", cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime != 5*time.Minute {
		t.Errorf("unexpected lifetime %v", cfg.ConnMaxLifetime)
	}

	cfg = DBConfig{}
	cfg.Sanitize()
	if cfg.MaxOpenConns != 10 {
		t.Errorf("unexpected default open conns %d", cfg.MaxOpenConns)
	}
}

func TestRedisConfig_SanitizeAndConfigured(t *testing.T) {
	tests := []struct {
		name       string
		in         RedisConfig
		wantMode   string
		configured bool
	}{
		{"unknown mode falls back to direct", RedisConfig{Mode: "weird", URI: "localhost:6379"}, RedisModeDirect, true},
		{"direct without uri", RedisConfig{Mode: "direct", URI: "  "}, RedisModeDirect, false},
		{"sentinel needs nodes", RedisConfig{Mode: " Sentinel ", MasterName: "m", Nodes: []string{" ", ""}}, RedisModeSentinel, false},
		{"sentinel with nodes", RedisConfig{Mode: "sentinel", MasterName: "m", Nodes: []string{"s1:26379"}}, RedisModeSentinel, true},
		{"cluster seeded from uri", RedisConfig{Mode: "CLUSTER", URI: "redis://c1:6379"}, RedisModeCluster, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.in
			cfg.Sanitize()
			if cfg.Mode != tt.wantMode {
				t.Errorf("mode = %q, want %q", cfg.Mode, tt.wantMode)
			}
			if got := cfg.Configured(); got != tt.configured {
				t.Errorf("Configured() = %v, want %v", got, tt.configured)
			}
			if cfg.SessionPrefix == "" {
				t.Error("session prefix should default")
			}
		})
	}
}

func TestAppConfig_Validate(t *testing.T) {
	valid := func() AppConfig {
		return AppConfig{
			Auth:      AuthConfig{Mode: AuthModeMock},
			JobServer: JobServerConfig{URL: "http://jobs:8051", WSURL: "ws://jobs:8051/progress"},
		}
	}

	cfg := valid()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	cfg = valid()
	cfg.Auth.Mode = AuthModeOAuth
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "OAUTH_CLIENT_ID") {
		t.Errorf("expected missing client error, got %v", err)
	}

	cfg = valid()
	cfg.JobServer.URL = "jobs:8051"
	cfg.JobServer.WSURL = "http://jobs:8051/progress"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected URL errors")
	}
	for _, want := range []string{"JOB_SERVER_URL", "JOB_SERVER_WS_URL"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
