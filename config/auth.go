package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the authentication mode for the application.
type AuthMode string

const (
	// AuthModeOAuth uses Google OIDC for authentication.
	AuthModeOAuth AuthMode = "oauth"
	// AuthModeMock uses mock/dev authentication (for development only).
	AuthModeMock AuthMode = "mock"
)

const defaultGoogleDiscoveryURL = "https://accounts.google.com"

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oauth", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oauth, mock)", v)
	}
}

// OAuthConfig contains OAuth/OIDC configuration.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	RedirectURL  string `env:"REDIRECT_URL"  envDefault:"http://localhost:8080/auth/callback"`
	// Scope must include a Drive scope; empty uses the provider default.
	Scope        string `env:"SCOPE"`
	DiscoveryURL string `env:"DISCOVERY_URL" envDefault:"https://accounts.google.com"`
}

// DevAuthConfig controls mock/dev authentication identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	UserID string `env:"USER_ID"      envDefault:"dev-user"`
	Email  string `env:"EMAIL"        envDefault:"dev@example.com"`
	Name   string `env:"NAME"         envDefault:"Dev"`
	// AccessToken is a Drive bearer token, e.g. from `gcloud auth print-access-token`.
	AccessToken string `env:"ACCESS_TOKEN"`
	// RefreshToken, with the OAuth client credentials, lets dev mode mint its
	// own Drive tokens instead of a short-lived static one.
	RefreshToken string `env:"REFRESH_TOKEN"`
	TokenURL     string `env:"TOKEN_URL"     envDefault:"https://oauth2.googleapis.com/token"`
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Mode determines which authentication provider to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oauth"`

	OAuth   OAuthConfig   `envPrefix:"OAUTH_"`
	DevAuth DevAuthConfig `envPrefix:"DEV_AUTH_"`

	// AdminEmails are mapped to the admin role.
	AdminEmails []string `env:"AUTH_ADMIN_EMAILS"     envSeparator:","`
	// AllowedDomains restricts sign-in to these email domains; empty admits any verified account.
	AllowedDomains []string `env:"AUTH_ALLOWED_DOMAINS" envSeparator:","`

	SessionTTL time.Duration `env:"AUTH_SESSION_TTL" envDefault:"8h"`
	// RefreshSkew renews Drive tokens this long before they expire.
	RefreshSkew time.Duration `env:"AUTH_REFRESH_SKEW" envDefault:"1m"`
}

// Sanitize trims list entries and restores defaults for non-positive durations.
func (c *AuthConfig) Sanitize() {
	c.AdminEmails = trimList(c.AdminEmails)
	c.AllowedDomains = trimList(c.AllowedDomains)
	if c.SessionTTL <= 0 {
		c.SessionTTL = 8 * time.Hour
	}
	if c.RefreshSkew <= 0 {
		c.RefreshSkew = time.Minute
	}
	if strings.TrimSpace(c.OAuth.DiscoveryURL) == "" {
		c.OAuth.DiscoveryURL = defaultGoogleDiscoveryURL
	}
}

func trimList(in []string) []string {
	out := in[:0]
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
