package bootstrap

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"golang.org/x/oauth2"

	"github.com/target/drive-notes/config"
	"github.com/target/drive-notes/internal/adapters/authroles"
	"github.com/target/drive-notes/internal/adapters/devauth"
	"github.com/target/drive-notes/internal/adapters/oidc"
	redisadapter "github.com/target/drive-notes/internal/adapters/redis"
	"github.com/target/drive-notes/internal/service"
)

// AuthConfig contains configuration for auth service.
type AuthConfig struct {
	Auth        config.AuthConfig
	RedisClient redis.UniversalClient
	// SessionPrefix namespaces session keys in Redis.
	SessionPrefix string
	Logger        *slog.Logger
}

// BuildAuthService creates an auth service based on the configured auth mode.
// Returns nil if auth is not configured or configuration is invalid.
func BuildAuthService(cfg AuthConfig) *service.AuthService {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RedisClient == nil {
		cfg.Logger.Warn("auth service disabled: redis client not configured", "mode", cfg.Auth.Mode)
		return nil
	}

	sessionStore := redisadapter.NewSessionStore(cfg.RedisClient, cfg.SessionPrefix)
	roleMapper := authroles.EmailRoleMapper{
		AdminEmails:    cfg.Auth.AdminEmails,
		AllowedDomains: cfg.Auth.AllowedDomains,
	}

	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		return buildDevAuthService(cfg, sessionStore, roleMapper)
	case config.AuthModeOAuth:
		return buildOAuthService(cfg, sessionStore, roleMapper)
	default:
		return nil
	}
}

func buildDevAuthService(
	cfg AuthConfig,
	sessionStore *redisadapter.SessionStore,
	roleMapper authroles.EmailRoleMapper,
) *service.AuthService {
	dev := cfg.Auth.DevAuth
	prov, err := devauth.NewProvider(devauth.Config{
		UserID:          dev.UserID,
		Email:           dev.Email,
		Name:            dev.Name,
		AccessToken:     dev.AccessToken,
		Tokens:          devTokenSource(cfg.Auth),
		SessionDuration: cfg.Auth.SessionTTL,
	})
	if err != nil {
		cfg.Logger.Warn("failed to create dev auth provider, auth disabled", "error", err)
		return nil
	}

	cfg.Logger.Warn("dev auth enabled; every login signs in as the configured user", "user_id", dev.UserID)
	return service.NewAuthService(service.AuthServiceOptions{
		Provider:    prov,
		Sessions:    sessionStore,
		Roles:       roleMapper,
		RefreshSkew: cfg.Auth.RefreshSkew,
		Logger:      cfg.Logger,
	})
}

// devTokenSource returns a refresh-token backed source when dev mode has both
// a refresh token and OAuth client credentials, nil otherwise.
//
//nolint:ireturn // oauth2 exposes token sources only as the interface.
func devTokenSource(auth config.AuthConfig) oauth2.TokenSource {
	dev := auth.DevAuth
	if dev.RefreshToken == "" || auth.OAuth.ClientID == "" || auth.OAuth.ClientSecret == "" {
		return nil
	}
	oc := &oauth2.Config{
		ClientID:     auth.OAuth.ClientID,
		ClientSecret: auth.OAuth.ClientSecret,
		Endpoint:     oauth2.Endpoint{TokenURL: dev.TokenURL, AuthStyle: oauth2.AuthStyleInParams},
	}
	return oc.TokenSource(context.Background(), &oauth2.Token{RefreshToken: dev.RefreshToken})
}

func buildOAuthService(
	cfg AuthConfig,
	sessionStore *redisadapter.SessionStore,
	roleMapper authroles.EmailRoleMapper,
) *service.AuthService {
	// Only enable when fully configured
	oauth := cfg.Auth.OAuth
	if oauth.DiscoveryURL == "" || oauth.ClientID == "" || oauth.ClientSecret == "" || oauth.RedirectURL == "" {
		cfg.Logger.Warn("AuthModeOAuth selected but required config missing; auth disabled",
			"discovery_url_empty", oauth.DiscoveryURL == "",
			"client_id_empty", oauth.ClientID == "",
			"client_secret_empty", oauth.ClientSecret == "",
			"redirect_url_empty", oauth.RedirectURL == "",
		)
		return nil
	}

	prov, err := oidc.NewProvider(oidc.ProviderConfig{
		ClientID:     oauth.ClientID,
		ClientSecret: oauth.ClientSecret,
		RedirectURL:  oauth.RedirectURL,
		Scope:        oauth.Scope,
		DiscoveryURL: oauth.DiscoveryURL,
		SessionTTL:   cfg.Auth.SessionTTL,
	})
	if err != nil {
		cfg.Logger.Warn("failed to create OIDC provider, auth disabled", "error", err)
		return nil
	}

	return service.NewAuthService(service.AuthServiceOptions{
		Provider:    prov,
		Sessions:    sessionStore,
		Roles:       roleMapper,
		RefreshSkew: cfg.Auth.RefreshSkew,
		Logger:      cfg.Logger,
	})
}
