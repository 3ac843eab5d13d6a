// Package devauth signs every login in as one configured user, for local
// development against a real Drive account.
package devauth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	domainauth "github.com/target/drive-notes/internal/domain/auth"
	"github.com/target/drive-notes/internal/ports"
)

// ErrNoDriveToken is returned by Refresh when neither a static token nor a
// token source is configured.
var ErrNoDriveToken = errors.New("dev auth: no Drive token configured")

// Config describes the development identity.
type Config struct {
	UserID string
	Email  string
	Name   string

	// Tokens, when set, mints Drive credentials (typically a refresh-token
	// backed oauth2 source). Otherwise AccessToken is handed out as is.
	Tokens      oauth2.TokenSource
	AccessToken string

	SessionDuration time.Duration // 8h when zero
	Now             func() time.Time
}

// Provider implements ports.AuthProvider without an identity provider: Begin
// redirects straight to the callback and Exchange ignores the code.
type Provider struct {
	cfg Config

	mu     sync.Mutex
	tokens oauth2.TokenSource
}

// NewProvider validates cfg.
func NewProvider(cfg Config) (*Provider, error) {
	switch {
	case cfg.UserID == "":
		return nil, errors.New("dev auth: UserID is required")
	case cfg.Email == "":
		return nil, errors.New("dev auth: Email is required")
	}
	if cfg.SessionDuration <= 0 {
		cfg.SessionDuration = 8 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	p := &Provider{cfg: cfg}
	if cfg.Tokens != nil {
		p.tokens = oauth2.ReuseTokenSource(nil, cfg.Tokens)
	}
	return p, nil
}

// Begin returns the local callback URL with fresh state and nonce.
func (p *Provider) Begin(_ context.Context, _ ports.BeginInput) (string, string, string, error) {
	state, nonce := uuid.NewString(), uuid.NewString()
	q := url.Values{"code": {"dev"}, "state": {state}}
	return "/auth/callback?" + q.Encode(), state, nonce, nil
}

// Exchange returns the configured identity with a Drive credential when one
// can be obtained. A missing credential is not an error here: the session
// starts and Drive calls fail with unauthorized until a token is configured.
func (p *Provider) Exchange(ctx context.Context, _ ports.ExchangeInput) (domainauth.Identity, error) {
	id := domainauth.Identity{
		UserID:    p.cfg.UserID,
		Email:     p.cfg.Email,
		FirstName: p.cfg.Name,
		Verified:  true,
		ExpiresAt: p.cfg.Now().Add(p.cfg.SessionDuration),
	}
	cred, err := p.credential(ctx)
	if err != nil && !errors.Is(err, ErrNoDriveToken) {
		return domainauth.Identity{}, err
	}
	id.Credential = cred
	return id, nil
}

// Refresh mints a new credential. The incoming one is only used for its
// refresh token, which is preserved.
func (p *Provider) Refresh(ctx context.Context, old domainauth.Credential) (domainauth.Credential, error) {
	cred, err := p.credential(ctx)
	if err != nil {
		return domainauth.Credential{}, err
	}
	if cred.RefreshToken == "" {
		cred.RefreshToken = old.RefreshToken
	}
	return cred, nil
}

func (p *Provider) credential(_ context.Context) (domainauth.Credential, error) {
	if p.tokens == nil {
		if p.cfg.AccessToken == "" {
			return domainauth.Credential{}, ErrNoDriveToken
		}
		return domainauth.Credential{AccessToken: p.cfg.AccessToken, TokenType: "Bearer"}, nil
	}

	p.mu.Lock()
	tok, err := p.tokens.Token()
	p.mu.Unlock()
	if err != nil {
		return domainauth.Credential{}, fmt.Errorf("dev auth: mint drive token: %w", err)
	}
	return domainauth.Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.Type(),
		Expiry:       tok.Expiry,
	}, nil
}
