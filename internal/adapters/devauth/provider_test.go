package devauth

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	domainauth "github.com/target/drive-notes/internal/domain/auth"
	"github.com/target/drive-notes/internal/ports"
)

type tokenSeq struct {
	toks []*oauth2.Token
	err  error
	n    int
}

func (s *tokenSeq) Token() (*oauth2.Token, error) {
	if s.err != nil {
		return nil, s.err
	}
	t := s.toks[min(s.n, len(s.toks)-1)]
	s.n++
	return t, nil
}

var devNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func TestNewProviderValidation(t *testing.T) {
	_, err := NewProvider(Config{Email: "dev@example.com"})
	require.Error(t, err)
	_, err = NewProvider(Config{UserID: "dev"})
	require.Error(t, err)
}

func TestBeginRedirectsToCallback(t *testing.T) {
	p, err := NewProvider(Config{UserID: "dev", Email: "dev@example.com"})
	require.NoError(t, err)

	authURL, state, nonce, err := p.Begin(context.Background(), ports.BeginInput{RedirectURL: "/"})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(authURL, "/auth/callback?"))
	assert.NotEqual(t, state, nonce)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, "dev", u.Query().Get("code"))
	assert.Equal(t, state, u.Query().Get("state"))
}

func TestExchangeWithStaticToken(t *testing.T) {
	p, err := NewProvider(Config{
		UserID:          "dev",
		Email:           "dev@example.com",
		Name:            "Dev",
		AccessToken:     "ya29.static",
		SessionDuration: time.Hour,
		Now:             func() time.Time { return devNow },
	})
	require.NoError(t, err)

	id, err := p.Exchange(context.Background(), ports.ExchangeInput{})
	require.NoError(t, err)
	assert.Equal(t, "dev", id.UserID)
	assert.True(t, id.Verified)
	assert.Equal(t, "ya29.static", id.Credential.AccessToken)
	assert.Equal(t, devNow.Add(time.Hour), id.ExpiresAt)
}

func TestExchangeWithoutTokenStillSignsIn(t *testing.T) {
	p, err := NewProvider(Config{UserID: "dev", Email: "dev@example.com"})
	require.NoError(t, err)

	id, err := p.Exchange(context.Background(), ports.ExchangeInput{})
	require.NoError(t, err)
	assert.Empty(t, id.Credential.AccessToken)

	_, err = p.Refresh(context.Background(), domainauth.Credential{})
	require.ErrorIs(t, err, ErrNoDriveToken)
}

func TestTokenSourceMintsAndRefreshes(t *testing.T) {
	src := &tokenSeq{toks: []*oauth2.Token{
		{AccessToken: "first", TokenType: "Bearer", Expiry: devNow.Add(-time.Minute)},
		{AccessToken: "second", TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)},
	}}
	p, err := NewProvider(Config{UserID: "dev", Email: "dev@example.com", Tokens: src})
	require.NoError(t, err)

	id, err := p.Exchange(context.Background(), ports.ExchangeInput{})
	require.NoError(t, err)
	assert.Equal(t, "first", id.Credential.AccessToken)

	cred, err := p.Refresh(context.Background(), domainauth.Credential{RefreshToken: "keep"})
	require.NoError(t, err)
	assert.Equal(t, "second", cred.AccessToken)
	assert.Equal(t, "keep", cred.RefreshToken)
}

func TestTokenSourceFailure(t *testing.T) {
	p, err := NewProvider(Config{UserID: "dev", Email: "dev@example.com", Tokens: &tokenSeq{err: errors.New("invalid_grant")}})
	require.NoError(t, err)

	_, err = p.Exchange(context.Background(), ports.ExchangeInput{})
	require.ErrorContains(t, err, "invalid_grant")
}
