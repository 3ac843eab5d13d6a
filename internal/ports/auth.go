// Package ports holds the interfaces services use to reach the outside world:
// the identity provider, the session store, Google Drive, the job server and
// the summary history. Adapters implement them; mocks are generated from them.
package ports

import (
	"context"

	domainauth "github.com/target/drive-notes/internal/domain/auth"
)

// AuthProvider drives the sign-in redirect and keeps Drive tokens fresh.
type AuthProvider interface {
	// Begin returns the URL to send the browser to, plus the state and nonce
	// the callback must echo.
	Begin(ctx context.Context, in BeginInput) (authURL, state, nonce string, err error)
	// Exchange redeems the callback code and verifies the ID token against nonce.
	Exchange(ctx context.Context, in ExchangeInput) (domainauth.Identity, error)
	Refresh(ctx context.Context, cred domainauth.Credential) (domainauth.Credential, error)
}

// BeginInput names where the provider redirects after consent.
type BeginInput struct {
	RedirectURL string
}

// ExchangeInput is what the callback handler recovered from the redirect and
// the login cookies.
type ExchangeInput struct {
	Code  string
	State string
	Nonce string
}

// SessionStore keeps signed-in sessions until they expire.
type SessionStore interface {
	Save(ctx context.Context, sess domainauth.Session) error
	Get(ctx context.Context, id string) (domainauth.Session, error)
	// UpdateCredential swaps in a refreshed Drive credential without touching
	// the session expiry.
	UpdateCredential(ctx context.Context, id string, cred domainauth.Credential) error
	Delete(ctx context.Context, id string) error
}

// RoleMapper decides whether an identity may use the dashboard.
type RoleMapper interface {
	Map(id domainauth.Identity) domainauth.Role
}
