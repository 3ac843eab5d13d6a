package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	domainauth "github.com/target/drive-notes/internal/domain/auth"
	apperrors "github.com/target/drive-notes/internal/errors"
	"github.com/target/drive-notes/internal/ports"
)

// Drive tokens are renewed this long before expiry so a request started now
// does not fail halfway.
const defaultRefreshSkew = time.Minute

const reauthMessage = "Drive access expired, sign in again"

// ErrSessionExpired is returned for sessions past their expiry.
var ErrSessionExpired = errors.New("session expired")

// AuthServiceOptions groups dependencies for AuthService.
type AuthServiceOptions struct {
	Provider ports.AuthProvider
	Sessions ports.SessionStore
	Roles    ports.RoleMapper

	RefreshSkew time.Duration
	Now         func() time.Time
	Logger      *slog.Logger
}

// AuthService signs users in through the provider, keeps their sessions and
// hands out Drive credentials that are valid for the next request.
type AuthService struct {
	provider ports.AuthProvider
	sessions ports.SessionStore
	roles    ports.RoleMapper

	skew   time.Duration
	now    func() time.Time
	logger *slog.Logger

	// refreshes collapses concurrent token renewals per session ID.
	refreshes singleflight.Group
}

// NewAuthService applies defaults for the optional fields of opts.
func NewAuthService(opts AuthServiceOptions) *AuthService {
	s := &AuthService{
		provider: opts.Provider,
		sessions: opts.Sessions,
		roles:    opts.Roles,
		skew:     opts.RefreshSkew,
		now:      opts.Now,
		logger:   opts.Logger,
	}
	if s.skew <= 0 {
		s.skew = defaultRefreshSkew
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "auth_service")
	return s
}

// BeginLoginResult is what the login handler stores in cookies and redirects to.
type BeginLoginResult struct {
	AuthURL string
	State   string
	Nonce   string
}

// BeginLogin asks the provider for a consent URL that returns to redirectURL.
func (s *AuthService) BeginLogin(ctx context.Context, redirectURL string) (*BeginLoginResult, error) {
	if redirectURL == "" {
		return nil, apperrors.ValidationField("redirect_uri", "redirect URL is required")
	}
	authURL, state, nonce, err := s.provider.Begin(ctx, ports.BeginInput{RedirectURL: redirectURL})
	if err != nil {
		return nil, fmt.Errorf("begin auth flow: %w", err)
	}
	return &BeginLoginResult{AuthURL: authURL, State: state, Nonce: nonce}, nil
}

// CompleteLoginInput is the callback code plus the state and nonce issued by
// BeginLogin.
type CompleteLoginInput struct {
	Code  string
	State string
	Nonce string
}

func (in CompleteLoginInput) validate() error {
	switch {
	case in.Code == "":
		return apperrors.ValidationField("code", "authorization code is required")
	case in.State == "":
		return apperrors.ValidationField("state", "state parameter is required")
	case in.Nonce == "":
		return apperrors.ValidationField("nonce", "nonce parameter is required")
	}
	return nil
}

// CompleteLoginResult carries the stored session.
type CompleteLoginResult struct {
	Session domainauth.Session
}

// CompleteLogin redeems the code, maps the identity to a role and stores a
// session that carries the user's Drive credential.
func (s *AuthService) CompleteLogin(ctx context.Context, in CompleteLoginInput) (*CompleteLoginResult, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	identity, err := s.provider.Exchange(ctx, ports.ExchangeInput(in))
	if err != nil {
		return nil, fmt.Errorf("exchange authorization code: %w", err)
	}

	sess := domainauth.Session{
		ID:         uuid.NewString(),
		UserID:     identity.UserID,
		FirstName:  identity.FirstName,
		LastName:   identity.LastName,
		Email:      identity.Email,
		Role:       s.roles.Map(identity),
		Credential: identity.Credential,
		ExpiresAt:  identity.ExpiresAt,
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	s.logger.InfoContext(ctx, "user signed in", "user_id", sess.UserID, "role", sess.Role)
	return &CompleteLoginResult{Session: sess}, nil
}

// GetSession loads a session. Expired sessions are removed from the store and
// reported as ErrSessionExpired.
func (s *AuthService) GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error) {
	if sessionID == "" {
		return nil, apperrors.Unauthorized("not signed in")
	}

	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if !s.now().After(sess.ExpiresAt) {
		return &sess, nil
	}

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return nil, errors.Join(ErrSessionExpired, fmt.Errorf("delete session: %w", err))
	}
	return nil, ErrSessionExpired
}

// DriveCredential returns a Drive credential for sess that is good for at
// least the refresh skew, renewing and persisting it first when needed. The
// renewed credential is written back into sess.
func (s *AuthService) DriveCredential(ctx context.Context, sess *domainauth.Session) (domainauth.Credential, error) {
	if sess == nil {
		return domainauth.Credential{}, apperrors.Unauthorized("not signed in")
	}
	if sess.Credential.Valid(s.now(), s.skew) {
		return sess.Credential, nil
	}
	if sess.Credential.RefreshToken == "" {
		return domainauth.Credential{}, apperrors.Unauthorized(reauthMessage)
	}

	v, err, _ := s.refreshes.Do(sess.ID, func() (any, error) {
		return s.renew(ctx, sess)
	})
	if err != nil {
		if ctxErr := apperrors.FromContext(err); ctxErr != nil {
			return domainauth.Credential{}, ctxErr
		}
		return domainauth.Credential{}, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, reauthMessage)
	}

	fresh, ok := v.(domainauth.Credential)
	if !ok {
		return domainauth.Credential{}, apperrors.Internal("unexpected refresh result")
	}
	sess.Credential = fresh
	return fresh, nil
}

func (s *AuthService) renew(ctx context.Context, sess *domainauth.Session) (domainauth.Credential, error) {
	fresh, err := s.provider.Refresh(ctx, sess.Credential)
	if err != nil {
		return domainauth.Credential{}, err
	}
	// A store failure only costs a refresh on the next request.
	if err := s.sessions.UpdateCredential(ctx, sess.ID, fresh); err != nil {
		s.logger.WarnContext(ctx, "failed to persist refreshed credential", "user_id", sess.UserID, "error", err)
	}
	return fresh, nil
}

// Logout deletes the session. An empty ID is a no-op.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
