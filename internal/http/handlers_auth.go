package httpx

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/target/drive-notes/internal/service"
)

// AuthHandlers serves the sign-in round trip and session status.
type AuthHandlers struct {
	Svc          AuthServiceInterface
	CookieDomain string
	Logger       *slog.Logger
}

func (h *AuthHandlers) jar() cookieJar { return cookieJar{domain: h.CookieDomain} }

func (h *AuthHandlers) log() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// Login redirects to Google. The state, nonce and requested return path ride
// in short-lived cookies until the callback.
// GET /auth/login?redirect_uri=/folders/abc
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	returnTo := safeRedirectPath(r.URL.Query().Get("redirect_uri"))

	res, err := h.Svc.BeginLogin(r.Context(), returnTo)
	if err != nil {
		h.log().ErrorContext(r.Context(), "begin login failed", "request_id", RequestID(r.Context()), "error", err)
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "login_failed", Err: errors.New("could not start sign-in")})
		return
	}

	jar := h.jar()
	jar.set(w, r, stateCookieName, res.State, loginFlowTTL)
	jar.set(w, r, nonceCookieName, res.Nonce, loginFlowTTL)
	jar.set(w, r, redirectCookieName, returnTo, loginFlowTTL)
	http.Redirect(w, r, res.AuthURL, http.StatusFound)
}

// callbackInput pulls the code, state and nonce out of the callback request.
// The returned ErrorParams is non-nil when the request must be rejected.
func callbackInput(r *http.Request) (service.CompleteLoginInput, *ErrorParams) {
	q := r.URL.Query()
	if denied := q.Get("error"); denied != "" {
		return service.CompleteLoginInput{}, &ErrorParams{
			Code: http.StatusUnauthorized, ErrCode: "access_denied",
			Err: errors.New("sign-in was not completed: " + denied),
		}
	}

	in := service.CompleteLoginInput{Code: q.Get("code"), State: q.Get("state")}
	reject := func(code, msg string) (service.CompleteLoginInput, *ErrorParams) {
		return service.CompleteLoginInput{}, &ErrorParams{Code: http.StatusBadRequest, ErrCode: code, Err: errors.New(msg)}
	}
	if in.Code == "" {
		return reject("missing_code", "authorization code is required")
	}
	if in.State == "" {
		return reject("missing_state", "state parameter is required")
	}
	if c, err := r.Cookie(stateCookieName); err != nil || c.Value != in.State {
		return reject("invalid_state", "invalid or missing state parameter")
	}
	c, err := r.Cookie(nonceCookieName)
	if err != nil {
		return reject("missing_nonce", "missing nonce parameter")
	}
	in.Nonce = c.Value
	return in, nil
}

// Callback completes sign-in, sets the session cookie and returns the browser
// to where it started.
// GET /auth/callback?code=..&state=..
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	in, bad := callbackInput(r)
	if bad != nil {
		WriteError(w, *bad)
		return
	}

	res, err := h.Svc.CompleteLogin(r.Context(), in)
	if err != nil {
		h.log().WarnContext(r.Context(), "login completion failed", "request_id", RequestID(r.Context()), "error", err)
		WriteError(w, ErrorParams{Code: http.StatusUnauthorized, ErrCode: "login_completion_failed", Err: errors.New("sign-in failed, please try again")})
		return
	}

	jar := h.jar()
	jar.set(w, r, sessionCookieName, res.Session.ID, time.Until(res.Session.ExpiresAt))
	jar.clear(w, r, stateCookieName, nonceCookieName)
	returnTo, _ := jar.take(w, r, redirectCookieName)
	http.Redirect(w, r, safeRedirectPath(returnTo), http.StatusFound)
}

// Logout ends the session. JSON clients get a body, browsers a redirect home.
// POST /auth/logout
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		if err := h.Svc.Logout(r.Context(), c.Value); err != nil {
			h.log().WarnContext(r.Context(), "logout failed", "error", err)
		}
	}
	h.jar().clear(w, r, sessionCookieName)

	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

type statusUser struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
}

type statusResponse struct {
	Authenticated  bool        `json:"authenticated"`
	User           *statusUser `json:"user,omitempty"`
	DriveConnected bool        `json:"drive_connected,omitempty"`
	ExpiresAt      *time.Time  `json:"expires_at,omitempty"`
}

// Status tells the dashboard whether to show the sign-in screen. A stale
// session cookie is cleared.
// GET /auth/status
func (h *AuthHandlers) Status(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromCookie(r, h.Svc)
	if sess == nil {
		if _, err := r.Cookie(sessionCookieName); err == nil {
			h.jar().clear(w, r, sessionCookieName)
		}
		WriteJSON(w, http.StatusOK, statusResponse{})
		return
	}

	WriteJSON(w, http.StatusOK, statusResponse{
		Authenticated: true,
		User: &statusUser{
			ID:        sess.UserID,
			FirstName: sess.FirstName,
			LastName:  sess.LastName,
			Email:     sess.Email,
			Role:      string(sess.Role),
		},
		DriveConnected: sess.Credential.AccessToken != "",
		ExpiresAt:      &sess.ExpiresAt,
	})
}
