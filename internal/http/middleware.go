package httpx

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/target/drive-notes/internal/domain/auth"
	apperrors "github.com/target/drive-notes/internal/errors"
	"github.com/target/drive-notes/internal/service"
)

const (
	requestIDHeader = "X-Request-ID"
	maxRequestIDLen = 64
)

// Logging assigns each request an ID, echoes it in X-Request-ID and logs one
// line per request once the handler returns. Probe endpoints log at debug.
func Logging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			info := &requestInfo{id: incomingRequestID(r)}
			w.Header().Set(requestIDHeader, info.id)

			ww := &respWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r.WithContext(withRequestInfo(r.Context(), info)))

			attrs := []slog.Attr{
				slog.String("request_id", info.id),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Int64("bytes", ww.written),
				slog.Duration("duration", time.Since(start)),
			}
			if info.userID != "" {
				attrs = append(attrs, slog.String("user_id", info.userID))
			}
			logger.LogAttrs(r.Context(), requestLevel(r.URL.Path, ww.status), "http", attrs...)
		})
	}
}

func incomingRequestID(r *http.Request) string {
	if id := r.Header.Get(requestIDHeader); id != "" && len(id) <= maxRequestIDLen {
		return id
	}
	return uuid.NewString()
}

func requestLevel(path string, status int) slog.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return slog.LevelError
	case status >= http.StatusBadRequest:
		return slog.LevelWarn
	case path == "/healthz" || path == "/readyz":
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

type respWriter struct {
	http.ResponseWriter
	status  int
	written int64
}

func (w *respWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *respWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.written += int64(n)
	return n, err
}

// Hijack lets the jobs stream upgrade through the wrapper.
func (w *respWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (w *respWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Recover turns a handler panic into a 500 and logs the stack.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.ErrorContext(r.Context(), "handler panic",
					slog.Any("panic", rec),
					slog.String("request_id", RequestID(r.Context())),
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.String("stack", string(debug.Stack())))
				WriteJSON(w, http.StatusInternalServerError, map[string]string{
					"error":   string(apperrors.ErrCodeInternal),
					"message": "Something went wrong. Please try again.",
				})
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// AuthServiceInterface is the slice of service.AuthService the handlers use.
type AuthServiceInterface interface {
	BeginLogin(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	CompleteLogin(ctx context.Context, input service.CompleteLoginInput) (*service.CompleteLoginResult, error)
	GetSession(ctx context.Context, sessionID string) (*domainauth.Session, error)
	DriveCredential(ctx context.Context, sess *domainauth.Session) (domainauth.Credential, error)
	Logout(ctx context.Context, sessionID string) error
}

// RequireUser admits signed-in users whose role allows the dashboard and
// resolves their Drive credential, refreshing it if needed. Handlers read
// the result with CallerFromContext.
func RequireUser(authSvc AuthServiceInterface, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session := sessionFromCookie(r, authSvc)
			switch {
			case session == nil:
				WriteError(w, ErrorParams{
					Code:    http.StatusUnauthorized,
					ErrCode: "authentication_required",
					Err:     errors.New("authentication required"),
				})
				return
			case session.IsGuest():
				WriteError(w, ErrorParams{
					Code:    http.StatusForbidden,
					ErrCode: "insufficient_permissions",
					Err:     errors.New("this account is not allowed to use the dashboard"),
				})
				return
			}

			cred, err := authSvc.DriveCredential(r.Context(), session)
			if err != nil {
				WriteAppError(w, r, logger, err)
				return
			}

			ctx := withCaller(r.Context(), service.Caller{UserID: session.UserID, Credential: cred})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionFromCookie returns nil for a missing cookie as well as for an
// unknown or expired session.
func sessionFromCookie(r *http.Request, authSvc AuthServiceInterface) *domainauth.Session {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	session, err := authSvc.GetSession(r.Context(), c.Value)
	if err != nil {
		return nil
	}
	return session
}
