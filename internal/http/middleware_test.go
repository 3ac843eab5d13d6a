package httpx

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/drive-notes/internal/errors"
	"github.com/target/drive-notes/internal/service"
)

func TestRequireUser(t *testing.T) {
	var got service.Caller
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := CallerFromContext(r.Context())
		require.True(t, ok)
		got = c
		w.WriteHeader(http.StatusNoContent)
	})

	t.Run("no cookie", func(t *testing.T) {
		rec := serve(t, RequireUser(newMockAuth(), discardLogger)(next), httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "nope"})
		rec := serve(t, RequireUser(newMockAuth(), discardLogger)(next), req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("guest", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/jobs", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "guest-session"})
		rec := serve(t, RequireUser(newMockAuth(), discardLogger)(next), req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("expired drive access", func(t *testing.T) {
		auth := newMockAuth()
		auth.credErr = apperrors.Unauthorized("Drive access expired, sign in again")
		rec := serve(t, RequireUser(auth, discardLogger)(next), authed(http.MethodGet, "/api/jobs", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Drive access expired")
	})

	t.Run("user", func(t *testing.T) {
		rec := serve(t, RequireUser(newMockAuth(), discardLogger)(next), authed(http.MethodGet, "/api/jobs", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "u1", got.UserID)
		assert.Equal(t, "drive-token", got.Credential.AccessToken)
	})
}

func TestRecoverTurnsPanicInto500(t *testing.T) {
	h := Recover(discardLogger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rec := serve(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error":"internal"`)
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestLoggingKeepsStatus(t *testing.T) {
	h := Logging(discardLogger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := serve(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestLoggingAssignsRequestID(t *testing.T) {
	var seen string
	h := Logging(discardLogger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("generated", func(t *testing.T) {
		rec := serve(t, h, httptest.NewRequest(http.MethodGet, "/", nil))
		require.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get("X-Request-ID"))
	})

	t.Run("incoming", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "abc-123")
		rec := serve(t, h, req)
		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
	})

	t.Run("oversized incoming is replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", strings.Repeat("x", 100))
		serve(t, h, req)
		assert.Len(t, seen, 36)
	})
}

func TestLoggingRecordsUserAndBytes(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := Logging(logger)(RequireUser(newMockAuth(), discardLogger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("hello"))
	})))

	rec := serve(t, h, authed(http.MethodGet, "/api/jobs", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "u1", line["user_id"])
	assert.EqualValues(t, 5, line["bytes"])
	assert.Equal(t, rec.Header().Get("X-Request-ID"), line["request_id"])
	assert.Equal(t, "INFO", line["level"])
}

func TestRequestLevel(t *testing.T) {
	tests := []struct {
		path   string
		status int
		want   slog.Level
	}{
		{"/api/jobs", http.StatusOK, slog.LevelInfo},
		{"/healthz", http.StatusOK, slog.LevelDebug},
		{"/readyz", http.StatusServiceUnavailable, slog.LevelError},
		{"/api/jobs", http.StatusNotFound, slog.LevelWarn},
		{"/api/jobs", http.StatusBadGateway, slog.LevelError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, requestLevel(tt.path, tt.status), "%s %d", tt.path, tt.status)
	}
}
