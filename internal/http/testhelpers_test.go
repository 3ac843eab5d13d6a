package httpx

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domainauth "github.com/target/drive-notes/internal/domain/auth"
	"github.com/target/drive-notes/internal/domain/drive"
	apperrors "github.com/target/drive-notes/internal/errors"
	"github.com/target/drive-notes/internal/service"
	"github.com/target/drive-notes/internal/service/progress"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// mockAuthService is a test double for service.AuthService.
type mockAuthService struct {
	beginLoginFunc    func(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error)
	completeLoginFunc func(ctx context.Context, input service.CompleteLoginInput) (*service.CompleteLoginResult, error)
	sessions          map[string]*domainauth.Session
	credErr           error
	loggedOut         []string
}

func newMockAuth() *mockAuthService {
	return &mockAuthService{sessions: map[string]*domainauth.Session{
		"user-session": {
			ID:         "user-session",
			UserID:     "u1",
			Email:      "ada@example.com",
			Role:       domainauth.RoleUser,
			Credential: domainauth.Credential{AccessToken: "drive-token"},
			ExpiresAt:  time.Now().Add(time.Hour),
		},
		"guest-session": {
			ID:        "guest-session",
			UserID:    "g1",
			Email:     "guest@elsewhere.org",
			Role:      domainauth.RoleGuest,
			ExpiresAt: time.Now().Add(time.Hour),
		},
	}}
}

func (m *mockAuthService) BeginLogin(ctx context.Context, redirectURL string) (*service.BeginLoginResult, error) {
	if m.beginLoginFunc != nil {
		return m.beginLoginFunc(ctx, redirectURL)
	}
	return &service.BeginLoginResult{
		AuthURL: "https://accounts.example.com/auth?state=test-state",
		State:   "test-state",
		Nonce:   "test-nonce",
	}, nil
}

func (m *mockAuthService) CompleteLogin(ctx context.Context, input service.CompleteLoginInput) (*service.CompleteLoginResult, error) {
	if m.completeLoginFunc != nil {
		return m.completeLoginFunc(ctx, input)
	}
	return &service.CompleteLoginResult{Session: *m.sessions["user-session"]}, nil
}

func (m *mockAuthService) GetSession(_ context.Context, sessionID string) (*domainauth.Session, error) {
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, apperrors.NotFound("session not found")
	}
	cp := *s
	return &cp, nil
}

func (m *mockAuthService) DriveCredential(_ context.Context, sess *domainauth.Session) (domainauth.Credential, error) {
	if m.credErr != nil {
		return domainauth.Credential{}, m.credErr
	}
	return sess.Credential, nil
}

func (m *mockAuthService) Logout(_ context.Context, sessionID string) error {
	m.loggedOut = append(m.loggedOut, sessionID)
	return nil
}

// fakeDashboard implements DashboardAPI with overridable funcs.
type fakeDashboard struct {
	folders      []drive.Folder
	createFolder func(name string) (drive.Folder, error)
	listFiles    func(folderID string) (*service.FolderListing, error)
	upload       func(folderID, filename, mimeType string, body io.ReadSeeker) (*service.UploadResult, error)
	deleteErr    error
	content      drive.Content
	contentErr   error
	process      func(folderID, fileID, filename string) (string, error)
	snapshot     progress.Snapshot
	subscribe    func(sinceSeq int64) (*progress.Subscription, func(), error)

	lastCaller service.Caller
}

func (f *fakeDashboard) ListFolders(_ context.Context, c service.Caller) ([]drive.Folder, error) {
	f.lastCaller = c
	return f.folders, nil
}

func (f *fakeDashboard) CreateFolder(_ context.Context, c service.Caller, name string) (drive.Folder, error) {
	f.lastCaller = c
	return f.createFolder(name)
}

func (f *fakeDashboard) ListFiles(_ context.Context, c service.Caller, folderID string) (*service.FolderListing, error) {
	f.lastCaller = c
	return f.listFiles(folderID)
}

func (f *fakeDashboard) Upload(_ context.Context, c service.Caller, folderID, filename, mimeType string, body io.ReadSeeker) (*service.UploadResult, error) {
	f.lastCaller = c
	return f.upload(folderID, filename, mimeType, body)
}

func (f *fakeDashboard) Delete(_ context.Context, c service.Caller, _, _ string) error {
	f.lastCaller = c
	return f.deleteErr
}

func (f *fakeDashboard) Content(_ context.Context, c service.Caller, _ string) (drive.Content, error) {
	f.lastCaller = c
	return f.content, f.contentErr
}

func (f *fakeDashboard) Process(_ context.Context, c service.Caller, folderID, fileID, filename string) (string, error) {
	f.lastCaller = c
	return f.process(folderID, fileID, filename)
}

func (f *fakeDashboard) Jobs(_ context.Context, c service.Caller) (progress.Snapshot, error) {
	f.lastCaller = c
	return f.snapshot, nil
}

func (f *fakeDashboard) Subscribe(c service.Caller, sinceSeq int64) (*progress.Subscription, func(), error) {
	f.lastCaller = c
	return f.subscribe(sinceSeq)
}

func newTestRouter(auth *mockAuthService, dash *fakeDashboard) http.Handler {
	return NewRouter(RouterServices{
		Auth:      auth,
		Dashboard: dash,
		Logger:    discardLogger,
	})
}

// authed returns a request carrying the signed-in user's session cookie.
func authed(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "user-session"})
	return req
}

func findCookie(res *http.Response, name string) *http.Cookie {
	for _, c := range res.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func serve(t *testing.T, h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
