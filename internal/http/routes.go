package httpx

import (
	"log/slog"
	"net/http"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth      AuthServiceInterface
	Dashboard DashboardAPI
	Health    map[string]HealthCheck

	CookieDomain   string
	AllowedOrigins []string
	MaxUploadBytes int64
	// Draining is fired by the server on shutdown; nil leaves streams open
	// until their subscription ends.
	Draining *Draining
	Logger   *slog.Logger
}

// NewRouter registers every route on a ServeMux. Routes under /api require a
// signed-in, non-guest user.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	health := &HealthHandlers{Checks: services.Health}
	mux.HandleFunc("GET /healthz", health.Live)
	mux.HandleFunc("HEAD /healthz", health.Live)
	mux.HandleFunc("GET /readyz", health.Ready)

	authHandlers := &AuthHandlers{Svc: services.Auth, CookieDomain: services.CookieDomain, Logger: logger}
	registerAuthRoutes(mux, authHandlers)

	requireUser := RequireUser(services.Auth, logger)
	driveHandlers := &DriveHandlers{Svc: services.Dashboard, MaxUploadBytes: services.MaxUploadBytes, Logger: logger}
	jobHandlers := NewJobHandlers(services.Dashboard, services.AllowedOrigins, logger)
	jobHandlers.Draining = services.Draining
	registerAPIRoutes(mux, requireUser, driveHandlers, jobHandlers)

	return mux
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.HandleFunc("GET /auth/login", h.Login)
	mux.HandleFunc("GET /auth/callback", h.Callback)
	mux.HandleFunc("POST /auth/logout", h.Logout)
	mux.HandleFunc("GET /auth/status", h.Status)
}

func registerAPIRoutes(
	mux *http.ServeMux,
	requireUser func(http.Handler) http.Handler,
	d *DriveHandlers,
	j *JobHandlers,
) {
	protect := func(fn http.HandlerFunc) http.Handler { return requireUser(fn) }

	mux.Handle("GET /api/folders", protect(d.ListFolders))
	mux.Handle("POST /api/folders", protect(d.CreateFolder))
	mux.Handle("GET /api/folders/{folderID}/files", protect(d.ListFiles))
	mux.Handle("POST /api/folders/{folderID}/files", protect(d.Upload))
	mux.Handle("DELETE /api/folders/{folderID}/files/{fileID}", protect(d.Delete))
	mux.Handle("POST /api/folders/{folderID}/files/{fileID}/process", protect(d.Process))
	mux.Handle("GET /api/files/{fileID}/content", protect(d.Content))

	mux.Handle("GET /api/jobs", protect(j.Snapshot))
	mux.Handle("GET /api/jobs/stream", protect(j.Stream))
}
