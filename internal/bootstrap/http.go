package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/target/drive-notes/config"
	httpx "github.com/target/drive-notes/internal/http"
)

const (
	readHeaderTimeout = 10 * time.Second
	// Uploads and content downloads can be large; streams reset their own deadlines.
	readTimeout  = 2 * time.Minute
	writeTimeout = 5 * time.Minute
	idleTimeout  = 120 * time.Second
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	// Draining is fired on shutdown so open job streams close with 1001.
	// StartHTTPServer creates one when nil.
	Draining *httpx.Draining
	Logger   *slog.Logger
}

// BuildHTTPHandler assembles the router and its middleware.
// Order: Recover -> Logging -> Router.
func BuildHTTPHandler(cfg *HTTPServerConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	services := httpx.RouterServices{
		Dashboard:      cfg.Services.Dashboard,
		Health:         cfg.Services.Health,
		CookieDomain:   appCfg.HTTP.CookieDomain,
		AllowedOrigins: appCfg.HTTP.AllowedOrigins,
		MaxUploadBytes: appCfg.HTTP.MaxUploadBytes,
		Draining:       cfg.Draining,
		Logger:         logger,
	}
	// A typed nil would pass the router's nil check.
	if cfg.Services.Auth != nil {
		services.Auth = cfg.Services.Auth
	}

	h := httpx.NewRouter(services)
	h = httpx.Recover(logger)(h)
	h = httpx.Logging(logger)(h)
	return h
}

// StartHTTPServer creates and starts the HTTP server. Serve errors other than
// a clean shutdown are sent on errCh.
func StartHTTPServer(cfg *HTTPServerConfig, errCh chan<- error) *http.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	addr := ""
	if cfg.Config != nil {
		addr = cfg.Config.HTTP.Addr
	}
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}

	if cfg.Draining == nil {
		cfg.Draining = httpx.NewDraining()
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           BuildHTTPHandler(cfg),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
	server.RegisterOnShutdown(cfg.Draining.Start)

	go func() {
		logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	return server
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context  context.Context
	Server   *http.Server
	Services *ServiceContainer
	Draining *httpx.Draining
	Timeout  time.Duration
	Logger   *slog.Logger
}

// ShutdownHTTPServer fires the draining signal so open job streams close
// with 1001, drains in-flight requests, then unmounts every reconciler.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}

	// Before Services.Close, which ends subscriptions and would otherwise
	// read as a resubscribe request to the streams.
	cfg.Draining.Start()

	var errs []error
	if cfg.Server != nil {
		logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown http server: %w", err))
		}
	}
	if err := cfg.Services.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close services: %w", err))
	}
	if len(errs) == 0 {
		logger.Info("HTTP server stopped")
	}
	return errors.Join(errs...)
}

// RunWithShutdown serves HTTP until SIGINT/SIGTERM or a server failure, then
// shuts down gracefully.
func RunWithShutdown(cfg *HTTPServerConfig) error {
	if cfg == nil || cfg.Services == nil {
		return errors.New("http server config with services is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	errCh := make(chan error, 1)
	server := StartHTTPServer(cfg, errCh)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var timeout time.Duration
	if cfg.Config != nil {
		timeout = cfg.Config.HTTP.ShutdownTimeout
	}
	shutdown := ShutdownConfig{
		Context:  context.Background(),
		Server:   server,
		Services: cfg.Services,
		Draining: cfg.Draining,
		Timeout:  timeout,
		Logger:   logger,
	}

	select {
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
		return ShutdownHTTPServer(shutdown)
	case err := <-errCh:
		logger.Error("service error", "error", err)
		if stopErr := ShutdownHTTPServer(shutdown); stopErr != nil {
			logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}
