package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/target/drive-notes/config"
	"github.com/target/drive-notes/internal/adapters/drive"
	"github.com/target/drive-notes/internal/adapters/jobserver"
	"github.com/target/drive-notes/internal/adapters/progresschannel"
	"github.com/target/drive-notes/internal/data"
	httpx "github.com/target/drive-notes/internal/http"
	"github.com/target/drive-notes/internal/observability/statsd"
	"github.com/target/drive-notes/internal/ports"
	"github.com/target/drive-notes/internal/service"
	"github.com/target/drive-notes/internal/service/progress"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Auth      *service.AuthService
	Dashboard *service.DashboardService
	Registry  *progress.Registry
	Metrics   statsd.Sink
	Health    map[string]httpx.HealthCheck

	closeMetrics func() error
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config *config.AppConfig
	// DB is nil when summary history is disabled.
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// NewServices wires adapters, the reconciler registry and the HTTP-facing services.
func NewServices(deps *ServiceDeps) (*ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return nil, errors.New("service deps with config are required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	metrics, closeMetrics, err := statsd.New(statsd.Config{
		Enabled:    cfg.Observability.Metrics.IsEnabled(),
		Address:    cfg.Observability.Metrics.StatsdAddress,
		Prefix:     cfg.Observability.Metrics.Prefix,
		GlobalTags: cfg.Observability.Metrics.GlobalTags(),
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	driveClient := drive.NewClient(drive.Config{Endpoint: cfg.Drive.Endpoint, Logger: logger})
	gateway, err := jobserver.NewClient(jobserver.Config{
		BaseURL: cfg.JobServer.URL,
		Timeout: cfg.JobServer.Timeout,
		Logger:  logger,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("init job server client: %w", err), closeMetrics())
	}

	var history ports.SummaryHistory
	if deps.DB != nil {
		history = data.NewSummaryRepo(deps.DB)
	}

	registry, err := progress.NewRegistry(progress.RegistryOptions{
		Factory: reconcilerFactory(reconcilerDeps{
			cfg:     cfg,
			gateway: gateway,
			refresh: service.ListingRefresher(driveClient),
			history: history,
			metrics: metrics,
			logger:  logger,
		}),
		IdleGrace: cfg.Progress.IdleGrace,
		Logger:    logger,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("init reconciler registry: %w", err), closeMetrics())
	}

	dashboard, err := service.NewDashboardService(service.DashboardServiceOptions{
		Drive:    driveClient,
		Gateway:  gateway,
		Registry: registry,
		History:  history,
		Logger:   logger,
	})
	if err != nil {
		registry.Close()
		return nil, errors.Join(fmt.Errorf("init dashboard service: %w", err), closeMetrics())
	}

	return &ServiceContainer{
		Auth: BuildAuthService(AuthConfig{
			Auth:          cfg.Auth,
			RedisClient:   deps.RedisClient,
			SessionPrefix: cfg.Redis.SessionPrefix,
			Logger:        logger,
		}),
		Dashboard:    dashboard,
		Registry:     registry,
		Metrics:      metrics,
		Health:       healthChecks(deps),
		closeMetrics: closeMetrics,
	}, nil
}

// Close unmounts every reconciler and flushes metrics.
func (c *ServiceContainer) Close() error {
	if c == nil {
		return nil
	}
	if c.Registry != nil {
		c.Registry.Close()
	}
	if c.closeMetrics != nil {
		return c.closeMetrics()
	}
	return nil
}

type reconcilerDeps struct {
	cfg     *config.AppConfig
	gateway ports.JobStarter
	refresh progress.RefreshFunc
	history ports.SummaryHistory
	metrics statsd.Sink
	logger  *slog.Logger
}

// reconcilerFactory builds a reconciler with its own progress channel per user.
func reconcilerFactory(d reconcilerDeps) progress.Factory {
	return func(uid string) (*progress.Reconciler, error) {
		ch, err := progresschannel.New(progresschannel.Config{
			URL:          d.cfg.JobServer.WSURL,
			UserID:       uid,
			BaseDelay:    d.cfg.Progress.ReconnectBase,
			MaxDelay:     d.cfg.Progress.ReconnectMax,
			PingInterval: d.cfg.Progress.PingInterval,
			Logger:       d.logger,
		})
		if err != nil {
			return nil, fmt.Errorf("progress channel: %w", err)
		}
		return progress.New(progress.Options{
			UserID:           uid,
			Channel:          ch,
			Gateway:          d.gateway,
			History:          d.history,
			Refresh:          d.refresh,
			Metrics:          d.metrics,
			Logger:           d.logger,
			StartTimeout:     d.cfg.JobServer.Timeout,
			StallAfter:       d.cfg.Progress.StallAfter,
			SubscriberBuffer: d.cfg.Progress.SubscriberBuffer,
		})
	}
}

func healthChecks(deps *ServiceDeps) map[string]httpx.HealthCheck {
	checks := map[string]httpx.HealthCheck{}
	if deps.RedisClient != nil {
		client := deps.RedisClient
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}
	if deps.DB != nil {
		db := deps.DB
		checks["postgres"] = db.PingContext
	}
	return checks
}
