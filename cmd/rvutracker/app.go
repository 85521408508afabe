package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/trackmyrvu/rvutracker/internal/adapters/cache"
	"github.com/trackmyrvu/rvutracker/internal/application/services"
	"github.com/trackmyrvu/rvutracker/internal/domain/providers"
	"github.com/trackmyrvu/rvutracker/internal/infrastructure/clients/redis"
	"github.com/trackmyrvu/rvutracker/internal/infrastructure/clients/trackmyrvu"
	"github.com/trackmyrvu/rvutracker/internal/infrastructure/observability"
	"github.com/trackmyrvu/rvutracker/pkg/config"
)

// app holds the wired services shared by every command.
type app struct {
	cfg     *config.Config
	clock   providers.Clock
	metrics *observability.Metrics

	catalog   *services.CatalogService
	store     *services.CacheStore
	analytics *services.AnalyticsService

	// nil when RVU_API_TOKEN is not set
	visits    *services.VisitService
	favorites *services.FavoriteService

	closers []func(context.Context) error
}

func newApp(ctx context.Context, opts *rootOptions, defaultLevel string) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)
	level := opts.logLevel
	if level == "" {
		level = defaultLevel
	}
	observability.SetLevel(level)

	a := &app{cfg: cfg, clock: providers.SystemClock}

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			a.closers = append(a.closers, shutdown)
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	a.metrics, err = observability.InitMetrics()
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("initialize metrics: %w", err)
	}

	provider, err := a.newCacheProvider(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.store = services.NewCacheStore(provider, cfg.Cache.Namespace, cfg.Cache.SchemaVersion,
		services.WithCacheClock(a.clock),
		services.WithCacheMetrics(a.metrics),
	)

	a.catalog = services.NewCatalogServiceFromFile(cfg.Catalog.Path,
		services.WithCatalogMetrics(a.metrics),
	)
	a.analytics = services.NewAnalyticsService(a.clock, cfg.Analytics.WeekStart)

	if cfg.API.Token != "" {
		client := trackmyrvu.NewClient(cfg.API.BaseURL, providers.StaticToken(cfg.API.Token),
			trackmyrvu.WithTimeout(cfg.API.Timeout),
			trackmyrvu.WithMetrics(a.metrics),
		)
		a.visits = services.NewVisitService(client.Visits(), a.catalog, a.store, a.clock)
		a.visits.SetFreshnessWindow(cfg.Cache.VisitsMaxAge)
		a.favorites = services.NewFavoriteService(client.Favorites(), a.catalog, a.store)
	} else {
		log.Debug().Msg("RVU_API_TOKEN not set, backend commands disabled")
	}

	return a, nil
}

func (a *app) newCacheProvider(ctx context.Context) (providers.CacheProvider, error) {
	switch a.cfg.Cache.Backend {
	case config.CacheBackendRedis:
		client, err := redis.NewClient(ctx, &a.cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return client.Close() })
		log.Debug().Str("addr", a.cfg.Redis.RedisAddr()).Msg("Using Redis cache")
		return cache.NewRedisAdapter(client), nil
	case config.CacheBackendMemory:
		return cache.NewMemoryAdapter(a.clock), nil
	default:
		adapter, err := cache.NewFileAdapter(a.cfg.Cache.Dir, a.clock)
		if err != nil {
			return nil, fmt.Errorf("open cache directory: %w", err)
		}
		return adapter, nil
	}
}

// requireBackend reports a usable error when no token is configured.
func (a *app) requireBackend() error {
	if a.visits == nil {
		return fmt.Errorf("RVU_API_TOKEN is not set")
	}
	return nil
}

// Close releases clients in reverse order of creation.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			log.Error().Err(err).Msg("Error during shutdown")
		}
	}
	a.closers = nil
}
