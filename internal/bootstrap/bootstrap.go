// Package bootstrap wires configuration into the clinic gateway, the place
// sources and the resolution services shared by the API server and clinicctl.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/clinicfinder/backend/internal/adapters/cache"
	"github.com/clinicfinder/backend/internal/adapters/database"
	"github.com/clinicfinder/backend/internal/adapters/providers/geolocation"
	"github.com/clinicfinder/backend/internal/application/services"
	"github.com/clinicfinder/backend/internal/domain/providers"
	"github.com/clinicfinder/backend/internal/domain/repositories"
	"github.com/clinicfinder/backend/internal/infrastructure/clients/postgres"
	"github.com/clinicfinder/backend/internal/infrastructure/clients/redis"
	"github.com/clinicfinder/backend/internal/infrastructure/clients/supabase"
	"github.com/clinicfinder/backend/internal/infrastructure/observability"
	"github.com/clinicfinder/backend/pkg/config"
)

// App holds the wired services
type App struct {
	Repo      repositories.ClinicRepository
	Cache     providers.CacheProvider
	Tasks     *services.TaskRunner
	Resolver  *services.PlaceResolutionService
	CacheRead *services.ClinicCacheReader
	Discovery *services.NearbyDiscoveryService

	closers []func() error
}

// Close drains background tasks and releases connections
func (a *App) Close() error {
	if a.Tasks != nil {
		a.Tasks.Close()
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// New builds the App from cfg. The returned App must be closed.
func New(ctx context.Context, cfg *config.Config, metrics *observability.Metrics) (*App, error) {
	logger := observability.GetLogger()
	app := &App{}

	repo, ids, err := app.openGateway(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.Repo = repo

	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Warn().Err(err).Msg("Redis unavailable, using in-process cache")
		app.Cache = cache.NewMemoryAdapter()
	} else {
		app.closers = append(app.closers, redisClient.Close)
		app.Cache = cache.NewRedisAdapter(redisClient.Cmdable(), cfg.OTEL.ServiceName)
		logger.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis client initialized")
	}

	primary := geolocation.NewGoogleProvider(&cfg.Places, app.Cache, metrics)
	if !primary.Enabled() {
		logger.Warn().Msg("GOOGLE_MAPS_API_KEY is not set; primary place source disabled")
	}
	secondary := geolocation.NewSecondaryProvider(&cfg.Secondary, metrics)
	if !secondary.Enabled() {
		logger.Warn().Msg("MICROSERVICE_PORT is not set; secondary place source disabled")
	}

	app.Tasks = services.NewTaskRunner(64)
	app.Resolver = services.NewPlaceResolutionService(services.PlaceResolutionDeps{
		Primary:   primary,
		Secondary: secondary,
		Repo:      repo,
		IDs:       ids,
		Tasks:     app.Tasks,
		Metrics:   metrics,
	})
	app.CacheRead = services.NewClinicCacheReader(repo)
	app.Discovery = services.NewNearbyDiscoveryService(app.Resolver, app.CacheRead, cfg.Cache.MinCachedResults, metrics)

	return app, nil
}

// openGateway selects the clinic store. A nil allocator lets the resolver
// fall back to its in-process allocator.
func (a *App) openGateway(ctx context.Context, cfg *config.Config) (repositories.ClinicRepository, repositories.PlaceIDAllocator, error) {
	logger := observability.GetLogger()

	switch cfg.Database.Driver {
	case "memory":
		logger.Warn().Msg("Using in-memory clinic store; rows are lost on restart")
		return database.NewMemoryClinicAdapter(), nil, nil

	case "supabase":
		client, err := supabase.NewClient(&cfg.Supabase)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Str("url", cfg.Supabase.URL).Msg("Supabase client initialized")
		return database.NewSupabaseClinicAdapter(client), nil, nil

	default:
		client, err := postgres.NewClient(&cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize PostgreSQL client: %w", err)
		}
		a.closers = append(a.closers, client.Close)

		if cfg.Database.AutoMigrate {
			if err := client.Migrate(ctx); err != nil {
				return nil, nil, err
			}
			logger.Info().Msg("Database migrations applied")
		}

		adapter := database.NewClinicAdapter(client)
		return adapter, adapter, nil
	}
}
