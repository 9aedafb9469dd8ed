package main

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/rs/zerolog"

	"github.com/zatekoja/facilitycollector/internal/adapters/cache"
	"github.com/zatekoja/facilitycollector/internal/adapters/database"
	"github.com/zatekoja/facilitycollector/internal/adapters/events"
	"github.com/zatekoja/facilitycollector/internal/adapters/locks"
	"github.com/zatekoja/facilitycollector/internal/adapters/sources"
	"github.com/zatekoja/facilitycollector/internal/application/collector"
	"github.com/zatekoja/facilitycollector/internal/application/overlay"
	"github.com/zatekoja/facilitycollector/internal/application/services"
	"github.com/zatekoja/facilitycollector/internal/domain/catalog"
	"github.com/zatekoja/facilitycollector/internal/domain/providers"
	"github.com/zatekoja/facilitycollector/internal/infrastructure/clients/blob"
	"github.com/zatekoja/facilitycollector/internal/infrastructure/clients/feeds"
	"github.com/zatekoja/facilitycollector/internal/infrastructure/clients/postgres"
	"github.com/zatekoja/facilitycollector/internal/infrastructure/clients/redis"
	"github.com/zatekoja/facilitycollector/internal/infrastructure/clients/sqlite"
	"github.com/zatekoja/facilitycollector/internal/infrastructure/observability"
	"github.com/zatekoja/facilitycollector/pkg/config"
	"github.com/zatekoja/facilitycollector/pkg/secrets"
)

const snapshotCachePrefix = "facilitycollector:"

// app is the fully wired process. close releases everything it opened, in
// reverse order.
type app struct {
	cfg         *config.Config
	logger      zerolog.Logger
	coordinator *services.ReloadCoordinator
	service     *services.FacilityService

	closers []func() error
}

func (a *app) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn().Err(err).Msg("error during shutdown")
		}
	}
}

// loadConfig exports Vault secrets into the environment, when enabled, and
// then reads the configuration
func loadConfig(ctx context.Context) (*config.Config, error) {
	if _, err := secrets.ApplyVault(ctx, secrets.VaultConfigFromEnv(), observability.Component("secrets")); err != nil {
		return nil, err
	}
	return config.Load()
}

// newApp wires configuration, clients, adapters and services
func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	observability.InitLogger(cfg.App.ServiceName, cfg.App.Env, cfg.App.LogLevel)
	a := &app{cfg: cfg, logger: *observability.GetLogger()}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			a.logger.Warn().Err(err).Msg("failed to set up OpenTelemetry; continuing without export")
		} else {
			a.onClose(func() error {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return shutdown(ctx)
			})
			a.logger.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}
	metrics, err := observability.InitMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	specs, err := config.LoadSources(cfg.SourcesFile)
	if err != nil {
		return nil, err
	}

	pg, err := postgres.NewClient(ctx, &cfg.Database, observability.Component("postgres"))
	if err != nil {
		return nil, err
	}
	a.onClose(pg.Close)

	repo, err := newOverlayRepository(ctx, a, pg)
	if err != nil {
		return nil, err
	}

	var blobs providers.BlobStore
	switch cfg.Blob.Driver {
	case "s3":
		if blobs, err = blob.NewS3Store(ctx, cfg.Blob); err != nil {
			return nil, err
		}
	default:
		blobs = blob.NewFSStore(cfg.Blob.Root)
	}

	set := sources.NewSet(sources.Deps{
		Registry:              goqu.New(database.DialectPostgres, pg.DB()),
		Feeds:                 feeds.NewClient(cfg.Feeds.ATCBaseURL, cfg.Feeds.RequestTimeout, observability.Component("feeds")),
		Blob:                  blobs,
		NationalCemeteriesURL: cfg.Feeds.NationalCemeteriesURL,
		StateCemeteriesURL:    cfg.Feeds.StateCemeteriesURL,
	}, specs, observability.Component("sources"))

	cat := catalog.Default()
	store := overlay.NewStore(repo, cat, observability.Component("overlay"))

	coordCfg := services.CoordinatorConfig{
		Adapters:  set.Adapters(),
		Collector: collector.FromSources(set, cat, observability.Component("collector")),
		WaitTimes: set.WaitTimes,
		Store:     store,
		Engine:    overlay.NewEngine(cat, observability.Component("merge")),
		LockTTL:   cfg.Reload.LockTTL,
		Metrics:   metrics,
		Logger:    observability.Component("reload"),
	}

	if cfg.Redis.Enabled {
		rc, err := redis.NewClient(ctx, &cfg.Redis, observability.Component("redis"))
		if err != nil {
			a.logger.Warn().Err(err).Msg("failed to connect to Redis; continuing without it")
		} else {
			a.onClose(rc.Close)
			bus := events.NewRedisEventBus(rc, observability.Component("events"))
			a.onClose(bus.Close)

			coordCfg.Cache = services.NewSnapshotCache(cache.NewRedisAdapter(rc, snapshotCachePrefix), cfg.Reload.SnapshotTTL)
			coordCfg.Events = bus
			coordCfg.Lock = locks.NewRedisLock(rc)
			a.logger.Info().Str("addr", cfg.Redis.RedisAddr()).Msg("Redis enabled for snapshot cache, events and reload lock")
		}
	}
	if coordCfg.Events == nil {
		bus := events.NewMemoryEventBus()
		a.onClose(bus.Close)
		coordCfg.Events = bus
	}

	a.coordinator = services.NewReloadCoordinator(coordCfg)
	a.service = services.NewFacilityService(a.coordinator, store, cat, observability.Component("facilities"))
	return a, nil
}

func newOverlayRepository(ctx context.Context, a *app, pg *postgres.Client) (*database.OverlayAdapter, error) {
	var (
		repo *database.OverlayAdapter
		err  error
	)
	switch a.cfg.OverlayStore.Driver {
	case "sqlite":
		client, err := sqlite.NewClient(ctx, a.cfg.OverlayStore.SQLitePath, observability.Component("sqlite"))
		if err != nil {
			return nil, err
		}
		a.onClose(client.Close)
		repo, err = database.NewOverlayAdapter(client.DB(), database.DialectSQLite)
		if err != nil {
			return nil, err
		}
	default:
		if repo, err = database.NewOverlayAdapter(pg.DB(), database.DialectPostgres); err != nil {
			return nil, err
		}
	}
	if err := repo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare overlay table: %w", err)
	}
	return repo, nil
}
