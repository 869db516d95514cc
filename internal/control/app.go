// Package control wires the explorer components together and manages their lifecycle.
package control

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vietddude/explorer/internal/api"
	"github.com/vietddude/explorer/internal/core/config"
	"github.com/vietddude/explorer/internal/health"
	redisclient "github.com/vietddude/explorer/internal/infra/redis"
	"github.com/vietddude/explorer/internal/infra/storage"
	"github.com/vietddude/explorer/internal/infra/storage/memory"
	"github.com/vietddude/explorer/internal/infra/storage/postgres"
	"github.com/vietddude/explorer/internal/query"
)

// App owns the store, the optional cache, the query service and the HTTP server.
type App struct {
	cfg     *config.AppConfig
	store   storage.EventStore
	db      *postgres.DB
	redis   *redisclient.Client
	svc     *query.Service
	handler http.Handler
	server  *api.Server
	log     *slog.Logger
}

// NewApp connects to the configured backends. An empty database URL selects the in-memory
// store. A cache that cannot be reached is logged and skipped.
func NewApp(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	a := &App{cfg: cfg, log: slog.Default()}

	if cfg.Database.URL != "" {
		db, err := postgres.NewDB(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if cfg.Database.AutoMigrate {
			if err := db.Migrate(ctx); err != nil {
				_ = db.Close()
				return nil, err
			}
			a.log.Info("Database migrated")
		}
		a.db = db
		a.store = postgres.NewStore(db)
		a.log.Info("Using PostgreSQL storage", "driver", cfg.Database.Driver)
	} else {
		a.store = memory.NewMemoryStorage()
		a.log.Info("Using Memory storage")
	}

	var cache query.Cache
	var cachePinger health.Pinger
	if cfg.Cache.Enabled {
		client, err := redisclient.NewClient(ctx, cfg.Redis)
		if err != nil {
			a.log.Warn("Failed to connect to Redis, cache disabled", "error", err)
		} else {
			a.redis = client
			cache = client
			cachePinger = client
			a.log.Info("Result cache enabled", "ttl", cfg.Cache.TTL)
		}
	}

	a.svc = query.NewService(a.store, cache, query.Config{
		Timeout:        cfg.Query.Timeout,
		CacheTTL:       cfg.Cache.TTL,
		HeadTTL:        cfg.Query.HeadTTL,
		EstimateWindow: cfg.Query.EstimateWindow,
		Blocks:         cfg.Query.Blocks,
		Transactions:   cfg.Query.Transactions,
		Transfers:      cfg.Query.Transfers,
	}, a.log)

	monitor := health.NewMonitor(a.store, cachePinger, a.svc)
	controller := api.NewController(a.svc, health.NewHandler(monitor), cfg.Server.CORSOrigins, a.log)
	a.handler = controller.NewRouter()
	a.server = api.NewServer(a.handler, cfg.Server.Port, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)

	return a, nil
}

// Service returns the query service.
func (a *App) Service() *query.Service { return a.svc }

// Store returns the event store.
func (a *App) Store() storage.EventStore { return a.store }

// Handler returns the HTTP handler with every route registered.
func (a *App) Handler() http.Handler { return a.handler }

// Start runs the HTTP server and the pool metrics collector in the background.
func (a *App) Start(ctx context.Context) error {
	if a.db != nil {
		a.db.StartMetricsCollector(ctx)
	}

	go func() {
		if err := a.server.Start(); err != nil {
			a.log.Error("HTTP server failed", "error", err)
		}
	}()
	a.log.Info("Explorer API listening", "port", a.cfg.Server.Port)
	return nil
}

// Stop drains the HTTP server and releases the backends.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping explorer...")

	err := a.server.Stop(ctx)
	a.Close()
	return err
}

// Close releases the backends without touching the HTTP server. Commands that never start
// the server use it.
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.Warn("Failed to close database", "error", err)
		}
	}
}
