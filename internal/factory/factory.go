package factory

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mcoot/shapesync/internal/api"
	"github.com/mcoot/shapesync/internal/config"
	"github.com/mcoot/shapesync/internal/dependencies/clock"
	"github.com/mcoot/shapesync/internal/outbox"
	"github.com/mcoot/shapesync/internal/server"
	"github.com/mcoot/shapesync/internal/services/registry"
	"github.com/mcoot/shapesync/internal/sse"
	"github.com/mcoot/shapesync/internal/storage"
	"github.com/mcoot/shapesync/internal/storage/filestore"
	"github.com/mcoot/shapesync/internal/storage/memory"
	redisstorage "github.com/mcoot/shapesync/internal/storage/redis"
	"github.com/mcoot/shapesync/internal/storage/sqlstore"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock clock.Clock

	// Services
	Registry   *registry.Registry
	Dispatcher *server.Dispatcher
	Hub        *sse.Hub

	logger *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// Server is the loaded server configuration. Its zero value selects
	// in-memory storage.
	Server config.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := OpenStorage(cfg.Server.Storage)
	if err != nil {
		return nil, err
	}
	logger.Info("storage opened", slog.String("type", storageType(cfg.Server.Storage)))

	return newWithDependencies(store, clock.New(), server.Config{PlayerLimit: cfg.Server.PlayerLimit}, logger), nil
}

// OpenStorage opens the configured backend
func OpenStorage(cfg config.Storage) (storage.Storage, error) {
	switch storageType(cfg) {
	case config.StorageMemory:
		return memory.New(), nil
	case config.StorageFile:
		return filestore.Open(cfg.File)
	case config.StorageSQLite:
		return sqlstore.OpenSQLite(cfg.SQLite)
	case config.StoragePostgres:
		return sqlstore.OpenPostgres(cfg.Postgres)
	case config.StorageRedis:
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.Redis.URL
		if cfg.Redis.PoolSize > 0 {
			redisCfg.PoolSize = cfg.Redis.PoolSize
		}
		if cfg.Redis.MinIdleConns > 0 {
			redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		}
		return redisstorage.New(redisCfg)
	default:
		return nil, fmt.Errorf("invalid storage type %q", cfg.Type)
	}
}

func storageType(cfg config.Storage) string {
	if cfg.Type == "" {
		return config.StorageMemory
	}
	return cfg.Type
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, dispatcherCfg server.Config, logger *slog.Logger) *App {
	hub := sse.NewHub(logger)
	feed := sse.NewFeed(hub, logger)
	dispatcher := server.New(nil, dispatcherCfg, logger)
	reg := registry.New(store, outbox.Multi{dispatcher, feed}, clk, logger)
	dispatcher.SetRegistry(reg)

	return &App{
		Storage:    store,
		Clock:      clk,
		Registry:   reg,
		Dispatcher: dispatcher,
		Hub:        hub,
		logger:     logger,
	}
}

// Start loads persisted players and starts the registry and spectator hub.
// Both stop when ctx is cancelled.
func (a *App) Start(ctx context.Context) error {
	if err := a.Registry.Load(ctx); err != nil {
		return err
	}
	go a.Registry.Run(ctx)
	go a.Hub.Run()
	context.AfterFunc(ctx, a.Hub.Close)
	return nil
}

// Router builds the status API
func (a *App) Router() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:      a.logger,
		Players:     a.Registry,
		Hub:         a.Hub,
		Connections: a.Dispatcher.ConnCount,
	})
}

// Close releases storage
func (a *App) Close() error {
	a.Hub.Close()
	return a.Storage.Close()
}
