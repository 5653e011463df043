package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"

	corecfg "github.com/aevon-lab/waypoint/internal/core/config"
	"github.com/aevon-lab/waypoint/internal/core/storage"
	"github.com/aevon-lab/waypoint/internal/core/storage/badger"
	"github.com/aevon-lab/waypoint/internal/core/storage/filesystem"
	"github.com/aevon-lab/waypoint/internal/core/storage/gcs"
	"github.com/aevon-lab/waypoint/internal/core/storage/memory"
	"github.com/aevon-lab/waypoint/internal/core/storage/postgres"
	"github.com/aevon-lab/waypoint/internal/core/storage/redis"
	"github.com/aevon-lab/waypoint/internal/migrations"
	"github.com/aevon-lab/waypoint/internal/server"
)

// backends holds the opened stores and everything that must be closed on exit.
type backends struct {
	objects storage.ObjectStore
	kv      storage.KeyValueStore
	health  map[string]server.HealthChecker
	closers []func() error
}

func openBackends(ctx context.Context, cfg *corecfg.Config) (*backends, error) {
	b := &backends{health: make(map[string]server.HealthChecker)}

	var db *sql.DB
	if cfg.UsesPostgres() {
		var err error
		db, err = postgres.Open(cfg.Database.DSN, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		if cfg.LogStore.Backend != corecfg.BackendPostgres {
			// Otherwise the object adapter owns the connection pool.
			b.closers = append(b.closers, db.Close)
		}

		if err := migrations.RunMigrations(db, cfg.Database.AutoMigrate); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
	}

	if err := b.openLogStore(ctx, cfg, db); err != nil {
		b.Close()
		return nil, err
	}
	if err := b.openCache(ctx, cfg, db); err != nil {
		b.Close()
		return nil, err
	}

	slog.Info("Storage initialized",
		"log_store", cfg.LogStore.Backend,
		"cache", cfg.Cache.Backend,
	)
	return b, nil
}

func (b *backends) openLogStore(ctx context.Context, cfg *corecfg.Config, db *sql.DB) error {
	switch cfg.LogStore.Backend {
	case corecfg.BackendFilesystem:
		if err := os.MkdirAll(cfg.LogStore.Path, 0o755); err != nil {
			return fmt.Errorf("failed to create log store directory: %w", err)
		}
		fs := filesystem.NewObjectStore(cfg.LogStore.Path)
		b.objects = fs
		b.health["log_store"] = fs
	case corecfg.BackendPostgres:
		adapter, err := postgres.NewAdapter(db)
		if err != nil {
			db.Close()
			return fmt.Errorf("failed to initialize postgres log store: %w", err)
		}
		b.objects = adapter
		b.health["log_store"] = adapter
		b.closers = append(b.closers, adapter.Close)
	case corecfg.BackendGCS:
		store, err := gcs.NewObjectStore(ctx, cfg.GCS.Bucket, cfg.GCS.Endpoint)
		if err != nil {
			return fmt.Errorf("failed to initialize gcs log store: %w", err)
		}
		b.objects = store
		b.health["log_store"] = store
		b.closers = append(b.closers, store.Close)
	case corecfg.BackendMemory:
		slog.Warn("Using in-memory log store, history is lost on restart")
		b.objects = memory.New()
	default:
		return fmt.Errorf("unsupported log_store.backend %q", cfg.LogStore.Backend)
	}
	return nil
}

func (b *backends) openCache(ctx context.Context, cfg *corecfg.Config, db *sql.DB) error {
	switch cfg.Cache.Backend {
	case corecfg.BackendRedis:
		kv, err := redis.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		b.kv = kv
		b.health["cache"] = kv
		b.closers = append(b.closers, kv.Close)
	case corecfg.BackendBadger:
		kv, err := badger.Open(cfg.Badger.Path)
		if err != nil {
			return fmt.Errorf("failed to open badger: %w", err)
		}
		b.kv = kv
		b.health["cache"] = kv
		b.closers = append(b.closers, kv.Close)
	case corecfg.BackendPostgres:
		kv := postgres.NewKVAdapter(db)
		b.kv = kv
		b.health["cache"] = kv
	case corecfg.BackendMemory:
		slog.Warn("Using in-memory cache, latest locations are lost on restart")
		b.kv = memory.New()
	default:
		return fmt.Errorf("unsupported cache.backend %q", cfg.Cache.Backend)
	}
	return nil
}

// Close releases backends in reverse order of opening.
func (b *backends) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
