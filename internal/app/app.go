// Package app builds the object graph for one process: database, key-value
// store, storage backend, repositories and services. The platform choice
// in config is resolved here once and never revisited.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/meditrack/internal/common"
	"github.com/dmitrijs2005/meditrack/internal/config"
	"github.com/dmitrijs2005/meditrack/internal/dbx"
	"github.com/dmitrijs2005/meditrack/internal/kv"
	"github.com/dmitrijs2005/meditrack/internal/logging"
	"github.com/dmitrijs2005/meditrack/internal/migrations"
	"github.com/dmitrijs2005/meditrack/internal/repositories/medications"
	"github.com/dmitrijs2005/meditrack/internal/repositories/users"
	"github.com/dmitrijs2005/meditrack/internal/schema"
	"github.com/dmitrijs2005/meditrack/internal/services"
	"github.com/dmitrijs2005/meditrack/internal/storage"
)

const redisKeyPrefix = "meditrack:"

type App struct {
	Config      *config.Config
	Logger      logging.Logger
	Medications *services.MedicationService
	Users       *services.UserService

	closers []func() error
}

// New opens every resource cfg asks for. On error, anything already opened
// is closed again.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (_ *App, err error) {
	a := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	var (
		db      *sql.DB
		dialect dbx.Dialect
	)
	if cfg.Platform == config.PlatformNative || cfg.KVDriver == config.KVSQLite {
		db, dialect, err = dbx.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w: %w", common.ErrBackendUnavailable, err)
		}
		a.closers = append(a.closers, db.Close)

		if err = migrations.Up(ctx, db, dialect); err != nil {
			return nil, fmt.Errorf("db migration error: %w", err)
		}
		logger.Debug(ctx, "database ready", "dialect", dialect.Name)
	}

	store, err := a.openStore(ctx, cfg, db, dialect)
	if err != nil {
		return nil, err
	}

	var (
		backend  storage.Backend
		userRepo users.Repository
	)
	switch cfg.Platform {
	case config.PlatformNative:
		backend = storage.NewSQLBackend(db, dialect, schema.NewManager(db, dialect, logger))
		userRepo = users.NewSQLRepository(db, dialect)
	case config.PlatformWeb:
		backend = storage.NewBlobBackend(store, logger)
		userRepo = users.NewBlobRepository(store)
	default:
		return nil, fmt.Errorf("unknown platform %q", cfg.Platform)
	}
	logger.Info(ctx, "storage selected", "platform", cfg.Platform, "backend", string(backend.Kind()), "kv", cfg.KVDriver)

	a.Medications = services.NewMedicationService(medications.NewRepository(backend, logger), store, logger)
	a.Users = services.NewUserService(userRepo, cfg, logger)
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config, db *sql.DB, d dbx.Dialect) (kv.Store, error) {
	switch cfg.KVDriver {
	case config.KVSQLite:
		return kv.NewSQLStore(db, d), nil
	case config.KVMemory:
		return kv.NewMemoryStore(), nil
	case config.KVRedis:
		client := kv.NewRedisClient(kv.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		a.closers = append(a.closers, client.Close)

		rs := kv.NewRedisStore(client, redisKeyPrefix)
		if err := rs.Ping(ctx); err != nil {
			return nil, fmt.Errorf("redis %s: %w: %w", cfg.RedisAddr, common.ErrBackendUnavailable, err)
		}
		return rs, nil
	default:
		return nil, fmt.Errorf("unknown kv driver %q", cfg.KVDriver)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
