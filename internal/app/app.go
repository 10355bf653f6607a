// Package app wires configuration into a ready-to-run orchestrator.
package app

import (
	"context"
	"fmt"

	"github.com/DavidD95/Prueba-Data-Engineering/internal/config"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/logger"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/notify"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/repository"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/runner"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/service"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/storage"
	"gorm.io/gorm"
)

// App holds the long-lived collaborators of one process.
type App struct {
	Config       *config.Config
	DB           *gorm.DB
	Storage      storage.ObjectStorage
	Warehouse    *repository.GormWarehouse
	Runs         *repository.RunRepository
	Runner       runner.Runner
	Orchestrator *service.Orchestrator
}

// Option overrides a collaborator New would otherwise build from config.
type Option func(*options)

type options struct {
	storage storage.ObjectStorage
	runner  runner.Runner
}

// WithStorage uses the given object store instead of dialing one.
func WithStorage(s storage.ObjectStorage) Option {
	return func(o *options) { o.storage = s }
}

// WithRunner uses the given transform runner instead of the configured engine.
func WithRunner(r runner.Runner) Option {
	return func(o *options) { o.runner = r }
}

// New validates cfg and builds every collaborator. Callers own Close.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if log == nil {
		log = logger.GetDefault()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	store := o.storage
	if store == nil {
		var err error
		store, err = storage.NewStorage(&storage.Config{
			Type:      storage.StorageType(cfg.Storage.Type),
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			Region:    cfg.Storage.Region,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
	}

	// A dedicated archive bucket is ours to create; the active bucket is not.
	if target := cfg.Pipeline.ArchiveTarget(); target != cfg.Pipeline.Bucket {
		if err := store.EnsureBucket(ctx, target); err != nil {
			return nil, fmt.Errorf("failed to ensure archive bucket %s: %w", target, err)
		}
	}

	db, err := repository.InitDB(&cfg.Warehouse)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize warehouse: %w", err)
	}
	warehouse := repository.NewGormWarehouse(db)
	runs := repository.NewRunRepository(db)

	transformRunner := o.runner
	if transformRunner == nil {
		transformRunner = newRunner(&cfg.Transform, warehouse)
	}

	orch := service.NewOrchestrator(store, warehouse, transformRunner, service.OptionsFromConfig(cfg), log)
	orch.SetLedger(runs)
	if cfg.Notify.WebhookURL != "" {
		orch.SetNotifier(notify.NewWebhookNotifier(cfg.Notify))
		log.WithField(logger.FieldComponent, "notify").Info("Run notifications enabled")
	}

	return &App{
		Config:       cfg,
		DB:           db,
		Storage:      store,
		Warehouse:    warehouse,
		Runs:         runs,
		Runner:       transformRunner,
		Orchestrator: orch,
	}, nil
}

func newRunner(cfg *config.TransformConfig, warehouse *repository.GormWarehouse) runner.Runner {
	if cfg.Engine == config.TransformEngineSQL {
		return runner.NewSQLRunner(warehouse)
	}
	return runner.NewExecRunner(cfg.Verbose)
}

// Ping checks the warehouse connection.
func (a *App) Ping(ctx context.Context) error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the warehouse connection pool.
func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
