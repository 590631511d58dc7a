package cmd

import (
	"context"
	"fmt"

	"asset-tracker/core/config"
	"asset-tracker/core/database"
	"asset-tracker/core/logger"
	"asset-tracker/core/reconcile"
	"asset-tracker/core/storage"
	"asset-tracker/core/store/sqlstore"
	"asset-tracker/core/tracking"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// runtime bundles the components every command builds from configuration.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	rooms  *tracking.Rooms
	db     *gorm.DB
	store  tracking.Store
}

// bootstrap loads configuration, builds the logger and opens the store.
func bootstrap(ctx context.Context) (*runtime, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	rooms, err := cfg.Rooms()
	if err != nil {
		return nil, err
	}

	logg, err := logger.New(&cfg.Log, logger.Rooms(rooms))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	store, err := sqlstore.Open(ctx, db)
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}

	logg.Info("Connected to database",
		zap.String("driver", cfg.Database.Driver),
		zap.String("database", cfg.Database.Name),
	)
	return &runtime{cfg: cfg, logger: logg, rooms: rooms, db: db, store: store}, nil
}

// engine builds the reconciliation engine over the runtime store.
func (r *runtime) engine() *reconcile.Engine {
	return reconcile.NewEngine(r.store, r.logger, reconcile.Options{
		MaxAttempts:  r.cfg.Tracking.MaxCommitAttempts,
		StoreTimeout: r.cfg.Tracking.StoreTimeout,
		Rooms:        r.rooms,
	})
}

// storageClient returns nil when the archive is disabled.
func (r *runtime) storageClient(ctx context.Context) (storage.Client, error) {
	if !r.cfg.Storage.Enabled {
		return nil, nil
	}
	client, err := storage.NewClient(r.cfg.Storage)
	if err != nil {
		return nil, err
	}
	created, err := storage.EnsureBucket(ctx, client, r.cfg.Storage.Bucket, r.cfg.Storage.Region)
	if err != nil {
		return nil, err
	}
	if created {
		r.logger.Info("Created archive bucket", zap.String("bucket", r.cfg.Storage.Bucket))
	}
	return client, nil
}

// Close closes the store and flushes the logger.
func (r *runtime) Close() {
	if err := r.store.Close(); err != nil {
		r.logger.Warn("Failed to close store", zap.Error(err))
	}
	_ = r.logger.Sync()
}
