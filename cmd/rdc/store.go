package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/rd-classifier/internal/api"
	"github.com/Veraticus/rd-classifier/internal/config"
	"github.com/Veraticus/rd-classifier/internal/model"
	"github.com/Veraticus/rd-classifier/internal/service"
	"github.com/Veraticus/rd-classifier/internal/storage"
	"github.com/spf13/viper"
)

// runHistory is implemented by stores that keep classification history.
type runHistory interface {
	RecordRun(ctx context.Context, run *model.RunRecord) error
	ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error)
}

// schemaVersioner is implemented by stores that report their schema version.
type schemaVersioner interface {
	SchemaVersion(ctx context.Context) (int, error)
}

// backend is the opened config store with its cleanup.
type backend struct {
	service.ConfigStore
	driver string
	close  func() error
}

func (b *backend) Close() error {
	if b.close == nil {
		return nil
	}
	return b.close()
}

// history returns the store's run history, if it keeps one.
func (b *backend) history() (runHistory, bool) {
	h, ok := b.ConfigStore.(runHistory)
	return h, ok
}

// openStore opens the store selected by store.driver. Database stores are
// migrated before use.
func openStore(ctx context.Context) (*backend, error) {
	cfg, err := config.LoadStoreConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}

	slog.Debug("Opening config store", "driver", cfg.Driver)
	switch cfg.Driver {
	case config.DriverSQLite:
		store, err := storage.NewSQLiteStorage(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		return migrated(ctx, store, cfg.Driver)

	case config.DriverPostgres:
		store, err := storage.NewPostgresStore(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		return migrated(ctx, store, cfg.Driver)

	case config.DriverFile:
		store, err := storage.NewFileStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		return &backend{ConfigStore: store, driver: cfg.Driver}, nil

	case config.DriverRemote:
		return &backend{ConfigStore: api.NewClient(cfg.URL), driver: cfg.Driver}, nil
	}

	return nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
}

func migrated(ctx context.Context, store service.Storage, driver string) (*backend, error) {
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &backend{ConfigStore: store, driver: driver, close: store.Close}, nil
}
