// Package testutil provides shared test fixtures for rd-classifier packages:
// migrated in-memory stores and RD workbook builders.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/rd-classifier/internal/storage"
)

// TestDB wraps a migrated in-memory SQLite store.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// TestDBOptions configures SetupTestDBWithOptions.
type TestDBOptions struct {
	// Configs are saved after migrating.
	Configs        map[string]any
	CustomSetup    func(context.Context, *storage.SQLiteStorage) error
	SkipMigrations bool
}

// SetupTestDB creates a migrated in-memory database closed on test cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	mgr := profile.NewManager(db.Storage)
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	if len(opts.Configs) > 0 {
		if err := store.SaveConfigs(ctx, opts.Configs); err != nil {
			t.Fatalf("failed to seed configs: %v", err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return &TestDB{Storage: store, t: t}
}

// MustGetConfig returns the raw JSON stored under key or fails the test.
func (db *TestDB) MustGetConfig(key string) string {
	db.t.Helper()
	raw, err := db.Storage.GetConfig(context.Background(), key)
	if err != nil {
		db.t.Fatalf("config %q: %v", key, err)
	}
	return string(raw)
}
