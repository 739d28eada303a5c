package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/Veraticus/rd-classifier/internal/common"
	"github.com/Veraticus/rd-classifier/internal/model"
	"github.com/lib/pq"
)

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS app1_configs (
		key TEXT PRIMARY KEY,
		value JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS classification_runs (
		id BIGSERIAL PRIMARY KEY,
		source TEXT NOT NULL,
		mode TEXT NOT NULL,
		profile_id TEXT NOT NULL DEFAULT '',
		total_rows INTEGER NOT NULL DEFAULT 0,
		summary JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_classification_runs_created ON classification_runs(created_at)`,
}

// PostgresStore implements service.Storage on a shared PostgreSQL database.
type PostgresStore struct {
	db    *sql.DB
	retry common.RetryOptions
}

// NewPostgresStore opens a PostgreSQL store for dsn.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	if err := validateString(dsn, "dsn"); err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", classifyPQError(err))
	}

	return NewPostgresStoreFromDB(db), nil
}

// NewPostgresStoreFromDB wraps an open database handle.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db: db,
		retry: common.RemoteRetryOptions(),
	}
}

// Close closes the database connection.
func (p *PostgresStore) Close() error {
	return p.db.Close()
}

// classifyPQError marks connection-class failures as retryable.
func classifyPQError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57":
			return fmt.Errorf("%w: %s", common.ErrRemoteUnavailable, pqErr.Message)
		}
		return common.Permanent(err)
	}
	return err
}

// Migrate creates the schema if it does not exist.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	for _, query := range postgresSchema {
		if _, err := tx.ExecContext(ctx, query); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to apply schema: %w", classifyPQError(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema: %w", err)
	}

	slog.Info("PostgreSQL schema ready", "statements", len(postgresSchema))
	return nil
}

// GetConfigs returns every stored config keyed by name.
func (p *PostgresStore) GetConfigs(ctx context.Context) (map[string]json.RawMessage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var configs map[string]json.RawMessage
	err := common.WithRetry(ctx, func() error {
		rows, err := p.db.QueryContext(ctx, `SELECT key, value FROM app1_configs ORDER BY key`)
		if err != nil {
			return classifyPQError(err)
		}
		defer func() { _ = rows.Close() }()

		configs = make(map[string]json.RawMessage)
		for rows.Next() {
			var key string
			var value []byte
			if err := rows.Scan(&key, &value); err != nil {
				return common.Permanent(fmt.Errorf("failed to scan config: %w", err))
			}
			configs[key] = json.RawMessage(value)
		}
		return rows.Err()
	}, p.retry)
	if err != nil {
		return nil, fmt.Errorf("failed to query configs: %w", err)
	}

	return configs, nil
}

// GetConfig returns a single config value, or common.ErrNotFound.
func (p *PostgresStore) GetConfig(ctx context.Context, key string) (json.RawMessage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}

	var value []byte
	err := p.db.QueryRowContext(ctx, `SELECT value FROM app1_configs WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("config %q: %w", key, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get config %q: %w", key, classifyPQError(err))
	}

	return json.RawMessage(value), nil
}

// SaveConfig upserts a config value.
func (p *PostgresStore) SaveConfig(ctx context.Context, key string, value any) error {
	return p.SaveConfigs(ctx, map[string]any{key: value})
}

// SaveConfigs upserts several config values in one transaction, in key order.
func (p *PostgresStore) SaveConfigs(ctx context.Context, values map[string]any) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	keys := slices.Sorted(maps.Keys(values))
	encoded := make([][]byte, len(keys))
	for i, key := range keys {
		data, err := encodeValue(key, values[key])
		if err != nil {
			return err
		}
		encoded[i] = data
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", classifyPQError(err))
	}

	for i, key := range keys {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO app1_configs (key, value, updated_at) VALUES ($1, $2, NOW())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		`, key, encoded[i])
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to save config %q: %w", key, classifyPQError(err))
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit configs: %w", err)
	}
	return nil
}

// DeleteConfig removes a config key, or returns common.ErrNotFound.
func (p *PostgresStore) DeleteConfig(ctx context.Context, key string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}

	result, err := p.db.ExecContext(ctx, `DELETE FROM app1_configs WHERE key = $1`, key)
	if err != nil {
		return fmt.Errorf("failed to delete config %q: %w", key, classifyPQError(err))
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("config %q: %w", key, common.ErrNotFound)
	}
	return nil
}

// RecordRun stores a run history entry and fills in its ID and timestamp.
func (p *PostgresStore) RecordRun(ctx context.Context, run *model.RunRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRunRecord(run); err != nil {
		return err
	}

	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("failed to encode run summary: %w", err)
	}

	err = p.db.QueryRowContext(ctx, `
		INSERT INTO classification_runs (source, mode, profile_id, total_rows, summary)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, run.Source, string(run.Mode), run.ProfileID, run.Summary.TotalRows, summary).Scan(&run.ID, &run.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", classifyPQError(err))
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (p *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT id, source, mode, profile_id, summary, created_at
		FROM classification_runs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", classifyPQError(err))
	}
	defer func() { _ = rows.Close() }()

	return scanRuns(rows)
}
