package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Veraticus/rd-classifier/internal/common"
)

// encodeValue marshals a config value. Raw JSON passes through after validation.
func encodeValue(key string, value any) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if err := validateValue(value); err != nil {
		return nil, err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config %q: %w", key, err)
	}
	return data, nil
}

// GetConfigs returns every stored config keyed by name.
func (s *SQLiteStorage) GetConfigs(ctx context.Context) (map[string]json.RawMessage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM app1_configs ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to query configs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	configs := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan config: %w", err)
		}
		configs[key] = json.RawMessage(value)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating configs: %w", err)
	}

	return configs, nil
}

// GetConfig returns a single config value, or common.ErrNotFound.
func (s *SQLiteStorage) GetConfig(ctx context.Context, key string) (json.RawMessage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM app1_configs WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("config %q: %w", key, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get config %q: %w", key, err)
	}

	return json.RawMessage(value), nil
}

// SaveConfig upserts a config value.
func (s *SQLiteStorage) SaveConfig(ctx context.Context, key string, value any) error {
	return s.SaveConfigs(ctx, map[string]any{key: value})
}

// SaveConfigs upserts several config values in one transaction.
func (s *SQLiteStorage) SaveConfigs(ctx context.Context, values map[string]any) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	encoded := make(map[string][]byte, len(values))
	for key, value := range values {
		data, err := encodeValue(key, value)
		if err != nil {
			return err
		}
		encoded[key] = data
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO app1_configs (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for key, data := range encoded {
			if _, err := stmt.ExecContext(ctx, key, string(data)); err != nil {
				return fmt.Errorf("failed to save config %q: %w", key, err)
			}
		}
		return nil
	})
}

// DeleteConfig removes a config key, or returns common.ErrNotFound.
func (s *SQLiteStorage) DeleteConfig(ctx context.Context, key string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM app1_configs WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete config %q: %w", key, err)
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
