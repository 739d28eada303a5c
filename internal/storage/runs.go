package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Veraticus/rd-classifier/internal/model"
)

// RecordRun stores a run history entry and fills in its ID and timestamp.
func (s *SQLiteStorage) RecordRun(ctx context.Context, run *model.RunRecord) error {
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

	createdAt := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO classification_runs (source, mode, profile_id, total_rows, summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.Source, string(run.Mode), run.ProfileID, run.Summary.TotalRows, string(summary), createdAt)
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get run ID: %w", err)
	}

	run.ID = id
	run.CreatedAt = createdAt
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, mode, profile_id, summary, created_at
		FROM classification_runs
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanRuns(rows)
}

func scanRuns(rows *sql.Rows) ([]model.RunRecord, error) {
	var runs []model.RunRecord
	for rows.Next() {
		var run model.RunRecord
		var mode, summary string
		if err := rows.Scan(&run.ID, &run.Source, &mode, &run.ProfileID, &summary, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.Mode = model.Mode(mode)
		if err := json.Unmarshal([]byte(summary), &run.Summary); err != nil {
			return nil, fmt.Errorf("failed to decode summary of run %d: %w", run.ID, err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}
	return runs, nil
}
