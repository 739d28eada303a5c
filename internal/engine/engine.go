// Package engine implements the rule-based classification pipeline for RD sheets.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/rd-classifier/internal/common"
	"github.com/Veraticus/rd-classifier/internal/model"
	"github.com/Veraticus/rd-classifier/internal/pattern"
)

// ClassificationEngine runs one classification over a row source.
type ClassificationEngine struct {
	progress      ProgressFunc
	auxColumns    []AuxColumn
	progressEvery int
}

// Config holds configuration options for the classification engine.
type Config struct {
	Progress      ProgressFunc
	AuxColumns    []AuxColumn
	ProgressEvery int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		ProgressEvery: 500,
		AuxColumns:    DefaultAuxColumns,
	}
}

// New creates a classification engine with the default configuration.
func New() *ClassificationEngine {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a classification engine with custom configuration.
func NewWithConfig(config Config) *ClassificationEngine {
	if config.ProgressEvery <= 0 {
		config.ProgressEvery = DefaultConfig().ProgressEvery
	}
	if len(config.AuxColumns) == 0 {
		config.AuxColumns = DefaultAuxColumns
	}
	return &ClassificationEngine{
		progress:      config.Progress,
		auxColumns:    config.AuxColumns,
		progressEvery: config.ProgressEvery,
	}
}

// Run reads source, checks its layout against mode, classifies every kept
// record with rules and summarizes the result. On failure no result is returned.
func (e *ClassificationEngine) Run(ctx context.Context, source RowSource, mode model.Mode, rules []model.Rule) (*model.Result, error) {
	schema, err := model.SchemaFor(mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	slog.Info("Starting classification", "source", source.Name(), "mode", mode, "rules", len(rules))

	raw, err := source.ReadRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", common.ErrUnreadableSource, source.Name(), err)
	}

	if err := ValidateShape(raw, schema); err != nil {
		return nil, common.NewUserError(
			fmt.Sprintf("%s does not look like an %s sheet, verify the selected mode", source.Name(), mode), err)
	}

	ordered := pattern.NewMatcher(rules).Rules()
	agg := NewAggregator(e.auxColumns...)
	rows := make([]model.Row, 0, len(raw))

	for i, record := range raw {
		if i%e.progressEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if e.progress != nil && i > 0 {
				e.progress(i, len(raw))
			}
		}

		if !keep(record, schema) {
			continue
		}
		row := MapRecord(record, schema, agg)
		ClassifyRow(&row, ordered)
		rows = append(rows, row)
	}
	if e.progress != nil {
		e.progress(len(raw), len(raw))
	}

	result := &model.Result{
		Mode:    mode,
		Source:  source.Name(),
		Rows:    rows,
		Summary: agg.Summarize(rows),
	}

	slog.Info("Classification complete",
		"source", source.Name(),
		"total_rows", result.Summary.TotalRows,
		"groups", len(result.Summary.Groups))

	return result, nil
}

// ValidateShape reports ErrShapeMismatch when the kept records are wider than
// the schema allows, never reach its minimum width, or mostly carry another
// layout's markers. A sheet with no kept records is accepted.
func ValidateShape(raw [][]model.Cell, schema model.Schema) error {
	widest, kept := 0, 0
	for _, record := range raw {
		if keep(record, schema) {
			kept++
			widest = max(widest, len(record))
		}
	}
	if kept == 0 {
		return nil
	}

	if widest > schema.MaxWidth() {
		return fmt.Errorf("%w: records span %d columns, %s allows at most %d",
			common.ErrShapeMismatch, widest, schema.Mode, schema.MaxWidth())
	}
	if widest < schema.MinWidth {
		return fmt.Errorf("%w: records span %d columns, %s needs at least %d",
			common.ErrShapeMismatch, widest, schema.Mode, schema.MinWidth)
	}

	for _, mode := range model.Modes() {
		if mode == schema.Mode {
			continue
		}
		other, err := model.SchemaFor(mode)
		if err != nil {
			return err
		}
		if own, foreign := markerVotes(raw, schema, other); foreign > own && 2*foreign >= kept {
			return fmt.Errorf("%w: %d of %d records carry %s columns",
				common.ErrShapeMismatch, foreign, kept, mode)
		}
	}
	return nil
}

// markerVotes counts the kept records that look more like schema and the
// ones that look more like other.
func markerVotes(raw [][]model.Cell, schema, other model.Schema) (own, foreign int) {
	for _, record := range raw {
		if !keep(record, schema) {
			continue
		}
		switch a, b := schema.MarkerHits(record), other.MarkerHits(record); {
		case a > b:
			own++
		case b > a:
			foreign++
		}
	}
	return own, foreign
}
