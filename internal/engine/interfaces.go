package engine

import (
	"context"

	"github.com/Veraticus/rd-classifier/internal/model"
)

// RowSource supplies the raw positional records of one sheet, header rows
// already removed.
type RowSource interface {
	ReadRows(ctx context.Context) ([][]model.Cell, error)
	Name() string
}

// ProgressFunc is called as rows are classified.
type ProgressFunc func(done, total int)

// StaticSource is a RowSource over records already in memory.
type StaticSource struct {
	name    string
	records [][]model.Cell
}

// NewStaticSource wraps records as a RowSource.
func NewStaticSource(name string, records [][]model.Cell) *StaticSource {
	return &StaticSource{name: name, records: records}
}

// ReadRows returns the wrapped records.
func (s *StaticSource) ReadRows(_ context.Context) ([][]model.Cell, error) {
	return s.records, nil
}

// Name returns the source name.
func (s *StaticSource) Name() string {
	return s.name
}
