package xlsx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Veraticus/rd-classifier/internal/engine"
	"github.com/Veraticus/rd-classifier/internal/model"
	"github.com/xuri/excelize/v2"
)

// DataSheet is the name of the sheet holding the classified rows.
const DataSheet = "Processed_Data"

// OutputName returns the report file name for a classified source workbook.
func OutputName(source string, mode model.Mode) string {
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("Processed_%s_%s.xlsx", mode, base)
}

// Writer saves classification results as workbooks.
type Writer struct {
	path string
}

// NewWriter returns a Writer that saves to path.
func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

// Path is where the workbook is saved.
func (w *Writer) Path() string {
	return w.path
}

// Write builds the report workbook and saves it, replacing any existing file.
func (w *Writer) Write(ctx context.Context, result *model.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if dir := filepath.Dir(w.path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(w.path), ".rdc-*.xlsx")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()

	if err := WriteTo(tmp, result); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, w.path); err != nil {
		return fmt.Errorf("failed to move report into place: %w", err)
	}

	slog.Info("Wrote report", "path", w.path, "rows", len(result.Rows))
	return nil
}

// WriteTo encodes the report workbook for result to out.
func WriteTo(out io.Writer, result *model.Result) error {
	f, err := Build(result)
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("failed to encode workbook: %w", err)
	}
	return nil
}

// Build creates the report workbook: the classified rows on DataSheet with
// sentinels rendered, then one sheet per auxiliary column listing its
// distinct values.
func Build(result *model.Result) (*excelize.File, error) {
	if result == nil {
		return nil, fmt.Errorf("nil result")
	}
	schema, err := model.SchemaFor(result.Mode)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), DataSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to name data sheet: %w", err)
	}
	if err := writeData(f, schema, result.Rows); err != nil {
		_ = f.Close()
		return nil, err
	}

	for _, name := range auxSheetOrder(result.Summary.UniqueValues) {
		if err := writeUnique(f, name, result.Summary.UniqueValues[name]); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return f, nil
}

// auxSheetOrder lists the default auxiliary columns first, then any others by name.
func auxSheetOrder(values map[string]model.UniqueSet) []string {
	var order []string
	seen := make(map[string]bool)
	for _, col := range engine.DefaultAuxColumns {
		if _, ok := values[col.Name]; ok {
			order = append(order, col.Name)
			seen[col.Name] = true
		}
	}
	for _, name := range slices.Sorted(maps.Keys(values)) {
		if !seen[name] {
			order = append(order, name)
		}
	}
	return order
}

func writeData(f *excelize.File, schema model.Schema, rows []model.Row) error {
	sw, err := f.NewStreamWriter(DataSheet)
	if err != nil {
		return fmt.Errorf("failed to open data sheet: %w", err)
	}

	cols := schema.OutputColumns()
	header := make([]any, len(cols))
	for i, c := range cols {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range rows {
		values := make([]any, len(cols))
		for j, c := range cols {
			values[j] = cellValue(schema.Render(row, c))
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(axis, values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	return sw.Flush()
}

func writeUnique(f *excelize.File, name string, set model.UniqueSet) error {
	if _, err := f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %q: %w", name, err)
	}
	sw, err := f.NewStreamWriter(name)
	if err != nil {
		return fmt.Errorf("failed to open sheet %q: %w", name, err)
	}
	if err := sw.SetRow("A1", []any{name}); err != nil {
		return err
	}
	for i, c := range set.Cells() {
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(axis, []any{cellValue(c)}); err != nil {
			return fmt.Errorf("failed to write %q value: %w", name, err)
		}
	}
	return sw.Flush()
}

func cellValue(c model.Cell) any {
	switch c.Kind {
	case model.CellNumber:
		return c.Number
	case model.CellText:
		return c.Text
	default:
		return nil
	}
}
