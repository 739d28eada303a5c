// Package xlsx reads RD sheets from and writes classification reports to Excel workbooks.
package xlsx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Veraticus/rd-classifier/internal/model"
	"github.com/xuri/excelize/v2"
)

// checkEvery is how many sheet rows are read between context checks.
const checkEvery = 1000

// Reader reads the first sheet of a workbook as raw positional records.
type Reader struct {
	src        io.Reader
	name       string
	path       string
	headerRows int
}

// NewReader returns a Reader for the workbook at path that skips headerRows
// leading rows.
func NewReader(path string, headerRows int) *Reader {
	return &Reader{path: path, name: path, headerRows: headerRows}
}

// NewStreamReader returns a Reader over an already open workbook stream.
// name is used for reporting only.
func NewStreamReader(name string, src io.Reader, headerRows int) *Reader {
	return &Reader{src: src, name: name, headerRows: headerRows}
}

// Name identifies the workbook.
func (r *Reader) Name() string {
	return r.name
}

func (r *Reader) open() (*excelize.File, error) {
	if r.src != nil {
		return excelize.OpenReader(r.src)
	}
	return excelize.OpenFile(r.path)
}

// ReadRows returns every record after the header rows. Cells stored as
// numbers become numeric cells; everything else is text.
func (r *Reader) ReadRows(ctx context.Context) ([][]model.Cell, error) {
	f, err := r.open()
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", r.name, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			slog.Warn("Failed to close workbook", "workbook", r.name, "error", cerr)
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", r.name)
	}
	sheet := sheets[0]

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records [][]model.Cell
	rowNum := 0
	for rows.Next() {
		rowNum++
		if rowNum%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if rowNum <= r.headerRows {
			continue
		}

		values, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d of %q: %w", rowNum, sheet, err)
		}

		record := make([]model.Cell, len(values))
		for col, v := range values {
			record[col] = r.cell(f, sheet, col+1, rowNum, v)
		}
		records = append(records, record)
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("failed to iterate sheet %q: %w", sheet, err)
	}

	slog.Debug("Read workbook", "workbook", r.name, "sheet", sheet, "records", len(records))
	return records, nil
}

// cell converts one raw value, using the stored cell type to decide whether
// it is numeric.
func (r *Reader) cell(f *excelize.File, sheet string, col, row int, raw string) model.Cell {
	if raw == "" {
		return model.Cell{}
	}

	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return model.TextCell(raw)
	}
	typ, err := f.GetCellType(sheet, name)
	if err != nil {
		return model.TextCell(raw)
	}

	switch typ {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeBool, excelize.CellTypeError:
		return model.TextCell(raw)
	}
	if n, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
		return model.NumberCell(n)
	}
	return model.TextCell(raw)
}
