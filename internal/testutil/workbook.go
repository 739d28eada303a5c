package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"
)

// Record is one data row of an RD sheet, starting at the key column (PEA).
// Values are written as-is: strings as text, numbers as numbers, nil as blank.
type Record []any

// WorkbookBuilder builds RD-shaped workbooks: header rows, then records
// with a running index in column A.
type WorkbookBuilder struct {
	t          *testing.T
	sheet      string
	title      string
	records    []Record
	headerRows int
}

// NewWorkbook starts a workbook with the usual eight header rows.
func NewWorkbook(t *testing.T) *WorkbookBuilder {
	t.Helper()
	return &WorkbookBuilder{t: t, sheet: "Sheet1", title: "RD report", headerRows: 8}
}

// WithSheet names the first sheet.
func (b *WorkbookBuilder) WithSheet(name string) *WorkbookBuilder {
	b.sheet = name
	return b
}

// WithHeaderRows sets how many rows precede the data.
func (b *WorkbookBuilder) WithHeaderRows(n int) *WorkbookBuilder {
	b.headerRows = n
	return b
}

// WithRecord appends a data row.
func (b *WorkbookBuilder) WithRecord(values ...any) *WorkbookBuilder {
	b.records = append(b.records, Record(values))
	return b
}

// WithRecords appends several data rows.
func (b *WorkbookBuilder) WithRecords(records ...Record) *WorkbookBuilder {
	b.records = append(b.records, records...)
	return b
}

func (b *WorkbookBuilder) build() *excelize.File {
	b.t.Helper()

	f := excelize.NewFile()
	if err := f.SetSheetName(f.GetSheetName(0), b.sheet); err != nil {
		b.t.Fatalf("failed to name sheet: %v", err)
	}
	if b.headerRows > 0 {
		if err := f.SetCellValue(b.sheet, "A1", b.title); err != nil {
			b.t.Fatalf("failed to write title: %v", err)
		}
	}

	for i, rec := range b.records {
		row := b.headerRows + i + 1
		cells := append([]any{i + 1}, rec...)
		axis, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			b.t.Fatalf("bad row %d: %v", row, err)
		}
		if err := f.SetSheetRow(b.sheet, axis, &cells); err != nil {
			b.t.Fatalf("failed to write row %d: %v", row, err)
		}
	}
	return f
}

// Bytes returns the encoded workbook.
func (b *WorkbookBuilder) Bytes() []byte {
	b.t.Helper()
	f := b.build()
	defer func() {
		_ = f.Close()
	}()

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		b.t.Fatalf("failed to encode workbook: %v", err)
	}
	return buf.Bytes()
}

// Save writes the workbook under the test's temp dir and returns its path.
func (b *WorkbookBuilder) Save(name string) string {
	b.t.Helper()
	path := filepath.Join(b.t.TempDir(), name)
	if err := os.WriteFile(path, b.Bytes(), 0o600); err != nil {
		b.t.Fatalf("failed to save workbook: %v", err)
	}
	return path
}
