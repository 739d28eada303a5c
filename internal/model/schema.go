package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Mode selects one of the two spreadsheet layouts.
type Mode string

// Supported modes. RD03 is layout A, RD05 is layout B.
const (
	ModeRD03 Mode = "RD03"
	ModeRD05 Mode = "RD05"
)

// NotFound is the label for a derived field no rule assigned.
const NotFound = "ไม่พบกลุ่ม"

// ParseMode accepts RD03, RD05, A or B in any case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "RD03", "A":
		return ModeRD03, nil
	case "RD05", "B":
		return ModeRD05, nil
	}
	return "", fmt.Errorf("unknown mode %q (expected RD03 or RD05)", s)
}

// Column names referenced outside the schema lists.
const (
	ColumnPEA        = "PEA"
	ColumnConcession = "Concession"
	ColumnLineType   = "Line_Type"
	ColumnDiameter   = "Diameter"
	ColumnCores      = "Cores"
	ColumnDistance   = "Total_Distance"
)

var rd03Columns = []string{
	"PEA", "Route_Name", "Tag", "Owner", "Concession",
	"Line_Type", "Diameter", "Cores", "Total_Poles", "Poles_in_Area",
	"Total_Distance", "Distance_in_Area", "Installation", "Notes",
	"Start_Coordinates", "End_Coordinates", "Tag_of_Poles_Pass",
	"Data_Source", "Username", "Name_Lastname",
}

var rd05Columns = []string{
	"PEA", "Route_Name", "Tag", "Owner", "Concession",
	"Line_Type", "Diameter", "Cores", "Total_Poles", "Poles_in_Area",
	"Total_Distance", "Distance_in_Area", "Installation", "Compensation",
	"Start_Coordinates", "End_Coordinates", "Tag_of_Poles_Pass",
	"Data_Source", "Username", "Name_Lastname", "Date_Edit",
}

// Schema describes how raw positional records map onto named columns.
type Schema struct {
	Sentinels Sentinels
	Mode      Mode
	Columns   []string
	// HeaderRows is how many leading sheet rows precede the data.
	HeaderRows int
	// KeyPosition is the raw position that must be non-blank for a record to count.
	KeyPosition int
	// Offset is the raw position of the first schema column.
	Offset int
	// MinWidth is the narrowest raw record width a well-formed sheet reaches.
	MinWidth int
	// ExtraColumns is how many raw positions past the schema are tolerated.
	ExtraColumns int
	// Markers are cells only this layout produces.
	Markers []Marker
}

// Marker is a column whose content identifies a layout. Kind CellEmpty
// accepts any non-blank value.
type Marker struct {
	Column string
	Kind   CellKind
}

// matches reports whether cell has the marker's kind. Numeric text counts
// as a number.
func (m Marker) matches(cell Cell) bool {
	if cell.IsBlank() {
		return false
	}
	numeric := cell.Kind == CellNumber
	if cell.Kind == CellText {
		_, err := strconv.ParseFloat(strings.TrimSpace(cell.Text), 64)
		numeric = err == nil
	}
	switch m.Kind {
	case CellNumber:
		return numeric
	case CellText:
		return !numeric
	}
	return true
}

// Modes lists every supported layout.
func Modes() []Mode {
	return []Mode{ModeRD03, ModeRD05}
}

// SchemaFor returns the schema for a mode.
func SchemaFor(mode Mode) (Schema, error) {
	switch mode {
	case ModeRD03:
		return Schema{
			Mode:         ModeRD03,
			Columns:      rd03Columns,
			HeaderRows:   8,
			KeyPosition:  1,
			Offset:       1,
			MinWidth:     12,
			ExtraColumns: 1,
			Markers:      []Marker{{Column: "Notes", Kind: CellText}},
			Sentinels:    Sentinels{Group: NotFound, GroupConcession: NotFound},
		}, nil
	case ModeRD05:
		return Schema{
			Mode:         ModeRD05,
			Columns:      rd05Columns,
			HeaderRows:   8,
			KeyPosition:  1,
			Offset:       1,
			MinWidth:     12,
			ExtraColumns: 0,
			Markers: []Marker{
				{Column: "Compensation", Kind: CellNumber},
				{Column: "Date_Edit", Kind: CellEmpty},
			},
			Sentinels: Sentinels{Group: "3.0", GroupConcession: NotFound},
		}, nil
	}
	return Schema{}, fmt.Errorf("unknown mode %q", mode)
}

// MaxWidth is the widest raw record the schema accepts.
func (s Schema) MaxWidth() int {
	return s.Offset + len(s.Columns) + s.ExtraColumns
}

// Position returns the raw record position of column, or -1.
func (s Schema) Position(column string) int {
	for i, c := range s.Columns {
		if c == column {
			return s.Offset + i
		}
	}
	return -1
}

// MarkerHits counts the layout's markers present in a raw record.
func (s Schema) MarkerHits(record []Cell) int {
	hits := 0
	for _, m := range s.Markers {
		if pos := s.Position(m.Column); pos >= 0 && pos < len(record) && m.matches(record[pos]) {
			hits++
		}
	}
	return hits
}

// Has reports whether column is part of the schema.
func (s Schema) Has(column string) bool {
	for _, c := range s.Columns {
		if c == column {
			return true
		}
	}
	return false
}

// OutputColumns lists the exported columns: schema columns then the derived fields.
func (s Schema) OutputColumns() []string {
	cols := make([]string, 0, len(s.Columns)+2)
	cols = append(cols, s.Columns...)
	return append(cols, string(FieldGroupConcession), string(FieldGroup))
}

// Render returns the exported value of column for row.
func (s Schema) Render(row Row, column string) Cell {
	switch TargetField(column) {
	case FieldGroup:
		return TextCell(row.Group.Or(s.Sentinels.Group))
	case FieldGroupConcession:
		return TextCell(row.GroupConcession.Or(s.Sentinels.GroupConcession))
	}
	return row.Values[column]
}
