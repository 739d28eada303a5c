package model

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// CellKind identifies which variant a Cell holds.
type CellKind int

// Cell kinds.
const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
)

// Cell is a single spreadsheet value: empty, text, or number.
type Cell struct {
	Text   string
	Number float64
	Kind   CellKind
}

// TextCell returns a text cell. An empty string yields an empty cell.
func TextCell(s string) Cell {
	if s == "" {
		return Cell{}
	}
	return Cell{Kind: CellText, Text: s}
}

// NumberCell returns a numeric cell.
func NumberCell(n float64) Cell {
	return Cell{Kind: CellNumber, Number: n}
}

// IsBlank reports whether the cell is empty or holds only whitespace.
// Numeric zero is not blank.
func (c Cell) IsBlank() bool {
	switch c.Kind {
	case CellNumber:
		return false
	case CellText:
		return strings.TrimSpace(c.Text) == ""
	default:
		return true
	}
}

// String renders the cell the way it is compared against string operands.
func (c Cell) String() string {
	switch c.Kind {
	case CellNumber:
		return FormatNumber(c.Number)
	case CellText:
		return c.Text
	default:
		return ""
	}
}

// Float returns the numeric value of the cell. Text is parsed leniently
// (leading numeric prefix); anything unparseable is 0.
func (c Cell) Float() float64 {
	switch c.Kind {
	case CellNumber:
		return c.Number
	case CellText:
		if n, ok := ParseLeadingFloat(c.Text); ok {
			return n
		}
	}
	return 0
}

// MarshalJSON writes numbers as JSON numbers, text as strings and empty cells as "".
func (c Cell) MarshalJSON() ([]byte, error) {
	if c.Kind == CellNumber {
		return json.Marshal(c.Number)
	}
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts strings, numbers, booleans and null.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = CellFromAny(raw)
	return nil
}

// CellFromAny converts a decoded JSON/YAML scalar into a Cell.
func CellFromAny(v any) Cell {
	switch t := v.(type) {
	case nil:
		return Cell{}
	case string:
		return TextCell(t)
	case float64:
		return NumberCell(t)
	case float32:
		return NumberCell(float64(t))
	case int:
		return NumberCell(float64(t))
	case int64:
		return NumberCell(float64(t))
	case bool:
		return TextCell(strconv.FormatBool(t))
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return Cell{}
		}
		return TextCell(string(b))
	}
}

// FormatNumber renders a float in its shortest decimal form.
func FormatNumber(n float64) string {
	if math.IsInf(n, 1) {
		return "Infinity"
	}
	if math.IsInf(n, -1) {
		return "-Infinity"
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

var (
	leadingFloat = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)
	leadingInt   = regexp.MustCompile(`^[+-]?\d+`)
)

// ParseLeadingFloat parses the longest numeric prefix of s after trimming
// leading whitespace, so "6 mm" yields 6. It reports false when no prefix parses.
func ParseLeadingFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "+"); ok && strings.HasPrefix(rest, "Infinity") {
		return math.Inf(1), true
	}
	if strings.HasPrefix(s, "Infinity") {
		return math.Inf(1), true
	}
	if strings.HasPrefix(s, "-Infinity") {
		return math.Inf(-1), true
	}
	m := leadingFloat.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseLeadingInt parses the leading integer of s, so "2.5" yields 2.
func ParseLeadingInt(s string) (int64, bool) {
	m := leadingInt.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(m, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
