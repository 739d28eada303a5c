package engine

import (
	"math"
	"slices"

	"github.com/Veraticus/rd-classifier/internal/model"
)

// UnknownLineType is the bucket for rows without a line type.
const UnknownLineType = "Unknown"

// AuxKind selects how an auxiliary column's distinct values are parsed and sorted.
type AuxKind int

// Auxiliary column kinds.
const (
	AuxText AuxKind = iota
	AuxInteger
	AuxDecimal
)

// AuxColumn is a column whose distinct values are reported in the summary.
type AuxColumn struct {
	Name string
	Kind AuxKind
}

// DefaultAuxColumns are the columns exported as distinct-value sheets.
var DefaultAuxColumns = []AuxColumn{
	{Name: model.ColumnLineType, Kind: AuxText},
	{Name: model.ColumnCores, Kind: AuxInteger},
	{Name: model.ColumnDiameter, Kind: AuxDecimal},
	{Name: model.ColumnConcession, Kind: AuxText},
}

// Aggregator collects distinct auxiliary values while rows are mapped and
// reduces classified rows into a SummaryData.
type Aggregator struct {
	kinds   map[string]AuxKind
	text    map[string]map[string]struct{}
	numbers map[string]map[float64]struct{}
	columns []AuxColumn
}

// NewAggregator creates an aggregator for columns, or DefaultAuxColumns when none are given.
func NewAggregator(columns ...AuxColumn) *Aggregator {
	if len(columns) == 0 {
		columns = DefaultAuxColumns
	}

	a := &Aggregator{
		columns: columns,
		kinds:   make(map[string]AuxKind, len(columns)),
		text:    make(map[string]map[string]struct{}),
		numbers: make(map[string]map[float64]struct{}),
	}
	for _, col := range columns {
		a.kinds[col.Name] = col.Kind
		if col.Kind == AuxText {
			a.text[col.Name] = make(map[string]struct{})
		} else {
			a.numbers[col.Name] = make(map[float64]struct{})
		}
	}
	return a
}

// Observe records one mapped value. Columns not tracked are ignored, as are
// numeric values that do not parse or are infinite.
func (a *Aggregator) Observe(column string, cell model.Cell) {
	kind, ok := a.kinds[column]
	if !ok {
		return
	}

	switch kind {
	case AuxText:
		a.text[column][cell.String()] = struct{}{}
	case AuxInteger:
		if n, ok := model.ParseLeadingInt(cell.String()); ok {
			a.numbers[column][float64(n)] = struct{}{}
		}
	case AuxDecimal:
		if n, ok := model.ParseLeadingFloat(cell.String()); ok && !math.IsInf(n, 0) {
			a.numbers[column][n] = struct{}{}
		}
	}
}

// ObserveRow records every tracked column of row.
func (a *Aggregator) ObserveRow(row model.Row) {
	for _, col := range a.columns {
		a.Observe(col.Name, row.Values[col.Name])
	}
}

// Summarize reduces classified rows into summary data. The distinct-value
// sets are those observed so far.
func (a *Aggregator) Summarize(rows []model.Row) model.SummaryData {
	summary := model.SummaryData{
		TotalRows:    len(rows),
		Groups:       make(map[string]int),
		Concessions:  make(map[string]int),
		LineTypes:    make(map[string]int),
		UniqueValues: make(map[string]model.UniqueSet, len(a.columns)),
	}

	for _, row := range rows {
		summary.Groups[row.GroupLabel()]++
		summary.Concessions[row.ConcessionLabel()]++

		lineType := row.Values[model.ColumnLineType]
		if lineType.IsBlank() {
			summary.LineTypes[UnknownLineType]++
		} else {
			summary.LineTypes[lineType.String()]++
		}
	}

	for _, col := range a.columns {
		if col.Kind == AuxText {
			values := make([]string, 0, len(a.text[col.Name]))
			for v := range a.text[col.Name] {
				values = append(values, v)
			}
			slices.Sort(values)
			summary.UniqueValues[col.Name] = model.UniqueSet{Text: values}
			continue
		}

		values := make([]float64, 0, len(a.numbers[col.Name]))
		for v := range a.numbers[col.Name] {
			values = append(values, v)
		}
		slices.Sort(values)
		summary.UniqueValues[col.Name] = model.UniqueSet{Numeric: true, Numbers: values}
	}

	return summary
}

// Summarize computes summary data for already-classified rows in one pass.
func Summarize(rows []model.Row, columns ...AuxColumn) model.SummaryData {
	agg := NewAggregator(columns...)
	for _, row := range rows {
		agg.ObserveRow(row)
	}
	return agg.Summarize(rows)
}
