package engine

import (
	"github.com/Veraticus/rd-classifier/internal/model"
	"github.com/Veraticus/rd-classifier/internal/pattern"
)

// Classify maps raw records through schema and applies rules to each kept
// record. Records whose key position is blank are dropped. When agg is not
// nil every mapped auxiliary value is observed while mapping.
func Classify(raw [][]model.Cell, schema model.Schema, rules []model.Rule, agg *Aggregator) []model.Row {
	ordered := pattern.Ordered(rules)

	rows := make([]model.Row, 0, len(raw))
	for _, record := range raw {
		if !keep(record, schema) {
			continue
		}
		row := MapRecord(record, schema, agg)
		ClassifyRow(&row, ordered)
		rows = append(rows, row)
	}
	return rows
}

func keep(record []model.Cell, schema model.Schema) bool {
	if schema.KeyPosition >= len(record) {
		return false
	}
	return !record[schema.KeyPosition].IsBlank()
}

// MapRecord builds an unclassified row from a raw record. Missing positions
// map to empty cells.
func MapRecord(record []model.Cell, schema model.Schema, agg *Aggregator) model.Row {
	values := make(map[string]model.Cell, len(schema.Columns))
	for i, column := range schema.Columns {
		var cell model.Cell
		if pos := i + schema.Offset; pos < len(record) {
			cell = record[pos]
		}
		values[column] = cell
		if agg != nil {
			agg.Observe(column, cell)
		}
	}
	return model.NewRow(values, schema.Sentinels)
}

// ClassifyRow applies ordered rules to row. A Group match ends evaluation;
// GroupConcession matches keep going so the last one wins.
func ClassifyRow(row *model.Row, ordered []model.Rule) {
	classifyRow(row, ordered, nil)
}

// TraceRow classifies row like ClassifyRow and returns the rules that
// assigned a value, in firing order.
func TraceRow(row *model.Row, ordered []model.Rule) []model.Rule {
	fired := make([]model.Rule, 0)
	classifyRow(row, ordered, func(rule model.Rule) {
		fired = append(fired, rule)
	})
	return fired
}

func classifyRow(row *model.Row, ordered []model.Rule, fired func(model.Rule)) {
	for _, rule := range ordered {
		target := rule.Target()
		if rule.OnlyIfEmpty && row.Field(target).Set {
			continue
		}
		if !pattern.Matches(*row, rule) {
			continue
		}

		row.SetField(target, rule.AssignedValue())
		if fired != nil {
			fired(rule)
		}
		if target == model.FieldGroup {
			return
		}
	}
}
