package sheets

import (
	"time"

	"github.com/Veraticus/rd-classifier/internal/model"
)

// Tab names written by the Writer.
const (
	TabSummary = "Summary"
	TabData    = "Processed_Data"
)

// CountRow is one label of a frequency table.
type CountRow = model.Tally

// TabData holds every value of one export.
type TabData struct {
	Generated   time.Time
	Source      string
	Mode        model.Mode
	Groups      []CountRow
	Concessions []CountRow
	LineTypes   []CountRow
	Header      []string
	Rows        [][]any
	TotalRows   int
}

// BuildTabData lays out result for export. Frequency tables are sorted by
// count, largest first, then by label.
func BuildTabData(result *model.Result, includeRows bool, now time.Time) (TabData, error) {
	data := TabData{
		Generated:   now,
		Source:      result.Source,
		Mode:        result.Mode,
		TotalRows:   result.Summary.TotalRows,
		Groups:      countRows(result.Summary.Groups, result.Summary.TotalRows),
		Concessions: countRows(result.Summary.Concessions, result.Summary.TotalRows),
		LineTypes:   countRows(result.Summary.LineTypes, result.Summary.TotalRows),
	}
	if !includeRows {
		return data, nil
	}

	schema, err := model.SchemaFor(result.Mode)
	if err != nil {
		return TabData{}, err
	}
	data.Header = schema.OutputColumns()
	data.Rows = make([][]any, len(result.Rows))
	for i, row := range result.Rows {
		values := make([]any, len(data.Header))
		for j, col := range data.Header {
			c := schema.Render(row, col)
			if c.Kind == model.CellNumber {
				values[j] = c.Number
			} else {
				values[j] = c.String()
			}
		}
		data.Rows[i] = values
	}
	return data, nil
}

func countRows(counts map[string]int, total int) []CountRow {
	return model.RankTally(counts, total)
}

// SummaryValues returns the Summary tab contents.
func (d TabData) SummaryValues() [][]any {
	values := make([][]any, 0, 12+len(d.Groups)+len(d.Concessions)+len(d.LineTypes))
	values = append(values,
		[]any{"RD Classification Report", string(d.Mode)},
		[]any{"Source", d.Source},
		[]any{"Generated", d.Generated.Format(time.RFC3339)},
		[]any{"Total Rows", d.TotalRows},
	)

	section := func(title string, rows []CountRow) {
		values = append(values, []any{}, []any{title}, []any{"Value", "Count", "Share"})
		for _, r := range rows {
			values = append(values, []any{r.Label, r.Count, r.Share})
		}
	}
	section("Groups", d.Groups)
	section("Concessions", d.Concessions)
	section("Line Types", d.LineTypes)
	return values
}

// DataValues returns the data tab contents, header first. It is empty when
// rows were not included.
func (d TabData) DataValues() [][]any {
	if len(d.Header) == 0 {
		return nil
	}
	header := make([]any, len(d.Header))
	for i, h := range d.Header {
		header[i] = h
	}
	return append([][]any{header}, d.Rows...)
}
