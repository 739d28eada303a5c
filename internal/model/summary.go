package model

import (
	"cmp"
	"encoding/json"
	"maps"
	"slices"
)

// UniqueSet is the sorted distinct values of one auxiliary column.
type UniqueSet struct {
	Text    []string
	Numbers []float64
	Numeric bool
}

// Len returns the number of distinct values.
func (u UniqueSet) Len() int {
	if u.Numeric {
		return len(u.Numbers)
	}
	return len(u.Text)
}

// Cells returns the values as cells, in order.
func (u UniqueSet) Cells() []Cell {
	if u.Numeric {
		out := make([]Cell, len(u.Numbers))
		for i, n := range u.Numbers {
			out[i] = NumberCell(n)
		}
		return out
	}
	out := make([]Cell, len(u.Text))
	for i, s := range u.Text {
		out[i] = Cell{Kind: CellText, Text: s}
	}
	return out
}

// MarshalJSON writes the set as a plain JSON array.
func (u UniqueSet) MarshalJSON() ([]byte, error) {
	if u.Numeric {
		if u.Numbers == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(u.Numbers)
	}
	if u.Text == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(u.Text)
}

// UnmarshalJSON reads a JSON array of strings or numbers.
func (u *UniqueSet) UnmarshalJSON(data []byte) error {
	var nums []float64
	if err := json.Unmarshal(data, &nums); err == nil {
		*u = UniqueSet{Numeric: true, Numbers: nums}
		return nil
	}
	var text []string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	*u = UniqueSet{Text: text}
	return nil
}

// SummaryData aggregates one classification run.
type SummaryData struct {
	Groups       map[string]int       `json:"groups"`
	Concessions  map[string]int       `json:"concessions"`
	LineTypes    map[string]int       `json:"lineTypes"`
	UniqueValues map[string]UniqueSet `json:"uniqueValues"`
	TotalRows    int                  `json:"totalRows"`
}

// Result is the output of one classification run.
type Result struct {
	Summary SummaryData `json:"summary"`
	Mode    Mode        `json:"mode"`
	Source  string      `json:"source,omitempty"`
	Rows    []Row       `json:"-"`
}

// Tally is one label of a frequency table with its share of the total.
type Tally struct {
	Label string
	Share float64
	Count int
}

// RankTally orders counts by count descending, ties by label. Share is
// Count/total, or zero when total is not positive.
func RankTally(counts map[string]int, total int) []Tally {
	rows := make([]Tally, 0, len(counts))
	for _, label := range slices.Sorted(maps.Keys(counts)) {
		r := Tally{Label: label, Count: counts[label]}
		if total > 0 {
			r.Share = float64(r.Count) / float64(total)
		}
		rows = append(rows, r)
	}
	slices.SortStableFunc(rows, func(a, b Tally) int {
		return cmp.Compare(b.Count, a.Count)
	})
	return rows
}
