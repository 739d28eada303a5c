package cli

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/Veraticus/rd-classifier/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// maxTallyRows caps each frequency table in the terminal summary.
const maxTallyRows = 15

// RenderSummary renders result as a boxed report: totals, then the group,
// concession and line type tables.
func RenderSummary(result *model.Result) string {
	s := result.Summary

	header := fmt.Sprintf("%s  %s\n%s  %d",
		BoldStyle.Render("Mode:"), string(result.Mode),
		BoldStyle.Render("Rows:"), s.TotalRows)
	if len(s.UniqueValues) > 0 {
		header += "\n" + SubtleStyle.Render(uniqueLine(s.UniqueValues))
	}

	tables := lipgloss.JoinHorizontal(lipgloss.Top,
		renderTally("Group", model.RankTally(s.Groups, s.TotalRows)),
		renderTally("Concession", model.RankTally(s.Concessions, s.TotalRows)),
		renderTally("Line Type", model.RankTally(s.LineTypes, s.TotalRows)),
	)

	title := result.Source
	if title == "" {
		title = "Classification"
	}
	return RenderBox(title, lipgloss.JoinVertical(lipgloss.Left, header, "", tables))
}

func uniqueLine(values map[string]model.UniqueSet) string {
	parts := make([]string, 0, len(values))
	for _, name := range slices.Sorted(maps.Keys(values)) {
		parts = append(parts, fmt.Sprintf("%s: %d distinct", name, values[name].Len()))
	}
	return strings.Join(parts, "  ")
}

func renderTally(title string, rows []model.Tally) string {
	var b strings.Builder
	b.WriteString(tableHeaderStyle.Render(title) + "\n")

	for i, r := range rows {
		if i == maxTallyRows {
			b.WriteString(SubtleStyle.Render(fmt.Sprintf("… %d more", len(rows)-maxTallyRows)) + "\n")
			break
		}
		label := truncate(r.Label, 28)
		pad := strings.Repeat(" ", max(28-lipgloss.Width(label), 0))
		fmt.Fprintf(&b, "%s%s %6d %s\n", FormatLabel(label), pad, r.Count,
			SubtleStyle.Render(fmt.Sprintf("%5.1f%%", r.Share*100)))
	}
	if len(rows) == 0 {
		b.WriteString(SubtleStyle.Render("none") + "\n")
	}
	return tableCellStyle.Render(b.String())
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}

// WriteTally writes counts as a plain tab-aligned table, for piping.
func WriteTally(w io.Writer, title string, counts map[string]int, total int) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "%s\tCOUNT\tSHARE\n", strings.ToUpper(title)); err != nil {
		return err
	}
	for _, r := range model.RankTally(counts, total) {
		if _, err := fmt.Fprintf(tw, "%s\t%d\t%.1f%%\n", r.Label, r.Count, r.Share*100); err != nil {
			return err
		}
	}
	return tw.Flush()
}
