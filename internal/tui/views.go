package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View renders the current file and tab.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	result := m.current()
	if result == nil {
		return m.theme.Muted.Render("No results to show.") + "\n"
	}

	var b strings.Builder
	b.WriteString(m.header())
	b.WriteString("\n")
	b.WriteString(m.tabs())
	b.WriteString("\n")
	b.WriteString(m.theme.Box.Render(m.table.View()))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keymap))
	return b.String()
}

func (m Model) header() string {
	result := m.current()
	name := result.Source
	if name == "" {
		name = "(unnamed)"
	}
	title := m.theme.Title.Render(filepath.Base(name))
	if len(m.results) > 1 {
		title += m.theme.Muted.Render(fmt.Sprintf("  file %d of %d", m.file+1, len(m.results)))
	}

	stats := fmt.Sprintf("Mode %s  |  %d rows  |  %d groups  |  %d concessions",
		result.Mode,
		result.Summary.TotalRows,
		len(result.Summary.Groups),
		len(result.Summary.Concessions))
	return lipgloss.JoinVertical(lipgloss.Left, title, m.theme.Subtitle.Render(stats))
}

func (m Model) tabs() string {
	rendered := make([]string, 0, tabCount)
	for t := range tabCount {
		style := m.theme.InactiveTab
		if t == m.tab {
			style = m.theme.ActiveTab
		}
		rendered = append(rendered, style.Render(t.String()))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}
