// Package cli renders classification output for the terminal.
package cli

import (
	"github.com/Veraticus/rd-classifier/internal/model"
	"github.com/charmbracelet/lipgloss"
)

var (
	// PrimaryColor is the main theme color.
	PrimaryColor = lipgloss.Color("#5B8DEF")
	// SuccessColor marks completed work.
	SuccessColor = lipgloss.Color("#4ECDC4")
	// WarningColor marks unclassified values and interruptions.
	WarningColor = lipgloss.Color("#FFE66D")
	// ErrorColor marks failures.
	ErrorColor = lipgloss.Color("#FF6B6B")
	// InfoColor marks informational lines.
	InfoColor = lipgloss.Color("#95E1D3")
	// SubtleColor dims secondary text such as shares.
	SubtleColor = lipgloss.Color("#666666")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(PrimaryColor)

	// SubtleStyle formats less prominent text.
	SubtleStyle = lipgloss.NewStyle().Foreground(SubtleColor)

	// BoldStyle makes text bold.
	BoldStyle = lipgloss.NewStyle().Bold(true)

	// NotFoundStyle highlights the not-found sentinel in tallies.
	NotFoundStyle = lipgloss.NewStyle().Foreground(WarningColor)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(1, 2)

	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(lipgloss.Color("#333"))

	tableCellStyle = lipgloss.NewStyle().PaddingRight(4)
)

// Icons.
const (
	SuccessIcon = "✓"
	ErrorIcon   = "✗"
	WarningIcon = "!"
	InfoIcon    = "i"
	ActiveIcon  = "*"
)

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return lipgloss.NewStyle().Foreground(SuccessColor).Render(SuccessIcon + " " + message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return lipgloss.NewStyle().Foreground(ErrorColor).Render(ErrorIcon + " " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return lipgloss.NewStyle().Foreground(WarningColor).Render(WarningIcon + " " + message)
}

// FormatInfo formats an info message with icon.
func FormatInfo(message string) string {
	return lipgloss.NewStyle().Foreground(InfoColor).Render(InfoIcon + " " + message)
}

// FormatTitle formats a section title.
func FormatTitle(title string) string {
	return titleStyle.Render(title)
}

// FormatPrompt formats a question awaiting input.
func FormatPrompt(prompt string) string {
	return titleStyle.Render(prompt + " → ")
}

// FormatLabel renders a tally label, highlighting the not-found sentinel.
func FormatLabel(label string) string {
	if label == model.NotFound {
		return NotFoundStyle.Render(label)
	}
	return label
}

// RenderBox renders content under title in a rounded box.
func RenderBox(title, content string) string {
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), "", content))
}
