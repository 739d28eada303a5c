// Package themes defines color themes for the summary viewer.
package themes

import "github.com/charmbracelet/lipgloss"

// Theme defines the visual style for the TUI.
type Theme struct {
	Title       lipgloss.Style
	Subtitle    lipgloss.Style
	Normal      lipgloss.Style
	Bold        lipgloss.Style
	Muted       lipgloss.Style
	ActiveTab   lipgloss.Style
	InactiveTab lipgloss.Style
	Box         lipgloss.Style
	Bar         lipgloss.Style
	Selected    lipgloss.Style
	Header      lipgloss.Style
	Primary     lipgloss.Color
	Border      lipgloss.Color
}

func build(primary, foreground, muted, border, selectedBg lipgloss.Color) Theme {
	return Theme{
		Primary: primary,
		Border:  border,
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(primary),
		Subtitle: lipgloss.NewStyle().
			Foreground(muted),
		Normal: lipgloss.NewStyle().
			Foreground(foreground),
		Bold: lipgloss.NewStyle().
			Bold(true).
			Foreground(foreground),
		Muted: lipgloss.NewStyle().
			Foreground(muted),
		ActiveTab: lipgloss.NewStyle().
			Bold(true).
			Foreground(foreground).
			Background(primary).
			Padding(0, 1),
		InactiveTab: lipgloss.NewStyle().
			Foreground(muted).
			Padding(0, 1),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1),
		Bar: lipgloss.NewStyle().
			Foreground(primary),
		Selected: lipgloss.NewStyle().
			Foreground(foreground).
			Background(selectedBg).
			Bold(true),
		Header: lipgloss.NewStyle().
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(border),
	}
}

// Default is the default theme.
var Default = build(
	lipgloss.Color("#5B8DEF"),
	lipgloss.Color("#fafafa"),
	lipgloss.Color("#737373"),
	lipgloss.Color("#404040"),
	lipgloss.Color("#2f4b80"),
)

// CatppuccinMocha is the Catppuccin Mocha theme.
var CatppuccinMocha = build(
	lipgloss.Color("#cba6f7"),
	lipgloss.Color("#cdd6f4"),
	lipgloss.Color("#6c7086"),
	lipgloss.Color("#45475a"),
	lipgloss.Color("#585b70"),
)

// ByName returns the theme called name, or Default.
func ByName(name string) Theme {
	if name == "catppuccin" || name == "mocha" {
		return CatppuccinMocha
	}
	return Default
}
