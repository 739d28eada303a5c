package tui

import (
	"fmt"

	"github.com/Veraticus/rd-classifier/internal/model"
	"github.com/Veraticus/rd-classifier/internal/tui/themes"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

// Tab is one view of a result.
type Tab int

// Views, in tab order.
const (
	TabGroups Tab = iota
	TabConcessions
	TabLineTypes
	TabRows
	tabCount
)

var tabNames = [tabCount]string{"Groups", "Concessions", "Line Types", "Rows"}

func (t Tab) String() string {
	if t < 0 || t >= tabCount {
		return fmt.Sprintf("Tab(%d)", int(t))
	}
	return tabNames[t]
}

// rowColumns are the columns shown on the Rows tab.
var rowColumns = []string{
	model.ColumnPEA, model.ColumnConcession, model.ColumnLineType,
	string(model.FieldGroupConcession), string(model.FieldGroup),
}

// chromeHeight is the number of lines around the table.
const chromeHeight = 8

// Model is a read-only browser over classification results.
type Model struct {
	theme    themes.Theme
	keymap   KeyMap
	help     help.Model
	table    table.Model
	results  []*model.Result
	width    int
	height   int
	file     int
	tab      Tab
	quitting bool
}

// New creates a viewer over results.
func New(results []*model.Result, opts ...Option) Model {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	return newModel(results, cfg)
}

func newModel(results []*model.Result, cfg Config) Model {
	h := help.New()
	h.ShowAll = cfg.ShowHelp

	keymap := DefaultKeyMap()
	tkm := table.DefaultKeyMap()
	tkm.LineUp = keymap.Up
	tkm.LineDown = keymap.Down
	tkm.PageUp = keymap.PageUp
	tkm.PageDown = keymap.PageDown
	tkm.GotoTop = keymap.Home
	tkm.GotoBottom = keymap.End

	t := table.New(table.WithFocused(true), table.WithKeyMap(tkm))
	styles := table.DefaultStyles()
	styles.Header = cfg.Theme.Header
	styles.Selected = cfg.Theme.Selected
	t.SetStyles(styles)

	m := Model{
		theme:   cfg.Theme,
		keymap:  keymap,
		help:    h,
		table:   t,
		results: results,
		width:   cfg.Width,
		height:  cfg.Height,
	}
	m.refresh()
	return m
}

// Tab returns the selected view.
func (m Model) Tab() Tab { return m.tab }

// File returns the index of the shown result.
func (m Model) File() int { return m.file }

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keymap.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keymap.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.refresh()
			return m, nil
		case key.Matches(msg, m.keymap.NextTab):
			m.tab = (m.tab + 1) % tabCount
			m.refresh()
			return m, nil
		case key.Matches(msg, m.keymap.PrevTab):
			m.tab = (m.tab + tabCount - 1) % tabCount
			m.refresh()
			return m, nil
		case key.Matches(msg, m.keymap.NextFile):
			if len(m.results) > 0 {
				m.file = (m.file + 1) % len(m.results)
				m.refresh()
			}
			return m, nil
		case key.Matches(msg, m.keymap.PrevFile):
			if len(m.results) > 0 {
				m.file = (m.file + len(m.results) - 1) % len(m.results)
				m.refresh()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) current() *model.Result {
	if m.file < 0 || m.file >= len(m.results) {
		return nil
	}
	return m.results[m.file]
}

// refresh rebuilds the table for the selected file and tab.
func (m *Model) refresh() {
	m.help.Width = m.width
	m.table.SetRows(nil)

	result := m.current()
	if result == nil {
		m.table.SetColumns(nil)
		return
	}

	if m.tab == TabRows {
		m.fillRows(result)
	} else {
		m.fillTally(result)
	}

	height := m.height - chromeHeight
	if m.help.ShowAll {
		height -= 3
	}
	m.table.SetHeight(max(height, 3))
	m.table.SetWidth(max(m.width-4, 20))
	m.table.GotoTop()
}

func (m *Model) fillTally(result *model.Result) {
	var counts map[string]int
	switch m.tab {
	case TabGroups:
		counts = result.Summary.Groups
	case TabConcessions:
		counts = result.Summary.Concessions
	case TabLineTypes:
		counts = result.Summary.LineTypes
	}

	barWidth := 20
	labelWidth := max(m.width-4-8-8-barWidth-8, 16)
	m.table.SetColumns([]table.Column{
		{Title: m.tab.String(), Width: labelWidth},
		{Title: "Count", Width: 8},
		{Title: "Share", Width: 8},
		{Title: "", Width: barWidth},
	})

	tally := model.RankTally(counts, result.Summary.TotalRows)
	rows := make([]table.Row, 0, len(tally))
	for _, t := range tally {
		rows = append(rows, table.Row{
			t.Label,
			fmt.Sprintf("%d", t.Count),
			fmt.Sprintf("%.1f%%", t.Share*100),
			bar(t.Share, barWidth),
		})
	}
	m.table.SetRows(rows)
}

func (m *Model) fillRows(result *model.Result) {
	width := max((m.width-4)/len(rowColumns)-2, 10)
	cols := make([]table.Column, 0, len(rowColumns))
	for _, c := range rowColumns {
		cols = append(cols, table.Column{Title: c, Width: width})
	}
	m.table.SetColumns(cols)

	rows := make([]table.Row, 0, len(result.Rows))
	for _, r := range result.Rows {
		rows = append(rows, table.Row{
			r.Cell(model.ColumnPEA).String(),
			r.Cell(model.ColumnConcession).String(),
			r.Cell(model.ColumnLineType).String(),
			r.ConcessionLabel(),
			r.GroupLabel(),
		})
	}
	m.table.SetRows(rows)
}

func bar(share float64, width int) string {
	n := int(share*float64(width) + 0.5)
	n = min(max(n, 0), width)
	out := make([]rune, width)
	for i := range out {
		if i < n {
			out[i] = '█'
		} else {
			out[i] = ' '
		}
	}
	return string(out)
}
