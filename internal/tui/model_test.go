package tui

import (
	"context"
	"strings"
	"testing"

	"github.com/Veraticus/rd-classifier/internal/model"
	"github.com/Veraticus/rd-classifier/internal/tui/themes"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testResult(t *testing.T, source string) *model.Result {
	t.Helper()
	schema, err := model.SchemaFor(model.ModeRD03)
	require.NoError(t, err)

	row := model.NewRow(map[string]model.Cell{
		model.ColumnPEA:        model.TextCell("PEA-1"),
		model.ColumnConcession: model.TextCell("-"),
		model.ColumnLineType:   model.TextCell("Fiber"),
	}, schema.Sentinels)
	row.SetField(model.FieldGroup, "4.1.1")
	row.SetField(model.FieldGroupConcession, "NT")

	return &model.Result{
		Mode:   model.ModeRD03,
		Source: source,
		Rows:   []model.Row{row},
		Summary: model.SummaryData{
			Groups:      map[string]int{"4.1.1": 1},
			Concessions: map[string]int{"NT": 1},
			LineTypes:   map[string]int{"Fiber": 1},
			TotalRows:   1,
		},
	}
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		return tea.KeyMsg{Type: tea.KeyShiftTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m Model, keys ...string) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var next tea.Model
		next, cmd = m.Update(keyPress(k))
		m = next.(Model)
	}
	return m, cmd
}

func TestModel_Tabs(t *testing.T) {
	m := New([]*model.Result{testResult(t, "north.xlsx")})
	assert.Equal(t, TabGroups, m.Tab())

	tests := []struct {
		name string
		keys []string
		want Tab
	}{
		{name: "next", keys: []string{"tab"}, want: TabConcessions},
		{name: "wraps forward", keys: []string{"tab", "tab", "tab", "tab"}, want: TabGroups},
		{name: "wraps backward", keys: []string{"shift+tab"}, want: TabRows},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := press(m, tt.keys...)
			assert.Equal(t, tt.want, got.Tab())
		})
	}
}

func TestModel_Files(t *testing.T) {
	m := New([]*model.Result{testResult(t, "north.xlsx"), testResult(t, "south.xlsx")})

	m, _ = press(m, "l")
	assert.Equal(t, 1, m.File())
	assert.Contains(t, m.View(), "south.xlsx")
	assert.Contains(t, m.View(), "file 2 of 2")

	m, _ = press(m, "l")
	assert.Equal(t, 0, m.File())

	m, _ = press(m, "h")
	assert.Equal(t, 1, m.File())
}

func TestModel_View(t *testing.T) {
	m := New([]*model.Result{testResult(t, "/data/north.xlsx")}, WithTheme(themes.CatppuccinMocha), WithSize(120, 40))

	view := m.View()
	assert.Contains(t, view, "north.xlsx")
	assert.NotContains(t, view, "/data/")
	assert.Contains(t, view, "Mode RD03")
	assert.Contains(t, view, "4.1.1")
	assert.Contains(t, view, "100.0%")

	m, _ = press(m, "shift+tab")
	view = m.View()
	assert.Contains(t, view, "PEA-1")
	assert.Contains(t, view, "NT")
}

func TestModel_WindowResize(t *testing.T) {
	m := New([]*model.Result{testResult(t, "north.xlsx")})
	next, cmd := m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	assert.Nil(t, cmd)
	assert.Equal(t, 60, next.(Model).width)
	assert.Equal(t, 20, next.(Model).height)
}

func TestModel_HelpToggle(t *testing.T) {
	m := New([]*model.Result{testResult(t, "north.xlsx")})
	short := m.View()

	m, _ = press(m, "?")
	assert.True(t, m.help.ShowAll)
	assert.Contains(t, m.View(), "next file")
	assert.NotEqual(t, short, m.View())
}

func TestModel_Quit(t *testing.T) {
	m := New([]*model.Result{testResult(t, "north.xlsx")})
	m, cmd := press(m, "q")
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}

func TestModel_Empty(t *testing.T) {
	m := New(nil)
	assert.Contains(t, m.View(), "No results")
	m, _ = press(m, "l")
	assert.Equal(t, 0, m.File())
}

func TestRun(t *testing.T) {
	results := []*model.Result{testResult(t, "north.xlsx")}

	t.Run("quits on q", func(t *testing.T) {
		var out strings.Builder
		err := Run(context.Background(), results, WithAltScreen(false), WithIO(strings.NewReader("q"), &out))
		assert.NoError(t, err)
	})

	t.Run("no results", func(t *testing.T) {
		assert.Error(t, Run(context.Background(), nil))
	})

	t.Run("canceled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Run(ctx, results, WithAltScreen(false), WithIO(strings.NewReader(""), &strings.Builder{}))
		assert.ErrorIs(t, err, context.Canceled)
	})
}
