package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/Veraticus/rd-classifier/internal/common"
	"github.com/Veraticus/rd-classifier/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingSource struct{ err error }

func (f failingSource) ReadRows(context.Context) ([][]model.Cell, error) { return nil, f.err }
func (f failingSource) Name() string { return "broken.xlsx" }

func TestClassificationEngine_Run(t *testing.T) {
	tooWide := make([]model.Cell, 30)
	tooWide[1] = model.TextCell("A")

	tooNarrow := []model.Cell{model.NumberCell(1), model.TextCell("A"), model.TextCell("route")}

	tests := []struct {
		source    RowSource
		wantErr   error
		name      string
		mode      model.Mode
		wantRows  int
		wantGroup string
	}{
		{
			name: "classifies rd03 rows",
			source: NewStaticSource("rd03.xlsx", [][]model.Cell{
				rd03Record("A", "NT", "Aerial", model.NumberCell(1), model.NumberCell(12)),
				rd03Record("", "", "", model.Cell{}, model.Cell{}),
			}),
			mode:      model.ModeRD03,
			wantRows:  1,
			wantGroup: "G1",
		},
		{
			name:      "empty sheet yields empty result",
			source:    NewStaticSource("empty.xlsx", nil),
			mode:      model.ModeRD05,
			wantRows:  0,
			wantGroup: "",
		},
		{
			name:    "unreadable source",
			source:  failingSource{err: errors.New("zip: not a valid zip file")},
			mode:    model.ModeRD03,
			wantErr: common.ErrUnreadableSource,
		},
		{
			name:    "records wider than the schema",
			source:  NewStaticSource("wide.xlsx", [][]model.Cell{tooWide}),
			mode:    model.ModeRD03,
			wantErr: common.ErrShapeMismatch,
		},
		{
			name:    "records narrower than the schema",
			source:  NewStaticSource("narrow.xlsx", [][]model.Cell{tooNarrow}),
			mode:    model.ModeRD05,
			wantErr: common.ErrShapeMismatch,
		},
		{
			name:    "unknown mode",
			source:  NewStaticSource("rd03.xlsx", nil),
			mode:    model.Mode("RD99"),
			wantErr: common.ErrInvalidConfig,
		},
	}

	rules := []model.Rule{
		{ID: "G1", TargetField: model.FieldGroup, Conditions: []model.Condition{equals("PEA", "A")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := New().Run(context.Background(), tt.source, tt.mode, rules)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, result)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.mode, result.Mode)
			assert.Equal(t, tt.source.Name(), result.Source)
			assert.Len(t, result.Rows, tt.wantRows)
			assert.Equal(t, tt.wantRows, result.Summary.TotalRows)
			if tt.wantGroup != "" {
				assert.Equal(t, 1, result.Summary.Groups[tt.wantGroup])
			}
		})
	}
}

func TestClassificationEngine_RunShapeMismatchIsUserError(t *testing.T) {
	wide := make([]model.Cell, 40)
	wide[1] = model.TextCell("A")

	_, err := New().Run(context.Background(), NewStaticSource("rd05.xlsx", [][]model.Cell{wide}), model.ModeRD03, nil)

	var userErr *common.UserError
	require.ErrorAs(t, err, &userErr)
	assert.Contains(t, userErr.UserMessage, "verify the selected mode")
}

func TestClassificationEngine_Progress(t *testing.T) {
	raw := make([][]model.Cell, 0, 25)
	for range 25 {
		raw = append(raw, rd03Record("A", "NT", "", model.Cell{}, model.Cell{}))
	}

	var calls [][2]int
	engine := NewWithConfig(Config{
		ProgressEvery: 10,
		Progress: func(done, total int) {
			calls = append(calls, [2]int{done, total})
		},
	})

	result, err := engine.Run(context.Background(), NewStaticSource("rd03.xlsx", raw), model.ModeRD03, nil)
	require.NoError(t, err)
	assert.Equal(t, 25, result.Summary.TotalRows)
	assert.Equal(t, [][2]int{{10, 25}, {20, 25}, {25, 25}}, calls)
}

func TestClassificationEngine_RunCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	raw := [][]model.Cell{rd03Record("A", "NT", "", model.Cell{}, model.Cell{})}
	result, err := New().Run(ctx, NewStaticSource("rd03.xlsx", raw), model.ModeRD03, nil)

	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
}

func TestValidateShape(t *testing.T) {
	schema := rd03Schema(t)

	exact := make([]model.Cell, schema.MaxWidth())
	exact[1] = model.TextCell("A")
	assert.NoError(t, ValidateShape([][]model.Cell{exact}, schema))

	// Records dropped by the key filter never count toward the shape.
	ignored := make([]model.Cell, 50)
	assert.NoError(t, ValidateShape([][]model.Cell{ignored, exact}, schema))

	over := make([]model.Cell, schema.MaxWidth()+1)
	over[1] = model.TextCell("A")
	assert.ErrorIs(t, ValidateShape([][]model.Cell{exact, over}, schema), common.ErrShapeMismatch)
}

// fullRD05Record fills every RD05 position, including Compensation and Date_Edit.
func fullRD05Record(pea string) []model.Cell {
	record := make([]model.Cell, 22)
	record[0] = model.NumberCell(1)
	for i := 1; i < len(record); i++ {
		record[i] = model.TextCell("x")
	}
	record[1] = model.TextCell(pea)
	record[14] = model.NumberCell(1500)
	record[21] = model.TextCell("2024-05-01")
	return record
}

// fullRD03Record fills every RD03 position, with free-text Notes.
func fullRD03Record(pea string) []model.Cell {
	record := make([]model.Cell, 21)
	record[0] = model.NumberCell(1)
	for i := 1; i < len(record); i++ {
		record[i] = model.TextCell("x")
	}
	record[1] = model.TextCell(pea)
	record[14] = model.TextCell("เปลี่ยนสายใหม่")
	return record
}

func TestValidateShape_LayoutMarkers(t *testing.T) {
	schemaFor := func(mode model.Mode) model.Schema {
		s, err := model.SchemaFor(mode)
		require.NoError(t, err)
		return s
	}
	plain := rd03Record("C", "NT", "Aerial", model.Cell{}, model.Cell{})

	tests := []struct {
		name    string
		records [][]model.Cell
		mode    model.Mode
		wantErr bool
	}{
		{name: "rd05 sheet as rd05", mode: model.ModeRD05, records: [][]model.Cell{fullRD05Record("A")}},
		{name: "rd03 sheet as rd03", mode: model.ModeRD03, records: [][]model.Cell{fullRD03Record("A")}},
		{name: "rd05 sheet as rd03", mode: model.ModeRD03, records: [][]model.Cell{fullRD05Record("A"), fullRD05Record("B")}, wantErr: true},
		{name: "rd03 sheet as rd05", mode: model.ModeRD05, records: [][]model.Cell{fullRD03Record("A")}, wantErr: true},
		{name: "records without markers", mode: model.ModeRD05, records: [][]model.Cell{plain}},
		{
			name:    "foreign minority is tolerated",
			mode:    model.ModeRD03,
			records: [][]model.Cell{fullRD03Record("A"), fullRD03Record("B"), fullRD05Record("C")},
		},
		{
			name: "numeric text counts as a number",
			mode: model.ModeRD03,
			records: func() [][]model.Cell {
				r := fullRD05Record("A")
				r[14] = model.TextCell(" 1500 ")
				r[21] = model.Cell{}
				return [][]model.Cell{r}
			}(),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateShape(tt.records, schemaFor(tt.mode))
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrShapeMismatch)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestClassificationEngine_RunWrongModeFails(t *testing.T) {
	source := NewStaticSource("rd05.xlsx", [][]model.Cell{fullRD05Record("A")})

	result, err := New().Run(context.Background(), source, model.ModeRD03, nil)
	require.ErrorIs(t, err, common.ErrShapeMismatch)
	assert.Nil(t, result)

	_, err = New().Run(context.Background(), source, model.ModeRD05, nil)
	assert.NoError(t, err)
}
