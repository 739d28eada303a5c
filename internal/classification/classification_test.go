package classification

import (
	"testing"

	"github.com/Veraticus/rd-classifier/internal/engine"
	"github.com/Veraticus/rd-classifier/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTargets(t *testing.T) {
	tests := []struct {
		name string
		rule model.Rule
		want model.TargetField
	}{
		{
			name: "dotted id targets group",
			rule: model.Rule{ID: "2.2.1", TargetField: model.FieldGroupConcession},
			want: model.FieldGroup,
		},
		{
			name: "dotted name targets group",
			rule: model.Rule{ID: "custom", Name: "4.1 fig8"},
			want: model.FieldGroup,
		},
		{
			name: "dotted result value targets group",
			rule: model.Rule{ID: "x", ResultValue: "3.0"},
			want: model.FieldGroup,
		},
		{
			name: "plain label targets concession",
			rule: model.Rule{ID: "map-nt", Name: "NT", TargetField: model.FieldGroup},
			want: model.FieldGroupConcession,
		},
		{
			name: "bare integer is not a group code",
			rule: model.Rule{ID: "3", Name: "three"},
			want: model.FieldGroupConcession,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _ := NormalizeTargets([]model.Rule{tt.rule})
			require.Len(t, out, 1)
			assert.Equal(t, tt.want, out[0].TargetField)
		})
	}
}

func TestNormalizeTargets_CountsChangesWithoutMutating(t *testing.T) {
	rules := []model.Rule{
		{ID: "1.1", TargetField: model.FieldGroup},
		{ID: "1.2"},
		{ID: "map", TargetField: model.FieldGroup},
	}

	out, changed := NormalizeTargets(rules)

	assert.Equal(t, 2, changed)
	assert.Equal(t, model.TargetField(""), rules[1].TargetField)
	assert.Equal(t, model.FieldGroup, out[1].TargetField)
	assert.Equal(t, model.FieldGroupConcession, out[2].TargetField)
}

func TestDefaultRulesAreNormalized(t *testing.T) {
	for name, rules := range map[string][]model.Rule{
		"RD03": DefaultRD03Rules(),
		"RD05": DefaultRD05Rules(),
	} {
		t.Run(name, func(t *testing.T) {
			_, changed := NormalizeTargets(rules)
			assert.Zero(t, changed)
		})
	}
}

func TestDefaultRulesLintClean(t *testing.T) {
	for _, mode := range []model.Mode{model.ModeRD03, model.ModeRD05} {
		schema, err := model.SchemaFor(mode)
		require.NoError(t, err)

		rules := DefaultRD03Rules()
		if mode == model.ModeRD05 {
			rules = DefaultRD05Rules()
		}
		assert.Empty(t, Lint(rules, schema), mode)
	}
}

func TestLint(t *testing.T) {
	schema, err := model.SchemaFor(model.ModeRD03)
	require.NoError(t, err)

	rules := []model.Rule{
		{ID: "bad-op", Conditions: []model.Condition{
			{Column: "PEA", Operator: "matches", Value: model.NewScalar("x")},
		}},
		{ID: "bad-range", Conditions: []model.Condition{
			{Column: "Diameter", Operator: model.OpBetween, Value: model.NewRange(9, 1)},
		}},
		{ID: "bad-shape", Conditions: []model.Condition{
			{Column: "Cores", Operator: model.OpInList, Value: model.NewScalar("1")},
		}},
		{ID: "bad-column", Conditions: []model.Condition{
			{Column: "Compensation", Operator: model.OpEquals, Value: model.NewScalar("x")},
		}},
	}

	issues := Lint(rules, schema)
	ids := make([]string, 0, len(issues))
	for _, issue := range issues {
		ids = append(ids, issue.RuleID)
	}
	assert.Equal(t, []string{"bad-op", "bad-range", "bad-shape", "bad-column"}, ids)
}

// rd03 builds a raw RD03 record with the owner, line type, diameter, cores
// and total distance filled in.
func rd03(owner, lineType string, diameter, cores, distance float64) []model.Cell {
	record := make([]model.Cell, 21)
	record[0] = model.NumberCell(1)
	record[1] = model.TextCell("PEA-01")
	record[5] = model.TextCell(owner)
	record[6] = model.TextCell(lineType)
	record[7] = model.NumberCell(diameter)
	record[8] = model.NumberCell(cores)
	record[11] = model.NumberCell(distance)
	return record
}

func TestDefaultRD03Rules_Classify(t *testing.T) {
	schema, err := model.SchemaFor(model.ModeRD03)
	require.NoError(t, err)

	tests := []struct {
		name           string
		record         []model.Cell
		wantConcession string
		wantGroup      string
	}{
		{
			name:           "digital ministry",
			record:         rd03(DigitalList[0], LineFiberADSS, 10, 12, 1),
			wantConcession: ConcessionDigital,
			wantGroup:      "1.1",
		},
		{
			name:           "nbtc",
			record:         rd03("NBTC/TOT", LineCopperCU, 10, 12, 1),
			wantConcession: ConcessionNBTC,
			wantGroup:      "1.2",
		},
		{
			name:           "coaxial regardless of owner",
			record:         rd03("unknown owner", LineCoaxial, 10, 12, 1),
			wantConcession: model.NotFound,
			wantGroup:      "1.3",
		},
		{
			name:           "short small nt dropwire",
			record:         rd03("-", LineFiberDropwire, 6, 2, 0.3),
			wantConcession: ConcessionNT,
			wantGroup:      "2.2.1",
		},
		{
			name:           "long nt dropwire",
			record:         rd03("-", LineFiberDropwire, 6, 1, 0.8),
			wantConcession: ConcessionNT,
			wantGroup:      "2.2.3",
		},
		{
			name:           "nt concession fiber",
			record:         rd03("TOT/AIS #สัมปทาน", LineFiberARSS, 6, 1, 0.8),
			wantConcession: ConcessionNTOwned,
			wantGroup:      "1.4",
		},
		{
			name:           "nt fig8",
			record:         rd03("บริษัท ทีโอที จำกัด(มหาชน)", LineFiberFig8, 10, 48, 2),
			wantConcession: ConcessionNT,
			wantGroup:      "4.1.1",
		},
		{
			name:           "non nt concession",
			record:         rd03("Big Patrol", "", 0, 0, 0),
			wantConcession: ConcessionNonNT,
			wantGroup:      "1.4",
		},
		{
			name:           "nothing known",
			record:         rd03("nobody", "", 0, 0, 0),
			wantConcession: model.NotFound,
			wantGroup:      model.NotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := engine.Classify([][]model.Cell{tt.record}, schema, DefaultRD03Rules(), nil)
			require.Len(t, rows, 1)
			assert.Equal(t, tt.wantConcession, rows[0].ConcessionLabel())
			assert.Equal(t, tt.wantGroup, rows[0].GroupLabel())
		})
	}
}

func TestDefaultRD05Rules_FallbackGroup(t *testing.T) {
	schema, err := model.SchemaFor(model.ModeRD05)
	require.NoError(t, err)

	record := rd03("nobody", "", 0, 0, 0)
	rows := engine.Classify([][]model.Cell{record}, schema, DefaultRD05Rules(), nil)
	require.Len(t, rows, 1)

	assert.Equal(t, "3.0", rows[0].GroupLabel())
	assert.True(t, rows[0].Group.Set)
}

func TestDefaultRules_ConditionShapes(t *testing.T) {
	var rules []model.Rule
	require.NotPanics(t, func() {
		rules = append(DefaultRD03Rules(), DefaultRD05Rules()...)
	})
	for _, rule := range rules {
		for _, c := range rule.Conditions {
			_, err := model.NewCondition(c.Column, c.Operator, c.Value)
			assert.NoError(t, err, "rule %s", rule.ID)
		}
	}
}
