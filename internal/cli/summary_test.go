package cli

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/Veraticus/rd-classifier/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summaryResult() *model.Result {
	return &model.Result{
		Mode:   model.ModeRD03,
		Source: "north.xlsx",
		Summary: model.SummaryData{
			TotalRows:   4,
			Groups:      map[string]int{"4.1.1": 3, model.NotFound: 1},
			Concessions: map[string]int{"NT": 4},
			LineTypes:   map[string]int{"Unknown": 4},
			UniqueValues: map[string]model.UniqueSet{
				"Cores": {Numeric: true, Numbers: []float64{12, 24}},
			},
		},
	}
}

func TestRenderSummary(t *testing.T) {
	out := RenderSummary(summaryResult())

	for _, want := range []string{"north.xlsx", "RD03", "4.1.1", model.NotFound, "75.0%", "Cores: 2 distinct"} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "4.1.1"), strings.Index(out, model.NotFound), "larger counts first")
}

func TestRenderSummary_EmptyAndLongTables(t *testing.T) {
	groups := make(map[string]int)
	for i := range maxTallyRows + 3 {
		groups[fmt.Sprintf("g%02d", i)] = 1
	}
	out := RenderSummary(&model.Result{Mode: model.ModeRD05, Summary: model.SummaryData{Groups: groups}})

	assert.Contains(t, out, "Classification")
	assert.Contains(t, out, "3 more")
	assert.Contains(t, out, "none")
}

func TestWriteTally(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTally(&buf, "group", map[string]int{"b": 1, "a": 3}, 4))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "GROUP"))
	assert.Equal(t, []string{"a", "3", "75.0%"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"b", "1", "25.0%"}, strings.Fields(lines[2]))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "ไม่พบ…", truncate("ไม่พบกลุ่ม", 6))
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 2, "Classifying")
	p.Step()
	p.Update(500, 1000)
	p.Finish()
	assert.Contains(t, buf.String(), "Classifying")
}

func TestFormatLabel(t *testing.T) {
	assert.Equal(t, "4.1.1", FormatLabel("4.1.1"))
	assert.Contains(t, FormatLabel(model.NotFound), model.NotFound)
}
