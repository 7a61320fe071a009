package reportview

import (
	"strings"
	"testing"

	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"

	"github.com/abhisek/gradeval/internal/engine"
)

func TestBarWidth(t *testing.T) {
	tests := []struct {
		name    string
		percent float64
		width   int
		want    int
	}{
		{"half", 50, 10, 10},
		{"empty", 0, 8, 8},
		{"overflow", 250, 10, 10},
		{"negative", -5, 10, 10},
		{"too narrow", 50, 1, minBarWidth},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ansi.Strip(Bar(tt.percent, tt.width))
			assert.Equal(t, tt.want, len(got))
			assert.Equal(t, strings.Repeat(" ", tt.want), got)
		})
	}
}

func TestRenderListsEveryRow(t *testing.T) {
	r := engine.Report{
		Distinct: 4,
		Rows: []engine.ReportRow{
			{Label: "Pass", Count: 2, Percent: 50},
			{Label: "Fail", Count: 3, Percent: 75},
		},
	}
	out := ansi.Strip(New(r, 10).Render())

	assert.Contains(t, out, "4 distinct records")
	assert.Contains(t, out, "Label")
	assert.Contains(t, out, "Pass")
	assert.Contains(t, out, "50 %")
	assert.Contains(t, out, "Fail")
	assert.Contains(t, out, "75 %")
	assert.Less(t, strings.Index(out, "Pass"), strings.Index(out, "Fail"), "rows keep report order")
}

func TestRenderEmptyReport(t *testing.T) {
	out := ansi.Strip(New(engine.Report{Distinct: 3}, 10).Render())
	assert.Equal(t, "no records classified (3 distinct)", out)
}
