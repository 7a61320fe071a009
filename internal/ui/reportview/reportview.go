// Package reportview renders classification reports for the terminal.
package reportview

import (
	"fmt"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"

	"github.com/abhisek/gradeval/internal/engine"
	"github.com/abhisek/gradeval/internal/ui/theme"
	"github.com/abhisek/gradeval/internal/values"
)

const minBarWidth = 4

// View renders a report as a bordered table with one share bar per label.
type View struct {
	Report   engine.Report
	BarWidth int
}

// New creates a view with the given bar width.
func New(r engine.Report, barWidth int) View {
	return View{Report: r, BarWidth: barWidth}
}

// Bar renders percent as a horizontal bar of width cells. Shares above 100
// fill the bar in the overflow colour.
func Bar(percent float64, width int) string {
	if width < minBarWidth {
		width = minBarWidth
	}
	fill := theme.BarFilled
	if percent > 100 {
		fill = theme.BarOver
	}

	filled := int(float64(width) * percent / 100)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	empty := width - filled

	return fill.Render(strings.Repeat(" ", filled)) +
		theme.BarEmpty.Render(strings.Repeat(" ", empty))
}

// Render draws the view.
func (v View) Render() string {
	if len(v.Report.Rows) == 0 {
		return theme.Hint.Render(fmt.Sprintf("no records classified (%d distinct)", v.Report.Distinct))
	}

	rows := make([][]string, 0, len(v.Report.Rows))
	for _, r := range v.Report.Rows {
		rows = append(rows, []string{
			r.Label,
			strconv.Itoa(r.Count),
			values.FormatFloat(r.Percent) + " %",
			Bar(r.Percent, v.BarWidth),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(theme.TableBorder).
		Headers("Label", "Count", "Share", "").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return theme.Header
			case col == 1 || col == 2:
				return theme.Number
			}
			return theme.Cell
		})

	title := theme.Title.Render(fmt.Sprintf("%d distinct records", v.Report.Distinct))
	return lipgloss.JoinVertical(lipgloss.Left, title, t.Render())
}
