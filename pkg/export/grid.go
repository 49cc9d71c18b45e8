package export

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/arnavshah/rota-matcher/pkg/models"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	nameStyle   = lipgloss.NewStyle().Width(18)
	cellStyle   = lipgloss.NewStyle().Width(5).Align(lipgloss.Center)
	offStyle    = cellStyle.Foreground(lipgloss.Color("8"))
	shiftStyle  = cellStyle.Foreground(lipgloss.Color("10"))
	totalStyle  = lipgloss.NewStyle().Width(7).Align(lipgloss.Right)
	summary     = lipgloss.NewStyle().MarginTop(1)
)

// RenderGrid draws the week as one row per person with the shift code
// worked on each day.
func RenderGrid(sched *models.Schedule) string {
	cells := weekCells(sched)

	header := []string{nameStyle.Render("")}
	for _, d := range models.Weekdays {
		header = append(header, cellStyle.Render(d.Short()))
	}
	header = append(header, totalStyle.Render("Total"))

	rows := []string{headerStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, header...))}
	for _, p := range sched.People {
		row := []string{nameStyle.Render(truncate(p.Label(), 17))}
		for d := range models.Weekdays {
			if code := cells[p.ID][d]; code != "" {
				row = append(row, shiftStyle.Render(code))
			} else {
				row = append(row, offStyle.Render("-"))
			}
		}
		row = append(row, totalStyle.Render(fmt.Sprint(sched.Workloads[p.ID])))
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}

	status := "complete"
	if !sched.ScheduleComplete {
		status = "incomplete"
	}
	rows = append(rows, summary.Render(fmt.Sprintf("Filled %d of %d slots (%s), fairness %.1f%%",
		sched.FilledCount, sched.TotalSlots, status, sched.FairnessScore)))

	return strings.Join(rows, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
