package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/arnavshah/rota-matcher/pkg/models"
)

const (
	sheetWeek        = "Week"
	sheetAssignments = "Assignments"
	sheetWorkload    = "Workload"
)

// XLSX builds a workbook with three sheets: a person-by-day grid, the flat
// assignment list and per-person totals.
func XLSX(sched *models.Schedule) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetWeek); err != nil {
		return nil, err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}

	if err := writeWeekSheet(f, sched, headerStyle); err != nil {
		return nil, err
	}
	if err := writeAssignmentSheet(f, sched, headerStyle); err != nil {
		return nil, err
	}
	if err := writeWorkloadSheet(f, sched, headerStyle); err != nil {
		return nil, err
	}
	return f, nil
}

// WriteXLSX writes the workbook to w.
func WriteXLSX(w io.Writer, sched *models.Schedule) error {
	f, err := XLSX(sched)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteTo(w)
	return err
}

func writeHeader(f *excelize.File, sheet string, headers []string, style int) error {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	return f.SetRowStyle(sheet, 1, 1, style)
}

func writeWeekSheet(f *excelize.File, sched *models.Schedule, style int) error {
	headers := []string{"Person", "Profession"}
	for _, d := range models.Weekdays {
		headers = append(headers, d.Short())
	}
	headers = append(headers, "Total")
	if err := writeHeader(f, sheetWeek, headers, style); err != nil {
		return err
	}

	cells := weekCells(sched)
	for i, p := range sched.People {
		row := i + 2
		f.SetCellValue(sheetWeek, fmt.Sprintf("A%d", row), p.Label())
		f.SetCellValue(sheetWeek, fmt.Sprintf("B%d", row), p.Profession.String())
		for d := range models.Weekdays {
			cell, _ := excelize.CoordinatesToCellName(d+3, row)
			f.SetCellValue(sheetWeek, cell, cells[p.ID][d])
		}
		cell, _ := excelize.CoordinatesToCellName(len(models.Weekdays)+3, row)
		f.SetCellValue(sheetWeek, cell, sched.Workloads[p.ID])
	}
	return nil
}

func writeAssignmentSheet(f *excelize.File, sched *models.Schedule, style int) error {
	if _, err := f.NewSheet(sheetAssignments); err != nil {
		return err
	}
	if err := writeHeader(f, sheetAssignments, []string{"Day", "Shift", "Profession", "Position", "Person ID", "Name"}, style); err != nil {
		return err
	}
	for i, a := range sched.Assignments {
		row := i + 2
		f.SetCellValue(sheetAssignments, fmt.Sprintf("A%d", row), a.Day.String())
		f.SetCellValue(sheetAssignments, fmt.Sprintf("B%d", row), a.Category.String())
		f.SetCellValue(sheetAssignments, fmt.Sprintf("C%d", row), a.Profession.String())
		f.SetCellValue(sheetAssignments, fmt.Sprintf("D%d", row), a.Position)
		f.SetCellValue(sheetAssignments, fmt.Sprintf("E%d", row), a.PersonID)
		f.SetCellValue(sheetAssignments, fmt.Sprintf("F%d", row), a.Name)
	}
	return nil
}

func writeWorkloadSheet(f *excelize.File, sched *models.Schedule, style int) error {
	if _, err := f.NewSheet(sheetWorkload); err != nil {
		return err
	}
	if err := writeHeader(f, sheetWorkload, []string{"Person ID", "Shifts"}, style); err != nil {
		return err
	}
	for i, p := range sched.People {
		row := i + 2
		f.SetCellValue(sheetWorkload, fmt.Sprintf("A%d", row), p.ID)
		f.SetCellValue(sheetWorkload, fmt.Sprintf("B%d", row), sched.Workloads[p.ID])
	}

	summary := len(sched.People) + 3
	f.SetCellValue(sheetWorkload, fmt.Sprintf("A%d", summary), "Filled")
	f.SetCellValue(sheetWorkload, fmt.Sprintf("B%d", summary), fmt.Sprintf("%d/%d", sched.FilledCount, sched.TotalSlots))
	f.SetCellValue(sheetWorkload, fmt.Sprintf("A%d", summary+1), "Fairness")
	f.SetCellValue(sheetWorkload, fmt.Sprintf("B%d", summary+1), fmt.Sprintf("%.1f%%", sched.FairnessScore))
	return nil
}

// weekCells maps person ID to the shift codes worked on each day.
func weekCells(sched *models.Schedule) map[string][models.DaysPerWeek]string {
	cells := make(map[string][models.DaysPerWeek]string, len(sched.People))
	for _, a := range sched.Assignments {
		row := cells[a.PersonID]
		if row[a.Day] == "" {
			row[a.Day] = a.Category.Code()
		} else {
			row[a.Day] = strings.Join([]string{row[a.Day], a.Category.Code()}, "+")
		}
		cells[a.PersonID] = row
	}
	return cells
}
