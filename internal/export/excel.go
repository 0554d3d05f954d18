// Package export writes timesheet collections to spreadsheet workbooks.
package export

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"ticktock/internal/domain"
	"ticktock/internal/timesheet"
)

// Excel writes one row per week: week number, date range, hours per
// represented weekday, total and derived status.
func Excel(path string, entries []domain.Entry) error {
	file := excelize.NewFile()
	defer file.Close()

	sheet := file.GetSheetName(0)
	headers := []string{"Week", "Range", "Mon", "Tue", "Wed", "Thu", "Fri", "Total", "Status"}

	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := file.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("set excel header %s: %w", cell, err)
		}
	}

	sorted := make([]domain.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].WeekStart < sorted[j].WeekStart })

	for i, entry := range sorted {
		row := i + 2
		total := timesheet.TotalHours(entry)
		values := []any{
			entry.WeekNumber,
			timesheet.FormatWeekRange(entry.WeekStart),
		}
		for _, hours := range dailyHours(entry) {
			values = append(values, hours)
		}
		values = append(values, total, string(timesheet.StatusFor(total)))

		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			if err := file.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("set excel value %s: %w", cell, err)
			}
		}
	}

	if err := file.SaveAs(path); err != nil {
		return fmt.Errorf("save excel output %s: %w", path, err)
	}

	return nil
}

// dailyHours sums each day's tasks into a fixed-width week of columns.
// Days are written in stored order, which the store keeps Monday-first.
func dailyHours(entry domain.Entry) []float64 {
	hours := make([]float64, timesheet.WeekDays)
	for i, day := range entry.Days {
		if i >= timesheet.WeekDays {
			break
		}
		for _, task := range day.Tasks {
			hours[i] += float64(task.Hours)
		}
	}
	return hours
}
