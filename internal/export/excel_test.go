package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ticktock/internal/domain"
)

func weekEntry(id string, weekNumber int, weekStart string, hours float64) domain.Entry {
	tasks := []domain.Task{}
	if hours > 0 {
		tasks = append(tasks, domain.Task{ID: "t1", Name: "work", Hours: domain.Hours(hours)})
	}
	return domain.Entry{
		ID:         id,
		WeekNumber: weekNumber,
		WeekStart:  weekStart,
		Days:       []domain.Day{{Date: weekStart, Tasks: tasks}},
	}
}

func TestExcelWritesSortedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	entries := []domain.Entry{
		weekEntry("b", 4, "2026-01-19", 8),
		weekEntry("a", 3, "2026-01-12", 40),
	}
	require.NoError(t, Excel(path, entries))

	file, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer file.Close()
	sheet := file.GetSheetName(0)

	header, err := file.GetCellValue(sheet, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Week", header)

	// Rows come out ordered by week start, earliest first.
	week, err := file.GetCellValue(sheet, "A2")
	require.NoError(t, err)
	assert.Equal(t, "3", week)
	status, err := file.GetCellValue(sheet, "I2")
	require.NoError(t, err)
	assert.Equal(t, "Complete", status)

	status, err = file.GetCellValue(sheet, "I3")
	require.NoError(t, err)
	assert.Equal(t, "Incomplete", status)
}

func TestExcelEmptyCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, Excel(path, nil))

	file, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer file.Close()
	rows, err := file.GetRows(file.GetSheetName(0))
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")
}
