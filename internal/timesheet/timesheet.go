// Package timesheet holds the pure week math: totals, derived status and
// date-range helpers shared by the HTTP API, the CLI tables and the
// spreadsheet export.
package timesheet

import (
	"fmt"
	"time"

	"ticktock/internal/domain"
)

const (
	// TargetWeekHours is the threshold at which a week counts as Complete.
	TargetWeekHours = 40
	// WeekDays is the number of represented days per week (Mon..Fri).
	WeekDays = 5
)

const dayLayout = "2006-01-02"

// TotalHours sums every task's hours across all days, in encounter order.
func TotalHours(e domain.Entry) float64 {
	var total float64
	for _, day := range e.Days {
		for _, task := range day.Tasks {
			total += float64(task.Hours)
		}
	}
	return total
}

// StatusFor classifies a week by its total hours.
func StatusFor(total float64) domain.Status {
	if total == 0 {
		return domain.StatusMissing
	}
	if total >= TargetWeekHours {
		return domain.StatusComplete
	}
	return domain.StatusIncomplete
}

// ParseDay parses an ISO calendar date (YYYY-MM-DD).
func ParseDay(s string) (time.Time, error) {
	return time.Parse(dayLayout, s)
}

// WeekEnd returns weekStart + 4 days, the last represented day of the week.
func WeekEnd(weekStart string) (time.Time, error) {
	start, err := ParseDay(weekStart)
	if err != nil {
		return time.Time{}, err
	}
	return start.AddDate(0, 0, WeekDays-1), nil
}

// FormatWeekRange renders the inclusive span weekStart..weekStart+4 for
// display: "2 - 6 March, 2026" within one month, "28 January - 1 February,
// 2026" across a month boundary. An unparseable start renders verbatim.
func FormatWeekRange(weekStart string) string {
	start, err := ParseDay(weekStart)
	if err != nil {
		return weekStart
	}
	end := start.AddDate(0, 0, WeekDays-1)
	if start.Month() == end.Month() {
		return fmt.Sprintf("%d - %d %s, %d", start.Day(), end.Day(), end.Month(), end.Year())
	}
	return fmt.Sprintf("%d %s - %d %s, %d", start.Day(), start.Month(), end.Day(), end.Month(), end.Year())
}

// WeekOverlaps reports whether the week starting at weekStart matches the
// inclusive day range [from, to]: it does when either the week's start or
// its end falls inside the range. Unparseable weeks never match.
func WeekOverlaps(weekStart string, from, to time.Time) bool {
	start, err := ParseDay(weekStart)
	if err != nil {
		return false
	}
	end := start.AddDate(0, 0, WeekDays-1)
	from = truncateDay(from)
	to = truncateDay(to)
	return within(start, from, to) || within(end, from, to)
}

func within(d, from, to time.Time) bool {
	return !d.Before(from) && !d.After(to)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
