package store

import (
	"fmt"
	"math"
	"reflect"

	"ticktock/internal/domain"
	"ticktock/internal/timesheet"
)

// Sanitize returns the self-healed form of a collection and whether it
// differs from the input. It is idempotent: sanitizing its own output is a
// no-op. The input is never mutated.
//
// The pass runs three repairs in order:
//  1. normalize every task's hours to a finite, non-negative number and
//     every nil day/task slice to an empty one;
//  2. deduplicate by the (weekNumber, weekStart) natural key, keeping the
//     entry with the most hours, then the most tasks, then the first
//     encountered;
//  3. assign missing or duplicate ids a deterministic fallback.
func Sanitize(in []domain.Entry) ([]domain.Entry, bool) {
	if len(in) == 0 {
		return []domain.Entry{}, false
	}
	out := cloneEntries(in)
	normalize(out)
	out = dedupe(out)
	repairIDs(out)
	return out, !reflect.DeepEqual(in, out)
}

func cloneEntries(entries []domain.Entry) []domain.Entry {
	out := make([]domain.Entry, len(entries))
	for i, e := range entries {
		days := make([]domain.Day, len(e.Days))
		for j, d := range e.Days {
			tasks := make([]domain.Task, len(d.Tasks))
			copy(tasks, d.Tasks)
			days[j] = domain.Day{Date: d.Date, Tasks: tasks}
		}
		out[i] = domain.Entry{ID: e.ID, WeekNumber: e.WeekNumber, WeekStart: e.WeekStart, Days: days}
	}
	return out
}

func normalize(entries []domain.Entry) {
	for i := range entries {
		if entries[i].Days == nil {
			entries[i].Days = []domain.Day{}
		}
		for j := range entries[i].Days {
			day := &entries[i].Days[j]
			if day.Tasks == nil {
				day.Tasks = []domain.Task{}
			}
			for k := range day.Tasks {
				h := float64(day.Tasks[k].Hours)
				if math.IsNaN(h) || math.IsInf(h, 0) || h < 0 {
					day.Tasks[k].Hours = 0
				}
			}
		}
	}
}

// dedupe keeps one winner per natural key, at the winner's own position.
func dedupe(entries []domain.Entry) []domain.Entry {
	type pick struct {
		idx   int
		total float64
		tasks int
	}
	best := map[string]pick{}
	for i, e := range entries {
		candidate := pick{idx: i, total: timesheet.TotalHours(e), tasks: e.TaskCount()}
		current, seen := best[e.NaturalKey()]
		if !seen || beats(candidate.total, candidate.tasks, current.total, current.tasks) {
			best[e.NaturalKey()] = candidate
		}
	}
	if len(best) == len(entries) {
		return entries
	}
	out := entries[:0]
	for i, e := range entries {
		if best[e.NaturalKey()].idx == i {
			out = append(out, e)
		}
	}
	return out
}

// beats prefers higher total hours, then more tasks. Equal on both counts
// loses: the earlier entry stays.
func beats(total float64, tasks int, curTotal float64, curTasks int) bool {
	if total != curTotal {
		return total > curTotal
	}
	return tasks > curTasks
}

// repairIDs gives empty and duplicate ids a deterministic fallback, trying
// w<weekNumber>, then w<weekNumber>-<weekStart>, then numeric suffixes.
// The first holder of an id keeps it.
func repairIDs(entries []domain.Entry) {
	used := make(map[string]bool, len(entries))
	for i := range entries {
		id := entries[i].ID
		if id != "" && !used[id] {
			used[id] = true
			continue
		}
		id = fallbackID(entries[i], used)
		entries[i].ID = id
		used[id] = true
	}
}

func fallbackID(e domain.Entry, used map[string]bool) string {
	short := fmt.Sprintf("w%d", e.WeekNumber)
	if !used[short] {
		return short
	}
	long := fmt.Sprintf("%s-%s", short, e.WeekStart)
	if !used[long] {
		return long
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", long, n)
		if !used[candidate] {
			return candidate
		}
	}
}
