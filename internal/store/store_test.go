package store

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticktock/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return New(Config{
		Path:   filepath.Join(t.TempDir(), "data", FileName),
		Logger: log.New(os.Stderr, "test: ", 0),
	})
}

func week(id string, weekNumber int, weekStart string, hoursPerTask ...float64) domain.Entry {
	day := domain.Day{Date: weekStart, Tasks: []domain.Task{}}
	for i, h := range hoursPerTask {
		day.Tasks = append(day.Tasks, domain.Task{
			ID:    string(rune('a' + i)),
			Name:  "work",
			Hours: domain.Hours(h),
		})
	}
	return domain.Entry{ID: id, WeekNumber: weekNumber, WeekStart: weekStart, Days: []domain.Day{day}}
}

func TestSanitizeIdempotent(t *testing.T) {
	messy := []domain.Entry{
		week("", 3, "2026-01-12", 10),
		week("dup", 3, "2026-01-12", 20),
		week("dup", 4, "2026-01-19"),
		{ID: "w5", WeekNumber: 5, WeekStart: "2026-01-26"}, // nil days
	}

	once, changed := Sanitize(messy)
	require.True(t, changed)

	twice, changedAgain := Sanitize(once)
	assert.False(t, changedAgain)
	assert.Equal(t, once, twice)
}

func TestSanitizeKeepsHigherTotal(t *testing.T) {
	entries := []domain.Entry{
		week("a", 3, "2026-01-12", 10),
		week("b", 3, "2026-01-12", 20),
	}
	out, changed := Sanitize(entries)
	require.True(t, changed)
	require.Len(t, out, 1)
	assert.Equal(t, "b", out[0].ID)
}

func TestSanitizeTieBreaksOnTaskCount(t *testing.T) {
	entries := []domain.Entry{
		week("two-tasks", 3, "2026-01-12", 5, 5),
		week("three-tasks", 3, "2026-01-12", 4, 3, 3),
	}
	out, _ := Sanitize(entries)
	require.Len(t, out, 1)
	assert.Equal(t, "three-tasks", out[0].ID)
}

func TestSanitizeFullTieKeepsFirst(t *testing.T) {
	entries := []domain.Entry{
		week("first", 3, "2026-01-12", 5, 5),
		week("second", 3, "2026-01-12", 5, 5),
	}
	out, _ := Sanitize(entries)
	require.Len(t, out, 1)
	assert.Equal(t, "first", out[0].ID)
}

func TestSanitizeRepairsIDs(t *testing.T) {
	entries := []domain.Entry{
		week("", 3, "2026-01-12", 8),
		week("w4", 4, "2026-01-19", 8),
		week("w4", 5, "2026-01-26", 8), // duplicate id
	}
	out, changed := Sanitize(entries)
	require.True(t, changed)
	require.Len(t, out, 3)
	assert.Equal(t, "w3", out[0].ID)
	assert.Equal(t, "w4", out[1].ID)
	assert.Equal(t, "w5", out[2].ID)
}

func TestSanitizeFallbackIDChain(t *testing.T) {
	entries := []domain.Entry{
		{ID: "w6", WeekNumber: 6, WeekStart: "2026-02-02"},
		{ID: "w6-2026-02-09", WeekNumber: 6, WeekStart: "2026-02-09"},
		{ID: "w6", WeekNumber: 6, WeekStart: "2026-02-09"}, // deduped away
		{ID: "w6", WeekNumber: 6, WeekStart: "2026-02-16", Days: []domain.Day{{Date: "2026-02-16", Tasks: []domain.Task{{Hours: 1}}}}},
	}
	out, _ := Sanitize(entries)
	// The two 2026-02-09 weeks dedupe; the 02-16 duplicate-id week stays.
	require.Len(t, out, 3)
	assert.Equal(t, "w6", out[0].ID)
	assert.Equal(t, "w6-2026-02-09", out[1].ID)
	assert.Equal(t, "w6-2026-02-16", out[2].ID)
}

func TestSanitizeNormalizesNegativeHours(t *testing.T) {
	entries := []domain.Entry{week("a", 3, "2026-01-12", -5, 8)}
	out, changed := Sanitize(entries)
	require.True(t, changed)
	assert.Equal(t, domain.Hours(0), out[0].Days[0].Tasks[0].Hours)
	assert.Equal(t, domain.Hours(8), out[0].Days[0].Tasks[1].Hours)
}

func TestCreateRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, week("", 3, "2026-01-12", 8, 4))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestCreatePrepends(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, week("", 3, "2026-01-12", 8))
	require.NoError(t, err)
	_, err = s.Create(ctx, week("", 4, "2026-01-19", 8))
	require.NoError(t, err)

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 4, entries[0].WeekNumber, "most recent first")
	assert.Equal(t, 3, entries[1].WeekNumber)
}

func TestCreateDuplicateWeekResolvesToWinner(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	existing, err := s.Create(ctx, week("", 3, "2026-01-12", 8, 8, 8))
	require.NoError(t, err)

	// Fewer hours than the stored week: sanitation keeps the original.
	stored, err := s.Create(ctx, week("", 3, "2026-01-12", 2))
	require.NoError(t, err)
	assert.Equal(t, existing.ID, stored.ID)
	assert.Equal(t, existing.Days, stored.Days)

	entries, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestGetFallbackChain(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, week("", 3, "2026-01-12", 8))
	require.NoError(t, err)

	byWeek, err := s.Get(ctx, "w3")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byWeek.ID)

	byBareNumber, err := s.Get(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byBareNumber.ID)

	byDate, err := s.Get(ctx, "2026-01-12")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byDate.ID)

	_, err = s.Get(ctx, "w99")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(ctx, "nonsense")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetPrefersExactID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// An entry whose literal id is "w3" must shadow week-number matching.
	other, err := s.Create(ctx, week("", 3, "2026-01-12", 8))
	require.NoError(t, err)
	_, err = s.Update(ctx, "w3", week("", 9, "2026-03-02", 1))
	require.NoError(t, err)

	got, err := s.Get(ctx, "w3")
	require.NoError(t, err)
	assert.Equal(t, 9, got.WeekNumber)
	assert.NotEqual(t, other.ID, got.ID)
}

func TestUpdateExactID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, week("", 3, "2026-01-12", 8))
	require.NoError(t, err)

	updated, err := s.Update(ctx, created.ID, week("", 3, "2026-01-12", 8, 8))
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, 2, updated.TaskCount())
}

func TestUpdateMatchesNaturalKey(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, week("", 3, "2026-01-12", 8))
	require.NoError(t, err)

	// Nonexistent id, but the data names the same week: the existing
	// entry absorbs the update and keeps its id, not the caller's.
	updated, err := s.Update(ctx, "no-such-id", week("", 3, "2026-01-12", 8, 8, 8))
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, 3, updated.TaskCount())

	entries, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestUpdateCreatesWithCallerID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	updated, err := s.Update(ctx, "caller-id", week("", 3, "2026-01-12", 8))
	require.NoError(t, err)
	assert.Equal(t, "caller-id", updated.ID)

	got, err := s.Get(ctx, "caller-id")
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestDeleteMissingIDSucceeds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, week("", 3, "2026-01-12", 8))
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "no-such-id"))

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, created.ID, entries[0].ID)

	require.NoError(t, s.Delete(ctx, created.ID))
	entries, err = s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCorruptFileDegradesToEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	s := New(Config{Path: path})
	ctx := context.Background()

	entries, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	// Writes recover the file.
	_, err = s.Create(ctx, week("", 3, "2026-01-12", 8))
	require.NoError(t, err)
	entries, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestListRewritesRepairedCollection(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	raw := `[
  {"id":"","weekNumber":3,"weekStart":"2026-01-12","days":[{"date":"2026-01-12","tasks":[{"id":"t1","name":"a","hours":"8"}]}]},
  {"id":"x","weekNumber":3,"weekStart":"2026-01-12","days":[]}
]`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))
	s := New(Config{Path: path})

	entries, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	// String-encoded hours coerce on load; the fuller week wins the merge.
	assert.Equal(t, domain.Hours(8), entries[0].Days[0].Tasks[0].Hours)
	assert.Equal(t, "w3", entries[0].ID)

	// The repaired form was persisted back.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk []domain.Entry
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, entries, onDisk)
}
