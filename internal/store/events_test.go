package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticktock/internal/db"
	"ticktock/internal/domain"
	"ticktock/internal/events"
	"ticktock/internal/migrate"
)

func TestMutationsAppendAuditEvents(t *testing.T) {
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, migrate.Migrate(conn))

	writer := &events.Writer{DB: conn}
	s := New(Config{
		Path:   filepath.Join(workspace, "data", FileName),
		Events: writer,
	})
	ctx := context.Background()

	created, err := s.Create(ctx, week("", 3, "2026-01-12", 8))
	require.NoError(t, err)
	_, err = s.Update(ctx, created.ID, week("", 3, "2026-01-12", 8, 8))
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, created.ID))

	evts, err := writer.Tail(ctx, 10)
	require.NoError(t, err)
	require.Len(t, evts, 3)
	// Newest first.
	assert.Equal(t, "timesheet.deleted", evts[0].Type)
	assert.Equal(t, "timesheet.updated", evts[1].Type)
	assert.Equal(t, "timesheet.created", evts[2].Type)
	assert.Equal(t, created.ID, evts[2].EntryID)
}

func TestAuditLogFailureDoesNotFailMutation(t *testing.T) {
	workspace := t.TempDir()
	conn, err := db.Open(db.Config{Workspace: workspace})
	require.NoError(t, err)
	// No migration: the events table is missing, appends will fail.

	s := New(Config{
		Path:   filepath.Join(workspace, "data", FileName),
		Events: &events.Writer{DB: conn},
	})

	created, err := s.Create(context.Background(), domain.Entry{WeekNumber: 3, WeekStart: "2026-01-12", Days: []domain.Day{}})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
}
