package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticktock/internal/domain"
)

func newTestFlaggedStore(t *testing.T) *FlaggedStore {
	t.Helper()
	return NewFlagged(Config{Path: filepath.Join(t.TempDir(), "data", FlaggedFileName)})
}

func TestFlaggedCreateValidatesStatus(t *testing.T) {
	s := newTestFlaggedStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, domain.FlaggedEntry{WeekNumber: 3, Date: "2026-01-12", Status: "Done"})
	assert.ErrorIs(t, err, ErrInvalidStatus)

	created, err := s.Create(ctx, domain.FlaggedEntry{WeekNumber: 3, Date: "2026-01-12", Status: domain.FlagPending})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, domain.FlagPending, created.Status)
}

func TestFlaggedUpdate(t *testing.T) {
	s := newTestFlaggedStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, domain.FlaggedEntry{WeekNumber: 3, Date: "2026-01-12", Status: domain.FlagPending})
	require.NoError(t, err)

	updated, err := s.Update(ctx, created.ID, domain.FlaggedEntry{WeekNumber: 3, Date: "2026-01-12", Status: domain.FlagApproved})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, domain.FlagApproved, updated.Status)

	// No natural-key fallback in this variant.
	_, err = s.Update(ctx, "no-such-id", domain.FlaggedEntry{WeekNumber: 3, Date: "2026-01-12", Status: domain.FlagSubmitted})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.Update(ctx, created.ID, domain.FlaggedEntry{WeekNumber: 3, Date: "2026-01-12", Status: "Rejected"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestFlaggedDeleteAlwaysSucceeds(t *testing.T) {
	s := newTestFlaggedStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, domain.FlaggedEntry{WeekNumber: 3, Date: "2026-01-12", Status: domain.FlagSubmitted})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "no-such-id"))
	require.NoError(t, s.Delete(ctx, created.ID))

	entries, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = s.Get(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
