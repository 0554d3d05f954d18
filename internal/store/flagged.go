package store

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"ticktock/internal/domain"
	"ticktock/internal/events"
)

const FlaggedFileName = "flagged.json"

var ErrInvalidStatus = errors.New("invalid status")

// FlaggedStore persists the status-flagged schema variant: one flat row
// per week with a user-assigned status. It shares the store's file layout
// and failure semantics but has no sanitize pass; the flat shape has no
// nested hours to repair and ids are always server-assigned.
type FlaggedStore struct {
	path   string
	logger *log.Logger
	events *events.Writer
	mu     sync.Mutex
}

// NewFlagged returns a FlaggedStore over cfg.Path.
func NewFlagged(cfg Config) *FlaggedStore {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &FlaggedStore{path: cfg.Path, logger: logger, events: cfg.Events}
}

func (s *FlaggedStore) load() []domain.FlaggedEntry {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var entries []domain.FlaggedEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Printf("store: unreadable flagged collection at %s, treating as empty: %v", s.path, err)
		return nil
	}
	return entries
}

func (s *FlaggedStore) persist(entries []domain.FlaggedEntry) error {
	if entries == nil {
		entries = []domain.FlaggedEntry{}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0o644)
}

func (s *FlaggedStore) List(ctx context.Context) ([]domain.FlaggedEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries := s.load()
	if entries == nil {
		entries = []domain.FlaggedEntry{}
	}
	return entries, nil
}

func (s *FlaggedStore) Get(ctx context.Context, id string) (domain.FlaggedEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.load() {
		if e.ID == id {
			return e, nil
		}
	}
	return domain.FlaggedEntry{}, ErrNotFound
}

func (s *FlaggedStore) Create(ctx context.Context, data domain.FlaggedEntry) (domain.FlaggedEntry, error) {
	if !domain.ValidFlagStatus(data.Status) {
		return domain.FlaggedEntry{}, ErrInvalidStatus
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := data
	entry.ID = uuid.NewString()
	entries := append([]domain.FlaggedEntry{entry}, s.load()...)
	if err := s.persist(entries); err != nil {
		return domain.FlaggedEntry{}, err
	}
	s.appendEvent(ctx, "timesheet.created", entry.ID, flaggedPayload(entry))
	return entry, nil
}

// Update replaces the entry with an exact id match. Unlike the task-based
// store there is no natural-key fallback; a missing id is not-found.
func (s *FlaggedStore) Update(ctx context.Context, id string, data domain.FlaggedEntry) (domain.FlaggedEntry, error) {
	if !domain.ValidFlagStatus(data.Status) {
		return domain.FlaggedEntry{}, ErrInvalidStatus
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()
	for i, e := range entries {
		if e.ID == id {
			updated := data
			updated.ID = e.ID
			entries[i] = updated
			if err := s.persist(entries); err != nil {
				return domain.FlaggedEntry{}, err
			}
			s.appendEvent(ctx, "timesheet.updated", updated.ID, flaggedPayload(updated))
			return updated, nil
		}
	}
	return domain.FlaggedEntry{}, ErrNotFound
}

func (s *FlaggedStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()
	kept := entries[:0:0]
	for _, e := range entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if err := s.persist(kept); err != nil {
		return err
	}
	s.appendEvent(ctx, "timesheet.deleted", id, nil)
	return nil
}

func (s *FlaggedStore) appendEvent(ctx context.Context, evtType, entryID string, payload events.Payload) {
	if s.events == nil {
		return
	}
	if err := s.events.Append(ctx, evtType, entryID, payload); err != nil {
		s.logger.Printf("store: append %s event: %v", evtType, err)
	}
}

func flaggedPayload(e domain.FlaggedEntry) events.Payload {
	return events.Payload{
		"weekNumber": e.WeekNumber,
		"date":       e.Date,
		"status":     e.Status,
	}
}
