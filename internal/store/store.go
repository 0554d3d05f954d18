// Package store owns the canonical timesheet collection: a single
// pretty-printed JSON array on disk, rewritten whole on every mutation.
// Every read and write runs the sanitize pass (dedup by natural key plus
// id repair), so the file self-heals from duplicate-prone writes.
//
// A mutex serializes operations within this process. There is no file
// locking: two processes racing on read-modify-write can lose an update,
// an accepted limitation of the single-document design.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"ticktock/internal/domain"
	"ticktock/internal/events"
)

const FileName = "timesheets.json"

var ErrNotFound = errors.New("not found")

var (
	weekIDPattern  = regexp.MustCompile(`^w(\d+)$`)
	bareNumber     = regexp.MustCompile(`^\d+$`)
	isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Config for a Store.
type Config struct {
	// Path of the backing JSON document.
	Path string
	// Logger for id-reassignment and event-log warnings. Defaults to
	// log.Default().
	Logger *log.Logger
	// Events receives an audit record per mutation; nil disables logging.
	Events *events.Writer
}

type Store struct {
	path   string
	logger *log.Logger
	events *events.Writer
	mu     sync.Mutex
}

// New returns a Store over cfg.Path.
func New(cfg Config) *Store {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Store{path: cfg.Path, logger: logger, events: cfg.Events}
}

// load reads the whole collection. A missing, unreadable or corrupt file
// degrades to an empty collection; storage failures are never surfaced.
func (s *Store) load() []domain.Entry {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil
	}
	var entries []domain.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		s.logger.Printf("store: unreadable collection at %s, treating as empty: %v", s.path, err)
		return nil
	}
	return entries
}

// persist rewrites the whole collection, creating the parent directory as
// needed.
func (s *Store) persist(entries []domain.Entry) error {
	if entries == nil {
		entries = []domain.Entry{}
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

// loadSanitized loads the collection, sanitizes it and writes the repaired
// form back when anything changed.
func (s *Store) loadSanitized(ctx context.Context) ([]domain.Entry, error) {
	entries := s.load()
	sanitized, changed := Sanitize(entries)
	if changed {
		if err := s.persist(sanitized); err != nil {
			return nil, err
		}
		s.appendEvent(ctx, "timesheet.sanitized", "", events.Payload{"entries": len(sanitized)})
	}
	return sanitized, nil
}

// List returns the sanitized collection in storage order, most recently
// created first.
func (s *Store) List(ctx context.Context) ([]domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadSanitized(ctx)
}

// Get resolves id through the fallback chain: exact id, then w<digits> or
// a bare integer against the week number, then an ISO date against the
// week start.
func (s *Store) Get(ctx context.Context, id string) (domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.loadSanitized(ctx)
	if err != nil {
		return domain.Entry{}, err
	}
	return resolve(entries, id)
}

func resolve(entries []domain.Entry, id string) (domain.Entry, error) {
	for _, e := range entries {
		if e.ID == id {
			return e, nil
		}
	}
	if m := weekIDPattern.FindStringSubmatch(id); m != nil {
		return byWeekNumber(entries, m[1])
	}
	if bareNumber.MatchString(id) {
		return byWeekNumber(entries, id)
	}
	if isoDatePattern.MatchString(id) {
		for _, e := range entries {
			if e.WeekStart == id {
				return e, nil
			}
		}
	}
	return domain.Entry{}, ErrNotFound
}

func byWeekNumber(entries []domain.Entry, digits string) (domain.Entry, error) {
	week, err := strconv.Atoi(digits)
	if err != nil {
		return domain.Entry{}, ErrNotFound
	}
	for _, e := range entries {
		if e.WeekNumber == week {
			return e, nil
		}
	}
	return domain.Entry{}, ErrNotFound
}

// Create assigns a fresh id, prepends the entry and sanitizes the whole
// collection. Sanitation may merge the new entry into an existing week or
// reassign its id; the returned entry is the form actually stored.
func (s *Store) Create(ctx context.Context, data domain.Entry) (domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := data
	entry.ID = uuid.NewString()
	entries := append([]domain.Entry{entry}, s.load()...)
	sanitized, _ := Sanitize(entries)
	if err := s.persist(sanitized); err != nil {
		return domain.Entry{}, err
	}
	stored, err := byNaturalKey(sanitized, entry)
	if err != nil {
		return domain.Entry{}, err
	}
	if stored.ID != entry.ID {
		s.logger.Printf("store: create for week %d (%s) resolved to existing entry %s, assigned id %s discarded", entry.WeekNumber, entry.WeekStart, stored.ID, entry.ID)
	}
	s.appendEvent(ctx, "timesheet.created", stored.ID, entryPayload(stored))
	return stored, nil
}

// Update resolves its target in three tiers: an exact id match is merged
// in place; failing that, an entry sharing the natural key absorbs the
// data and keeps its own id; failing both, a new entry is created with the
// caller's id verbatim.
func (s *Store) Update(ctx context.Context, id string, data domain.Entry) (domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.load()
	merged := data
	merged.ID = id
	matched := false
	for i, e := range entries {
		if e.ID == id {
			merged.ID = e.ID
			entries[i] = merged
			matched = true
			break
		}
	}
	if !matched {
		for i, e := range entries {
			if e.WeekNumber == data.WeekNumber && e.WeekStart == data.WeekStart {
				merged.ID = e.ID
				entries[i] = merged
				matched = true
				s.logger.Printf("store: update %s matched week %d (%s) by natural key, keeping id %s", id, e.WeekNumber, e.WeekStart, e.ID)
				break
			}
		}
	}
	if !matched {
		entries = append([]domain.Entry{merged}, entries...)
	}

	sanitized, _ := Sanitize(entries)
	if err := s.persist(sanitized); err != nil {
		return domain.Entry{}, err
	}
	stored, err := byNaturalKey(sanitized, merged)
	if err != nil {
		return domain.Entry{}, err
	}
	if stored.ID != id {
		s.logger.Printf("store: update targeted id %s but stored entry has id %s", id, stored.ID)
	}
	s.appendEvent(ctx, "timesheet.updated", stored.ID, entryPayload(stored))
	return stored, nil
}

// Delete removes exact-id matches and persists unconditionally. Deleting a
// nonexistent id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
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

// byNaturalKey finds the surviving entry for ref's week. Sanitation keeps
// exactly one entry per (weekNumber, weekStart) pair, so after a create or
// update this is the stored form of the written data.
func byNaturalKey(entries []domain.Entry, ref domain.Entry) (domain.Entry, error) {
	for _, e := range entries {
		if e.WeekNumber == ref.WeekNumber && e.WeekStart == ref.WeekStart {
			return e, nil
		}
	}
	return domain.Entry{}, fmt.Errorf("entry for week %d (%s) missing after sanitize", ref.WeekNumber, ref.WeekStart)
}

func (s *Store) appendEvent(ctx context.Context, evtType, entryID string, payload events.Payload) {
	if s.events == nil {
		return
	}
	if err := s.events.Append(ctx, evtType, entryID, payload); err != nil {
		s.logger.Printf("store: append %s event: %v", evtType, err)
	}
}

func entryPayload(e domain.Entry) events.Payload {
	return events.Payload{
		"weekNumber": e.WeekNumber,
		"weekStart":  e.WeekStart,
		"tasks":      e.TaskCount(),
	}
}
