package store

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// ErrActivityNotFound is returned when an activity doesn't exist
var ErrActivityNotFound = errors.New("activity not found")

// ErrRecordsNotFound is returned when an activity has no stored records
var ErrRecordsNotFound = errors.New("records not found")

// Backend persists activities and records. Implementations write each
// entity in one piece so a crash never leaves a partial entity behind.
type Backend interface {
	LoadActivities() ([]Activity, error)
	SaveActivity(a Activity) error
	RecordIDs() ([]string, error)
	LoadRecords(id string) (*Records, error)
	SaveRecords(id string, r *Records) error
	Close() error
}

// Observer is notified with the activities that changed since the last flush
type Observer interface {
	ActivitiesChanged(changed []Activity)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(changed []Activity)

// ActivitiesChanged calls f(changed)
func (f ObserverFunc) ActivitiesChanged(changed []Activity) { f(changed) }

// DefaultNotifyInterval bounds how often observers are called
const DefaultNotifyInterval = 250 * time.Millisecond

// Store owns the in-memory activity index and its persistence.
// One Store is constructed per process and handed to the importers.
type Store struct {
	backend Backend

	mu         sync.RWMutex
	activities map[string]Activity
	records    map[string]bool

	notifier *notifier
}

// New loads the index from the backend
func New(backend Backend, notifyInterval time.Duration) (*Store, error) {
	activities, err := backend.LoadActivities()
	if err != nil {
		return nil, fmt.Errorf("loading activities: %w", err)
	}
	recordIDs, err := backend.RecordIDs()
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}

	s := &Store{
		backend:    backend,
		activities: make(map[string]Activity, len(activities)),
		records:    make(map[string]bool, len(recordIDs)),
		notifier:   newNotifier(notifyInterval),
	}
	for _, a := range activities {
		s.activities[a.ID] = a
	}
	for _, id := range recordIDs {
		s.records[id] = true
	}
	return s, nil
}

// Close flushes pending notifications and closes the backend
func (s *Store) Close() error {
	s.notifier.close()
	return s.backend.Close()
}

// Subscribe registers an observer and returns a function that removes it
func (s *Store) Subscribe(o Observer) func() {
	return s.notifier.subscribe(o)
}

// GetAll returns every activity. Order is not guaranteed.
func (s *Store) GetAll() []Activity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]Activity, 0, len(s.activities))
	for _, a := range s.activities {
		all = append(all, a)
	}
	return all
}

// GetAllSorted returns every activity ordered by start time, oldest first
func (s *Store) GetAllSorted() []Activity {
	all := s.GetAll()
	SortByStartTime(all)
	return all
}

// Get retrieves an activity by ID
func (s *Store) Get(id string) (Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.activities[id]
	if !ok {
		return Activity{}, ErrActivityNotFound
	}
	return a, nil
}

// Has reports whether an activity with the given ID is stored
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.activities[id]
	return ok
}

// Count returns the number of stored activities
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.activities)
}

// Upsert inserts or replaces an activity. It reports whether anything was
// written; an activity identical to the stored one is not rewritten.
func (s *Store) Upsert(a Activity) (bool, error) {
	if err := validateID(a.ID); err != nil {
		return false, err
	}

	s.mu.Lock()
	if existing, ok := s.activities[a.ID]; ok && existing.Equal(a) {
		s.mu.Unlock()
		return false, nil
	}
	if err := s.backend.SaveActivity(a); err != nil {
		s.mu.Unlock()
		return false, fmt.Errorf("saving activity %s: %w", a.ID, err)
	}
	s.activities[a.ID] = a
	s.mu.Unlock()

	s.notifier.add(a)
	return true, nil
}

// HasRecords reports whether records are stored for the activity
func (s *Store) HasRecords(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.records[id]
}

// GetRecords loads the records of an activity
func (s *Store) GetRecords(id string) (*Records, error) {
	if !s.HasRecords(id) {
		return nil, ErrRecordsNotFound
	}
	return s.backend.LoadRecords(id)
}

// PutRecords replaces the records of an activity
func (s *Store) PutRecords(id string, r *Records) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := r.Validate(); err != nil {
		return fmt.Errorf("records for %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.SaveRecords(id, r); err != nil {
		return fmt.Errorf("saving records %s: %w", id, err)
	}
	s.records[id] = true
	return nil
}

// SortByStartTime orders activities by start time, oldest first
func SortByStartTime(activities []Activity) {
	sort.Slice(activities, func(i, j int) bool {
		if activities[i].StartTime.Equal(activities[j].StartTime) {
			return activities[i].ID < activities[j].ID
		}
		return activities[i].StartTime.Before(activities[j].StartTime)
	})
}

// validateID rejects ids that cannot be used as a file name
func validateID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("invalid activity id %q", id)
	}
	return nil
}
