package state

import (
	"fmt"
	"sync"
	"time"

	"github.com/sensecoach/coach/internal/sensecoach"
)

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Events              []sensecoach.Event
	Children            []string
	Membership          sensecoach.Membership
	HasMembership       bool
	Loaded              bool // At least one refresh succeeded
	LastUpdated         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive refresh failures
}

// IsOffline returns true when the service has failed several refreshes in a row.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Event returns the cached event with the given id.
func (s Snapshot) Event(id int64) (sensecoach.Event, bool) {
	for _, ev := range s.Events {
		if ev.ID == id {
			return ev, true
		}
	}
	return sensecoach.Event{}, false
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update replaces the stored snapshot. When err is non-nil the previous data is
// kept but the error is recorded for visibility. A nil membership keeps the
// previous one, since the plan is fetched on a best-effort basis.
func (s *Store) Update(events []sensecoach.Event, children []string, membership *sensecoach.Membership, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastUpdated = time.Now()
		s.snapshot.ConsecutiveFailures++
		return
	}

	s.snapshot.Events = cloneEvents(events)
	s.snapshot.Children = cloneStrings(children)
	if membership != nil {
		s.snapshot.Membership = *membership
		s.snapshot.HasMembership = true
	}
	s.snapshot.Loaded = true
	s.snapshot.LastError = nil
	s.snapshot.LastUpdated = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// PutEvent replaces the cached copy of one event after it was refetched.
// Events not already cached are ignored; the next full refresh places them.
func (s *Store) PutEvent(ev sensecoach.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.snapshot.Events {
		if s.snapshot.Events[i].ID == ev.ID {
			s.snapshot.Events[i] = cloneEvent(ev)
			return
		}
	}
}

// RemoveEvent drops an event from the cache.
func (s *Store) RemoveEvent(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.snapshot.Events[:0]
	for _, ev := range s.snapshot.Events {
		if ev.ID != id {
			events = append(events, ev)
		}
	}
	s.snapshot.Events = events
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Events = cloneEvents(s.snapshot.Events)
	snap.Children = cloneStrings(s.snapshot.Children)
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}

func cloneEvents(events []sensecoach.Event) []sensecoach.Event {
	if len(events) == 0 {
		return nil
	}
	dup := make([]sensecoach.Event, len(events))
	for i, ev := range events {
		dup[i] = cloneEvent(ev)
	}
	return dup
}

func cloneEvent(ev sensecoach.Event) sensecoach.Event {
	ev.ChecklistItems = cloneStrings(ev.ChecklistItems)
	if ev.Checklist != nil {
		items := make([]sensecoach.ChecklistItem, len(ev.Checklist))
		copy(items, ev.Checklist)
		ev.Checklist = items
	}
	return ev
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	dup := make([]string, len(values))
	copy(dup, values)
	return dup
}
