package state

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/sensecoach/coach/internal/sensecoach"
)

func sampleEvents() []sensecoach.Event {
	return []sensecoach.Event{
		{ID: 1, Name: "소풍", Checklist: []sensecoach.ChecklistItem{{ID: 10, Name: "도시락"}}},
		{ID: 2, Name: "상담"},
	}
}

func TestStore_UpdateAndSnapshotClone(t *testing.T) {
	var s Store

	membership := &sensecoach.Membership{Tier: "FREE", Limit: 5}
	before := time.Now()
	s.Update(sampleEvents(), []string{"민수"}, membership, nil)

	snap := s.Snapshot()
	if !snap.Loaded || !snap.HasMembership || snap.Membership.Limit != 5 {
		t.Fatalf("snapshot = %#v, want loaded with membership", snap)
	}
	if len(snap.Events) != 2 || snap.Events[0].ID != 1 {
		t.Fatalf("snapshot events = %#v, want 2 events", snap.Events)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError != nil {
		t.Fatalf("LastError = %v, want nil", snap.LastError)
	}

	// Returned snapshot should be independent of the stored one.
	snap.Events[0].Checklist[0].Checked = true
	snap.Children[0] = "mutated"
	snap2 := s.Snapshot()
	if snap2.Events[0].Checklist[0].Checked {
		t.Fatalf("Snapshot should clone checklist items")
	}
	if snap2.Children[0] != "민수" {
		t.Fatalf("Snapshot should clone children; got %q", snap2.Children[0])
	}
}

func TestStore_UpdateErrorKeepsPreviousData(t *testing.T) {
	var s Store

	s.Update(sampleEvents(), []string{"민수"}, nil, nil)
	prev := s.Snapshot()

	before := time.Now()
	origErr := errors.New("boom")
	s.Update(nil, nil, nil, origErr)

	snap := s.Snapshot()
	if len(snap.Events) != len(prev.Events) || len(snap.Children) != 1 {
		t.Fatalf("data changed on error: got %#v want %#v", snap.Events, prev.Events)
	}
	if snap.LastUpdated.Before(before) {
		t.Fatalf("LastUpdated = %v, want >= %v", snap.LastUpdated, before)
	}
	if snap.LastError == nil || snap.LastError.Error() != "boom" {
		t.Fatalf("LastError = %v, want boom", snap.LastError)
	}
	if reflect.ValueOf(snap.LastError).Pointer() == reflect.ValueOf(origErr).Pointer() {
		t.Fatalf("Snapshot should clone error instance")
	}
	if !errors.Is(snap.LastError, origErr) {
		t.Fatalf("cloned error should still wrap the original")
	}
}

func TestStore_NilMembershipKeepsPrevious(t *testing.T) {
	var s Store

	s.Update(nil, nil, &sensecoach.Membership{Tier: "PREMIUM"}, nil)
	s.Update(sampleEvents(), nil, nil, nil)

	snap := s.Snapshot()
	if !snap.HasMembership || snap.Membership.Tier != "PREMIUM" {
		t.Fatalf("membership = %#v, want previous PREMIUM", snap.Membership)
	}
}

func TestStore_ConsecutiveFailures(t *testing.T) {
	var s Store

	if snap := s.Snapshot(); snap.ConsecutiveFailures != 0 || snap.IsOffline() {
		t.Fatalf("fresh store = %#v, want online with 0 failures", snap)
	}

	s.Update(nil, nil, nil, errors.New("fail 1"))
	if snap := s.Snapshot(); snap.ConsecutiveFailures != 1 || snap.IsOffline() {
		t.Fatalf("after 1 failure: %d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	s.Update(nil, nil, nil, errors.New("fail 2"))
	if snap := s.Snapshot(); snap.ConsecutiveFailures != 2 || !snap.IsOffline() {
		t.Fatalf("after 2 failures: %d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}

	s.Update(nil, nil, nil, nil)
	if snap := s.Snapshot(); snap.ConsecutiveFailures != 0 || snap.IsOffline() {
		t.Fatalf("after success: %d offline=%v", snap.ConsecutiveFailures, snap.IsOffline())
	}
}

func TestStore_PutAndRemoveEvent(t *testing.T) {
	var s Store
	s.Update(sampleEvents(), nil, nil, nil)

	s.PutEvent(sensecoach.Event{ID: 1, Name: "소풍", Memo: "우비"})
	s.PutEvent(sensecoach.Event{ID: 99, Name: "unknown"})

	snap := s.Snapshot()
	ev, ok := snap.Event(1)
	if !ok || ev.Memo != "우비" {
		t.Fatalf("Event(1) = %#v, %v; want updated memo", ev, ok)
	}
	if _, ok := snap.Event(99); ok {
		t.Fatalf("PutEvent should ignore uncached events")
	}

	s.RemoveEvent(1)
	snap = s.Snapshot()
	if _, ok := snap.Event(1); ok || len(snap.Events) != 1 {
		t.Fatalf("RemoveEvent left %#v", snap.Events)
	}
}
