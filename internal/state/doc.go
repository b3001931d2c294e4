// Package state holds the coach's cached view of the Sense Coach service.
//
// # Overview
//
// The dashboard refresh in internal/app writes events, children and the
// membership plan into a Store; the UI reads Snapshots from it when rendering.
// The Store is the only place fetched data is shared between goroutines.
//
// # Update Semantics
//
//	// Success: replace events and children, record the time
//	store.Update(events, children, membership, nil)
//
//	// Failure: keep the old data, record the error
//	store.Update(nil, nil, nil, err)
//
// A nil membership on success keeps the previously fetched plan. Detail
// screens refetch a single event after a mutation and write it back with
// PutEvent; DeleteEvent results are applied with RemoveEvent so the dashboard
// does not show a deleted row while a full refresh is in flight.
//
// # Copying
//
// Update, PutEvent and Snapshot copy event slices, checklist slices and the
// children list. Errors are rewrapped so callers cannot mutate the stored
// value.
//
// # Offline Detection
//
// ConsecutiveFailures counts failed refreshes since the last success;
// IsOffline reports true from the second failure on. Nothing retries
// automatically: the counter only drives the header indicator.
//
// The zero Store is ready to use.
package state
