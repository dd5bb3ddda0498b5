// Package registry holds the set of currently active job status events.
//
// A Registry is owned by a single goroutine (the coordinator loop) and is not
// safe for concurrent use. All operations are total.
package registry

import "github.com/pithecene-io/lintstatus/types"

// Registry is an insertion-ordered collection of active status events.
//
// Invariants:
//   - no resident event has state lint.end or unknown
//   - at most one resident lint.error per LastFileName
//   - events leave only through RemoveByID, RemoveErrorsForFile, or
//     same-file error supersession in Append
type Registry struct {
	events []types.StatusEvent
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{}
}

// Append adds an active event. Events that are not active (lint.end,
// unknown) are ignored and Append reports false. A lint.error replaces any
// resident lint.error for the same file.
func (r *Registry) Append(ev types.StatusEvent) bool {
	if !ev.State.IsActive() {
		return false
	}
	if ev.State == types.StateLintError {
		r.RemoveErrorsForFile(ev.LastFileName)
	}
	r.events = append(r.events, ev)
	return true
}

// RemoveByID removes every event with the given job id and returns how many
// were removed.
func (r *Registry) RemoveByID(id int64) int {
	return r.removeWhere(func(ev types.StatusEvent) bool {
		return ev.ID == id
	})
}

// RemoveErrorsForFile removes every lint.error event whose LastFileName
// equals fileName and returns how many were removed.
func (r *Registry) RemoveErrorsForFile(fileName string) int {
	return r.removeWhere(func(ev types.StatusEvent) bool {
		return ev.State == types.StateLintError && ev.LastFileName == fileName
	})
}

// Snapshot returns a copy of the resident events in insertion order.
func (r *Registry) Snapshot() []types.StatusEvent {
	out := make([]types.StatusEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Len returns the number of resident events.
func (r *Registry) Len() int {
	return len(r.events)
}

// Has reports whether any resident event carries the job id.
func (r *Registry) Has(id int64) bool {
	for _, ev := range r.events {
		if ev.ID == id {
			return true
		}
	}
	return false
}

// removeWhere filters in place, preserving the order of kept events.
func (r *Registry) removeWhere(match func(types.StatusEvent) bool) int {
	kept := r.events[:0]
	removed := 0
	for _, ev := range r.events {
		if match(ev) {
			removed++
			continue
		}
		kept = append(kept, ev)
	}
	// Zero the tail so dropped events do not pin their document slices.
	for i := len(kept); i < len(r.events); i++ {
		r.events[i] = types.StatusEvent{}
	}
	r.events = kept
	return removed
}
