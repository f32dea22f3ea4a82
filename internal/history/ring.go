// Package history holds the bounded, most-recent-first list of response
// records from explicit executions.
package history

import "qapi/internal/model"

// DefaultCapacity matches the console's visible history of 20 entries.
const DefaultCapacity = 20

// Ring is a fixed-capacity most-recent-first sequence. It is not safe
// for concurrent use; the owning session serializes access.
type Ring struct {
	capacity int
	entries  []*model.ResponseRecord
}

// NewRing creates a ring with the given capacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{capacity: capacity}
}

// Push prepends a record and truncates to capacity.
func (r *Ring) Push(rec *model.ResponseRecord) {
	r.entries = append([]*model.ResponseRecord{rec}, r.entries...)
	if len(r.entries) > r.capacity {
		r.entries = r.entries[:r.capacity]
	}
}

// Len returns the number of held records.
func (r *Ring) Len() int {
	return len(r.entries)
}

// At returns the record at index i (0 = most recent), or nil when out of
// range. The record stays in the ring; selection is non-destructive.
func (r *Ring) At(i int) *model.ResponseRecord {
	if i < 0 || i >= len(r.entries) {
		return nil
	}
	return r.entries[i]
}

// Entries returns a copy of the record list, most recent first.
func (r *Ring) Entries() []*model.ResponseRecord {
	out := make([]*model.ResponseRecord, len(r.entries))
	copy(out, r.entries)
	return out
}
