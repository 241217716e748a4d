package module

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// TraceEntry records one task execution for --verbose diagnostics. It
// is never persisted: process-lifetime only, per the "no persistent
// state between runs" non-goal.
type TraceEntry struct {
	RunID      uuid.UUID
	TaskName   string
	Module     string
	Changed    bool
	DurationMS int64
}

// defaultTraceRingCapacity bounds memory for long-running scripts;
// oldest entries are dropped once the ring is full.
const defaultTraceRingCapacity = 256

// TraceRing is a fixed-capacity, process-lifetime ring buffer of
// TraceEntry records. The zero value is not usable; use NewTraceRing.
type TraceRing struct {
	mu       sync.Mutex
	entries  []TraceEntry
	capacity int
}

// NewTraceRing returns a TraceRing holding at most capacity entries.
// A capacity <= 0 falls back to defaultTraceRingCapacity.
func NewTraceRing(capacity int) *TraceRing {
	if capacity <= 0 {
		capacity = defaultTraceRingCapacity
	}
	return &TraceRing{capacity: capacity}
}

// Record appends an entry, evicting the oldest entry first if the
// ring is already at capacity.
func (r *TraceRing) Record(entry TraceEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.entries) >= r.capacity {
		r.entries = r.entries[1:]
	}
	r.entries = append(r.entries, entry)
}

// Entries returns a copy of the ring's current contents, oldest first.
func (r *TraceRing) Entries() []TraceEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]TraceEntry, len(r.entries))
	copy(out, r.entries)
	return out
}

// NewRunID generates a fresh correlation id for one Executor.Run call.
func NewRunID() uuid.UUID {
	return uuid.New()
}

// Since is a small helper so callers can time a task without importing
// time directly at every call site.
func Since(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
