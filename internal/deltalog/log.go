package deltalog

import (
	"encoding/json"
	"sync"
	"time"
)

// DefaultCapacity is used when New is given a non-positive capacity.
const DefaultCapacity = 5000

// Event is a single tracked entity state change. Immutable once appended.
type Event struct {
	Cursor    uint64          `json:"cursor"`
	EntityID  string          `json:"entity_id"`
	State     json.RawMessage `json:"new_state"`
	ContextID string          `json:"context_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// QueryResult carries the outcome of a single log query.
type QueryResult struct {
	Events []Event
	// Next is the cursor the client should present on its next request.
	Next uint64
	// Stale reports that the requested cursor references evicted history
	// (or a cursor from a previous server incarnation).
	Stale bool
}

// Log is a fixed-capacity ordered ring of Events with monotonically
// increasing cursors. A single mutex covers appends, queries, and waiter
// registration so the append+wake and register+recheck paths exclude each
// other.
type Log struct {
	mu      sync.Mutex
	buf     []Event
	head    int // index of oldest retained event
	size    int
	high    uint64 // cursor of most recent append, 0 if empty
	waiters map[*Waiter]struct{}
}

// New creates a Log with the given capacity.
func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Log{
		buf:     make([]Event, capacity),
		waiters: make(map[*Waiter]struct{}),
	}
}

// Append assigns the next cursor, stores the event (evicting the oldest when
// at capacity), and wakes every parked waiter whose entity filter contains
// the event's entity. Returns the assigned cursor.
func (l *Log) Append(entityID string, state json.RawMessage, contextID string, ts time.Time) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.high++
	ev := Event{
		Cursor:    l.high,
		EntityID:  entityID,
		State:     state,
		ContextID: contextID,
		Timestamp: ts,
	}
	if l.size == len(l.buf) {
		// evict oldest
		l.buf[l.head] = ev
		l.head = (l.head + 1) % len(l.buf)
	} else {
		l.buf[(l.head+l.size)%len(l.buf)] = ev
		l.size++
	}

	for w := range l.waiters {
		if _, ok := w.entities[entityID]; ok {
			close(w.ready)
			delete(l.waiters, w)
		}
	}
	return l.high
}

// Query collects retained events with cursor > since whose entity is in the
// filter, in cursor order, up to limit (0 means unlimited).
//
// Semantics:
//   - since == 0 is never stale and scans the full retained window.
//   - since <= low water (with since != 0) is stale: the cursor references
//     evicted history.
//   - since > high water is stale: such a cursor can only come from a
//     previous server incarnation, so the client must resync.
//   - Next is the high water mark, except when limit truncates the batch, in
//     which case it is the cursor of the last returned event so nothing is
//     skipped.
func (l *Log) Query(since uint64, entities map[string]struct{}, limit int) QueryResult {
	l.mu.Lock()
	defer l.mu.Unlock()

	if since != 0 && (since <= l.lowLocked() || since > l.high) {
		return QueryResult{Next: l.high, Stale: true}
	}

	var events []Event
	truncated := false
	for i := 0; i < l.size; i++ {
		ev := l.buf[(l.head+i)%len(l.buf)]
		if ev.Cursor <= since {
			continue
		}
		if _, ok := entities[ev.EntityID]; !ok {
			continue
		}
		events = append(events, ev)
		if limit > 0 && len(events) == limit {
			truncated = ev.Cursor < l.high
			break
		}
	}

	next := l.high
	if truncated {
		next = events[len(events)-1].Cursor
	}
	return QueryResult{Events: events, Next: next}
}

// matchExists reports whether any retained event after since matches the
// filter. Caller must hold l.mu.
func (l *Log) matchExists(since uint64, entities map[string]struct{}) bool {
	for i := l.size - 1; i >= 0; i-- {
		ev := l.buf[(l.head+i)%len(l.buf)]
		if ev.Cursor <= since {
			return false
		}
		if _, ok := entities[ev.EntityID]; ok {
			return true
		}
	}
	return false
}

func (l *Log) lowLocked() uint64 {
	return l.high - uint64(l.size)
}

// HighWater returns the cursor of the most recent append (0 if empty).
func (l *Log) HighWater() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.high
}

// LowWater returns the cursor of the oldest retained event minus one
// (0 until the first eviction).
func (l *Log) LowWater() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lowLocked()
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// Cap returns the fixed capacity.
func (l *Log) Cap() int { return len(l.buf) }

// EventsPerMinute counts retained events appended in the 60s before now.
func (l *Log) EventsPerMinute(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := now.Add(-time.Minute)
	count := 0
	for i := l.size - 1; i >= 0; i-- {
		ev := l.buf[(l.head+i)%len(l.buf)]
		if ev.Timestamp.Before(cutoff) {
			break
		}
		count++
	}
	return count
}
