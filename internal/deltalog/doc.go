// Package deltalog implements the bounded in-memory change-event log at the
// heart of wristd.
//
// # Overview
//
// The log is a fixed-capacity ring of entity state-change events with
// strictly increasing cursors. Appending at capacity evicts the oldest event
// in O(1). Two water marks frame the retained window:
//
//   - low water: cursor of the oldest retained event minus one (0 while
//     nothing has been evicted)
//   - high water: cursor of the most recent append (0 while empty)
//
// Queries return retained events after a client cursor, filtered to a set of
// entity IDs, and report staleness when the cursor points below the retained
// window. The log is never persisted; cursors are only meaningful within one
// server process.
//
// # Waiters
//
// Long-poll requests that find nothing park a Waiter keyed by their entity
// filter. Append wakes exactly the waiters whose filter contains the new
// event's entity. Registration re-checks the log under the same lock that
// Append holds, so an event appended between a caller's query and its
// registration can never be missed (the classic lost-wakeup race).
//
//	res := l.Query(since, filter, limit)
//	if len(res.Events) == 0 && !res.Stale {
//	    w := l.Register(since, filter)
//	    defer l.Remove(w)
//	    select {
//	    case <-w.Ready():   // matching append (or the Register re-check) fired
//	    case <-ctx.Done():  // client went away
//	    case <-timer.C:     // long-poll deadline
//	    }
//	}
package deltalog
