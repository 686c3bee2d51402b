package deltalog

// Waiter is one parked long-poll request. It never outlives the request that
// registered it: the owner must call Remove on every exit path.
type Waiter struct {
	entities map[string]struct{}
	ready    chan struct{}
}

// Ready is closed exactly once, when a matching event is appended (or when
// Register's re-check found one already present).
func (w *Waiter) Ready() <-chan struct{} { return w.ready }

// Register parks a waiter for events after since matching the entity filter.
// If a matching event was appended between the caller's query and this call,
// the waiter comes back already fired; re-checking under the log lock closes
// the lost-wakeup window.
func (l *Log) Register(since uint64, entities map[string]struct{}) *Waiter {
	w := &Waiter{entities: entities, ready: make(chan struct{})}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.matchExists(since, entities) {
		close(w.ready)
		return w
	}
	l.waiters[w] = struct{}{}
	return w
}

// Remove unregisters a waiter. Idempotent; safe to call after a wake. No
// event is consumed or lost for other waiters.
func (l *Log) Remove(w *Waiter) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.waiters, w)
}

// WaiterCount returns the number of currently parked waiters.
func (l *Log) WaiterCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.waiters)
}
