package session

import (
	"sync"
	"time"
)

// DefaultTTL prunes watch sessions idle longer than this.
const DefaultTTL = 5 * time.Minute

// Session is the per-watch subscription record. Fields are owned by the
// Registry; callers receive copies via View and Info.
type Session struct {
	watchID        string
	configHash     string
	entities       map[string]struct{}
	synced         bool
	filter         string
	lastCursorSent uint64
	firstSeen      time.Time
	lastSeen       time.Time
	lastPollGap    time.Duration
}

// View is an immutable snapshot handed to the long-poll coordinator. The
// entity set is a copy so a concurrent resubscription cannot mutate it under
// a blocked request.
type View struct {
	WatchID    string
	ConfigHash string
	Entities   map[string]struct{}
	Filter     string
}

// Info is a diagnostic snapshot of one session.
type Info struct {
	WatchID          string        `json:"watch_id"`
	ConfigHash       string        `json:"config_hash"`
	EntityCount      int           `json:"entity_count"`
	Synced           bool          `json:"synced"`
	LastCursorSent   uint64        `json:"last_cursor_sent"`
	FirstSeen        time.Time     `json:"first_seen"`
	LastSeen         time.Time     `json:"last_seen"`
	LastPollInterval time.Duration `json:"last_poll_interval"`
}

// Registry owns all watch sessions, keyed by watch_id.
type Registry struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*Session
	now      func() time.Time
}

// NewRegistry creates an empty registry. Non-positive ttl uses DefaultTTL.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Registry{
		ttl:      ttl,
		sessions: make(map[string]*Session),
		now:      time.Now,
	}
}

// Resolve records one accepted request and returns the session view.
//
// entities == nil means the request did not carry a subscription list; an
// empty non-nil slice is a deliberate (if unusual) subscribe-to-nothing.
// needEntities is true when the watch is unknown or its config hash changed
// and no entities were supplied; until the watch resupplies them it receives
// no events.
func (r *Registry) Resolve(watchID, configHash string, entities []string, filter string) (View, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked()

	now := r.now()
	s, ok := r.sessions[watchID]
	if !ok {
		s = &Session{watchID: watchID, firstSeen: now, lastSeen: now}
		r.sessions[watchID] = s
	} else {
		s.lastPollGap = now.Sub(s.lastSeen)
		s.lastSeen = now
	}

	switch {
	case entities != nil:
		// Full replacement: all-or-nothing, never merged.
		set := make(map[string]struct{}, len(entities))
		for _, id := range entities {
			if id != "" {
				set[id] = struct{}{}
			}
		}
		s.entities = set
		s.configHash = configHash
		s.filter = filter
		s.synced = true
	case s.configHash != configHash:
		// Watch config changed; drop the stale set and ask for a fresh list.
		s.configHash = configHash
		s.entities = nil
		s.filter = ""
		s.synced = false
	}

	if !s.synced {
		return View{WatchID: watchID, ConfigHash: s.configHash}, true
	}

	set := make(map[string]struct{}, len(s.entities))
	for id := range s.entities {
		set[id] = struct{}{}
	}
	return View{WatchID: watchID, ConfigHash: s.configHash, Entities: set, Filter: s.filter}, false
}

// RecordCursor stores the last cursor delivered to a watch.
func (r *Registry) RecordCursor(watchID string, cursor uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[watchID]; ok {
		s.lastCursorSent = cursor
	}
}

// ForceResync clears all sessions, forcing every watch through the
// need_entities handshake and a full state refresh.
func (r *Registry) ForceResync() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions = make(map[string]*Session)
}

// Prune drops sessions idle beyond the TTL and returns how many were removed.
func (r *Registry) Prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pruneLocked()
}

func (r *Registry) pruneLocked() int {
	cutoff := r.now().Add(-r.ttl)
	removed := 0
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// MonitoredEntities returns the size of the union of all subscription sets.
func (r *Registry) MonitoredEntities() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	union := make(map[string]struct{})
	for _, s := range r.sessions {
		for id := range s.entities {
			union[id] = struct{}{}
		}
	}
	return len(union)
}

// Snapshot returns diagnostic info for every session.
func (r *Registry) Snapshot() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Info, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, Info{
			WatchID:          s.watchID,
			ConfigHash:       s.configHash,
			EntityCount:      len(s.entities),
			Synced:           s.synced,
			LastCursorSent:   s.lastCursorSent,
			FirstSeen:        s.firstSeen,
			LastSeen:         s.lastSeen,
			LastPollInterval: s.lastPollGap,
		})
	}
	return out
}
