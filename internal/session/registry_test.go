package session

import (
	"testing"
	"time"
)

func TestFirstSeenNeedsEntities(t *testing.T) {
	r := NewRegistry(0)
	view, need := r.Resolve("w1", "h1", nil, "")
	if !need {
		t.Fatalf("unseen watch without entities must return need_entities")
	}
	if view.WatchID != "w1" {
		t.Fatalf("view = %+v", view)
	}
}

func TestSuppliedEntitiesReplaceSet(t *testing.T) {
	r := NewRegistry(0)
	if _, need := r.Resolve("w1", "h1", []string{"a", "b"}, ""); need {
		t.Fatalf("supplied entities must satisfy the handshake")
	}
	view, need := r.Resolve("w1", "h1", nil, "")
	if need {
		t.Fatalf("synced session should not need entities")
	}
	if len(view.Entities) != 2 {
		t.Fatalf("entities = %v", view.Entities)
	}

	// Resupply replaces, never merges.
	view, _ = r.Resolve("w1", "h1", []string{"c"}, "")
	if len(view.Entities) != 1 {
		t.Fatalf("want exact replacement, got %v", view.Entities)
	}
	if _, ok := view.Entities["c"]; !ok {
		t.Fatalf("replacement set missing c: %v", view.Entities)
	}
}

func TestConfigHashChangeInvalidates(t *testing.T) {
	r := NewRegistry(0)
	r.Resolve("w1", "h1", []string{"a"}, "")

	// hash changed, no entities: must re-request until resupplied
	if _, need := r.Resolve("w1", "h2", nil, ""); !need {
		t.Fatalf("config hash change must trigger need_entities")
	}
	if _, need := r.Resolve("w1", "h2", nil, ""); !need {
		t.Fatalf("need_entities must persist until entities are resupplied")
	}

	view, need := r.Resolve("w1", "h2", []string{"x", "y"}, "")
	if need {
		t.Fatalf("resupply must clear need_entities")
	}
	if len(view.Entities) != 2 {
		t.Fatalf("subscription must equal the supplied set exactly: %v", view.Entities)
	}
}

func TestViewIsACopy(t *testing.T) {
	r := NewRegistry(0)
	view, _ := r.Resolve("w1", "h1", []string{"a"}, "")
	view.Entities["b"] = struct{}{}
	again, _ := r.Resolve("w1", "h1", nil, "")
	if len(again.Entities) != 1 {
		t.Fatalf("mutating a view must not affect the registry: %v", again.Entities)
	}
}

func TestPruneIdleSessions(t *testing.T) {
	r := NewRegistry(time.Minute)
	now := time.Unix(1_700_000_000, 0)
	r.now = func() time.Time { return now }

	r.Resolve("idle", "h", []string{"a"}, "")
	now = now.Add(2 * time.Minute)
	r.Resolve("fresh", "h", []string{"a"}, "")

	if r.Count() != 1 {
		t.Fatalf("idle session not pruned: count = %d", r.Count())
	}
	if removed := r.Prune(); removed != 0 {
		t.Fatalf("fresh session pruned: %d", removed)
	}
}

func TestForceResync(t *testing.T) {
	r := NewRegistry(0)
	r.Resolve("w1", "h1", []string{"a"}, "")
	r.Resolve("w2", "h1", []string{"b"}, "")
	r.ForceResync()
	if r.Count() != 0 {
		t.Fatalf("count after resync = %d", r.Count())
	}
	if _, need := r.Resolve("w1", "h1", nil, ""); !need {
		t.Fatalf("post-resync request must renegotiate entities")
	}
}

func TestRecordCursorAndSnapshot(t *testing.T) {
	r := NewRegistry(0)
	r.Resolve("w1", "h1", []string{"a", "b"}, "")
	r.RecordCursor("w1", 42)

	snap := r.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("snapshot len = %d", len(snap))
	}
	if snap[0].LastCursorSent != 42 || snap[0].EntityCount != 2 {
		t.Fatalf("snapshot = %+v", snap[0])
	}
	if r.MonitoredEntities() != 2 {
		t.Fatalf("monitored = %d", r.MonitoredEntities())
	}
}
