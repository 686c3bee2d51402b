package deltalog

import (
	"fmt"
	"testing"
	"time"
)

func filter(ids ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}

func appendN(l *Log, n int, entity string) {
	for i := 0; i < n; i++ {
		l.Append(entity, []byte(`{"state":"on"}`), "", time.Now())
	}
}

func TestAppendAssignsSequentialCursors(t *testing.T) {
	l := New(10)
	var prev uint64
	for i := 0; i < 5; i++ {
		cur := l.Append("light.kitchen", nil, "", time.Now())
		if cur != prev+1 {
			t.Fatalf("cursor %d after %d; want strict +1", cur, prev)
		}
		prev = cur
	}
	if l.HighWater() != 5 {
		t.Fatalf("high water = %d", l.HighWater())
	}
	if l.LowWater() != 0 {
		t.Fatalf("low water = %d before any eviction", l.LowWater())
	}
}

func TestEvictionAdvancesLowWater(t *testing.T) {
	const c, k = 5, 3
	l := New(c)
	appendN(l, c+k, "sensor.temp")
	if l.LowWater() != k {
		t.Fatalf("low water = %d, want %d after %d appends at capacity %d", l.LowWater(), k, c+k, c)
	}
	if l.Len() != c {
		t.Fatalf("len = %d, want %d", l.Len(), c)
	}
	// since at or below low water is stale
	for since := uint64(1); since <= k; since++ {
		if res := l.Query(since, filter("sensor.temp"), 0); !res.Stale {
			t.Fatalf("since=%d should be stale", since)
		}
	}
	// since above low water up to high water is not
	for since := uint64(k + 1); since <= uint64(c+k); since++ {
		if res := l.Query(since, filter("sensor.temp"), 0); res.Stale {
			t.Fatalf("since=%d should not be stale", since)
		}
	}
}

func TestQueryZeroNeverStale(t *testing.T) {
	l := New(3)
	appendN(l, 7, "light.hall") // low water now 4
	res := l.Query(0, filter("light.hall"), 0)
	if res.Stale {
		t.Fatalf("since=0 must never be stale")
	}
	if len(res.Events) != 3 {
		t.Fatalf("want all retained matches (3), got %d", len(res.Events))
	}
	if res.Next != 7 {
		t.Fatalf("next = %d, want high water 7", res.Next)
	}
}

func TestQueryFiltersEntitiesAndAdvancesToHighWater(t *testing.T) {
	l := New(10)
	l.Append("a", nil, "", time.Now()) // 1
	l.Append("b", nil, "", time.Now()) // 2
	l.Append("a", nil, "", time.Now()) // 3
	l.Append("b", nil, "", time.Now()) // 4

	res := l.Query(0, filter("a"), 0)
	if len(res.Events) != 2 || res.Events[0].Cursor != 1 || res.Events[1].Cursor != 3 {
		t.Fatalf("unexpected events: %+v", res.Events)
	}
	// next is high water even though the trailing b events did not match
	if res.Next != 4 {
		t.Fatalf("next = %d, want 4", res.Next)
	}
}

func TestScenarioCapacityFive(t *testing.T) {
	// capacity=5; append 7 events (cursors 1..7); low_water=2
	l := New(5)
	for i := 1; i <= 7; i++ {
		entity := "other"
		if i == 5 {
			entity = "light.bed"
		}
		l.Append(entity, nil, "", time.Now())
	}
	if l.LowWater() != 2 {
		t.Fatalf("low water = %d, want 2", l.LowWater())
	}
	if res := l.Query(2, filter("light.bed"), 0); !res.Stale {
		t.Fatalf("since=2 must be stale")
	}
	res := l.Query(3, filter("light.bed"), 0)
	if res.Stale {
		t.Fatalf("since=3 must not be stale")
	}
	if len(res.Events) != 1 || res.Events[0].Cursor != 5 {
		t.Fatalf("want the single cursor-5 event, got %+v", res.Events)
	}
	if res.Next != 7 {
		t.Fatalf("next = %d, want 7", res.Next)
	}
}

func TestCursorAheadOfServerIsStale(t *testing.T) {
	l := New(5)
	appendN(l, 3, "a")
	if res := l.Query(9, filter("a"), 0); !res.Stale {
		t.Fatalf("since beyond high water must be stale")
	}
	// empty log: any non-zero cursor is from another incarnation
	empty := New(5)
	if res := empty.Query(1, filter("a"), 0); !res.Stale {
		t.Fatalf("non-zero cursor against empty log must be stale")
	}
	if res := empty.Query(0, filter("a"), 0); res.Stale || len(res.Events) != 0 {
		t.Fatalf("since=0 against empty log: %+v", res)
	}
}

func TestQueryLimitTruncationKeepsNextExact(t *testing.T) {
	l := New(10)
	for i := 0; i < 6; i++ {
		l.Append("a", nil, "", time.Now())
	}
	res := l.Query(0, filter("a"), 4)
	if len(res.Events) != 4 {
		t.Fatalf("want 4 events, got %d", len(res.Events))
	}
	// truncated: next must be the last returned cursor, not high water
	if res.Next != 4 {
		t.Fatalf("next = %d, want 4", res.Next)
	}
	res2 := l.Query(res.Next, filter("a"), 4)
	if len(res2.Events) != 2 || res2.Events[0].Cursor != 5 {
		t.Fatalf("continuation wrong: %+v", res2.Events)
	}
	if res2.Next != 6 {
		t.Fatalf("final next = %d, want high water 6", res2.Next)
	}
}

func TestEventsPerMinute(t *testing.T) {
	l := New(10)
	now := time.Now()
	l.Append("a", nil, "", now.Add(-2*time.Minute))
	l.Append("a", nil, "", now.Add(-30*time.Second))
	l.Append("a", nil, "", now)
	if got := l.EventsPerMinute(now); got != 2 {
		t.Fatalf("events/minute = %d, want 2", got)
	}
}

func TestConcurrentAppendCursorUniqueness(t *testing.T) {
	l := New(DefaultCapacity)
	const workers, per = 8, 200
	done := make(chan []uint64, workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			out := make([]uint64, 0, per)
			for i := 0; i < per; i++ {
				out = append(out, l.Append(fmt.Sprintf("e%d", w), nil, "", time.Now()))
			}
			done <- out
		}(w)
	}
	seen := make(map[uint64]bool, workers*per)
	for w := 0; w < workers; w++ {
		for _, cur := range <-done {
			if seen[cur] {
				t.Fatalf("duplicate cursor %d", cur)
			}
			seen[cur] = true
		}
	}
	if l.HighWater() != workers*per {
		t.Fatalf("high water = %d, want %d", l.HighWater(), workers*per)
	}
}
