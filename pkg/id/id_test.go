package id

import "testing"

func TestNextMonotonic(t *testing.T) {
	g := NewGenerator()
	prev := g.Next()
	for i := 0; i < 1000; i++ {
		next := g.Next()
		if prev.Compare(next) >= 0 {
			t.Fatalf("not increasing: %s then %s", prev, next)
		}
		prev = next
	}
}

func TestNextClockBackwards(t *testing.T) {
	g := NewGenerator()
	orig := NowMs
	now := int64(1_700_000_000_000)
	NowMs = func() int64 { return now }
	t.Cleanup(func() { NowMs = orig })

	a := g.Next()
	now -= 5000 // clock steps back
	b := g.Next()
	if a.Compare(b) >= 0 {
		t.Fatalf("expected monotonic across clock step: %s then %s", a, b)
	}
}

func TestStringLength(t *testing.T) {
	g := NewGenerator()
	if s := g.Next().String(); len(s) != 32 {
		t.Fatalf("want 32 hex chars, got %d (%s)", len(s), s)
	}
}
