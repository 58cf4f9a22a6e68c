package sim

import (
	"math"
	"testing"
)

// --- Generator tests ---

func TestNext_InUnitInterval(t *testing.T) {
	g := NewGenerator(DefaultSeed)
	for i := 0; i < 10000; i++ {
		v := g.Next()
		if v < 0 || v >= 1 {
			t.Fatalf("draw %d out of [0,1): %v", i, v)
		}
	}
}

func TestNext_Deterministic(t *testing.T) {
	a := NewGenerator(DefaultSeed)
	b := NewGenerator(DefaultSeed)
	for i := 0; i < 1000; i++ {
		va, vb := a.Next(), b.Next()
		if va != vb {
			t.Fatalf("draw %d diverged: %v vs %v", i, va, vb)
		}
	}
}

func TestNext_SeedChangesSequence(t *testing.T) {
	a := NewGenerator(1)
	b := NewGenerator(2)
	same := true
	for i := 0; i < 10; i++ {
		if a.Next() != b.Next() {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical first 10 draws")
	}
}

func TestSeed_ResetsSequence(t *testing.T) {
	g := NewGenerator(42)
	first := make([]float64, 5)
	for i := range first {
		first[i] = g.Next()
	}
	g.Seed(42)
	for i := range first {
		if v := g.Next(); v != first[i] {
			t.Fatalf("draw %d after reseed: got %v, want %v", i, v, first[i])
		}
	}
}

// --- StepPercent tests ---

func TestStepPercent_StaysInBounds(t *testing.T) {
	g := NewGenerator(DefaultSeed)
	for _, start := range []int{MinPercent, 10, 25, MaxPercent} {
		p := start
		for i := 0; i < 1000; i++ {
			p = g.StepPercent(p)
			if p < MinPercent || p > MaxPercent {
				t.Fatalf("start=%d step %d: percent %d out of [%d,%d]",
					start, i, p, MinPercent, MaxPercent)
			}
		}
	}
}

func TestStepPercent_BoundedDelta(t *testing.T) {
	g := NewGenerator(7)
	p := 25
	for i := 0; i < 1000; i++ {
		next := g.StepPercent(p)
		if delta := next - p; delta < -2 || delta > 2 {
			t.Fatalf("step %d moved percent by %d (from %d to %d)", i, delta, p, next)
		}
		p = next
	}
}

func TestStepPercent_FloorAtOne(t *testing.T) {
	// Scenario: repeated ticks on a competitor pinned at the floor must
	// never push percent below 1.
	g := NewGenerator(DefaultSeed)
	p := 1
	for i := 0; i < 50; i++ {
		p = g.StepPercent(p)
		if p < 1 || p > 50 {
			t.Fatalf("tick %d: percent %d escaped bounds", i, p)
		}
	}
}

// --- BackfillHistory tests ---

func TestBackfillHistory_LengthAndBounds(t *testing.T) {
	g := NewGenerator(DefaultSeed)
	h := g.BackfillHistory(38, DefaultHistoryLength)

	if len(h) != DefaultHistoryLength {
		t.Fatalf("expected %d samples, got %d", DefaultHistoryLength, len(h))
	}
	for i, v := range h {
		if v < 0.01 || v > 0.99 {
			t.Errorf("sample %d out of [0.01,0.99]: %v", i, v)
		}
	}
}

func TestBackfillHistory_AnchoredAtCurrent(t *testing.T) {
	g := NewGenerator(DefaultSeed)
	h := g.BackfillHistory(40, 50)

	// Each step moves at most 0.01, so the first sample must be within
	// 0.01 of the anchor.
	if math.Abs(h[0]-0.40) > 0.01+1e-12 {
		t.Errorf("first sample %v too far from anchor 0.40", h[0])
	}
}

func TestBackfillHistory_Deterministic(t *testing.T) {
	a := NewGenerator(99)
	b := NewGenerator(99)
	ha := a.BackfillHistory(22, 50)
	hb := b.BackfillHistory(22, 50)
	for i := range ha {
		if ha[i] != hb[i] {
			t.Fatalf("sample %d diverged: %v vs %v", i, ha[i], hb[i])
		}
	}
}

// --- History window tests ---

func TestHistory_PushBelowCapacity(t *testing.T) {
	h := NewHistory(5)
	h.Push(0.1)
	h.Push(0.2)

	if h.Len() != 2 {
		t.Fatalf("expected len 2, got %d", h.Len())
	}
	got := h.Values()
	if got[0] != 0.1 || got[1] != 0.2 {
		t.Errorf("unexpected order: %v", got)
	}
}

func TestHistory_EvictsOldestFIFO(t *testing.T) {
	h := NewHistory(3)
	for _, v := range []float64{0.1, 0.2, 0.3, 0.4, 0.5} {
		h.Push(v)
	}

	if h.Len() != 3 {
		t.Fatalf("expected len 3, got %d", h.Len())
	}
	got := h.Values()
	want := []float64{0.3, 0.4, 0.5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestHistory_NeverExceedsCapacity(t *testing.T) {
	h := NewHistory(10)
	for i := 0; i < 1000; i++ {
		h.Push(float64(i))
		if h.Len() > 10 {
			t.Fatalf("push %d: len %d exceeds capacity", i, h.Len())
		}
	}
}

func TestHistory_FillReplacesContents(t *testing.T) {
	h := NewHistory(3)
	h.Push(0.9)
	h.Fill([]float64{0.1, 0.2})

	got := h.Values()
	if len(got) != 2 || got[0] != 0.1 || got[1] != 0.2 {
		t.Errorf("unexpected contents after fill: %v", got)
	}
}

func TestHistory_FillDropsOldestExcess(t *testing.T) {
	h := NewHistory(3)
	h.Fill([]float64{0.1, 0.2, 0.3, 0.4, 0.5})

	got := h.Values()
	want := []float64{0.3, 0.4, 0.5}
	if len(got) != 3 {
		t.Fatalf("expected len 3, got %d", len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestNewHistory_NonPositiveCapacity(t *testing.T) {
	h := NewHistory(0)
	if h.Cap() != DefaultHistoryLength {
		t.Errorf("expected default capacity %d, got %d", DefaultHistoryLength, h.Cap())
	}
}
