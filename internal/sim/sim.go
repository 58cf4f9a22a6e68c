// Package sim implements the price-simulation process: a seeded
// deterministic random walk over integer win probabilities, plus the
// bounded rolling history window kept per competitor.
//
// The generator is a Mulberry32 PRNG. Determinism is a contract, not an
// implementation detail: the same seed always yields the same percent
// sequence, and synthesized history backfill depends on it.
//
// Prices here are probabilities (chart data), not money, so float64 is
// fine. Monetary values elsewhere use shopspring/decimal.
package sim

import "math"

const (
	// MinPercent is the probability floor. The market never prices a
	// competitor below 1%.
	MinPercent = 1

	// MaxPercent is the probability ceiling. By construction this market
	// never prices a favorite above 50%.
	MaxPercent = 50

	// DefaultSeed is the process-wide generator seed.
	DefaultSeed = 0xB1C2026

	// DefaultHistoryLength is the rolling window capacity per competitor.
	DefaultHistoryLength = 50
)

// Generator is a Mulberry32 pseudo-random generator. It advances a 32-bit
// state by a fixed odd increment and applies two multiply/xor-shift mixing
// rounds per draw. Not safe for concurrent use; the ledger serializes
// all access.
type Generator struct {
	state uint32
}

// NewGenerator creates a generator with the given seed. The engine uses
// exactly one shared generator so a run is reproducible end-to-end.
func NewGenerator(seed uint32) *Generator {
	return &Generator{state: seed}
}

// Seed resets the generator state.
func (g *Generator) Seed(seed uint32) {
	g.state = seed
}

// Next returns the next value in [0, 1).
func (g *Generator) Next() float64 {
	g.state += 0x6D2B79F5
	t := g.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return float64(t^(t>>14)) / 4294967296.0
}

// StepPercent draws one perturbation in [-1.5, +1.5), applies it to the
// current percent, and returns the result clamped to [MinPercent,
// MaxPercent] and rounded to the nearest integer.
func (g *Generator) StepPercent(current int) int {
	v := float64(current) + (g.Next()-0.5)*3
	if v < MinPercent {
		v = MinPercent
	}
	if v > MaxPercent {
		v = MaxPercent
	}
	return int(math.Round(v))
}

// BackfillHistory synthesizes length plausible prior samples when no real
// history exists: a smaller-amplitude walk anchored at currentPercent/100,
// clamped to [0.01, 0.99], oldest first. Cold-start convenience only.
func (g *Generator) BackfillHistory(currentPercent, length int) []float64 {
	history := make([]float64, 0, length)
	price := float64(currentPercent) / 100
	for i := 0; i < length; i++ {
		price += (g.Next() - 0.5) * 0.02
		if price < 0.01 {
			price = 0.01
		}
		if price > 0.99 {
			price = 0.99
		}
		history = append(history, price)
	}
	return history
}

// History is a fixed-capacity FIFO window of normalized prices for one
// competitor. A push beyond capacity evicts the oldest sample.
type History struct {
	buf   []float64
	start int
	size  int
}

// NewHistory creates a window with the given capacity.
// Non-positive capacities fall back to DefaultHistoryLength.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryLength
	}
	return &History{buf: make([]float64, capacity)}
}

// Fill replaces the window contents with values, oldest first.
// Values beyond capacity are dropped from the oldest end.
func (h *History) Fill(values []float64) {
	h.start, h.size = 0, 0
	if excess := len(values) - len(h.buf); excess > 0 {
		values = values[excess:]
	}
	for _, v := range values {
		h.Push(v)
	}
}

// Push appends a sample, evicting the oldest if the window is full.
func (h *History) Push(v float64) {
	if h.size < len(h.buf) {
		h.buf[(h.start+h.size)%len(h.buf)] = v
		h.size++
		return
	}
	h.buf[h.start] = v
	h.start = (h.start + 1) % len(h.buf)
}

// Len returns the number of samples currently held.
func (h *History) Len() int {
	return h.size
}

// Cap returns the window capacity.
func (h *History) Cap() int {
	return len(h.buf)
}

// Values returns a copy of the window, oldest first.
func (h *History) Values() []float64 {
	out := make([]float64, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}
