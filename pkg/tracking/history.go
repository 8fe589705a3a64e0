package tracking

import "gonum.org/v1/gonum/stat"

// History is a fixed-capacity FIFO of fused line positions.
// It is seeded on creation and never empty.
type History struct {
	values []float64
	size   int
}

// NewHistory returns a history of the given capacity holding a single seed value.
func NewHistory(size int, seed float64) *History {
	if size < 1 {
		size = 1
	}
	h := &History{values: make([]float64, 0, size), size: size}
	h.values = append(h.values, seed)
	return h
}

// Push appends x, evicting the oldest entry when full.
func (h *History) Push(x float64) {
	if len(h.values) == h.size {
		copy(h.values, h.values[1:])
		h.values = h.values[:h.size-1]
	}
	h.values = append(h.values, x)
}

// Average returns the arithmetic mean of the stored positions.
func (h *History) Average() float64 {
	return stat.Mean(h.values, nil)
}

// Len returns the number of stored positions.
func (h *History) Len() int {
	return len(h.values)
}

// Reset drops everything but a new seed.
func (h *History) Reset(seed float64) {
	h.values = append(h.values[:0], seed)
}
