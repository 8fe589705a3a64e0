package tracking

// Smoother damps the fused position with an exponential moving average.
type Smoother struct {
	alpha float64 // Weight of the new reading, (0, 1]
	value float64
}

// NewSmoother returns a smoother seeded at seed.
// An alpha of 1 passes readings through unchanged.
func NewSmoother(alpha, seed float64) *Smoother {
	return &Smoother{alpha: clamp(alpha, 0.01, 1), value: seed}
}

// Update folds in a raw reading and returns the smoothed value.
func (s *Smoother) Update(raw float64) float64 {
	s.value = s.value*(1-s.alpha) + raw*s.alpha
	return s.value
}

// Alpha returns the smoothing factor.
func (s *Smoother) Alpha() float64 {
	return s.alpha
}

// SetAlpha changes the smoothing factor without resetting state.
func (s *Smoother) SetAlpha(alpha float64) {
	s.alpha = clamp(alpha, 0.01, 1)
}

// Reset reseeds the smoother.
func (s *Smoother) Reset(seed float64) {
	s.value = seed
}
