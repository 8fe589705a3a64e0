package detection

import (
	"errors"
	"image"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rect(x0, y0, x1, y1 int) []image.Point {
	return []image.Point{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}
}

func TestMoments_Rectangle(t *testing.T) {
	m00, m10, m01 := Moments(rect(10, 0, 30, 10))

	assert.InDelta(t, 200, m00, 1e-9)
	assert.InDelta(t, 20, m10/m00, 1e-9)
	assert.InDelta(t, 5, m01/m00, 1e-9)
}

func TestMoments_OrientationIndependent(t *testing.T) {
	cw := rect(0, 0, 8, 4)
	ccw := []image.Point{cw[3], cw[2], cw[1], cw[0]}

	a00, a10, a01 := Moments(cw)
	b00, b10, b01 := Moments(ccw)

	assert.Equal(t, a00, b00)
	assert.Equal(t, a10, b10)
	assert.Equal(t, a01, b01)
}

func TestNewCandidate_Degenerate(t *testing.T) {
	tests := []struct {
		name    string
		contour []image.Point
	}{
		{"empty", nil},
		{"single point", []image.Point{{5, 5}}},
		{"horizontal sliver", []image.Point{{0, 3}, {10, 3}, {20, 3}}},
		{"vertical sliver", []image.Point{{4, 0}, {4, 7}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := NewCandidate(tt.contour)
			assert.False(t, ok)
		})
	}
}

func TestNewCandidate_Triangle(t *testing.T) {
	c, ok := NewCandidate([]image.Point{{0, 0}, {6, 0}, {0, 6}})
	require.True(t, ok)

	assert.InDelta(t, 18, c.Area, 1e-9)
	assert.InDelta(t, 2, c.CX, 1e-9)
	assert.InDelta(t, 2, c.CY, 1e-9)
	assert.Equal(t, image.Pt(2, 2), c.Centroid())
}

func candidate(cx, area float64) Candidate {
	return Candidate{CX: cx, Area: area}
}

func TestWeightedScorer_RejectsAreaOutsideRange(t *testing.T) {
	s, err := NewScorer(DefaultScorerConfig(), 640)
	require.NoError(t, err)
	ws := s.(*WeightedScorer)

	for _, area := range []float64{0, 1, 500, 1799, 1799.9, 5500.1, 5501, 9000, 1e6} {
		_, ok := ws.Score(candidate(320, area), 320)
		assert.False(t, ok, "area %v should be rejected", area)
	}
	for _, area := range []float64{1800, 2500, 4000, 5500} {
		_, ok := ws.Score(candidate(320, area), 320)
		assert.True(t, ok, "area %v should be accepted", area)
	}
}

func TestWeightedScorer_MonotonicInDistance(t *testing.T) {
	s, err := NewScorer(DefaultScorerConfig(), 640)
	require.NoError(t, err)
	ws := s.(*WeightedScorer)

	const reference = 300.0
	prev := math.Inf(-1)
	// Walk the candidate toward the reference; score must never drop.
	for d := 700.0; d >= 0; d -= 10 {
		score, ok := ws.Score(candidate(reference+d, 3000), reference)
		require.True(t, ok)
		assert.GreaterOrEqual(t, score, prev, "distance %v", d)
		prev = score
	}
}

func TestWeightedScorer_ScoreBounds(t *testing.T) {
	ws := &WeightedScorer{MinArea: 1800, MaxArea: 5500, MaxDistance: 320, DistanceWeight: 0.9, AreaWeight: 0.1}

	best, _ := ws.Score(candidate(320, 5500), 320)
	worst, _ := ws.Score(candidate(0, 1800), 640)

	assert.InDelta(t, 1.0, best, 1e-9)
	assert.InDelta(t, 0.0, worst, 1e-9)
}

func TestWeightedScorer_ProximityBeatsSize(t *testing.T) {
	ws := &WeightedScorer{MinArea: 1800, MaxArea: 5500, MaxDistance: 320, DistanceWeight: 0.9, AreaWeight: 0.1}
	cands := []Candidate{
		candidate(600, 5400), // big blob far from the line
		candidate(330, 1900), // small blob near the line
		candidate(200, 100),  // rejected
	}

	best, ok := ws.Select(cands, 320)
	require.True(t, ok)
	assert.Equal(t, 330.0, best.CX)
	assert.Greater(t, best.Score, 0.8)
}

func TestWeightedScorer_NoSurvivors(t *testing.T) {
	ws := &WeightedScorer{MinArea: 1800, MaxArea: 5500, MaxDistance: 320, DistanceWeight: 0.9, AreaWeight: 0.1}

	_, ok := ws.Select([]Candidate{candidate(320, 100), candidate(320, 9000)}, 320)
	assert.False(t, ok)

	_, ok = ws.Select(nil, 320)
	assert.False(t, ok)
}

func TestMaxAreaScorer_Select(t *testing.T) {
	s, err := NewScorer(MaxAreaScorerConfig(), 640)
	require.NoError(t, err)

	cands := []Candidate{candidate(100, 400), candidate(500, 2000), candidate(300, 900)}
	best, ok := s.Select(cands, 0)
	require.True(t, ok)

	if diff := cmp.Diff(Candidate{CX: 500, Area: 2000, Score: 2000}, best); diff != "" {
		t.Errorf("Select() mismatch (-want +got):\n%s", diff)
	}

	_, ok = s.Select([]Candidate{candidate(100, 499)}, 0)
	assert.False(t, ok)
}

func TestNewScorer(t *testing.T) {
	s, err := NewScorer(DefaultScorerConfig(), 640)
	require.NoError(t, err)
	assert.Equal(t, PolicyWeighted, s.Name())
	assert.Equal(t, 320.0, s.(*WeightedScorer).MaxDistance)

	s, err = NewScorer(MaxAreaScorerConfig(), 640)
	require.NoError(t, err)
	assert.Equal(t, PolicyMaxArea, s.Name())

	_, err = NewScorer(ScorerConfig{Policy: "kalman"}, 640)
	assert.True(t, errors.Is(err, ErrUnknownPolicy))

	_, err = NewScorer(ScorerConfig{Policy: PolicyWeighted, MinArea: 10, MaxArea: 10}, 640)
	assert.Error(t, err)
}

func TestNewCandidate_NonConvex(t *testing.T) {
	// L shape: a 4x1 bar with a 1x2 leg
	c, ok := NewCandidate([]image.Point{{0, 0}, {4, 0}, {4, 1}, {1, 1}, {1, 3}, {0, 3}})
	require.True(t, ok)

	assert.InDelta(t, 6, c.Area, 1e-9)
	assert.InDelta(t, 1.5, c.CX, 1e-9)
	assert.InDelta(t, 1, c.CY, 1e-9)
}
