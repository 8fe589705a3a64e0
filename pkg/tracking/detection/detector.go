// Package detection turns a camera band into line candidates and picks the
// one most likely to be the line.
package detection

import (
	"errors"
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"
)

// Scoring policy names accepted by NewScorer.
const (
	PolicyWeighted = "weighted"
	PolicyMaxArea  = "max-area"
)

// ErrUnknownPolicy is returned by NewScorer for an unrecognised policy name.
var ErrUnknownPolicy = errors.New("detection: unknown scoring policy")

// Candidate is a connected foreground region of a band mask
type Candidate struct {
	Contour []image.Point // Boundary in band coordinates
	Area    float64       // Enclosed area in pixels
	CX, CY  float64       // Centroid in band coordinates
	Score   float64       // Set by the scorer that selected it
}

// Moments returns the zeroth and first spatial moments of a closed contour.
// m00 is never negative, whatever the contour orientation.
func Moments(points []image.Point) (m00, m10, m01 float64) {
	if len(points) < 3 {
		return 0, 0, 0
	}

	pv := gocv.NewPointVectorFromPoints(points)
	defer pv.Close()
	return contourMoments(pv)
}

func contourMoments(pv gocv.PointVector) (m00, m10, m01 float64) {
	mat := gocv.NewMatFromPointVector(pv, true)
	defer mat.Close()

	m := gocv.Moments(mat, false)
	m00, m10, m01 = m["m00"], m["m10"], m["m01"]
	if m00 < 0 {
		m00, m10, m01 = -m00, -m10, -m01
	}
	return m00, m10, m01
}

// NewCandidate builds a candidate from a contour.
// Returns false for degenerate contours whose area is zero.
func NewCandidate(contour []image.Point) (Candidate, bool) {
	if len(contour) < 3 {
		return Candidate{}, false
	}

	pv := gocv.NewPointVectorFromPoints(contour)
	defer pv.Close()
	return newCandidate(pv, contour)
}

func newCandidate(pv gocv.PointVector, contour []image.Point) (Candidate, bool) {
	m00, m10, m01 := contourMoments(pv)
	if m00 == 0 {
		return Candidate{}, false
	}
	return Candidate{
		Contour: contour,
		Area:    gocv.ContourArea(pv),
		CX:      m10 / m00,
		CY:      m01 / m00,
	}, true
}

// Centroid returns the integer centroid in band coordinates.
// Truncation matches how the steering reference has always been computed.
func (c Candidate) Centroid() image.Point {
	return image.Pt(int(c.CX), int(c.CY))
}

// Scorer picks the best line candidate in a band.
// reference is the recent average line position in pixels.
type Scorer interface {
	Select(cands []Candidate, reference float64) (Candidate, bool)
	Name() string
}

// ScorerConfig holds the tunables for both scoring policies
type ScorerConfig struct {
	Policy         string  `yaml:"policy" json:"policy"`
	MinArea        float64 `yaml:"min_area" json:"min_area"`
	MaxArea        float64 `yaml:"max_area" json:"max_area"`               // Weighted only
	DistanceWeight float64 `yaml:"distance_weight" json:"distance_weight"` // Weighted only
	AreaWeight     float64 `yaml:"area_weight" json:"area_weight"`         // Weighted only
}

// DefaultScorerConfig returns the proximity-weighted policy.
func DefaultScorerConfig() ScorerConfig {
	return ScorerConfig{
		Policy:         PolicyWeighted,
		MinArea:        1800,
		MaxArea:        5500,
		DistanceWeight: 0.9,
		AreaWeight:     0.1,
	}
}

// MaxAreaScorerConfig returns the largest-blob policy.
func MaxAreaScorerConfig() ScorerConfig {
	return ScorerConfig{
		Policy:  PolicyMaxArea,
		MinArea: 500,
	}
}

// NewScorer builds the scorer named by cfg.Policy for a frame of the given width.
func NewScorer(cfg ScorerConfig, frameWidth int) (Scorer, error) {
	switch cfg.Policy {
	case PolicyWeighted:
		if cfg.MaxArea <= cfg.MinArea {
			return nil, fmt.Errorf("detection: max_area %.0f must exceed min_area %.0f", cfg.MaxArea, cfg.MinArea)
		}
		return &WeightedScorer{
			MinArea:        cfg.MinArea,
			MaxArea:        cfg.MaxArea,
			MaxDistance:    float64(frameWidth) / 2,
			DistanceWeight: cfg.DistanceWeight,
			AreaWeight:     cfg.AreaWeight,
		}, nil
	case PolicyMaxArea:
		return &MaxAreaScorer{MinArea: cfg.MinArea}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, cfg.Policy)
	}
}

// WeightedScorer ranks candidates by closeness to the recent line position,
// with a small bonus for area. Candidates outside [MinArea, MaxArea] are rejected.
type WeightedScorer struct {
	MinArea        float64
	MaxArea        float64
	MaxDistance    float64 // Distance at which the proximity term reaches zero
	DistanceWeight float64
	AreaWeight     float64
}

// Name implements Scorer.
func (s *WeightedScorer) Name() string { return PolicyWeighted }

// Score returns the candidate score, or false if its area is rejected.
func (s *WeightedScorer) Score(c Candidate, reference float64) (float64, bool) {
	if c.Area < s.MinArea || c.Area > s.MaxArea {
		return 0, false
	}

	normArea := (c.Area - s.MinArea) / (s.MaxArea - s.MinArea)

	normDist := 1.0
	if s.MaxDistance > 0 {
		normDist = clamp01(math.Abs(c.CX-reference) / s.MaxDistance)
	}

	return s.DistanceWeight*(1-normDist) + s.AreaWeight*normArea, true
}

// Select implements Scorer.
func (s *WeightedScorer) Select(cands []Candidate, reference float64) (Candidate, bool) {
	var best Candidate
	found := false
	for _, c := range cands {
		score, ok := s.Score(c, reference)
		if !ok {
			continue
		}
		if !found || score > best.Score {
			best = c
			best.Score = score
			found = true
		}
	}
	return best, found
}

// MaxAreaScorer picks the largest candidate above MinArea.
type MaxAreaScorer struct {
	MinArea float64
}

// Name implements Scorer.
func (s *MaxAreaScorer) Name() string { return PolicyMaxArea }

// Select implements Scorer. The reference position is ignored.
func (s *MaxAreaScorer) Select(cands []Candidate, _ float64) (Candidate, bool) {
	var best Candidate
	found := false
	for _, c := range cands {
		if c.Area < s.MinArea {
			continue
		}
		if !found || c.Area > best.Area {
			best = c
			best.Score = c.Area
			found = true
		}
	}
	return best, found
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
