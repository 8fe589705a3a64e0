package tracking

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-linetrace/pkg/debug"
	"github.com/teslashibe/go-linetrace/pkg/tracking/detection"
)

// Observation is the outcome of scanning one band
type Observation struct {
	Band       detection.Band
	Candidates int                 // Valid contours before scoring
	Best       detection.Candidate // Meaningful only when Found
	Found      bool
}

// X returns the horizontal line position seen in the band, in frame pixels.
func (o Observation) X() int {
	return o.Best.Centroid().X
}

// Perception runs the vision half of a cycle: band masks, contours and
// candidate selection.
type Perception struct {
	bands  []detection.Band
	pre    []*detection.Preprocessor // One per band
	scorer detection.Scorer
}

// NewPerception builds the per-band preprocessors and the scorer described
// by config. Call Close to release the preprocessors.
func NewPerception(config Config) (*Perception, error) {
	scorer, err := detection.NewScorer(config.Scorer, config.FrameWidth)
	if err != nil {
		return nil, err
	}

	p := &Perception{
		bands:  append([]detection.Band(nil), config.Bands...),
		scorer: scorer,
	}
	for _, band := range p.bands {
		pre, err := detection.NewPreprocessor(config.PipelineFor(band.Name))
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("band %s: %w", band.Name, err)
		}
		p.pre = append(p.pre, pre)
	}
	return p, nil
}

// Scorer returns the active scoring policy.
func (p *Perception) Scorer() detection.Scorer {
	return p.scorer
}

// Observe scans every band of frame. reference is the recent average line
// position used by proximity scoring. With overlay set, each band mask is
// painted back into frame.
func (p *Perception) Observe(frame *gocv.Mat, reference float64, overlay bool) ([]Observation, error) {
	obs := make([]Observation, 0, len(p.bands))
	for i, band := range p.bands {
		pre := p.pre[i]
		mask, err := pre.Process(*frame, band)
		if err != nil {
			mask.Close()
			return nil, fmt.Errorf("band %s: %w", band.Name, err)
		}

		cands := detection.Extract(mask)
		best, found := p.scorer.Select(cands, reference)
		debug.Log("band scanned",
			"band", band.Name,
			"candidates", len(cands),
			"found", found,
			"cx", best.CX,
			"area", best.Area,
			"score", best.Score,
		)

		if overlay {
			pre.Overlay(frame, band, mask)
		}
		mask.Close()

		obs = append(obs, Observation{
			Band:       band,
			Candidates: len(cands),
			Best:       best,
			Found:      found,
		})
	}
	return obs, nil
}

// Close releases the preprocessors.
func (p *Perception) Close() error {
	for _, pre := range p.pre {
		pre.Close()
	}
	p.pre = nil
	return nil
}

// Positions picks the near and far band positions out of a set of
// observations. A nil result means the band did not see the line.
func Positions(obs []Observation) (near, far *int) {
	for _, o := range obs {
		if !o.Found {
			continue
		}
		x := o.X()
		switch o.Band.Name {
		case detection.BandNear:
			near = &x
		case detection.BandFar:
			far = &x
		}
	}
	return near, far
}
