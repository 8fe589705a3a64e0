package detection

import (
	"fmt"
	"image"
)

// Band names used by the default layouts.
const (
	BandNear = "near"
	BandFar  = "far"
)

// Band is a horizontal strip of the frame scanned for the line.
type Band struct {
	Name       string `yaml:"name" json:"name"`
	Center     int    `yaml:"center" json:"center"`           // Vertical center row
	HalfHeight int    `yaml:"half_height" json:"half_height"` // Rows above and below Center
}

// Rect returns the band rectangle clipped to a width x height frame.
// An empty rectangle means the band lies outside the frame.
func (b Band) Rect(width, height int) image.Rectangle {
	r := image.Rect(0, b.Center-b.HalfHeight, width, b.Center+b.HalfHeight)
	return r.Intersect(image.Rect(0, 0, width, height))
}

// Validate checks the band against the frame size.
func (b Band) Validate(width, height int) error {
	if b.Name == "" {
		return fmt.Errorf("band: name required")
	}
	if b.HalfHeight <= 0 {
		return fmt.Errorf("band %s: half_height must be positive, got %d", b.Name, b.HalfHeight)
	}
	if b.Rect(width, height).Empty() {
		return fmt.Errorf("band %s: row %d is outside a %dx%d frame", b.Name, b.Center, width, height)
	}
	return nil
}

// WeightedBands returns the layout used with the weighted scorer:
// 60-row strips just above the bumper and in the upper middle of the frame.
func WeightedBands(height int) []Band {
	return []Band{
		{Name: BandNear, Center: height - 100, HalfHeight: 30},
		{Name: BandFar, Center: height/2 - 100, HalfHeight: 30},
	}
}

// NarrowBands returns the thinner 30-row layout used with the max-area scorer.
func NarrowBands(height int) []Band {
	return []Band{
		{Name: BandNear, Center: height - 50, HalfHeight: 15},
		{Name: BandFar, Center: height/4 + 70, HalfHeight: 15},
	}
}
