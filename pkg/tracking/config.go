package tracking

import (
	"errors"
	"fmt"

	"github.com/teslashibe/go-linetrace/pkg/tracking/detection"
)

// Steering law names accepted by NewSteeringLaw.
const (
	LawProportional = "proportional"
	LawPID          = "pid"
)

// Deployment profiles.
const (
	ProfileWeighted = "weighted"
	ProfilePID      = "pid"
)

// ErrUnknownProfile is returned by Profile for an unrecognised name.
var ErrUnknownProfile = errors.New("tracking: unknown profile")

// Config holds all tunable parameters for line tracking
type Config struct {
	// Frame
	FrameWidth  int  `yaml:"frame_width" json:"frame_width"`
	FrameHeight int  `yaml:"frame_height" json:"frame_height"`
	Mirror      bool `yaml:"mirror" json:"mirror"` // Flip horizontally before processing

	// Detection
	Bands    []detection.Band       `yaml:"bands" json:"bands"`
	Pipeline detection.Pipeline     `yaml:"pipeline" json:"pipeline"`
	Scorer   detection.ScorerConfig `yaml:"scorer" json:"scorer"`

	// BandPipelines replaces Pipeline for the named bands
	BandPipelines map[string]detection.Pipeline `yaml:"band_pipelines,omitempty" json:"band_pipelines,omitempty"`

	// Fusion and smoothing
	HistorySize int     `yaml:"history_size" json:"history_size"` // Fused positions kept for the reference average
	Smoothing   float64 `yaml:"smoothing" json:"smoothing"`       // EMA alpha (1 = no damping)

	// Steering law
	Law           string  `yaml:"law" json:"law"`
	Kp            float64 `yaml:"kp" json:"kp"`
	Ki            float64 `yaml:"ki" json:"ki"`
	Kd            float64 `yaml:"kd" json:"kd"`
	IntegralLimit float64 `yaml:"integral_limit" json:"integral_limit"`

	// Output
	JPEGQuality int  `yaml:"jpeg_quality" json:"jpeg_quality"`
	Annotate    bool `yaml:"annotate" json:"annotate"` // Draw bands, centroids and the fused position
}

// DefaultConfig returns the weighted profile for a 640x480 camera:
// proximity scoring, proportional steering and a light stream.
func DefaultConfig() Config {
	const w, h = 640, 480
	return Config{
		FrameWidth:  w,
		FrameHeight: h,
		Mirror:      true,

		Bands:    detection.WeightedBands(h),
		Pipeline: detection.ContrastPipeline(),
		Scorer:   detection.DefaultScorerConfig(),

		HistorySize: 10,
		Smoothing:   1, // The proportional law reacts to the raw fused position

		Law:           LawProportional,
		Kp:            0.3,
		Ki:            0.005,
		Kd:            0.1,
		IntegralLimit: 100,

		JPEGQuality: 30,
		Annotate:    true,
	}
}

// PIDConfig returns the max-area profile: green channel mask, largest blob,
// damped position and PID steering.
func PIDConfig() Config {
	cfg := DefaultConfig()
	cfg.Bands = detection.NarrowBands(cfg.FrameHeight)
	// The near band sits lower in the frame and sees a brighter floor
	cfg.Pipeline = detection.GreenRangePipeline(40)
	cfg.BandPipelines = map[string]detection.Pipeline{
		detection.BandNear: detection.GreenRangePipeline(60),
	}
	cfg.Scorer = detection.MaxAreaScorerConfig()
	cfg.Smoothing = 0.5
	cfg.Law = LawPID
	cfg.JPEGQuality = 60
	return cfg
}

// PipelineFor returns the preprocessing pipeline of the named band.
func (c Config) PipelineFor(band string) detection.Pipeline {
	if p, ok := c.BandPipelines[band]; ok {
		return p
	}
	return c.Pipeline
}

// Profile returns the named preset.
func Profile(name string) (Config, error) {
	switch name {
	case ProfileWeighted, "":
		return DefaultConfig(), nil
	case ProfilePID:
		return PIDConfig(), nil
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
	}
}

// Resize moves the bands to a new frame size using the layout of the
// configured scorer.
func (c *Config) Resize(width, height int) {
	c.FrameWidth, c.FrameHeight = width, height
	if c.Scorer.Policy == detection.PolicyMaxArea {
		c.Bands = detection.NarrowBands(height)
	} else {
		c.Bands = detection.WeightedBands(height)
	}
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.FrameWidth <= 0 || c.FrameHeight <= 0 {
		return fmt.Errorf("frame size must be positive, got %dx%d", c.FrameWidth, c.FrameHeight)
	}
	if len(c.Bands) == 0 {
		return fmt.Errorf("at least one band required")
	}
	seen := make(map[string]bool, len(c.Bands))
	for _, b := range c.Bands {
		if err := b.Validate(c.FrameWidth, c.FrameHeight); err != nil {
			return err
		}
		if b.Name != detection.BandNear && b.Name != detection.BandFar {
			return fmt.Errorf("band %q: name must be %q or %q", b.Name, detection.BandNear, detection.BandFar)
		}
		if seen[b.Name] {
			return fmt.Errorf("duplicate band %q", b.Name)
		}
		seen[b.Name] = true
	}
	if err := c.Pipeline.Validate(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	for name, p := range c.BandPipelines {
		if name != detection.BandNear && name != detection.BandFar {
			return fmt.Errorf("band_pipelines: unknown band %q", name)
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("band_pipelines %s: %w", name, err)
		}
	}
	if _, err := detection.NewScorer(c.Scorer, c.FrameWidth); err != nil {
		return err
	}
	if c.HistorySize < 1 {
		return fmt.Errorf("history_size must be at least 1, got %d", c.HistorySize)
	}
	if c.Smoothing <= 0 || c.Smoothing > 1 {
		return fmt.Errorf("smoothing must be in (0, 1], got %v", c.Smoothing)
	}
	for name, v := range map[string]float64{"kp": c.Kp, "ki": c.Ki, "kd": c.Kd} {
		if err := checkGain(name, v); err != nil {
			return err
		}
	}
	switch c.Law {
	case LawProportional:
	case LawPID:
		if c.IntegralLimit <= 0 {
			return fmt.Errorf("integral_limit must be positive, got %v", c.IntegralLimit)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownLaw, c.Law)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("jpeg_quality must be 1-100, got %d", c.JPEGQuality)
	}
	return nil
}
