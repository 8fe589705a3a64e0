// Package camera opens the line camera and delivers fixed-size BGR frames.
package camera

import (
	"fmt"
	"strings"
)

// Config holds the capture parameters.
type Config struct {
	// Device is a V4L2 index ("0"), a device path or a video file / stream URL.
	Device string `yaml:"device" json:"device"`

	// === Resolution ===
	Width     int `yaml:"width" json:"width"`         // Frame width in pixels
	Height    int `yaml:"height" json:"height"`       // Frame height in pixels
	Framerate int `yaml:"framerate" json:"framerate"` // Requested FPS

	// BufferSize asks the driver to queue at most this many frames so the
	// loop always sees a recent one. 0 leaves the driver default.
	BufferSize int `yaml:"buffer_size" json:"buffer_size"`
}

// Capture limits
const (
	MinWidth     = 160
	MaxWidth     = 1920
	MinHeight    = 120
	MaxHeight    = 1080
	MaxFramerate = 120
)

// DefaultConfig returns 640x480 at 30 fps from the first camera.
func DefaultConfig() Config {
	return Config{
		Device:     "0",
		Width:      640,
		Height:     480,
		Framerate:  30,
		BufferSize: 1,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if strings.TrimSpace(c.Device) == "" {
		errors = append(errors, "device is required")
	}
	if c.Width < MinWidth || c.Width > MaxWidth {
		errors = append(errors, fmt.Sprintf("width must be between %d and %d", MinWidth, MaxWidth))
	}
	if c.Height < MinHeight || c.Height > MaxHeight {
		errors = append(errors, fmt.Sprintf("height must be between %d and %d", MinHeight, MaxHeight))
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, fmt.Sprintf("framerate must be between 1 and %d", MaxFramerate))
	}
	if c.BufferSize < 0 {
		errors = append(errors, "buffer_size cannot be negative")
	}

	return errors
}

// Err folds Validate into a single error.
func (c *Config) Err() error {
	if errs := c.Validate(); len(errs) > 0 {
		return fmt.Errorf("camera config: %s", strings.Join(errs, "; "))
	}
	return nil
}
