package camera

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/teslashibe/go-linetrace/internal/log"
)

var (
	// ErrReadFailed means the device returned no frame.
	ErrReadFailed = errors.New("camera: read failed")

	// ErrEmptyFrame means the device returned a frame with no pixels.
	ErrEmptyFrame = errors.New("camera: empty frame")
)

// Capture reads frames from a camera and scales them to the configured size.
type Capture struct {
	cfg    Config
	vc     *gocv.VideoCapture
	scaled gocv.Mat
}

// Open starts capturing from cfg.Device.
func Open(cfg Config) (*Capture, error) {
	if err := cfg.Err(); err != nil {
		return nil, err
	}

	vc, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("camera: open %s: %w", cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("camera: open %s: device not available", cfg.Device)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(cfg.Framerate))
	if cfg.BufferSize > 0 {
		vc.Set(gocv.VideoCaptureBufferSize, float64(cfg.BufferSize))
	}

	log.Info("camera opened",
		"device", cfg.Device,
		"width", int(vc.Get(gocv.VideoCaptureFrameWidth)),
		"height", int(vc.Get(gocv.VideoCaptureFrameHeight)),
		"fps", vc.Get(gocv.VideoCaptureFPS))

	return &Capture{cfg: cfg, vc: vc, scaled: gocv.NewMat()}, nil
}

// Read blocks for the next frame and stores it in dst at the configured size.
func (c *Capture) Read(dst *gocv.Mat) error {
	if ok := c.vc.Read(dst); !ok {
		return ErrReadFailed
	}
	if dst.Empty() {
		return ErrEmptyFrame
	}

	// Drivers may ignore the requested size
	if dst.Cols() != c.cfg.Width || dst.Rows() != c.cfg.Height {
		gocv.Resize(*dst, &c.scaled, image.Pt(c.cfg.Width, c.cfg.Height), 0, 0, gocv.InterpolationLinear)
		c.scaled.CopyTo(dst)
	}
	return nil
}

// Close releases the device.
func (c *Capture) Close() error {
	c.scaled.Close()
	return c.vc.Close()
}
