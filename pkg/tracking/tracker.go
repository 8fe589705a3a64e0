package tracking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/teslashibe/go-linetrace/internal/log"
	"github.com/teslashibe/go-linetrace/pkg/actuator"
	"github.com/teslashibe/go-linetrace/pkg/debug"
)

// ErrAcquisition is returned by Run when the camera stops delivering frames.
var ErrAcquisition = errors.New("tracking: frame acquisition failed")

// FrameSource delivers camera frames
type FrameSource interface {
	Read(dst *gocv.Mat) error
}

// Actuator carries steering commands to the motor board
type Actuator interface {
	Send(command int) error
	Reconnect(ctx context.Context) error
	Connected() bool
	Device() string
}

// FrameSink receives each annotated frame as JPEG bytes
type FrameSink interface {
	BroadcastBinary(data []byte)
}

// TelemetrySink receives the telemetry of each cycle
type TelemetrySink interface {
	BroadcastJSON(v any) error
}

// Tracker runs the closed control loop. Run is the only goroutine that
// touches the history, the smoother, the steering law and the actuator.
type Tracker struct {
	config    Config
	source    FrameSource
	link      Actuator
	frames    FrameSink
	telemetry TelemetrySink

	// Core components
	perception *Perception
	history    *History
	smoother   *Smoother
	law        SteeringLaw

	runID string
	seq   uint64

	// State
	mu      sync.RWMutex
	last    Telemetry
	running bool
}

// New creates a tracker. source and link may be nil for tests that drive
// Cycle or Steer directly; a nil link runs the loop without actuation.
func New(config Config, source FrameSource, link Actuator) (*Tracker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("tracking config: %w", err)
	}
	law, err := NewSteeringLaw(config)
	if err != nil {
		return nil, err
	}
	perception, err := NewPerception(config)
	if err != nil {
		return nil, err
	}

	center := float64(config.FrameWidth) / 2
	return &Tracker{
		config:     config,
		source:     source,
		link:       link,
		perception: perception,
		history:    NewHistory(config.HistorySize, center),
		smoother:   NewSmoother(config.Smoothing, center),
		law:        law,
		runID:      uuid.NewString(),
	}, nil
}

// SetFrameSink sets where annotated frames are published
func (t *Tracker) SetFrameSink(sink FrameSink) {
	t.frames = sink
}

// SetTelemetrySink sets where per-cycle telemetry is published
func (t *Tracker) SetTelemetrySink(sink TelemetrySink) {
	t.telemetry = sink
}

// RunID identifies this tracker instance in telemetry.
func (t *Tracker) RunID() string {
	return t.runID
}

// Last returns the telemetry of the most recent cycle.
func (t *Tracker) Last() Telemetry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.last
}

// IsRunning returns whether Run is active.
func (t *Tracker) IsRunning() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.running
}

// Reference returns the history average used to score candidates.
func (t *Tracker) Reference() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.history.Average()
}

// Reset recenters the history and the smoother on the frame and clears the
// steering law state. Use it after the vehicle is placed back on the line.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetLocked()
	log.Info("tracker state reset", "center", t.config.FrameWidth/2)
}

func (t *Tracker) resetLocked() {
	center := float64(t.config.FrameWidth) / 2
	t.history.Reset(center)
	t.smoother.Reset(center)
	t.law.Reset()
}

// Close releases the vision resources.
func (t *Tracker) Close() error {
	return t.perception.Close()
}

// Run reads frames and runs one cycle per frame until ctx is cancelled.
// A frame read failure ends the loop with ErrAcquisition.
func (t *Tracker) Run(ctx context.Context) error {
	if t.source == nil {
		return fmt.Errorf("%w: no frame source", ErrAcquisition)
	}

	t.setRunning(true)
	defer t.setRunning(false)

	log.Info("line tracker started",
		"run_id", t.runID,
		"policy", t.perception.Scorer().Name(),
		"law", t.law.Name(),
		"frame", fmt.Sprintf("%dx%d", t.config.FrameWidth, t.config.FrameHeight))

	frame := gocv.NewMat()
	defer frame.Close()

	for {
		select {
		case <-ctx.Done():
			log.Info("line tracker stopped", "cycles", t.seq)
			return nil
		default:
		}

		if err := t.source.Read(&frame); err != nil {
			return fmt.Errorf("%w: %w", ErrAcquisition, err)
		}
		if _, err := t.Cycle(ctx, &frame); err != nil {
			return err
		}
	}
}

func (t *Tracker) setRunning(v bool) {
	t.mu.Lock()
	t.running = v
	t.mu.Unlock()
}

// Cycle processes one frame: detection, fusion, steering, actuation and
// publication. The frame is modified in place by mirroring and annotation.
func (t *Tracker) Cycle(ctx context.Context, frame *gocv.Mat) (Telemetry, error) {
	start := time.Now()

	if frame.Empty() {
		return Telemetry{}, fmt.Errorf("%w: empty frame", ErrAcquisition)
	}
	if frame.Cols() != t.config.FrameWidth || frame.Rows() != t.config.FrameHeight {
		return Telemetry{}, fmt.Errorf("%w: frame is %dx%d, want %dx%d",
			ErrAcquisition, frame.Cols(), frame.Rows(), t.config.FrameWidth, t.config.FrameHeight)
	}

	t.mu.RLock()
	mirror, annotate, quality := t.config.Mirror, t.config.Annotate, t.config.JPEGQuality
	t.mu.RUnlock()

	if mirror {
		gocv.Flip(*frame, frame, 1)
	}

	obs, err := t.perception.Observe(frame, t.Reference(), t.frames != nil)
	if err != nil {
		return Telemetry{}, err
	}
	near, far := Positions(obs)

	tel := t.Steer(ctx, near, far)

	if t.frames != nil {
		if annotate {
			Annotate(frame, obs, tel)
		}
		if jpeg, err := EncodeJPEG(*frame, quality); err != nil {
			log.Warn("frame encode failed", "error", err)
		} else {
			t.frames.BroadcastBinary(jpeg)
		}
	}

	tel.CycleMs = float64(time.Since(start).Microseconds()) / 1000
	t.mu.Lock()
	t.last = tel
	t.mu.Unlock()

	if t.telemetry != nil {
		if err := t.telemetry.BroadcastJSON(tel); err != nil {
			log.Warn("telemetry encode failed", "error", err)
		}
	}

	debug.CycleLog("cycle",
		"seq", tel.Seq,
		"near", intOrNil(near),
		"far", intOrNil(far),
		"x", tel.Fused.X,
		"source", tel.Fused.Source,
		"steering", tel.Steering,
		"sent", tel.Sent,
		"ms", tel.CycleMs)

	return tel, nil
}

// Steer is the decision half of a cycle: it fuses the band positions,
// updates history and smoothing, computes the command and hands it to the
// actuator. While the link is down it attempts a reconnect instead and no
// command is sent.
func (t *Tracker) Steer(ctx context.Context, near, far *int) Telemetry {
	t.mu.Lock()
	tel := t.decide(near, far)
	t.mu.Unlock()

	t.actuate(ctx, &tel)

	t.mu.Lock()
	t.last = tel
	t.mu.Unlock()
	return tel
}

// decide must be called with t.mu held.
func (t *Tracker) decide(near, far *int) Telemetry {
	t.seq++
	width := t.config.FrameWidth

	fused := Fuse(near, far, t.history.Average(), width)
	t.history.Push(float64(fused.X))
	smoothed := t.smoother.Update(float64(fused.X))
	errPx := smoothed - float64(width)/2

	tel := Telemetry{
		Seq:      t.seq,
		RunID:    t.runID,
		Time:     time.Now(),
		Near:     near,
		Far:      far,
		Fused:    fused,
		Average:  t.history.Average(),
		Smoothed: smoothed,
		Error:    errPx,
		Steering: t.law.Compute(errPx),
		Law:      t.law.Name(),
	}
	if pid, ok := t.law.(*PIDController); ok {
		tel.Integral = pid.Integral()
	}
	return tel
}

func (t *Tracker) actuate(ctx context.Context, tel *Telemetry) {
	if t.link == nil {
		tel.Link = LinkNone
		return
	}

	if !t.link.Connected() {
		if err := t.link.Reconnect(ctx); err != nil {
			if !errors.Is(err, actuator.ErrBackoff) {
				log.Warn("actuator reconnect failed", "error", err)
			}
			tel.LinkError = err.Error()
		} else {
			log.Info("actuator reconnected", "device", t.link.Device())
			// Accumulated error is stale after a period without steering
			t.mu.Lock()
			t.law.Reset()
			t.mu.Unlock()
		}
		// The board holds its last command until the next cycle
	} else if err := t.link.Send(tel.Steering); err != nil {
		log.Warn("steering write failed, link down", "device", t.link.Device(), "error", err)
		tel.LinkError = err.Error()
	} else {
		tel.Sent = true
	}

	tel.Link = LinkDisconnected
	if t.link.Connected() {
		tel.Link = LinkConnected
	}
	tel.Device = t.link.Device()
}

func intOrNil(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}
