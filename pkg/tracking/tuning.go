package tracking

import (
	"fmt"
	"math"

	"github.com/teslashibe/go-linetrace/internal/log"
)

// TuningParams holds the real-time adjustable tracking parameters.
// These can be modified via the tuning API without restarting the vehicle.
type TuningParams struct {
	// Smoothing
	Smoothing float64 `json:"smoothing"` // EMA alpha (0.3=smooth, 1=raw)

	// Steering law
	// Gains are pointers so zero can be set explicitly
	Law string   `json:"law"`
	Kp  *float64 `json:"kp,omitempty"` // Proportional gain (pid)
	Ki  *float64 `json:"ki,omitempty"` // Integral gain (pid)
	Kd  *float64 `json:"kd,omitempty"` // Derivative gain (pid)

	// Stream
	JPEGQuality int   `json:"jpeg_quality"`
	Mirror      *bool `json:"mirror,omitempty"`
	Annotate    *bool `json:"annotate,omitempty"`
}

// GetTuningParams returns current tuning parameters from the tracker.
func (t *Tracker) GetTuningParams() TuningParams {
	t.mu.RLock()
	defer t.mu.RUnlock()

	mirror, annotate := t.config.Mirror, t.config.Annotate
	kp, ki, kd := t.config.Kp, t.config.Ki, t.config.Kd
	return TuningParams{
		Smoothing:   t.smoother.Alpha(),
		Law:         t.law.Name(),
		Kp:          &kp,
		Ki:          &ki,
		Kd:          &kd,
		JPEGQuality: t.config.JPEGQuality,
		Mirror:      &mirror,
		Annotate:    &annotate,
	}
}

// SetTuningParams updates tuning parameters at runtime.
// Zero or nil fields are left unchanged, except gains, which apply whenever
// they are set. Switching the law resets its state.
func (t *Tracker) SetTuningParams(params TuningParams) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if params.JPEGQuality != 0 && (params.JPEGQuality < 1 || params.JPEGQuality > 100) {
		return fmt.Errorf("jpeg_quality must be 1-100, got %d", params.JPEGQuality)
	}
	if params.Smoothing < 0 || params.Smoothing > 1 {
		return fmt.Errorf("smoothing must be in (0, 1], got %v", params.Smoothing)
	}
	if params.Law != "" && params.Law != LawProportional && params.Law != LawPID {
		return fmt.Errorf("%w: %q", ErrUnknownLaw, params.Law)
	}
	for _, g := range []struct {
		name  string
		value *float64
	}{{"kp", params.Kp}, {"ki", params.Ki}, {"kd", params.Kd}} {
		if g.value != nil {
			if err := checkGain(g.name, *g.value); err != nil {
				return err
			}
		}
	}

	// Gains go into the config first so a law switch picks them up
	if params.Kp != nil {
		t.config.Kp = *params.Kp
	}
	if params.Ki != nil {
		t.config.Ki = *params.Ki
	}
	if params.Kd != nil {
		t.config.Kd = *params.Kd
	}

	if params.Law != "" && params.Law != t.law.Name() {
		cfg := t.config
		cfg.Law = params.Law
		law, err := NewSteeringLaw(cfg)
		if err != nil {
			return err
		}
		t.config.Law = params.Law
		t.law = law
		log.Info("steering law switched", "law", law.Name())
	} else if pid, ok := t.law.(*PIDController); ok {
		pid.SetGains(t.config.Kp, t.config.Ki, t.config.Kd)
	}

	if params.Smoothing > 0 {
		t.config.Smoothing = params.Smoothing
		t.smoother.SetAlpha(params.Smoothing)
	}
	if params.JPEGQuality > 0 {
		t.config.JPEGQuality = params.JPEGQuality
	}
	if params.Mirror != nil {
		t.config.Mirror = *params.Mirror
	}
	if params.Annotate != nil {
		t.config.Annotate = *params.Annotate
	}
	return nil
}

func checkGain(name string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > MaxGain {
		return fmt.Errorf("%s must be in [0, %g], got %v", name, MaxGain, v)
	}
	return nil
}
