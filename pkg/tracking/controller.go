package tracking

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknownLaw is returned by NewSteeringLaw for an unrecognised law name.
var ErrUnknownLaw = errors.New("tracking: unknown steering law")

// SteeringLaw turns the lateral error in pixels into a steering command.
// Positive error means the line is right of center.
type SteeringLaw interface {
	Compute(err float64) int
	Reset()
	Name() string
}

// NewSteeringLaw builds the law named by cfg.Law.
func NewSteeringLaw(cfg Config) (SteeringLaw, error) {
	switch cfg.Law {
	case LawProportional:
		return NewProportionalLaw(cfg.FrameWidth), nil
	case LawPID:
		return NewPIDController(cfg.Kp, cfg.Ki, cfg.Kd, cfg.IntegralLimit), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLaw, cfg.Law)
	}
}

// ProportionalLaw maps the error linearly so that the frame edge gives a
// full-lock command.
type ProportionalLaw struct {
	HalfWidth float64
}

// NewProportionalLaw returns a proportional law for a frame of the given width.
func NewProportionalLaw(frameWidth int) *ProportionalLaw {
	return &ProportionalLaw{HalfWidth: float64(frameWidth) / 2}
}

// Name implements SteeringLaw.
func (p *ProportionalLaw) Name() string { return LawProportional }

// Compute implements SteeringLaw.
func (p *ProportionalLaw) Compute(err float64) int {
	if p.HalfWidth <= 0 {
		return 0
	}
	return steeringCommand(err / p.HalfWidth * SteeringScale)
}

// Reset implements SteeringLaw. The proportional law is stateless.
func (p *ProportionalLaw) Reset() {}

// PIDController implements proportional-integral-derivative steering
type PIDController struct {
	// Gains
	Kp float64 // Proportional gain
	Ki float64 // Integral gain
	Kd float64 // Derivative gain

	// Limits
	IntegralLimit float64 // Anti-windup bound on the accumulated error

	// State
	integral  float64
	lastError float64
}

// NewPIDController creates a PID controller with zeroed state
func NewPIDController(kp, ki, kd, integralLimit float64) *PIDController {
	return &PIDController{
		Kp:            kp,
		Ki:            ki,
		Kd:            kd,
		IntegralLimit: integralLimit,
	}
}

// Name implements SteeringLaw.
func (c *PIDController) Name() string { return LawPID }

// Compute implements SteeringLaw.
func (c *PIDController) Compute(err float64) int {
	c.integral = clamp(c.integral+err, -c.IntegralLimit, c.IntegralLimit)

	derivative := err - c.lastError
	c.lastError = err

	// Bleed the integral off once the line is centered
	if math.Abs(err) < 1 {
		c.integral *= 0.8
	}

	output := c.Kp*err + c.Ki*c.integral + c.Kd*derivative
	return steeringCommand(output)
}

// Reset clears the integral and derivative state.
func (c *PIDController) Reset() {
	c.integral = 0
	c.lastError = 0
}

// Integral returns the accumulated error.
func (c *PIDController) Integral() float64 {
	return c.integral
}

// SetGains replaces the gains without clearing state.
func (c *PIDController) SetGains(kp, ki, kd float64) {
	c.Kp, c.Ki, c.Kd = kp, ki, kd
}
