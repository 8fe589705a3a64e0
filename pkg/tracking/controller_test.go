package tracking

import (
	"errors"
	"math"
	"testing"
)

func TestProportionalLaw(t *testing.T) {
	law := NewProportionalLaw(640)

	tests := []struct {
		x    float64
		want int
	}{
		{320, 0},   // Centered
		{0, -49},   // Left edge, clamped from -50
		{640, 49},  // Right edge, clamped from 50
		{480, 25},  // Half way right
		{166, -24}, // -154/320*50 = -24.06
		{-100, -49},
	}

	for _, tt := range tests {
		if got := law.Compute(tt.x - 320); got != tt.want {
			t.Errorf("Compute(x=%v) = %d, want %d", tt.x, got, tt.want)
		}
	}
}

func TestPIDController_Output(t *testing.T) {
	c := NewPIDController(0.3, 0.005, 0.1, 100)

	// 0.3*10 + 0.005*10 + 0.1*10 = 4.05
	if got := c.Compute(10); got != 4 {
		t.Errorf("Compute(10) = %d, want 4", got)
	}
	// 0.3*10 + 0.005*20 + 0.1*0 = 3.1
	if got := c.Compute(10); got != 3 {
		t.Errorf("Compute(10) second = %d, want 3", got)
	}
}

func TestPIDController_IntegralClamped(t *testing.T) {
	c := NewPIDController(0.3, 0.005, 0.1, 100)
	for i := 0; i < 10; i++ {
		c.Compute(80)
	}
	if c.Integral() != 100 {
		t.Errorf("Integral() = %v, want 100", c.Integral())
	}

	for i := 0; i < 10; i++ {
		c.Compute(-80)
	}
	if c.Integral() != -100 {
		t.Errorf("Integral() = %v, want -100", c.Integral())
	}
}

func TestPIDController_IntegralDecaysWhenCentered(t *testing.T) {
	c := NewPIDController(0.3, 0.005, 0.1, 100)
	for i := 0; i < 5; i++ {
		c.Compute(50)
	}

	// 0.005*80 + 0.1*(0-50) = -4.6
	if got := c.Compute(0); got != -5 {
		t.Errorf("Compute(0) = %d, want -5", got)
	}
	if c.Integral() != 80 {
		t.Fatalf("Integral() = %v, want 80 after one centered step", c.Integral())
	}

	c.Compute(0)
	if math.Abs(c.Integral()-64) > 1e-9 {
		t.Errorf("Integral() = %v, want 64", c.Integral())
	}

	for i := 0; i < 30; i++ {
		c.Compute(0)
	}
	if got := c.Compute(0); got != 0 {
		t.Errorf("output should settle to 0, got %d", got)
	}
	if c.Integral() > 0.1 {
		t.Errorf("integral should decay toward 0, got %v", c.Integral())
	}
}

func TestPIDController_ConvergesClosedLoop(t *testing.T) {
	for _, start := range []float64{100, -150, 300} {
		c := NewPIDController(0.3, 0.005, 0.1, 100)
		x := start
		// The line moves opposite to the command by one pixel per unit
		for i := 0; i < 200; i++ {
			x -= float64(c.Compute(x))
		}
		if x != 0 {
			t.Errorf("start %v: error settled at %v, want 0", start, x)
		}
	}
}

func TestPIDController_OutputClamped(t *testing.T) {
	c := NewPIDController(0.3, 0.005, 0.1, 100)
	if got := c.Compute(1000); got != MaxSteering {
		t.Errorf("Compute(1000) = %d, want %d", got, MaxSteering)
	}
	c.Reset()
	if got := c.Compute(-1000); got != -MaxSteering {
		t.Errorf("Compute(-1000) = %d, want %d", got, -MaxSteering)
	}
}

func TestPIDController_Reset(t *testing.T) {
	c := NewPIDController(0.3, 0.005, 0.1, 100)
	c.Compute(40)
	c.Reset()
	if c.Integral() != 0 {
		t.Errorf("Integral() after Reset = %v", c.Integral())
	}
	// Fresh state: 0.3*10 + 0.005*10 + 0.1*10 = 4.05
	if got := c.Compute(10); got != 4 {
		t.Errorf("Compute(10) after Reset = %d, want 4", got)
	}
}

func TestNewSteeringLaw(t *testing.T) {
	cfg := DefaultConfig()
	law, err := NewSteeringLaw(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if law.Name() != LawProportional {
		t.Errorf("Name() = %s", law.Name())
	}

	cfg.Law = LawPID
	law, err = NewSteeringLaw(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := law.(*PIDController); !ok {
		t.Errorf("expected *PIDController, got %T", law)
	}

	cfg.Law = "fuzzy"
	if _, err := NewSteeringLaw(cfg); !errors.Is(err, ErrUnknownLaw) {
		t.Errorf("expected ErrUnknownLaw, got %v", err)
	}
}

func TestSteeringCommand(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0, 0},
		{48.6, 49},
		{49.5, 49},
		{-50, -49},
		{-7.4, -7},
		{1e18, 49},
		{-1e18, -49},
		{math.Inf(1), 49},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := steeringCommand(tt.in); got != tt.want {
			t.Errorf("steeringCommand(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPIDController_HugeGainKeepsDirection(t *testing.T) {
	c := NewPIDController(1e18, 0.005, 0.1, 100)
	if got := c.Compute(100); got != MaxSteering {
		t.Errorf("Compute(100) with Kp=1e18 = %d, want %d", got, MaxSteering)
	}
	c.Reset()
	if got := c.Compute(-100); got != -MaxSteering {
		t.Errorf("Compute(-100) with Kp=1e18 = %d, want %d", got, -MaxSteering)
	}
}
