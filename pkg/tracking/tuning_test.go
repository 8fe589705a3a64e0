package tracking

import (
	"context"
	"errors"
	"math"
	"testing"
)

func gain(v float64) *float64 { return &v }

func TestTuning_RoundTrip(t *testing.T) {
	tr := newTestTracker(t, DefaultConfig(), nil)

	got := tr.GetTuningParams()
	if got.Law != LawProportional || got.Smoothing != 1 || got.JPEGQuality != 30 {
		t.Fatalf("unexpected defaults: %+v", got)
	}

	mirror := false
	err := tr.SetTuningParams(TuningParams{Law: LawPID, Kp: gain(0.5), Smoothing: 0.4, JPEGQuality: 70, Mirror: &mirror})
	if err != nil {
		t.Fatal(err)
	}

	got = tr.GetTuningParams()
	if got.Law != LawPID {
		t.Errorf("Law = %s, want pid", got.Law)
	}
	if *got.Kp != 0.5 || *got.Ki != 0.005 {
		t.Errorf("gains = %v/%v", *got.Kp, *got.Ki)
	}
	if got.Smoothing != 0.4 || got.JPEGQuality != 70 || *got.Mirror {
		t.Errorf("unexpected params: %+v", got)
	}

	pid, ok := tr.law.(*PIDController)
	if !ok {
		t.Fatalf("law is %T", tr.law)
	}
	if pid.Kp != 0.5 {
		t.Errorf("PID Kp = %v, want 0.5", pid.Kp)
	}
}

func TestTuning_GainsReachRunningPID(t *testing.T) {
	tr := newTestTracker(t, PIDConfig(), nil)
	if err := tr.SetTuningParams(TuningParams{Kd: gain(0.2)}); err != nil {
		t.Fatal(err)
	}
	if pid := tr.law.(*PIDController); pid.Kd != 0.2 || pid.Kp != 0.3 {
		t.Errorf("gains = %v/%v, want 0.3/0.2", pid.Kp, pid.Kd)
	}
}

func TestTuning_GainsCanBeZeroed(t *testing.T) {
	tr := newTestTracker(t, PIDConfig(), nil)
	if err := tr.SetTuningParams(TuningParams{Ki: gain(0), Kd: gain(0)}); err != nil {
		t.Fatal(err)
	}

	pid := tr.law.(*PIDController)
	if pid.Ki != 0 || pid.Kd != 0 || pid.Kp != 0.3 {
		t.Errorf("gains = %v/%v/%v, want 0.3/0/0", pid.Kp, pid.Ki, pid.Kd)
	}
	got := tr.GetTuningParams()
	if *got.Ki != 0 || *got.Kd != 0 {
		t.Errorf("reported gains = %v/%v, want 0/0", *got.Ki, *got.Kd)
	}

	// Pure proportional now: 0.3 * 100
	if out := pid.Compute(100); out != 30 {
		t.Errorf("Compute(100) = %d, want 30", out)
	}
}

func TestTuning_RejectsInvalid(t *testing.T) {
	tr := newTestTracker(t, PIDConfig(), nil)
	before := tr.GetTuningParams()

	if err := tr.SetTuningParams(TuningParams{Law: "fuzzy", Kp: gain(9)}); !errors.Is(err, ErrUnknownLaw) {
		t.Errorf("expected ErrUnknownLaw, got %v", err)
	}

	invalid := map[string]TuningParams{
		"quality 150":        {JPEGQuality: 150},
		"negative smoothing": {Smoothing: -1},
		"huge kp":            {Kp: gain(1e18)},
		"kp above max":       {Kp: gain(MaxGain + 1)},
		"negative ki":        {Ki: gain(-0.1)},
		"nan kd":             {Kd: gain(math.NaN())},
		"valid kp, bad kd":   {Kp: gain(2), Kd: gain(-1)},
	}
	for name, p := range invalid {
		if err := tr.SetTuningParams(p); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}

	after := tr.GetTuningParams()
	if *after.Kp != *before.Kp || *after.Kd != *before.Kd || after.Law != before.Law {
		t.Errorf("rejected update mutated state: %+v", after)
	}
	if pid := tr.law.(*PIDController); pid.Kp != 0.3 {
		t.Errorf("PID Kp = %v, want 0.3", pid.Kp)
	}
}

func TestTuning_SmoothingAppliesToNextCycle(t *testing.T) {
	tr := newTestTracker(t, DefaultConfig(), nil)
	if err := tr.SetTuningParams(TuningParams{Smoothing: 0.5}); err != nil {
		t.Fatal(err)
	}

	tel := tr.Steer(context.Background(), ptr(420), ptr(420))
	if tel.Smoothed != 370 {
		t.Errorf("Smoothed = %v, want 370", tel.Smoothed)
	}
}
