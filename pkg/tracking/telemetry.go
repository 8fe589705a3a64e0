package tracking

import "time"

// Link states reported in telemetry.
const (
	LinkConnected    = "connected"
	LinkDisconnected = "disconnected"
	LinkNone         = "none" // Running without an actuator
)

// Telemetry describes one control cycle
type Telemetry struct {
	Seq   uint64    `json:"seq"`
	RunID string    `json:"run_id"`
	Time  time.Time `json:"time"`

	// Vision
	Near  *int  `json:"near,omitempty"`
	Far   *int  `json:"far,omitempty"`
	Fused Fused `json:"fused"`

	// Control
	Average  float64 `json:"average"`  // History mean after this cycle
	Smoothed float64 `json:"smoothed"` // Position fed to the steering law
	Error    float64 `json:"error"`    // Smoothed minus frame center
	Steering int     `json:"steering"`
	Law      string  `json:"law"`
	Integral float64 `json:"integral,omitempty"` // PID accumulated error

	// Actuation
	Sent      bool   `json:"sent"`
	Link      string `json:"link"`
	Device    string `json:"device,omitempty"`
	LinkError string `json:"link_error,omitempty"`

	CycleMs float64 `json:"cycle_ms,omitempty"`
}
