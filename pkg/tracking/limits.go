// Package tracking closes the loop between the camera and the steering board:
// band detection, fusion, smoothing and the steering law.
package tracking

import "math"

// Steering range accepted by the motor board. It maps a command v to a servo
// angle of 90+v and constrains the result, so commands stay one step inside
// its ±50 limit.
const (
	// MaxSteering is the largest command magnitude ever sent.
	MaxSteering = 49

	// SteeringScale maps a full half-frame error to a command.
	SteeringScale = 50.0

	// MaxGain bounds each PID gain. A one-pixel error at this gain
	// already saturates the command.
	MaxGain = 100.0
)

// steeringCommand rounds a raw law output to a command. The output is
// clamped before conversion since float to int is undefined out of range.
func steeringCommand(output float64) int {
	if math.IsNaN(output) {
		return 0
	}
	return int(math.Round(clamp(output, -MaxSteering, MaxSteering)))
}

// clamp limits a value to a range
func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
