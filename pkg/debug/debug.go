// Package debug provides global debug logging flags
package debug

import "github.com/teslashibe/go-linetrace/internal/log"

// Enabled controls whether debug logging is active
var Enabled bool

// Cycle controls whether a line is logged for every frame cycle
// (centroids, fused position, steering). Use --debug-cycle to enable.
var Cycle bool

// Log writes a debug record only if debug mode is enabled
func Log(msg string, args ...any) {
	if Enabled {
		log.Debug(msg, args...)
	}
}

// CycleLog writes a per-cycle record only if cycle logging is enabled
func CycleLog(msg string, args ...any) {
	if Cycle {
		log.Info(msg, args...)
	}
}
