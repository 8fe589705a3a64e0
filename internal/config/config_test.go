package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-linetrace/pkg/actuator"
	"github.com/teslashibe/go-linetrace/pkg/tracking"
	"github.com/teslashibe/go-linetrace/pkg/tracking/detection"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "linetrace.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvHost, EnvPort, EnvCamera, EnvSerialPattern, EnvProfile, EnvLogLevel} {
		t.Setenv(k, "")
	}
}

func TestDefault(t *testing.T) {
	cfg, err := Default("")
	require.NoError(t, err)
	assert.Equal(t, tracking.ProfileWeighted, cfg.Profile)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, actuator.DefaultPattern, cfg.Actuator.Pattern)
	assert.NoError(t, cfg.Validate())

	cfg, err = Default(tracking.ProfilePID)
	require.NoError(t, err)
	assert.Equal(t, tracking.LawPID, cfg.Tracking.Law)
	assert.Equal(t, 15, cfg.Camera.Framerate)
	assert.NoError(t, cfg.Validate())

	_, err = Default("bang-bang")
	assert.ErrorIs(t, err, tracking.ErrUnknownProfile)
}

func TestLoad_NoFile(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	want, _ := Default("")
	assert.Equal(t, want, cfg)
}

func TestLoad_YAMLOverlay(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
profile: pid
log_level: debug
server:
  port: 8080
tracking:
  kp: 0.5
  mirror: false
actuator:
  pattern: /dev/ttyUSB*
  retry_interval: 500ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "pid", cfg.Profile)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 0.5, cfg.Tracking.Kp)
	assert.False(t, cfg.Tracking.Mirror)
	// Untouched keys keep the profile defaults
	assert.Equal(t, tracking.LawPID, cfg.Tracking.Law)
	assert.Equal(t, 0.005, cfg.Tracking.Ki)
	assert.Equal(t, "/dev/ttyUSB*", cfg.Actuator.Pattern)
	assert.Equal(t, 500*time.Millisecond, cfg.Actuator.RetryInterval)
	assert.Equal(t, time.Second, cfg.Actuator.WriteTimeout)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "server:\n  port: 8080\n")

	t.Setenv(EnvPort, "9090")
	t.Setenv(EnvHost, "127.0.0.1")
	t.Setenv(EnvCamera, "/dev/video2")
	t.Setenv(EnvSerialPattern, "/dev/ttyUSB*")
	t.Setenv(EnvLogLevel, "warn")
	t.Setenv(EnvProfile, "pid")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "/dev/video2", cfg.Camera.Device)
	assert.Equal(t, "/dev/ttyUSB*", cfg.Actuator.Pattern)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "pid", cfg.Profile)
	assert.Equal(t, detection.PolicyMaxArea, cfg.Tracking.Scorer.Policy)
}

func TestLoad_CameraSizeMovesBands(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "camera:\n  width: 320\n  height: 240\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 320, cfg.Tracking.FrameWidth)
	assert.Equal(t, 240, cfg.Tracking.FrameHeight)
	assert.Equal(t, detection.WeightedBands(240), cfg.Tracking.Bands)
}

func TestLoad_ExplicitBandsKept(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
camera:
  width: 320
  height: 240
tracking:
  bands:
    - name: near
      center: 200
      half_height: 20
    - name: far
      center: 120
      half_height: 20
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Len(t, cfg.Tracking.Bands, 2)
	assert.Equal(t, 200, cfg.Tracking.Bands[0].Center)
	assert.Equal(t, 120, cfg.Tracking.Bands[1].Center)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "server: [port"},
		{"port out of range", "server:\n  port: 70000\n"},
		{"unknown profile", "profile: fuzzy\n"},
		{"bad law", "tracking:\n  law: bang-bang\n"},
		{"zero timeout", "actuator:\n  write_timeout: 0s\n"},
		{"bad camera", "camera:\n  framerate: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	t.Setenv(EnvPort, "http")
	_, err = Load("")
	assert.Error(t, err)
}

func TestLoadProfile_Precedence(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvProfile, "weighted")
	path := writeConfig(t, "profile: weighted\n")

	cfg, err := LoadProfile(path, "pid")
	require.NoError(t, err)
	assert.Equal(t, "pid", cfg.Profile)
	assert.Equal(t, tracking.LawPID, cfg.Tracking.Law)
}
