// Package config loads the go-linetrace process configuration from
// defaults, an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-linetrace/pkg/actuator"
	"github.com/teslashibe/go-linetrace/pkg/camera"
	"github.com/teslashibe/go-linetrace/pkg/tracking"
	"github.com/teslashibe/go-linetrace/pkg/tracking/detection"
	"github.com/teslashibe/go-linetrace/pkg/web"
)

// Environment variables read by Load.
const (
	EnvHost          = "LINETRACE_HOST"
	EnvPort          = "PORT"
	EnvCamera        = "LINETRACE_CAMERA"
	EnvSerialPattern = "LINETRACE_SERIAL_PATTERN"
	EnvProfile       = "LINETRACE_PROFILE"
	EnvLogLevel      = "LOG_LEVEL"
)

// Config is the complete process configuration.
type Config struct {
	LogLevel string           `yaml:"log_level"`
	Profile  string           `yaml:"profile"`
	Server   web.Config       `yaml:"server"`
	Camera   camera.Config    `yaml:"camera"`
	Tracking tracking.Config  `yaml:"tracking"`
	Actuator actuator.Options `yaml:"actuator"`
}

// Default returns the configuration of the named profile.
func Default(profile string) (Config, error) {
	tr, err := tracking.Profile(profile)
	if err != nil {
		return Config{}, err
	}
	if profile == "" {
		profile = tracking.ProfileWeighted
	}
	cam := camera.GetPreset(profile)
	if cam == nil {
		return Config{}, fmt.Errorf("no camera preset for profile %q", profile)
	}

	return Config{
		LogLevel: "info",
		Profile:  profile,
		Server:   web.DefaultConfig(),
		Camera:   *cam,
		Tracking: tr,
		Actuator: actuator.DefaultOptions(),
	}, nil
}

// overrides captures the keys that change how defaults are built
type overrides struct {
	Profile  string `yaml:"profile"`
	Tracking struct {
		Bands []detection.Band `yaml:"bands"`
	} `yaml:"tracking"`
}

// Load builds the configuration: profile defaults, then the YAML file at
// path (skipped when path is empty), then environment variables. The result
// is validated.
func Load(path string) (Config, error) {
	return LoadProfile(path, "")
}

// LoadProfile is Load with a profile that takes precedence over both the
// file and the environment. An empty profile defers to them.
func LoadProfile(path, profile string) (Config, error) {
	var data []byte
	var peek overrides
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &peek); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}

	if profile == "" {
		profile = peek.Profile
		if v := os.Getenv(EnvProfile); v != "" {
			profile = v
		}
	}

	cfg, err := Default(profile)
	if err != nil {
		return Config{}, err
	}

	if data != nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
		// The file may name a different profile than the environment
		cfg.Profile = profile
		if cfg.Profile == "" {
			cfg.Profile = tracking.ProfileWeighted
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}

	// Tracking always sees frames at the camera size
	if cfg.Tracking.FrameWidth != cfg.Camera.Width || cfg.Tracking.FrameHeight != cfg.Camera.Height {
		bands := cfg.Tracking.Bands
		cfg.Tracking.Resize(cfg.Camera.Width, cfg.Camera.Height)
		if len(peek.Tracking.Bands) > 0 {
			cfg.Tracking.Bands = bands
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvHost); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv(EnvPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvPort, err)
		}
		c.Server.Port = port
	}
	if v := os.Getenv(EnvCamera); v != "" {
		c.Camera.Device = v
	}
	if v := os.Getenv(EnvSerialPattern); v != "" {
		c.Actuator.Pattern = v
	}
	return nil
}

// Validate checks every section.
func (c Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server: port %d out of range", c.Server.Port))
	}
	if err := c.Camera.Err(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Tracking.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tracking: %w", err))
	}
	if c.Tracking.FrameWidth != c.Camera.Width || c.Tracking.FrameHeight != c.Camera.Height {
		errs = append(errs, fmt.Errorf("tracking frame %dx%d does not match camera %dx%d",
			c.Tracking.FrameWidth, c.Tracking.FrameHeight, c.Camera.Width, c.Camera.Height))
	}
	if err := c.Actuator.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
