package actuator

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.bug.st/serial"
)

// DefaultPattern matches the USB CDC devices an Arduino enumerates as.
const DefaultPattern = "/dev/ttyACM*"

// PortOptions describes the serial connection parameters used when opening
// the motor board.
type PortOptions struct {
	BaudRate int    `yaml:"baud_rate" json:"baud_rate"`
	DataBits int    `yaml:"data_bits" json:"data_bits"`
	StopBits int    `yaml:"stop_bits" json:"stop_bits"`
	Parity   string `yaml:"parity" json:"parity"`
}

// Normalize validates the options and applies defaults for any unset values.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = 9600
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	switch strings.TrimSpace(strings.ToUpper(opts.Parity)) {
	case "", "N", "NONE":
		opts.Parity = "N"
	case "E", "EVEN":
		opts.Parity = "E"
	case "O", "ODD":
		opts.Parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}

	return opts, nil
}

// SerialMode converts the port options into the serial.Mode required by
// go.bug.st/serial when opening a port.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: serial.OneStopBit,
		Parity:   serial.NoParity,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}
	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	}
	return mode, nil
}

// Options configures a Link
type Options struct {
	Pattern string      `yaml:"pattern" json:"pattern"` // Glob of candidate device paths
	Port    PortOptions `yaml:"port" json:"port"`

	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"` // Bound on a single port open
	WriteTimeout   time.Duration `yaml:"write_timeout" json:"write_timeout"`     // Bound on write plus drain
	SettleDelay    time.Duration `yaml:"settle_delay" json:"settle_delay"`       // Wait after open while the board resets
	RetryInterval  time.Duration `yaml:"retry_interval" json:"retry_interval"`   // Minimum gap between discovery rounds
}

// DefaultOptions returns the settings for an Arduino on USB at 9600 8N1.
func DefaultOptions() Options {
	return Options{
		Pattern:        DefaultPattern,
		Port:           PortOptions{BaudRate: 9600, DataBits: 8, StopBits: 1, Parity: "N"},
		ConnectTimeout: time.Second,
		WriteTimeout:   time.Second,
		SettleDelay:    2 * time.Second,
		RetryInterval:  time.Second,
	}
}

// Validate checks the options.
func (o Options) Validate() error {
	if o.Pattern == "" {
		return fmt.Errorf("actuator: pattern required")
	}
	if _, err := filepath.Match(o.Pattern, ""); err != nil {
		return fmt.Errorf("actuator: bad pattern %q: %w", o.Pattern, err)
	}
	if _, err := o.Port.Normalize(); err != nil {
		return fmt.Errorf("actuator: %w", err)
	}
	if o.ConnectTimeout <= 0 || o.WriteTimeout <= 0 {
		return fmt.Errorf("actuator: connect and write timeouts must be positive")
	}
	if o.SettleDelay < 0 || o.RetryInterval < 0 {
		return fmt.Errorf("actuator: settle delay and retry interval cannot be negative")
	}
	return nil
}
