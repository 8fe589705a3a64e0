package actuator

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDevices means discovery found no port matching the pattern.
	ErrNoDevices = errors.New("actuator: no serial devices found")

	// ErrConnectFailed means devices were found but none could be opened.
	ErrConnectFailed = errors.New("actuator: could not open any serial device")

	// ErrNotConnected is returned by Send while the link is down.
	ErrNotConnected = errors.New("actuator: not connected")

	// ErrWriteFailed matches every *WriteError.
	ErrWriteFailed = errors.New("actuator: write failed")

	// ErrBackoff is returned by Reconnect when called again before RetryInterval.
	ErrBackoff = errors.New("actuator: reconnect backoff")
)

// WriteError reports a failed command write. The link is down after it.
type WriteError struct {
	Device string
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("actuator: write to %s: %v", e.Device, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrWriteFailed) true for any *WriteError.
func (e *WriteError) Is(target error) bool {
	return target == ErrWriteFailed
}
