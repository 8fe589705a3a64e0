package actuator

import (
	"io"

	"go.bug.st/serial"
)

// Port is the subset of serial.Port the link uses.
// This abstraction enables unit testing without real serial hardware.
type Port interface {
	io.Writer
	io.Closer
	// Drain blocks until everything written has been transmitted.
	Drain() error
}

// Lister enumerates the serial ports present on the system.
type Lister func() ([]string, error)

// Opener opens a serial port at path with the given mode.
type Opener func(path string, mode *serial.Mode) (Port, error)

// SerialLister lists ports through go.bug.st/serial.
func SerialLister() ([]string, error) {
	return serial.GetPortsList()
}

// SerialOpener opens a real serial port.
func SerialOpener(path string, mode *serial.Mode) (Port, error) {
	return serial.Open(path, mode)
}
