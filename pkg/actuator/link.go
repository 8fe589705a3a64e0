// Package actuator carries steering commands to the motor board over a
// serial line, finding the board by device pattern and reconnecting after
// failures.
package actuator

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/teslashibe/go-linetrace/internal/log"
	"github.com/teslashibe/go-linetrace/pkg/debug"
)

// State is the connection state of a Link.
type State int

const (
	Disconnected State = iota
	Connected
)

func (s State) String() string {
	if s == Connected {
		return "connected"
	}
	return "disconnected"
}

// Link owns at most one open serial port to the motor board.
type Link struct {
	opts Options
	mode *serial.Mode
	list Lister
	open Opener

	mu          sync.Mutex
	port        Port
	device      string
	lastAttempt time.Time
}

// LinkOption customizes a Link.
type LinkOption func(*Link)

// WithLister replaces port enumeration.
func WithLister(l Lister) LinkOption {
	return func(k *Link) { k.list = l }
}

// WithOpener replaces port opening.
func WithOpener(o Opener) LinkOption {
	return func(k *Link) { k.open = o }
}

// New creates a disconnected link. Call Connect to open the board.
func New(opts Options, options ...LinkOption) (*Link, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	mode, err := opts.Port.SerialMode()
	if err != nil {
		return nil, err
	}

	l := &Link{
		opts: opts,
		mode: mode,
		list: SerialLister,
		open: SerialOpener,
	}
	for _, o := range options {
		o(l)
	}
	return l, nil
}

// Discover returns the sorted device paths matching the pattern.
func (l *Link) Discover() ([]string, error) {
	ports, err := l.list()
	if err != nil {
		return nil, fmt.Errorf("actuator: list ports: %w", err)
	}

	var devices []string
	for _, p := range ports {
		if ok, _ := filepath.Match(l.opts.Pattern, p); ok {
			devices = append(devices, p)
		}
	}
	sort.Strings(devices)
	return devices, nil
}

// Connect runs the startup discovery round. It returns ErrNoDevices when
// nothing matches the pattern and ErrConnectFailed when nothing opens.
func (l *Link) Connect(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closeLocked()
	return l.connectLocked(ctx)
}

// Reconnect closes any stale port and runs one discovery round. Calls closer
// together than RetryInterval return ErrBackoff without touching the ports.
func (l *Link) Reconnect(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port != nil {
		return nil
	}
	if since := time.Since(l.lastAttempt); since < l.opts.RetryInterval {
		debug.Log("serial reconnect deferred", "wait", l.opts.RetryInterval-since)
		return fmt.Errorf("%w: next attempt in %v", ErrBackoff, (l.opts.RetryInterval - since).Round(time.Millisecond))
	}
	debug.Log("serial reconnect attempt", "pattern", l.opts.Pattern)
	return l.connectLocked(ctx)
}

func (l *Link) connectLocked(ctx context.Context) error {
	l.lastAttempt = time.Now()

	devices, err := l.Discover()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return fmt.Errorf("%w matching %s", ErrNoDevices, l.opts.Pattern)
	}
	debug.Log("serial candidates", "devices", devices)

	for _, dev := range devices {
		port, err := l.openWithTimeout(ctx, dev)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn("serial open failed", "device", dev, "error", err)
			continue
		}

		// The board resets when the port opens
		if l.opts.SettleDelay > 0 {
			timer := time.NewTimer(l.opts.SettleDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				port.Close()
				return ctx.Err()
			case <-timer.C:
			}
		}

		l.port, l.device = port, dev
		log.Info("serial connected", "device", dev, "baud", l.mode.BaudRate)
		return nil
	}

	return fmt.Errorf("%w: tried %s", ErrConnectFailed, strings.Join(devices, ", "))
}

type openResult struct {
	port Port
	err  error
}

// openWithTimeout bounds a port open by ConnectTimeout. A port that opens
// after the deadline is closed.
func (l *Link) openWithTimeout(ctx context.Context, dev string) (Port, error) {
	done := make(chan openResult, 1)
	go func() {
		p, err := l.open(dev, l.mode)
		done <- openResult{p, err}
	}()

	timer := time.NewTimer(l.opts.ConnectTimeout)
	defer timer.Stop()

	var err error
	select {
	case r := <-done:
		return r.port, r.err
	case <-timer.C:
		err = fmt.Errorf("open %s: timed out after %v", dev, l.opts.ConnectTimeout)
	case <-ctx.Done():
		err = ctx.Err()
	}

	go func() {
		if r := <-done; r.port != nil {
			r.port.Close()
		}
	}()
	return nil, err
}

// Send writes one steering command and waits for it to drain. Any failure
// closes the port and returns a *WriteError; the caller reconnects.
func (l *Link) Send(command int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.port == nil {
		return ErrNotConnected
	}

	if err := l.writeWithTimeout(Encode(command)); err != nil {
		dev := l.device
		l.closeLocked()
		// Give the board a moment before the next discovery round
		l.lastAttempt = time.Now()
		return &WriteError{Device: dev, Err: err}
	}
	return nil
}

func (l *Link) writeWithTimeout(data []byte) error {
	port := l.port
	done := make(chan error, 1)
	go func() {
		n, err := port.Write(data)
		if err == nil && n != len(data) {
			err = fmt.Errorf("short write: %d of %d bytes", n, len(data))
		}
		if err == nil {
			err = port.Drain()
		}
		done <- err
	}()

	timer := time.NewTimer(l.opts.WriteTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("timed out after %v", l.opts.WriteTimeout)
	}
}

// closeLocked must be called with l.mu held.
func (l *Link) closeLocked() {
	if l.port == nil {
		return
	}
	if err := l.port.Close(); err != nil {
		log.Debug("serial close failed", "device", l.device, "error", err)
	}
	log.Info("serial disconnected", "device", l.device)
	l.port, l.device = nil, ""
}

// State returns the current connection state.
func (l *Link) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.port != nil {
		return Connected
	}
	return Disconnected
}

// Connected reports whether a port is open.
func (l *Link) Connected() bool {
	return l.State() == Connected
}

// Device returns the open device path, or "" while disconnected.
func (l *Link) Device() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.device
}

// Close closes the port. The link can be connected again afterwards.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closeLocked()
	return nil
}
