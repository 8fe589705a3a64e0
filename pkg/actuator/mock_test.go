package actuator

import (
	"bytes"
	"errors"
	"sync"

	"go.bug.st/serial"
)

// mockPort implements Port with configurable failures
type mockPort struct {
	mu       sync.Mutex
	buf      bytes.Buffer
	writeErr error
	drainErr error
	block    chan struct{} // Write waits on it when set
	closed   bool
	drains   int
}

func (m *mockPort) Write(p []byte) (int, error) {
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return 0, errors.New("port closed")
	}
	if m.writeErr != nil {
		return 0, m.writeErr
	}
	return m.buf.Write(p)
}

func (m *mockPort) Drain() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drains++
	return m.drainErr
}

func (m *mockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.closed && m.block != nil {
		close(m.block)
	}
	m.closed = true
	return nil
}

func (m *mockPort) written() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.String()
}

func (m *mockPort) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// mockBus is a fake set of serial devices
type mockBus struct {
	mu      sync.Mutex
	devices []string
	ports   map[string]*mockPort
	failing map[string]bool
	opens   []string
	hang    chan struct{} // Open waits on it when set
}

func newMockBus(devices ...string) *mockBus {
	return &mockBus{
		devices: devices,
		ports:   make(map[string]*mockPort),
		failing: make(map[string]bool),
	}
}

func (b *mockBus) list() ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.devices...), nil
}

func (b *mockBus) open(path string, mode *serial.Mode) (Port, error) {
	if b.hang != nil {
		<-b.hang
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opens = append(b.opens, path)
	if b.failing[path] {
		return nil, errors.New("permission denied")
	}
	p := &mockPort{}
	b.ports[path] = p
	return p, nil
}

func (b *mockBus) port(path string) *mockPort {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ports[path]
}

func (b *mockBus) setDevices(devices ...string) {
	b.mu.Lock()
	b.devices = devices
	b.mu.Unlock()
}
