package hub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/teslashibe/go-linetrace/internal/log"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 16

// Subscriber receives messages in broadcast order. C is closed when the
// subscriber is removed, either by Unsubscribe or for falling behind.
type Subscriber struct {
	ID   string
	C    <-chan Message
	send chan Message
}

// Hub maintains the set of active subscribers and broadcasts messages to them
type Hub struct {
	// Name for logging
	name string
	log  *slog.Logger

	// Registered subscribers
	subs map[*Subscriber]bool

	// Inbound messages to broadcast
	broadcast chan Message

	// Register requests
	register chan *Subscriber

	// Unregister requests
	unregister chan *Subscriber

	// Guards subs for readers outside Run
	mu sync.RWMutex

	// Running state
	running bool
	stopped chan struct{}
}

// New creates a new Hub
func New(name string) *Hub {
	return &Hub{
		name:       name,
		log:        log.Component("hub").With("hub", name),
		subs:       make(map[*Subscriber]bool),
		broadcast:  make(chan Message, 64),
		register:   make(chan *Subscriber),
		unregister: make(chan *Subscriber),
		stopped:    make(chan struct{}),
	}
}

// Name returns the hub name.
func (h *Hub) Name() string {
	return h.name
}

// Run starts the hub's main loop and returns when ctx is cancelled.
// All subscriber channels are closed on return.
func (h *Hub) Run(ctx context.Context) {
	h.mu.Lock()
	h.running = true
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		for s := range h.subs {
			close(s.send)
			delete(h.subs, s)
		}
		h.running = false
		h.mu.Unlock()
		close(h.stopped)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case s := <-h.register:
			h.mu.Lock()
			h.subs[s] = true
			count := len(h.subs)
			h.mu.Unlock()
			h.log.Info("subscriber connected", "id", s.ID, "total", count)

		case s := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.subs[s]; ok {
				delete(h.subs, s)
				close(s.send)
			}
			count := len(h.subs)
			h.mu.Unlock()
			h.log.Info("subscriber disconnected", "id", s.ID, "remaining", count)

		case message := <-h.broadcast:
			h.mu.Lock()
			for s := range h.subs {
				select {
				case s.send <- message:
				default:
					// Buffer full: the consumer is too slow, drop it
					close(s.send)
					delete(h.subs, s)
					h.log.Warn("dropped slow subscriber", "id", s.ID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Subscribe registers a new subscriber with the given queue length.
// It returns nil once the hub has stopped.
func (h *Hub) Subscribe(buffer int) *Subscriber {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	ch := make(chan Message, buffer)
	s := &Subscriber{ID: uuid.NewString(), C: ch, send: ch}

	select {
	case h.register <- s:
		return s
	case <-h.stopped:
		return nil
	}
}

// Unsubscribe removes a subscriber. Safe to call after it was dropped.
func (h *Hub) Unsubscribe(s *Subscriber) {
	if s == nil {
		return
	}
	select {
	case h.unregister <- s:
	case <-h.stopped:
	}
}

// Broadcast queues a message for all subscribers. It never blocks; when the
// queue is full the message is dropped.
func (h *Hub) Broadcast(msg Message) {
	select {
	case h.broadcast <- msg:
	default:
		h.log.Debug("broadcast queue full, dropping message")
	}
}

// BroadcastJSON encodes and broadcasts a JSON message
func (h *Hub) BroadcastJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.Broadcast(NewJSONMessage(data))
	return nil
}

// BroadcastBinary broadcasts binary data (camera frames)
func (h *Hub) BroadcastBinary(data []byte) {
	h.Broadcast(NewBinaryMessage(data))
}

// ClientCount returns the number of connected subscribers
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// IsRunning returns whether the hub is running
func (h *Hub) IsRunning() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.running
}
