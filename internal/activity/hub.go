package activity

import (
	"errors"
	"sync"
	"time"
)

var ErrNoSession = errors.New("activity: no bus for session")

// Hub keeps one Bus per session and the time of its last signal.
type Hub struct {
	mu       sync.RWMutex
	buses    map[string]*Bus
	activity map[string]time.Time // session → last signal
}

func NewHub() *Hub {
	return &Hub{
		buses:    make(map[string]*Bus),
		activity: make(map[string]time.Time),
	}
}

// Open returns the bus for a session, creating it if needed.
func (h *Hub) Open(session string) *Bus {
	h.mu.Lock()
	defer h.mu.Unlock()
	b, ok := h.buses[session]
	if !ok {
		b = NewBus()
		h.buses[session] = b
	}
	return b
}

// Remove drops a session's bus and activity record.
func (h *Hub) Remove(session string) {
	h.mu.Lock()
	delete(h.buses, session)
	delete(h.activity, session)
	h.mu.Unlock()
}

// Publish records the signal and delivers it to the session's bus.
func (h *Hub) Publish(session string, sig Signal) error {
	if sig.At.IsZero() {
		sig.At = time.Now()
	}

	h.mu.Lock()
	b, ok := h.buses[session]
	if ok {
		h.activity[session] = sig.At
	}
	h.mu.Unlock()

	if !ok {
		return ErrNoSession
	}
	b.Publish(sig)
	return nil
}

// LastActivity returns the time of the session's last signal, or zero.
func (h *Hub) LastActivity(session string) time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.activity[session]
}

// Len returns the number of open session buses.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.buses)
}
