package events

import (
	"log/slog"
	"sync"
	"time"
)

// Event type constants.
const (
	SessionOpened   = "session.opened"
	SessionActivity = "session.activity"
	SessionTimeout  = "session.timeout"
	SessionClosed   = "session.closed"
	PolicyFallback  = "policy.fallback"
	ConfigReloaded  = "config.reloaded"
)

// Event represents a lifecycle event for a session.
type Event struct {
	Type      string            `json:"type"`
	Session   string            `json:"session"`
	Role      string            `json:"role,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// Emitter logs events and dispatches them to registered handlers.
type Emitter struct {
	logger   *slog.Logger
	mu       sync.RWMutex
	handlers []func(Event)
}

// NewEmitter creates a new event emitter.
func NewEmitter(logger *slog.Logger) *Emitter {
	return &Emitter{
		logger: logger.With("component", "events"),
	}
}

// Emit logs the event and calls all registered handlers.
func (e *Emitter) Emit(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	attrs := []any{
		"event", ev.Type,
		"session", ev.Session,
	}
	if ev.Role != "" {
		attrs = append(attrs, "role", ev.Role)
	}
	for k, v := range ev.Fields {
		attrs = append(attrs, k, v)
	}
	// Activity is high volume.
	if ev.Type == SessionActivity {
		e.logger.Debug("event emitted", attrs...)
	} else {
		e.logger.Info("event emitted", attrs...)
	}

	e.mu.RLock()
	handlers := e.handlers
	e.mu.RUnlock()

	for _, fn := range handlers {
		if fn != nil {
			fn(ev)
		}
	}
}

// OnEvent registers a handler to be called for every emitted event.
// Returns an ID that can be used with RemoveHandler.
func (e *Emitter) OnEvent(fn func(Event)) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers = append(e.handlers, fn)
	return len(e.handlers) - 1
}

// RemoveHandler removes a handler by its ID.
func (e *Emitter) RemoveHandler(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if id >= 0 && id < len(e.handlers) {
		e.handlers[id] = nil
	}
}
