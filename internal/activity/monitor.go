package activity

import (
	"errors"
	"sync"
)

var (
	ErrAlreadyStarted = errors.New("activity: monitor already started")
	ErrStopped        = errors.New("activity: monitor stopped")
)

// Monitor subscribes to a fixed set of signal kinds and reports any of them
// as a single activity callback.
type Monitor struct {
	source SignalSource
	kinds  []Kind

	// inflight is held for reading across each delivery so Stop waits
	// for running callbacks. onActivity must not call Stop.
	inflight sync.RWMutex

	mu         sync.Mutex
	started    bool
	stopped    bool
	onActivity func()
	subs       map[Kind]SubscriptionID
}

// NewMonitor creates a monitor over source. Duplicate kinds are collapsed;
// an empty list means DefaultKinds.
func NewMonitor(source SignalSource, kinds []Kind) *Monitor {
	if len(kinds) == 0 {
		kinds = DefaultKinds
	}
	seen := make(map[Kind]bool, len(kinds))
	uniq := make([]Kind, 0, len(kinds))
	for _, k := range kinds {
		if !seen[k] {
			seen[k] = true
			uniq = append(uniq, k)
		}
	}
	return &Monitor{source: source, kinds: uniq}
}

// Kinds returns the observed signal kinds.
func (m *Monitor) Kinds() []Kind {
	return append([]Kind(nil), m.kinds...)
}

// Start subscribes to every kind. Each signal invokes onActivity.
func (m *Monitor) Start(onActivity func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return ErrStopped
	}
	if m.started {
		return ErrAlreadyStarted
	}
	m.started = true
	m.onActivity = onActivity
	m.subs = make(map[Kind]SubscriptionID, len(m.kinds))
	for _, k := range m.kinds {
		m.subs[k] = m.source.Subscribe(k, m.deliver)
	}
	return nil
}

// Stop unsubscribes every kind and waits for in-flight callbacks to return.
// It is safe to call more than once.
func (m *Monitor) Stop() {
	m.inflight.Lock()
	defer m.inflight.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopped {
		return
	}
	m.stopped = true
	for k, id := range m.subs {
		m.source.Unsubscribe(k, id)
	}
	m.subs = nil
	m.onActivity = nil
}

func (m *Monitor) deliver(Signal) {
	m.inflight.RLock()
	defer m.inflight.RUnlock()

	m.mu.Lock()
	fn := m.onActivity
	if m.stopped {
		fn = nil
	}
	m.mu.Unlock()

	if fn != nil {
		fn()
	}
}
