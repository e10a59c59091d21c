package activity

import (
	"sync"
	"time"
)

// Bus is an in-process SignalSource.
type Bus struct {
	mu       sync.RWMutex
	next     SubscriptionID
	handlers map[Kind]map[SubscriptionID]func(Signal)
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		handlers: make(map[Kind]map[SubscriptionID]func(Signal)),
	}
}

// Subscribe registers fn for signals of the given kind.
func (b *Bus) Subscribe(kind Kind, fn func(Signal)) SubscriptionID {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	if b.handlers[kind] == nil {
		b.handlers[kind] = make(map[SubscriptionID]func(Signal))
	}
	b.handlers[kind][b.next] = fn
	return b.next
}

// Unsubscribe removes a handler. Unknown IDs are ignored.
func (b *Bus) Unsubscribe(kind Kind, id SubscriptionID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers[kind], id)
	if len(b.handlers[kind]) == 0 {
		delete(b.handlers, kind)
	}
}

// Publish delivers a signal to every handler subscribed to its kind.
func (b *Bus) Publish(sig Signal) {
	if sig.At.IsZero() {
		sig.At = time.Now()
	}

	b.mu.RLock()
	fns := make([]func(Signal), 0, len(b.handlers[sig.Kind]))
	for _, fn := range b.handlers[sig.Kind] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(sig)
	}
}

// Subscribers returns the number of live subscriptions across all kinds.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	n := 0
	for _, hs := range b.handlers {
		n += len(hs)
	}
	return n
}
