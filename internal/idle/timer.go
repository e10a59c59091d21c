// Package idle implements the deadline timer behind session idle timeouts.
package idle

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrInvalidConfiguration is returned for a non-positive timeout or a nil callback.
var ErrInvalidConfiguration = errors.New("idle: invalid configuration")

// State is the lifecycle position of a Timer.
type State string

const (
	StateIdle  State = "idle"
	StateArmed State = "armed"
	StateFired State = "fired"
)

// Timer holds at most one pending deadline. Each Schedule replaces the
// previous deadline; when a deadline elapses untouched, onTimeout runs once.
type Timer struct {
	timeout   time.Duration
	onTimeout func()
	clock     Clock
	logger    *slog.Logger

	mu       sync.Mutex
	state    State
	pending  Handle
	gen      uint64 // bumped by Schedule and Cancel; stale callbacks compare against it
	deadline time.Time
}

// Option configures a Timer.
type Option func(*Timer)

// WithClock replaces the system clock.
func WithClock(c Clock) Option {
	return func(t *Timer) { t.clock = c }
}

// WithLogger sets the logger used to report callback panics.
func WithLogger(l *slog.Logger) Option {
	return func(t *Timer) { t.logger = l }
}

// New creates an idle Timer. It does not arm it.
func New(timeout time.Duration, onTimeout func(), opts ...Option) (*Timer, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: timeout must be positive, got %v", ErrInvalidConfiguration, timeout)
	}
	if onTimeout == nil {
		return nil, fmt.Errorf("%w: onTimeout is nil", ErrInvalidConfiguration)
	}

	t := &Timer{
		timeout:   timeout,
		onTimeout: onTimeout,
		clock:     SystemClock,
		logger:    slog.Default(),
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "idle-timer")
	return t, nil
}

// Timeout returns the configured duration.
func (t *Timer) Timeout() time.Duration {
	return t.timeout
}

// Schedule arms a fresh deadline timeout from now, cancelling any pending one.
func (t *Timer) Schedule() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopLocked()
	t.gen++
	gen := t.gen
	t.deadline = t.clock.Now().Add(t.timeout)
	t.state = StateArmed
	t.pending = t.clock.AfterFunc(t.timeout, func() { t.fire(gen) })
}

// Cancel drops any pending deadline. Calling it with nothing pending is a no-op.
func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != StateArmed {
		return
	}
	t.stopLocked()
	t.gen++
	t.deadline = time.Time{}
	t.state = StateIdle
}

// State returns the current state.
func (t *Timer) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Deadline returns the pending deadline, or the zero time when not armed.
func (t *Timer) Deadline() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateArmed {
		return time.Time{}
	}
	return t.deadline
}

func (t *Timer) stopLocked() {
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
}

func (t *Timer) fire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || t.state != StateArmed {
		// Superseded by Schedule or Cancel after Stop lost the race.
		t.mu.Unlock()
		return
	}
	t.state = StateFired
	t.pending = nil
	t.deadline = time.Time{}
	t.mu.Unlock()

	// Outside the lock: the callback commonly tears down its owner.
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("timeout callback panicked", "panic", r)
		}
	}()
	t.onTimeout()
}
