package session

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"garagepro/internal/activity"
	"garagepro/internal/idle"
)

// GuardConfig parameterizes a Guard.
type GuardConfig struct {
	Timeout time.Duration
	Kinds   []activity.Kind
	Clock   idle.Clock
	Logger  *slog.Logger
}

// Guard couples an activity monitor to an idle timer: every signal re-arms
// the timer, and onTimeout runs when the user has been quiet for Timeout.
type Guard struct {
	timer   *idle.Timer
	monitor *activity.Monitor

	once sync.Once
}

// Mount starts monitoring source and arms the initial countdown.
func Mount(cfg GuardConfig, source activity.SignalSource, onTimeout func()) (*Guard, error) {
	opts := []idle.Option{}
	if cfg.Clock != nil {
		opts = append(opts, idle.WithClock(cfg.Clock))
	}
	if cfg.Logger != nil {
		opts = append(opts, idle.WithLogger(cfg.Logger))
	}

	timer, err := idle.New(cfg.Timeout, onTimeout, opts...)
	if err != nil {
		return nil, fmt.Errorf("mount guard: %w", err)
	}
	monitor := activity.NewMonitor(source, cfg.Kinds)
	if err := monitor.Start(timer.Schedule); err != nil {
		return nil, fmt.Errorf("mount guard: %w", err)
	}
	timer.Schedule()

	return &Guard{timer: timer, monitor: monitor}, nil
}

// Unmount stops monitoring and cancels the pending deadline. Safe to call twice.
func (g *Guard) Unmount() {
	g.once.Do(func() {
		g.monitor.Stop()
		g.timer.Cancel()
	})
}

// Timeout returns the idle duration the guard was mounted with.
func (g *Guard) Timeout() time.Duration {
	return g.timer.Timeout()
}

// Deadline returns when the guard will fire, or zero when it is not armed.
func (g *Guard) Deadline() time.Time {
	return g.timer.Deadline()
}

// State returns the underlying timer state.
func (g *Guard) State() idle.State {
	return g.timer.State()
}
