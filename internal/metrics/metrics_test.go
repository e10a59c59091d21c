package metrics

import (
	"log/slog"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"garagepro/internal/events"
)

func TestNewMetricsNoPanic(t *testing.T) {
	// Handler() should return without panic (metrics already registered in init)
	h := Handler()
	if h == nil {
		t.Error("expected non-nil handler")
	}
}

func TestRegisterEventHandlerUpdatesCounters(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	emitter := events.NewEmitter(logger)
	RegisterEventHandler(emitter)

	role := "metrics-test"
	emitter.Emit(events.Event{Type: events.SessionOpened, Session: "s1", Role: role})
	emitter.Emit(events.Event{Type: events.SessionOpened, Session: "s2", Role: role})
	emitter.Emit(events.Event{Type: events.SessionActivity, Session: "s1", Role: role, Fields: map[string]string{"kind": "scroll"}})
	emitter.Emit(events.Event{Type: events.SessionTimeout, Session: "s1", Role: role})
	emitter.Emit(events.Event{Type: events.SessionClosed, Session: "s1", Role: role, Fields: map[string]string{"reason": "timeout"}})
	emitter.Emit(events.Event{Type: events.PolicyFallback})

	if got := testutil.ToFloat64(SessionsActive.WithLabelValues(role)); got != 1 {
		t.Errorf("active = %v, want 1", got)
	}
	if got := testutil.ToFloat64(SessionsOpenedTotal.WithLabelValues(role)); got != 2 {
		t.Errorf("opened = %v, want 2", got)
	}
	if got := testutil.ToFloat64(SessionTimeoutsTotal.WithLabelValues(role)); got != 1 {
		t.Errorf("timeouts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(SessionsClosedTotal.WithLabelValues(role, "timeout")); got != 1 {
		t.Errorf("closed = %v, want 1", got)
	}
}
