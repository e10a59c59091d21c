package hermes

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"garagepro/internal/activity"
	"garagepro/internal/events"
)

// Publisher sends envelope events to a subject.
type Publisher interface {
	Publish(subject string, event Event) error
	Source() string
}

// Subscriber delivers events for a subject pattern.
type Subscriber interface {
	Subscribe(subject string, handler func(subject string, ev Event)) (*nats.Subscription, error)
}

// Toucher records an activity signal against an open session.
type Toucher interface {
	Touch(ctx context.Context, id, kind string) error
}

// Bridge connects the session manager to the bus: remote activity is
// forwarded to the manager and lifecycle events are published.
type Bridge struct {
	pub     Publisher
	toucher Toucher
	timeout time.Duration
	logger  *slog.Logger

	mu   sync.Mutex
	last map[string]string // session → ID of its latest lifecycle event

	handlerID int
	emitter   *events.Emitter
	sub       *nats.Subscription
}

func NewBridge(pub Publisher, toucher Toucher, logger *slog.Logger) *Bridge {
	return &Bridge{
		pub:       pub,
		toucher:   toucher,
		timeout:   5 * time.Second,
		logger:    logger.With("component", "hermes-bridge"),
		last:      make(map[string]string),
		handlerID: -1,
	}
}

// Start subscribes to dashboard activity and publishes lifecycle events
// emitted on emitter.
func (b *Bridge) Start(sub Subscriber, emitter *events.Emitter) error {
	s, err := sub.Subscribe(SubjectAllActivity, b.HandleActivity)
	if err != nil {
		return err
	}
	b.sub = s
	b.Attach(emitter)
	b.logger.Info("hermes bridge started", "subject", SubjectAllActivity)
	return nil
}

// Attach registers the lifecycle publisher on emitter.
func (b *Bridge) Attach(emitter *events.Emitter) {
	b.emitter = emitter
	b.handlerID = emitter.OnEvent(b.publishLifecycle)
}

// Stop unsubscribes from activity and detaches from the emitter.
func (b *Bridge) Stop() {
	if b.sub != nil {
		if err := b.sub.Unsubscribe(); err != nil {
			b.logger.Warn("failed to unsubscribe from activity", "error", err)
		}
		b.sub = nil
	}
	if b.emitter != nil && b.handlerID >= 0 {
		b.emitter.RemoveHandler(b.handlerID)
		b.handlerID = -1
	}
}

// HandleActivity forwards one activity event to the session manager.
func (b *Bridge) HandleActivity(subject string, ev Event) {
	id, kind, ok := ParseActivitySubject(subject)
	if !ok {
		b.logger.Warn("ignoring malformed activity subject", "subject", subject)
		return
	}
	if _, err := activity.ParseKind(kind); err != nil && len(ev.Data) > 0 {
		var data ActivityData
		if json.Unmarshal(ev.Data, &data) == nil && data.Kind != "" {
			kind = data.Kind
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()
	if err := b.toucher.Touch(ctx, id, kind); err != nil {
		b.logger.Debug("activity not applied", "session", id, "kind", kind, "event_id", ev.ID, "error", err)
	}
}

func (b *Bridge) publishLifecycle(ev events.Event) {
	var pattern string
	switch ev.Type {
	case events.SessionOpened:
		pattern = SubjectSessionOpened
	case events.SessionTimeout:
		pattern = SubjectSessionTimeout
	case events.SessionClosed:
		pattern = SubjectSessionClosed
	default:
		return
	}

	out, err := NewEvent(ev.Type, b.pub.Source(), SessionLifecycleData{
		SessionID: ev.Session,
		Role:      ev.Role,
		UserID:    ev.Fields["user"],
		Timeout:   ev.Fields["timeout"],
		Reason:    ev.Fields["reason"],
	})
	if err != nil {
		b.logger.Error("failed to build session event", "event", ev.Type, "session", ev.Session, "error", err)
		return
	}

	b.mu.Lock()
	out = out.WithCorrelation(ev.Session, b.last[ev.Session])
	if ev.Type == events.SessionClosed {
		delete(b.last, ev.Session)
	} else {
		b.last[ev.Session] = out.ID
	}
	b.mu.Unlock()

	if err := b.pub.Publish(SessionSubject(pattern, ev.Session), out); err != nil {
		b.logger.Error("failed to publish session event", "event", ev.Type, "session", ev.Session, "error", err)
	}
}
