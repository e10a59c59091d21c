// Package session tracks open dashboard sessions and logs them out after
// a role-specific idle period.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"garagepro/internal/activity"
	"garagepro/internal/config"
	"garagepro/internal/events"
	"garagepro/internal/idle"
	"garagepro/internal/policy"
	"garagepro/internal/store"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrInvalidRole     = errors.New("invalid role")
	ErrMissingUser     = errors.New("user_id is required")
)

// End reasons.
const (
	ReasonTimeout  = "timeout"
	ReasonLogout   = "logout"
	ReasonShutdown = "shutdown"
)

// OpenRequest describes a newly authenticated dashboard user.
type OpenRequest struct {
	UserID   string `json:"user_id"`
	Role     string `json:"role"`
	BranchID string `json:"branch_id,omitempty"`
}

// Info is a point-in-time view of an open session.
type Info struct {
	ID           string        `json:"id"`
	UserID       string        `json:"user_id"`
	Role         string        `json:"role"`
	BranchID     string        `json:"branch_id,omitempty"`
	Timeout      time.Duration `json:"timeout"`
	OpenedAt     time.Time     `json:"opened_at"`
	LastActivity time.Time     `json:"last_activity"`
	Deadline     time.Time     `json:"deadline"`
	State        idle.State    `json:"state"`
}

type entry struct {
	info  Info
	guard *Guard
}

// ManagerConfig holds optional Manager settings.
type ManagerConfig struct {
	Kinds []activity.Kind
	Clock idle.Clock
}

// Manager owns one Guard per open session.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	provider policy.Provider

	kinds   []activity.Kind
	clock   idle.Clock
	hub     *activity.Hub
	store   store.SessionStore
	emitter *events.Emitter
	logger  *slog.Logger
}

func NewManager(provider policy.Provider, hub *activity.Hub, st store.SessionStore, emitter *events.Emitter, cfg ManagerConfig, logger *slog.Logger) *Manager {
	clock := cfg.Clock
	if clock == nil {
		clock = idle.SystemClock
	}
	return &Manager{
		sessions: make(map[string]*entry),
		provider: provider,
		kinds:    cfg.Kinds,
		clock:    clock,
		hub:      hub,
		store:    st,
		emitter:  emitter,
		logger:   logger.With("component", "sessions"),
	}
}

// SetProvider replaces the timeout provider for sessions opened from now on.
// Running sessions keep the timeout they were mounted with.
func (m *Manager) SetProvider(p policy.Provider) {
	m.mu.Lock()
	m.provider = p
	m.mu.Unlock()
}

// Open starts idle monitoring for a new session.
func (m *Manager) Open(ctx context.Context, req OpenRequest) (Info, error) {
	if req.UserID == "" {
		return Info{}, ErrMissingUser
	}
	if !config.KnownRole(req.Role) {
		return Info{}, fmt.Errorf("%w %q", ErrInvalidRole, req.Role)
	}

	m.mu.RLock()
	provider := m.provider
	m.mu.RUnlock()

	timeout, err := provider.Timeout(ctx, req.Role)
	if err != nil {
		return Info{}, fmt.Errorf("resolve session timeout: %w", err)
	}

	id := uuid.NewString()
	now := m.clock.Now()
	bus := m.hub.Open(id)

	// Hold the lock across Mount so an immediate expiry finds the entry.
	m.mu.Lock()
	guard, err := Mount(GuardConfig{
		Timeout: timeout,
		Kinds:   m.kinds,
		Clock:   m.clock,
		Logger:  m.logger,
	}, bus, func() { m.expire(id) })
	if err != nil {
		m.mu.Unlock()
		m.hub.Remove(id)
		return Info{}, err
	}
	e := &entry{
		info: Info{
			ID:       id,
			UserID:   req.UserID,
			Role:     req.Role,
			BranchID: req.BranchID,
			Timeout:  timeout,
			OpenedAt: now,
		},
		guard: guard,
	}
	m.sessions[id] = e
	info := m.snapshot(e)
	m.mu.Unlock()

	if err := m.store.RecordOpen(ctx, &store.SessionRecord{
		SessionID: id,
		UserID:    req.UserID,
		Role:      req.Role,
		BranchID:  req.BranchID,
		TimeoutMs: timeout.Milliseconds(),
		OpenedAt:  now,
	}); err != nil {
		m.logger.Error("failed to record session open", "session", id, "error", err)
	}

	m.emitter.Emit(events.Event{
		Type:    events.SessionOpened,
		Session: id,
		Role:    req.Role,
		Fields:  map[string]string{"user": req.UserID, "timeout": timeout.String()},
	})
	return info, nil
}

// Touch reports an interaction signal for a session.
func (m *Manager) Touch(ctx context.Context, id, kind string) error {
	k, err := activity.ParseKind(kind)
	if err != nil {
		return err
	}

	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return ErrSessionNotFound
	}

	at := m.clock.Now()
	if err := m.hub.Publish(id, activity.Signal{Kind: k, At: at}); err != nil {
		if errors.Is(err, activity.ErrNoSession) {
			return ErrSessionNotFound
		}
		return err
	}

	if err := m.store.RecordActivity(ctx, id, at); err != nil {
		m.logger.Warn("failed to record session activity", "session", id, "error", err)
	}
	m.emitter.Emit(events.Event{
		Type:    events.SessionActivity,
		Session: id,
		Role:    e.info.Role,
		Fields:  map[string]string{"kind": string(k)},
	})
	return nil
}

// Close ends a session, e.g. on logout.
func (m *Manager) Close(ctx context.Context, id, reason string) error {
	e, ok := m.remove(id)
	if !ok {
		return ErrSessionNotFound
	}
	m.finishClose(ctx, e, reason)
	return nil
}

// Get returns a snapshot of one session.
func (m *Manager) Get(id string) (Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	if !ok {
		return Info{}, ErrSessionNotFound
	}
	return m.snapshot(e), nil
}

// List returns snapshots of every open session, oldest first.
func (m *Manager) List() []Info {
	m.mu.RLock()
	out := make([]Info, 0, len(m.sessions))
	for _, e := range m.sessions {
		out = append(out, m.snapshot(e))
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].OpenedAt.Before(out[j].OpenedAt)
	})
	return out
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown closes every open session.
func (m *Manager) Shutdown(ctx context.Context) {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		// Sessions that expired meanwhile are already gone.
		_ = m.Close(ctx, id, ReasonShutdown)
	}
}

// expire runs on the guard's timeout. It reports a timeout only if it
// removed the session; a concurrent logout wins otherwise.
func (m *Manager) expire(id string) {
	e, ok := m.remove(id)
	if !ok {
		return
	}

	m.logger.Info("session idle timeout reached", "session", id, "role", e.info.Role, "timeout", e.info.Timeout)
	m.emitter.Emit(events.Event{Type: events.SessionTimeout, Session: id, Role: e.info.Role})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	m.finishClose(ctx, e, ReasonTimeout)
}

// remove takes a session out of the registry. Only one caller gets ok.
func (m *Manager) remove(id string) (*entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	return e, ok
}

func (m *Manager) finishClose(ctx context.Context, e *entry, reason string) {
	id := e.info.ID
	e.guard.Unmount()
	m.hub.Remove(id)

	if err := m.store.RecordClose(ctx, id, reason, m.clock.Now()); err != nil {
		m.logger.Error("failed to record session close", "session", id, "error", err)
	}
	m.emitter.Emit(events.Event{
		Type:    events.SessionClosed,
		Session: id,
		Role:    e.info.Role,
		Fields:  map[string]string{"reason": reason},
	})
}

// snapshot must be called with the manager lock held.
func (m *Manager) snapshot(e *entry) Info {
	info := e.info
	info.LastActivity = m.hub.LastActivity(info.ID)
	if info.LastActivity.IsZero() {
		info.LastActivity = info.OpenedAt
	}
	info.State = e.guard.State()
	info.Deadline = e.guard.Deadline()
	return info
}
