package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps session records in process. Used when no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*SessionRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*SessionRecord)}
}

func (m *MemoryStore) RecordOpen(_ context.Context, rec *SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[rec.SessionID]; ok {
		return nil
	}
	cp := *rec
	if cp.LastActivity.IsZero() {
		cp.LastActivity = cp.OpenedAt
	}
	m.records[rec.SessionID] = &cp
	return nil
}

func (m *MemoryStore) RecordActivity(_ context.Context, sessionID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[sessionID]
	if !ok {
		return ErrNotFound
	}
	rec.ActivityCount++
	if at.After(rec.LastActivity) {
		rec.LastActivity = at
	}
	return nil
}

func (m *MemoryStore) RecordClose(_ context.Context, sessionID, reason string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[sessionID]
	if !ok {
		return ErrNotFound
	}
	if rec.ClosedAt == nil {
		closed := at
		rec.ClosedAt = &closed
		rec.EndReason = reason
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (*SessionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *MemoryStore) Close() {}
