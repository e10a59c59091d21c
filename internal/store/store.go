package store

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("store: session not found")

// SessionRecord is the audit row for one dashboard session.
type SessionRecord struct {
	SessionID     string     `json:"session_id"`
	UserID        string     `json:"user_id"`
	Role          string     `json:"role"`
	BranchID      string     `json:"branch_id,omitempty"`
	TimeoutMs     int64      `json:"timeout_ms"`
	ActivityCount int64      `json:"activity_count"`
	OpenedAt      time.Time  `json:"opened_at"`
	LastActivity  time.Time  `json:"last_activity"`
	ClosedAt      *time.Time `json:"closed_at,omitempty"`
	EndReason     string     `json:"end_reason,omitempty"`
}

// SessionStore defines the interface for session audit persistence.
type SessionStore interface {
	// RecordOpen inserts a new session row.
	RecordOpen(ctx context.Context, rec *SessionRecord) error

	// RecordActivity bumps the activity counter and last-activity time.
	RecordActivity(ctx context.Context, sessionID string, at time.Time) error

	// RecordClose stamps the close time and reason. Closing twice keeps the first reason.
	RecordClose(ctx context.Context, sessionID, reason string, at time.Time) error

	// Get returns a session row or ErrNotFound.
	Get(ctx context.Context, sessionID string) (*SessionRecord, error)

	// Close releases the underlying resources.
	Close()
}
