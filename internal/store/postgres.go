package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements SessionStore backed by a pgxpool connection.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to the database and verifies connectivity.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Pool returns the underlying pgxpool for schema migrations.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

// Close closes the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) RecordOpen(ctx context.Context, rec *SessionRecord) error {
	const q = `
INSERT INTO session_audit (session_id, user_id, role, branch_id, timeout_ms, opened_at, last_activity)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $6)
ON CONFLICT (session_id) DO NOTHING
`
	_, err := s.pool.Exec(ctx, q, rec.SessionID, rec.UserID, rec.Role, rec.BranchID, rec.TimeoutMs, rec.OpenedAt)
	if err != nil {
		return fmt.Errorf("record open: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecordActivity(ctx context.Context, sessionID string, at time.Time) error {
	const q = `
UPDATE session_audit SET
    activity_count = activity_count + 1,
    last_activity  = GREATEST(last_activity, $2),
    updated_at     = NOW()
WHERE session_id = $1
`
	tag, err := s.pool.Exec(ctx, q, sessionID, at)
	if err != nil {
		return fmt.Errorf("record activity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) RecordClose(ctx context.Context, sessionID, reason string, at time.Time) error {
	const q = `
UPDATE session_audit SET
    closed_at  = COALESCE(closed_at, $3),
    end_reason = COALESCE(end_reason, $2),
    updated_at = NOW()
WHERE session_id = $1
`
	tag, err := s.pool.Exec(ctx, q, sessionID, reason, at)
	if err != nil {
		return fmt.Errorf("record close: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, sessionID string) (*SessionRecord, error) {
	rec := &SessionRecord{SessionID: sessionID}
	var branch, reason *string
	err := s.pool.QueryRow(ctx, `
		SELECT user_id, role, branch_id, timeout_ms, activity_count,
		       opened_at, last_activity, closed_at, end_reason
		FROM session_audit WHERE session_id = $1
	`, sessionID).Scan(&rec.UserID, &rec.Role, &branch, &rec.TimeoutMs, &rec.ActivityCount,
		&rec.OpenedAt, &rec.LastActivity, &rec.ClosedAt, &reason)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if branch != nil {
		rec.BranchID = *branch
	}
	if reason != nil {
		rec.EndReason = *reason
	}
	return rec, nil
}
