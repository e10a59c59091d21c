package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS session_audit (
    id              BIGSERIAL PRIMARY KEY,
    session_id      TEXT NOT NULL UNIQUE,
    user_id         TEXT NOT NULL,
    role            TEXT NOT NULL,
    branch_id       TEXT,
    timeout_ms      BIGINT NOT NULL,
    activity_count  BIGINT NOT NULL DEFAULT 0,
    opened_at       TIMESTAMPTZ NOT NULL,
    last_activity   TIMESTAMPTZ NOT NULL,
    closed_at       TIMESTAMPTZ,
    end_reason      TEXT,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_session_audit_user_id ON session_audit(user_id);
CREATE INDEX IF NOT EXISTS idx_session_audit_role ON session_audit(role);
CREATE INDEX IF NOT EXISTS idx_session_audit_opened_at ON session_audit(opened_at);
CREATE INDEX IF NOT EXISTS idx_session_audit_end_reason ON session_audit(end_reason);
`

// EnsureSchema creates the session_audit table and indexes if they don't exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
