// Package policy resolves the idle timeout that applies to a session.
package policy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"garagepro/internal/idle"
)

// Provider supplies the session idle timeout for a role.
type Provider interface {
	Timeout(ctx context.Context, role string) (time.Duration, error)
}

// Static serves timeouts from a fixed per-role table.
type Static struct {
	def   time.Duration
	roles map[string]time.Duration
}

func NewStatic(def time.Duration, roles map[string]time.Duration) *Static {
	copied := make(map[string]time.Duration, len(roles))
	for r, d := range roles {
		copied[r] = d
	}
	return &Static{def: def, roles: copied}
}

func (s *Static) Timeout(_ context.Context, role string) (time.Duration, error) {
	if d, ok := s.roles[role]; ok {
		return d, nil
	}
	return s.def, nil
}

// Fallback wraps a Provider so that lookup failures and non-positive
// durations resolve to a default instead of leaving a session unmonitored.
type Fallback struct {
	provider   Provider
	def        time.Duration
	onFallback func(role string, err error)
	logger     *slog.Logger
}

// WithFallback wraps p. onFallback may be nil.
func WithFallback(p Provider, def time.Duration, onFallback func(role string, err error), logger *slog.Logger) *Fallback {
	return &Fallback{
		provider:   p,
		def:        def,
		onFallback: onFallback,
		logger:     logger.With("component", "policy"),
	}
}

// Timeout never returns an error.
func (f *Fallback) Timeout(ctx context.Context, role string) (time.Duration, error) {
	d, err := f.provider.Timeout(ctx, role)
	if err == nil && d <= 0 {
		err = fmt.Errorf("%w: policy returned %v for role %q", idle.ErrInvalidConfiguration, d, role)
	}
	if err != nil {
		f.logger.Warn("session timeout lookup failed, using default", "role", role, "default", f.def, "error", err)
		if f.onFallback != nil {
			f.onFallback(role, err)
		}
		return f.def, nil
	}
	return d, nil
}
