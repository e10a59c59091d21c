package config

import (
	"fmt"
	"net/url"

	"garagepro/internal/activity"
)

func validate(cfg *Config) error {
	if cfg.Session.DefaultTimeout <= 0 {
		return fmt.Errorf("config: session.default_timeout must be > 0")
	}

	if len(cfg.Session.Kinds) == 0 {
		return fmt.Errorf("config: session.kinds is empty")
	}
	for _, k := range cfg.Session.Kinds {
		if _, err := activity.ParseKind(k); err != nil {
			return fmt.Errorf("config: session.kinds: %w", err)
		}
	}

	for role, d := range cfg.Session.Roles {
		if !KnownRole(role) {
			return fmt.Errorf("config: session.roles: unknown role %q", role)
		}
		if d <= 0 {
			return fmt.Errorf("config: session.roles: role %q timeout must be > 0", role)
		}
	}

	if cfg.Policy.URL != "" {
		u, err := url.Parse(cfg.Policy.URL)
		if err != nil {
			return fmt.Errorf("config: invalid policy.url: %w", err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("config: policy.url must be http or https, got %q", u.Scheme)
		}
	}

	if cfg.Hermes.Enabled && cfg.Hermes.URL == "" {
		return fmt.Errorf("config: hermes.enabled requires hermes.url")
	}

	return nil
}

// KnownRole reports whether role is one of Roles.
func KnownRole(role string) bool {
	for _, r := range Roles {
		if r == role {
			return true
		}
	}
	return false
}
