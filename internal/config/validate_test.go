package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Session: Session{
			DefaultTimeout: time.Minute,
			Kinds:          []string{"key-press"},
		},
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero default timeout",
			mutate:  func(c *Config) { c.Session.DefaultTimeout = 0 },
			wantErr: "default_timeout must be > 0",
		},
		{
			name:    "negative default timeout",
			mutate:  func(c *Config) { c.Session.DefaultTimeout = -time.Second },
			wantErr: "default_timeout must be > 0",
		},
		{
			name:    "no kinds",
			mutate:  func(c *Config) { c.Session.Kinds = nil },
			wantErr: "session.kinds is empty",
		},
		{
			name:    "unknown kind",
			mutate:  func(c *Config) { c.Session.Kinds = []string{"hover"} },
			wantErr: "unknown signal kind",
		},
		{
			name:    "unknown role",
			mutate:  func(c *Config) { c.Session.Roles = map[string]time.Duration{"janitor": time.Minute} },
			wantErr: "unknown role",
		},
		{
			name:    "non-positive role timeout",
			mutate:  func(c *Config) { c.Session.Roles = map[string]time.Duration{"admin": 0} },
			wantErr: "timeout must be > 0",
		},
		{
			name:    "policy url scheme",
			mutate:  func(c *Config) { c.Policy.URL = "ftp://policy" },
			wantErr: "must be http or https",
		},
		{
			name:    "hermes without url",
			mutate:  func(c *Config) { c.Hermes.Enabled = true },
			wantErr: "requires hermes.url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := validate(cfg)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateSuccess(t *testing.T) {
	cfg := validConfig()
	cfg.Session.Roles = map[string]time.Duration{"customer": 5 * time.Minute}
	cfg.Policy.URL = "https://policy.garage.local/v1/session"
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
