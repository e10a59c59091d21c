package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Listen      string  `yaml:"listen"`
	AdminToken  string  `yaml:"admin_token"`
	DatabaseURL string  `yaml:"database_url"`
	Session     Session `yaml:"session"`
	Policy      Policy  `yaml:"policy"`
	Hermes      Hermes  `yaml:"hermes"`
}

type Session struct {
	DefaultTimeout time.Duration            `yaml:"default_timeout"`
	Kinds          []string                 `yaml:"kinds"`
	Roles          map[string]time.Duration `yaml:"roles"`
}

// Policy points at the remote security-policy service. An empty URL means
// the static per-role table in Session is used.
type Policy struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type Hermes struct {
	Enabled          bool          `yaml:"enabled"`
	URL              string        `yaml:"url"`
	Token            string        `yaml:"token"`
	ConnectTimeout   time.Duration `yaml:"connect_timeout"`
	ReconnectWait    time.Duration `yaml:"reconnect_wait"`
	MaxReconnects    int           `yaml:"max_reconnects"`
	ProvisionStreams bool          `yaml:"provision_streams"`
}

// Roles recognised by the dashboards.
var Roles = []string{"admin", "manager", "technician", "customer"}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes cfg to path as YAML.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// Validate checks a config without loading it from disk.
func Validate(cfg *Config) error {
	return validate(cfg)
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("GARAGE_DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("GARAGE_NATS_URL"); v != "" {
		cfg.Hermes.URL = v
	}
	if v := os.Getenv("GARAGE_ADMIN_TOKEN"); v != "" {
		cfg.AdminToken = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Listen == "" {
		cfg.Listen = ":8080"
	}
	if cfg.Session.DefaultTimeout == 0 {
		cfg.Session.DefaultTimeout = 15 * time.Minute
	}
	if len(cfg.Session.Kinds) == 0 {
		cfg.Session.Kinds = []string{"pointer-press", "key-press", "scroll", "touch-start"}
	}
	if cfg.Policy.Timeout == 0 {
		cfg.Policy.Timeout = 5 * time.Second
	}
	if cfg.Hermes.URL == "" {
		cfg.Hermes.URL = "nats://localhost:4222"
	}
	if cfg.Hermes.ConnectTimeout == 0 {
		cfg.Hermes.ConnectTimeout = 5 * time.Second
	}
	if cfg.Hermes.ReconnectWait == 0 {
		cfg.Hermes.ReconnectWait = 2 * time.Second
	}
	if cfg.Hermes.MaxReconnects == 0 {
		cfg.Hermes.MaxReconnects = -1 // infinite
	}
}
