package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"garagepro/internal/config"
)

var (
	apiURL   string
	apiToken string
	format   string
)

var httpClient = &http.Client{Timeout: 10 * time.Second}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "garagectl",
		Short:         "garagectl manages Garage Pro dashboard sessions",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&apiURL, "api", "", "session API URL (default http://localhost:8080)")
	root.PersistentFlags().StringVar(&apiToken, "token", "", "session API bearer token")
	root.PersistentFlags().StringVar(&format, "format", "table", "output format: table or json")

	sessionCmd := &cobra.Command{Use: "session", Short: "Manage dashboard sessions"}
	sessionCmd.AddCommand(
		sessionListCmd(),
		sessionOpenCmd(),
		sessionTouchCmd(),
		sessionEndCmd(),
		sessionInspectCmd(),
	)

	configCmd := &cobra.Command{Use: "config", Short: "Work with sessiond config files"}
	configCmd.AddCommand(configValidateCmd())

	root.AddCommand(
		sessionCmd,
		configCmd,
		statusCmd(),
		eventsCmd(),
	)
	return root
}

// cliConfig is the optional ~/.garage/config.yaml.
type cliConfig struct {
	API    string `yaml:"api"`
	Token  string `yaml:"token"`
	Hermes struct {
		URL   string `yaml:"url"`
		Token string `yaml:"token"`
	} `yaml:"hermes"`
}

func loadCLIConfig() cliConfig {
	var cfg cliConfig
	home, err := os.UserHomeDir()
	if err != nil {
		return cfg
	}
	data, err := os.ReadFile(filepath.Join(home, ".garage", "config.yaml"))
	if err == nil {
		_ = yaml.Unmarshal(data, &cfg) //nolint:errcheck // a bad file falls back to defaults
	}
	return cfg
}

func getAPIURL() string {
	if apiURL != "" {
		return apiURL
	}
	if v := os.Getenv("GARAGE_API"); v != "" {
		return v
	}
	if cfg := loadCLIConfig(); cfg.API != "" {
		return cfg.API
	}
	return "http://localhost:8080"
}

func getAPIToken() string {
	if apiToken != "" {
		return apiToken
	}
	if v := os.Getenv("GARAGE_ADMIN_TOKEN"); v != "" {
		return v
	}
	return loadCLIConfig().Token
}

func apiDo(method, path string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, getAPIURL()+path, body)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := getAPIToken(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(b, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(b))
	}
	return b, nil
}

func apiGet(path string) ([]byte, error) {
	return apiDo(http.MethodGet, path, nil)
}

func apiPost(path string, payload any) ([]byte, error) {
	return apiDo(http.MethodPost, path, payload)
}

func apiDelete(path string) ([]byte, error) {
	return apiDo(http.MethodDelete, path, nil)
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sessiond status",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := apiGet("/healthz")
			if err != nil {
				return err
			}
			if format == "json" {
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			var health struct {
				Status   string `json:"status"`
				Uptime   string `json:"uptime"`
				Sessions int    `json:"sessions"`
			}
			_ = json.Unmarshal(data, &health)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Garage Pro sessiond")
			fmt.Fprintf(out, "  Status:   %s\n", health.Status)
			fmt.Fprintf(out, "  Uptime:   %s\n", health.Uptime)
			fmt.Fprintf(out, "  Sessions: %d open\n", health.Sessions)
			return nil
		},
	}
}

func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate a sessiond config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(args[0])
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "OK (default timeout %s, %d role overrides)\n", cfg.Session.DefaultTimeout, len(cfg.Session.Roles))
			return nil
		},
	}
}
