package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"garagepro/internal/hermes"
)

// connectNATS connects using env, ~/.garage/config.yaml, or defaults.
func connectNATS() (*nats.Conn, error) {
	url := "nats://localhost:4222"
	cfg := loadCLIConfig()
	token := cfg.Hermes.Token
	if cfg.Hermes.URL != "" {
		url = cfg.Hermes.URL
	}

	// Env overrides.
	if v := os.Getenv("GARAGE_NATS_URL"); v != "" {
		url = v
	}
	if v := os.Getenv("GARAGE_NATS_TOKEN"); v != "" {
		token = v
	}

	opts := []nats.Option{
		nats.Name("garagectl"),
		nats.Timeout(5 * time.Second),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}
	return nats.Connect(url, opts...)
}

func eventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events",
		Short: "Stream session events from Hermes",
		RunE: func(cmd *cobra.Command, args []string) error {
			nc, err := connectNATS()
			if err != nil {
				return fmt.Errorf("connect to hermes: %w", err)
			}
			defer nc.Drain()

			out := cmd.OutOrStdout()
			sub, err := nc.Subscribe(hermes.SubjectAllSessions, func(msg *nats.Msg) {
				if format == "json" {
					fmt.Fprintln(out, string(msg.Data))
					return
				}
				ev, err := hermes.UnmarshalEvent(msg.Data)
				if err != nil {
					fmt.Fprintf(out, "%s\t(unparseable: %v)\n", msg.Subject, err)
					return
				}
				fmt.Fprintf(out, "%s\t%s\t%s\n", ev.Timestamp.Format(time.RFC3339), msg.Subject, string(ev.Data))
			})
			if err != nil {
				return err
			}
			defer sub.Unsubscribe()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			<-sigCh
			return nil
		},
	}
}
