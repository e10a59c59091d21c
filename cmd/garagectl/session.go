package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"garagepro/internal/activity"
	"garagepro/internal/session"
)

func sessionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List open sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := apiGet("/sessions")
			if err != nil {
				return err
			}
			if format == "json" {
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			var sessions []session.Info
			if err := json.Unmarshal(data, &sessions); err != nil {
				return fmt.Errorf("parse sessions: %w", err)
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No open sessions.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tUSER\tROLE\tBRANCH\tTIMEOUT\tSTATE\tIDLE FOR")
			now := time.Now()
			for _, s := range sessions {
				branch := s.BranchID
				if branch == "" {
					branch = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					s.ID, s.UserID, s.Role, branch, s.Timeout, s.State, now.Sub(s.LastActivity).Round(time.Second))
			}
			return w.Flush()
		},
	}
}

func sessionOpenCmd() *cobra.Command {
	var req session.OpenRequest
	cmd := &cobra.Command{
		Use:   "open",
		Short: "Open a session for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.UserID == "" || req.Role == "" {
				return fmt.Errorf("--user and --role are required")
			}
			data, err := apiPost("/sessions", req)
			if err != nil {
				return err
			}
			if format == "json" {
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			var info session.Info
			if err := json.Unmarshal(data, &info); err != nil {
				return fmt.Errorf("parse session: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Opened session %s (timeout %s)\n", info.ID, info.Timeout)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.UserID, "user", "", "user ID")
	cmd.Flags().StringVar(&req.Role, "role", "", "role (admin, manager, technician, customer)")
	cmd.Flags().StringVar(&req.BranchID, "branch", "", "branch ID")
	return cmd
}

func sessionTouchCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "touch <id>",
		Short: "Report activity for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := activity.ParseKind(kind); err != nil {
				return err
			}
			if _, err := apiPost("/sessions/"+args[0]+"/activity", map[string]string{"kind": kind}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Activity recorded for %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(activity.PointerPress), "signal kind")
	return cmd
}

func sessionEndCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "end <id>",
		Short: "Log a session out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := apiDelete("/sessions/" + args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session %s ended\n", args[0])
			return nil
		},
	}
}

func sessionInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <id>",
		Short: "Show detailed session info",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := apiGet("/sessions/" + args[0])
			if err != nil {
				return err
			}
			if format == "json" {
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			var info session.Info
			if err := json.Unmarshal(data, &info); err != nil {
				return fmt.Errorf("parse session: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-15s %s\n", "id:", info.ID)
			fmt.Fprintf(out, "%-15s %s\n", "user:", info.UserID)
			fmt.Fprintf(out, "%-15s %s\n", "role:", info.Role)
			if info.BranchID != "" {
				fmt.Fprintf(out, "%-15s %s\n", "branch:", info.BranchID)
			}
			fmt.Fprintf(out, "%-15s %s\n", "timeout:", info.Timeout)
			fmt.Fprintf(out, "%-15s %s\n", "state:", info.State)
			fmt.Fprintf(out, "%-15s %s\n", "opened:", info.OpenedAt.Format(time.RFC3339))
			fmt.Fprintf(out, "%-15s %s\n", "last activity:", info.LastActivity.Format(time.RFC3339))
			fmt.Fprintf(out, "%-15s %s\n", "deadline:", info.Deadline.Format(time.RFC3339))
			return nil
		},
	}
}
