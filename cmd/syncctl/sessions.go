package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	sessionsCmd := &cobra.Command{Use: "sessions", Short: "Session operations"}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a session (teacher only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := do(newClient().R(), http.MethodPost, "/api/sessions")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	sessionsCmd.AddCommand(createCmd)

	getCmd := &cobra.Command{
		Use:   "get CODE",
		Short: "Show session info",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := do(newClient().R(), http.MethodGet, "/api/sessions/"+args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	sessionsCmd.AddCommand(getCmd)

	joinCmd := &cobra.Command{
		Use:   "join CODE",
		Short: "Join a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := do(newClient().R(), http.MethodPost, "/api/sessions/"+args[0]+"/join")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	sessionsCmd.AddCommand(joinCmd)

	endCmd := &cobra.Command{
		Use:   "end CODE",
		Short: "End a session (owner only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := do(newClient().R(), http.MethodPost, "/api/sessions/"+args[0]+"/end")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	sessionsCmd.AddCommand(endCmd)

	rootCmd.AddCommand(sessionsCmd)
}
