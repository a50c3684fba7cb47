package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	rolesCmd := &cobra.Command{Use: "roles", Short: "Role assignment operations"}

	getCmd := &cobra.Command{
		Use:   "get USER_ID",
		Short: "Show the effective role of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := do(newClient().R(), http.MethodGet, "/api/roles/users/"+args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	rolesCmd.AddCommand(getCmd)

	setCmd := &cobra.Command{
		Use:   "set USER_ID ROLE",
		Short: "Assign an explicit role (teacher only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := newClient().R().SetBody(map[string]interface{}{"role": args[1]})
			data, err := do(req, http.MethodPut, "/api/roles/users/"+args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	rolesCmd.AddCommand(setCmd)

	removeCmd := &cobra.Command{
		Use:   "remove USER_ID",
		Short: "Remove an explicit role assignment (teacher only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := do(newClient().R(), http.MethodDelete, "/api/roles/users/"+args[0])
			return err
		},
	}
	rolesCmd.AddCommand(removeCmd)

	historyCmd := &cobra.Command{
		Use:   "history USER_ID",
		Short: "Show the role change history of a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := do(newClient().R(), http.MethodGet, "/api/roles/users/"+args[0]+"/history")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	rolesCmd.AddCommand(historyCmd)

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show the role configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := do(newClient().R(), http.MethodGet, "/api/roles/config")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	rolesCmd.AddCommand(configCmd)

	listCmd := &cobra.Command{
		Use:   "list ROLE",
		Short: "List users explicitly assigned a role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := newClient().R().SetQueryParam("role", args[0])
			data, err := do(req, http.MethodGet, "/api/roles")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	rolesCmd.AddCommand(listCmd)

	rootCmd.AddCommand(rolesCmd)
}
