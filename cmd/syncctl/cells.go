package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cellsCmd := &cobra.Command{Use: "cells", Short: "Cell content operations"}

	var content string
	var allow bool
	var ttlSeconds int64
	pushCmd := &cobra.Command{
		Use:   "push CODE CELL_ID",
		Short: "Push cell content (owner only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if content == "" {
				return fmt.Errorf("--content required")
			}
			var raw json.RawMessage
			if json.Valid([]byte(content)) {
				raw = json.RawMessage(content)
			} else {
				quoted, _ := json.Marshal(content)
				raw = quoted
			}
			body := map[string]interface{}{"content": raw}
			if ttlSeconds > 0 {
				body["ttl_seconds"] = ttlSeconds
			}
			req := newClient().R().SetBody(body)
			data, err := do(req, http.MethodPost, "/api/sessions/"+args[0]+"/cells/"+args[1])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	pushCmd.Flags().StringVarP(&content, "content", "c", "", "Cell content, raw JSON or plain text (required)")
	pushCmd.Flags().Int64Var(&ttlSeconds, "ttl", 0, "Record expiry in seconds (0 uses the server default)")
	_ = pushCmd.MarkFlagRequired("content")
	cellsCmd.AddCommand(pushCmd)

	statusCmd := &cobra.Command{
		Use:   "status CODE CELL_ID",
		Short: "Show pending-update status for a cell",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := do(newClient().R(), http.MethodGet, "/api/sessions/"+args[0]+"/cells/"+args[1])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	cellsCmd.AddCommand(statusCmd)

	toggleCmd := &cobra.Command{
		Use:   "toggle CODE CELL_ID",
		Short: "Set sync permission for a cell (owner only)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := newClient().R().SetBody(map[string]interface{}{"sync_allowed": allow})
			data, err := do(req, http.MethodPost, "/api/sessions/"+args[0]+"/cells/"+args[1]+"/visibility")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	toggleCmd.Flags().BoolVar(&allow, "allow", true, "Whether students may sync the cell")
	cellsCmd.AddCommand(toggleCmd)

	syncCmd := &cobra.Command{
		Use:   "sync CODE CELL_ID",
		Short: "Fetch the pending content of a cell",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := do(newClient().R(), http.MethodPost, "/api/sessions/"+args[0]+"/cells/"+args[1]+"/sync")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	cellsCmd.AddCommand(syncCmd)

	var since int64
	changesCmd := &cobra.Command{
		Use:   "changes CODE",
		Short: "List cells changed since a millisecond timestamp",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := newClient().R().SetQueryParam("since", fmt.Sprintf("%d", since))
			data, err := do(req, http.MethodGet, "/api/sessions/"+args[0]+"/changes")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	changesCmd.Flags().Int64VarP(&since, "since", "s", 0, "Poll cursor in unix milliseconds")
	cellsCmd.AddCommand(changesCmd)

	rootCmd.AddCommand(cellsCmd)
}
