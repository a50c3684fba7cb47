package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	hashCmd := &cobra.Command{Use: "hash", Short: "Session-free content-addressable operations"}

	var content string
	var ttlSeconds int64
	storeCmd := &cobra.Command{
		Use:   "store CELL_ID CREATED_AT",
		Short: "Store content under the digest of (cell id, creation time)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var raw json.RawMessage
			if json.Valid([]byte(content)) {
				raw = json.RawMessage(content)
			} else {
				quoted, _ := json.Marshal(content)
				raw = quoted
			}
			body := map[string]interface{}{
				"cellId":    args[0],
				"createdAt": args[1],
				"content":   raw,
			}
			if ttlSeconds > 0 {
				body["ttl_seconds"] = ttlSeconds
			}
			req := newClient().R().SetBody(body)
			data, err := do(req, http.MethodPost, "/api/hash/cells")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	storeCmd.Flags().StringVarP(&content, "content", "c", "", "Cell content, raw JSON or plain text (required)")
	storeCmd.Flags().Int64Var(&ttlSeconds, "ttl", 0, "Record expiry in seconds (0 uses the server default)")
	_ = storeCmd.MarkFlagRequired("content")
	hashCmd.AddCommand(storeCmd)

	getCmd := &cobra.Command{
		Use:   "get DIGEST",
		Short: "Fetch content by its 64-char hex digest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := do(newClient().R(), http.MethodGet, "/api/hash/cells/"+args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	hashCmd.AddCommand(getCmd)

	fetchCmd := &cobra.Command{
		Use:   "fetch CELL_ID CREATED_AT",
		Short: "Fetch content by recomputing the digest from its identity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := newClient().R().SetBody(map[string]interface{}{
				"cellId":    args[0],
				"createdAt": args[1],
			})
			data, err := do(req, http.MethodPost, "/api/hash/cells/sync")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	hashCmd.AddCommand(fetchCmd)

	var cursor uint64
	var pattern string
	var count int64
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of stored digests",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := newClient().R().
				SetQueryParam("cursor", fmt.Sprintf("%d", cursor)).
				SetQueryParam("count", fmt.Sprintf("%d", count))
			if pattern != "" {
				req.SetQueryParam("pattern", pattern)
			}
			data, err := do(req, http.MethodGet, "/api/hash/cells")
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, string(data))
			return nil
		},
	}
	listCmd.Flags().Uint64Var(&cursor, "cursor", 0, "Scan cursor from the previous page")
	listCmd.Flags().StringVarP(&pattern, "pattern", "p", "", "Glob pattern on digests")
	listCmd.Flags().Int64VarP(&count, "count", "n", 100, "Page size hint")
	hashCmd.AddCommand(listCmd)

	rootCmd.AddCommand(hashCmd)
}
