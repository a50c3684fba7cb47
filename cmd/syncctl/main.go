package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	apiFlag  string
	userFlag string
	rootCmd  = &cobra.Command{
		Use:   "syncctl",
		Short: "CLI client for the notebook sync service REST API",
	}
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&apiFlag, "api", "a", "http://localhost:8080", "Sync service base URL")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "User identity sent as X-User-Id")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
