package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "qapi",
	Short: "A console for REST, GraphQL, and WebSocket requests",
	Long: `qapi is a multi-protocol request console.

Build and run REST, GraphQL, and WebSocket requests from a saved preset
library, attach shared bearer/API-key auth per preset, monitor endpoints
on a fixed interval, and browse past runs.

Examples:
  qapi preset list
  qapi run rest-jsonplaceholder-posts
  qapi ws connect ws-postman-echo --send
  qapi monitor watch rest-jsonplaceholder-posts
  qapi history`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Show response headers")
}
