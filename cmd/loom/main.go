package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "loom",
		Short: "Fine-grained reactive runtime for server-driven UIs",
		Long: `Loom is a fine-grained reactive runtime for Go.

It tracks which tasks read which signals and re-runs exactly the
work a mutation invalidated. Features include:

  • Per-property dependency tracking
  • Plain, visible, resource and computed tasks
  • Pause/resume of whole sessions without replaying task bodies
  • HTTP/WebSocket session host with Prometheus metrics`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		serveCmd(),
		decodeCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
