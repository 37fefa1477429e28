package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "execbox",
	Short: "Sandboxed code execution service",
	Long: `execbox runs untrusted source code in isolated, resource-bounded
containers and records the outcome for polling.

Configuration is read from config.yaml (in . or ./config), .env and
EXECBOX_* environment variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
}
