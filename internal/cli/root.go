// Package cli wires the cobra command tree for the mgapi client.
package cli

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mgapi",
	Short: "Client for the MGAPI job-control server",
	Long: `mgapi drives a remotely started job-control server over its HTTP API.

The batch command converts spec CSV files into sequences of remote
operations, recording per-row outcomes in <input>.result.csv files that
make processing resumable and idempotent across restarts.

Available commands:
  batch     - Process spec CSV files against the server
  send      - Send a single query to the server
  status    - Check server health and job info
  endpoints - List the server's API endpoints
  close     - Ask the server to shut down
  history   - List past batch runs`,
	SilenceUsage: true,
}

// exitCode is set by commands that report a process exit code richer
// than cobra's success/failure.
var exitCode int

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		if exitCode == 0 {
			return 1
		}
	}
	return exitCode
}

func init() {
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(endpointsCmd)
	rootCmd.AddCommand(closeCmd)
	rootCmd.AddCommand(historyCmd)
}
