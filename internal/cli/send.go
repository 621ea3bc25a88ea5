package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mgapi/internal/client"
	"mgapi/internal/config"
)

var sendQuery string

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Send a single query to the server",
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.TrimSpace(sendQuery)
		if query == "" {
			return fmt.Errorf("query cannot be empty (use --query)")
		}

		cfg := config.Load()
		c := client.NewHTTPClient(cfg.ServerURL, cfg.Timeout())

		if !c.Health(cmd.Context()) {
			fmt.Println("❌ Server is not responding")
			fmt.Println("   Make sure the server is running")
			exitCode = 1
			return nil
		}

		fmt.Println("📤 Sending query...")
		result, err := c.ExecuteRaw(cmd.Context(), query)
		if err != nil {
			fmt.Printf("❌ Failed to execute query: %v\n", err)
			exitCode = 1
			return nil
		}

		fmt.Printf("Exit code: %d\n", result.ExitCode)
		if result.Message != "" {
			fmt.Printf("Message: %s\n", result.Message)
		}
		if result.ExitCode != 0 {
			exitCode = 1
		}
		return nil
	},
}

func init() {
	sendCmd.Flags().StringVarP(&sendQuery, "query", "q", "", "Query to send to the server")
}
