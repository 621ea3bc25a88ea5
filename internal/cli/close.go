package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mgapi/internal/client"
	"mgapi/internal/config"
)

var closeCmd = &cobra.Command{
	Use:   "close",
	Short: "Ask the server to shut down",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		c := client.NewHTTPClient(cfg.ServerURL, cfg.Timeout())

		if !c.Health(cmd.Context()) {
			fmt.Println("ℹ️ Server is not running")
			return nil
		}

		fmt.Println("🛑 Requesting server shutdown...")
		result, err := c.Shutdown(cmd.Context())
		if err != nil {
			// The connection dropping mid-shutdown is the expected outcome.
			if client.IsTransport(err) && !c.Health(cmd.Context()) {
				fmt.Println("✅ Server closed")
				return nil
			}
			fmt.Printf("❌ Shutdown failed: %v\n", err)
			exitCode = 1
			return nil
		}

		if msg, ok := result["message"]; ok {
			fmt.Printf("✅ %v\n", msg)
		} else {
			fmt.Println("✅ Shutdown requested")
		}
		return nil
	},
}
