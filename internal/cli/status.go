package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mgapi/internal/client"
	"mgapi/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check server health and job info",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		c := client.NewHTTPClient(cfg.ServerURL, cfg.Timeout())

		fmt.Printf("🔍 Checking server status at %s\n", cfg.ServerURL)
		if !c.Health(cmd.Context()) {
			fmt.Println("❌ Server is not responding")
			exitCode = 1
			return nil
		}
		fmt.Println("✅ Server is healthy")

		info, err := c.JobInfo(cmd.Context())
		if err != nil {
			fmt.Printf("⚠️ Could not fetch job info: %v\n", err)
			return nil
		}
		for _, key := range []string{"job_id", "bjob_id", "host", "status"} {
			if v, ok := info[key]; ok {
				fmt.Printf("   %s: %v\n", key, v)
			}
		}
		return nil
	},
}
