package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"mgapi/internal/client"
	"mgapi/internal/config"
)

var endpointsCmd = &cobra.Command{
	Use:   "endpoints",
	Short: "List the server's API endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		c := client.NewHTTPClient(cfg.ServerURL, cfg.Timeout())

		info, err := c.APIInfo(cmd.Context())
		if err != nil {
			fmt.Printf("❌ Could not fetch API info: %v\n", err)
			exitCode = 1
			return nil
		}

		endpoints, ok := info["endpoints"].(map[string]interface{})
		if !ok {
			fmt.Printf("Server info: %v\n", info)
			return nil
		}

		paths := make([]string, 0, len(endpoints))
		for path := range endpoints {
			paths = append(paths, path)
		}
		sort.Strings(paths)

		fmt.Printf("📡 Endpoints at %s:\n", cfg.ServerURL)
		for _, path := range paths {
			fmt.Printf("   %-20s %v\n", path, endpoints[path])
		}
		return nil
	},
}
