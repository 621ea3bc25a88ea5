package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mgapi/internal/config"
	"mgapi/internal/store"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past batch runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if err := store.InitDB(cfg.DBPath); err != nil {
			return fmt.Errorf("failed to open run history: %w", err)
		}
		defer store.Close()

		runs, err := store.ListRuns(historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		if len(runs) == 0 {
			fmt.Println("No batch runs recorded yet")
			return nil
		}

		for _, r := range runs {
			fmt.Printf("%s  %-12s  %-24s  %s\n",
				r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				r.SpecType, r.Status, r.Files)
			if r.Stats != "" {
				fmt.Printf("    stats: %s\n", r.Stats)
			}
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show")
}
