package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"mgapi/internal/batch"
	"mgapi/internal/client"
	"mgapi/internal/config"
	"mgapi/internal/spec"
	"mgapi/internal/store"
	"mgapi/pkg/logging"
	"mgapi/pkg/utils"
)

var (
	batchDryRun          bool
	batchContinueOnError bool
	batchStopOnFileError bool
	batchFilter          string
	batchResume          bool
	batchWorkers         int
	batchTimeout         string
)

var batchCmd = &cobra.Command{
	Use:   "batch <spec_type> <csv_files...>",
	Short: "Process spec CSV files against the server",
	Long: `Process one or more CSV files based on spec type.

Examples:
  mgapi batch user_spec users.csv
  mgapi batch user_spec users1.csv users2.csv users3.csv
  mgapi batch config_spec 'configs_*.csv'
  mgapi batch user_spec '*.csv' --dry-run
  mgapi batch user_spec users.csv --filter "action = 'create'"

Results are saved to <filename>.result.csv with exit_code, message, and
processed_at columns. Exit codes from server responses are preserved;
client-side codes are negative.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().BoolVar(&batchDryRun, "dry-run", false, "Preview commands without execution")
	batchCmd.Flags().BoolVar(&batchContinueOnError, "continue-on-error", true, "Continue processing on row errors")
	batchCmd.Flags().BoolVar(&batchStopOnFileError, "stop-on-file-error", false, "Stop if a file fails completely")
	batchCmd.Flags().StringVar(&batchFilter, "filter", "", "Boolean expression to filter rows, e.g. \"action = 'create'\"")
	batchCmd.Flags().BoolVar(&batchResume, "resume", false, "Resume processing (skip rows already in .result.csv files)")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0, "Dispatch workers per file (default from config)")
	batchCmd.Flags().StringVar(&batchTimeout, "timeout", "", "Per-dispatch timeout, e.g. 45s or 500ms (default from config)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	specType := args[0]

	if _, err := spec.Resolve(specType); err != nil {
		fmt.Printf("❌ %v\n\nAvailable spec types:\n", err)
		for _, name := range spec.Types() {
			def, _ := spec.Resolve(name)
			fmt.Printf("  %s - Required columns: %v\n", name, def.RequiredColumns)
		}
		exitCode = 2
		return nil
	}

	files, err := utils.ExpandGlobs(args[1:])
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		exitCode = 2
		return nil
	}

	cfg := config.Load()
	workers := batchWorkers
	if workers <= 0 {
		workers = cfg.Workers
	}
	timeout := utils.ParseDuration(batchTimeout, cfg.Timeout())

	log, err := logging.NewLogger(cfg.LogFile)
	if err != nil {
		fmt.Printf("⚠️ Logging disabled: %v\n", err)
		log = nil
	}
	defer log.Close()

	runID := uuid.NewString()
	history := store.InitDB(cfg.DBPath) == nil
	if history {
		defer store.Close()
		if err := store.SaveRun(runID, specType, files); err != nil {
			log.Warn("failed to record run %s: %v", runID, err)
		}
		store.UpdateRunStatus(runID, "running")
	} else {
		log.Warn("run history unavailable at %s", cfg.DBPath)
	}

	runner, err := batch.NewRunner(batch.Options{
		SpecType:        specType,
		Files:           files,
		DryRun:          batchDryRun,
		ContinueOnError: batchContinueOnError,
		StopOnFileError: batchStopOnFileError,
		Resume:          batchResume,
		Filter:          batchFilter,
		Workers:         workers,
		RetryCount:      cfg.RetryCount,
		RetryDelay:      cfg.RetryInterval(),
		RetryBackoff:    cfg.RetryBackoff,
		Timeout:         timeout,
		OnFileError: func(file string, err error) {
			if history {
				store.SaveRunError(runID, fmt.Errorf("%s: %v", file, err))
			}
		},
	}, client.NewHTTPClient(cfg.ServerURL, timeout), log)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		if history {
			store.SaveRunError(runID, err)
			store.UpdateRunStatus(runID, "failed")
		}
		exitCode = 2
		return nil
	}

	// A user interrupt cancels dispatching but still finalizes result
	// files, so a later --resume picks up exactly where this run stopped.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	stats := runner.Run(ctx)
	exitCode = stats.ExitCode()

	if history {
		status := "completed"
		if stats.FilesFailed > 0 {
			status = "completed_with_failures"
		}
		if ctx.Err() != nil {
			status = "cancelled"
		}
		store.UpdateRunStatus(runID, status)
		store.SaveRunStats(runID, stats)
	}

	log.Info("run %s finished in %v with exit code %d", runID, time.Since(start), exitCode)
	return nil
}
