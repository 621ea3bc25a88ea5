package batch

import (
	"fmt"
	"path/filepath"

	"mgapi/internal/model"
)

func printFileSummary(file string, stats model.FileStats) {
	successRate := 0.0
	if stats.Total > 0 {
		successRate = float64(stats.Success) / float64(stats.Total) * 100
	}

	fmt.Printf(`
	File: %s
	├─ Total: %d rows
	├─ Success: %d (%.1f%%)
	├─ Failed: %d
	├─ Validation Failed: %d
	├─ No Response: %d
	├─ Exception: %d
	├─ Dry Run: %d
	└─ Skipped: %d
`,
		filepath.Base(file), stats.Total, stats.Success, successRate,
		stats.Failed, stats.ValidationFailed, stats.NoResponse,
		stats.Exception, stats.DryRun, stats.Skipped)
}

func printBatchSummary(totalFiles int, stats model.BatchStats) {
	successRate := 0.0
	if stats.Rows.Total > 0 {
		successRate = float64(stats.Rows.Success) / float64(stats.Rows.Total) * 100
	}

	fmt.Printf(`
🏁 Batch Processing Complete

	Files:
	├─ Processed: %d/%d
	└─ Failed: %d

	Total Rows:
	├─ Total: %d
	├─ Success: %d (%.1f%%)
	├─ Failed: %d
	├─ Validation Failed: %d
	├─ No Response: %d
	├─ Exception: %d
	├─ Dry Run: %d
	└─ Skipped: %d

	Exit Codes:
	0 = Success
	>0 = Server Error (from API response)
	-1 = No response from server
	-2 = Validation error (client-side)
	-3 = Exception occurred
	-4 = Dry run (not executed)
`,
		stats.FilesProcessed, totalFiles, stats.FilesFailed,
		stats.Rows.Total, stats.Rows.Success, successRate,
		stats.Rows.Failed, stats.Rows.ValidationFailed, stats.Rows.NoResponse,
		stats.Rows.Exception, stats.Rows.DryRun, stats.Rows.Skipped)
}
