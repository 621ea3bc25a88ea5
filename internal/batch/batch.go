// Package batch is the engine that turns spec CSV files into remote
// operations: it validates rows, builds and dispatches commands, applies
// the retry policy, and records per-row outcomes in result files so runs
// are resumable.
package batch

import (
	"context"
	"fmt"
	"time"

	"mgapi/internal/client"
	"mgapi/internal/filter"
	"mgapi/internal/model"
	"mgapi/internal/spec"
	"mgapi/pkg/logging"
)

// Options configures a batch run.
type Options struct {
	SpecType        string
	Files           []string
	DryRun          bool
	ContinueOnError bool
	StopOnFileError bool
	Resume          bool
	Filter          string
	Workers         int
	RetryCount      int
	RetryDelay      time.Duration
	RetryBackoff    bool
	Timeout         time.Duration

	// OnFileError, when set, is called for every file-level failure so
	// the caller can record it (e.g. in the run history).
	OnFileError func(file string, err error)
}

// Runner processes a batch of spec CSV files against one server.
type Runner struct {
	opts       Options
	def        *spec.Definition
	rowFilter  *filter.Filter
	dispatcher client.Dispatcher
	log        *logging.Logger
}

// NewRunner resolves the spec type and compiles the row filter up front,
// so bad spec names and filter syntax errors surface before any file is
// touched.
func NewRunner(opts Options, dispatcher client.Dispatcher, log *logging.Logger) (*Runner, error) {
	def, err := spec.Resolve(opts.SpecType)
	if err != nil {
		return nil, err
	}

	var rowFilter *filter.Filter
	if opts.Filter != "" {
		rowFilter, err = filter.Compile(opts.Filter)
		if err != nil {
			return nil, err
		}
	}

	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.RetryCount <= 0 {
		opts.RetryCount = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &Runner{
		opts:       opts,
		def:        def,
		rowFilter:  rowFilter,
		dispatcher: dispatcher,
		log:        log,
	}, nil
}

// Run processes every file in the batch and returns the aggregate stats.
// File-level failures abort only that file unless StopOnFileError is set.
func (r *Runner) Run(ctx context.Context) model.BatchStats {
	start := time.Now()
	var batchStats model.BatchStats

	fmt.Printf("🚀 Batch processing started: %s, %d file(s)\n", r.opts.SpecType, len(r.opts.Files))
	r.log.Info("batch started: spec=%s files=%d dry_run=%v resume=%v",
		r.opts.SpecType, len(r.opts.Files), r.opts.DryRun, r.opts.Resume)

	for i, file := range r.opts.Files {
		fmt.Printf("\n📄 Processing file %d/%d: %s\n", i+1, len(r.opts.Files), file)

		stats, err := r.processFile(ctx, file)
		if err != nil {
			batchStats.FilesFailed++
			fmt.Printf("❌ Error processing %s: %v\n", file, err)
			r.log.Error("file failed: %s: %v", file, err)
			if r.opts.OnFileError != nil {
				r.opts.OnFileError(file, err)
			}

			if r.opts.StopOnFileError {
				fmt.Println("🛑 Stopping batch due to file error")
				break
			}
			continue
		}

		batchStats.Add(stats)
		printFileSummary(file, stats)

		if ctx.Err() != nil {
			r.log.Warn("batch cancelled after %s", file)
			break
		}
	}

	printBatchSummary(len(r.opts.Files), batchStats)
	r.log.Info("batch finished in %v: files_ok=%d files_failed=%d rows=%d success=%d",
		time.Since(start), batchStats.FilesProcessed, batchStats.FilesFailed,
		batchStats.Rows.Total, batchStats.Rows.Success)

	return batchStats
}
