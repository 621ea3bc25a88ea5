package batch

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"mgapi/internal/ledger"
	"mgapi/internal/model"
)

// indexedRow carries a row through the worker pool with its input
// position, so result files keep a stable row order.
type indexedRow struct {
	index int
	row   model.Row
}

type rowResult struct {
	index int
	entry model.LedgerEntry
}

// processFile runs the per-file state machine: load header, verify
// required columns, filter rows, then validate/dispatch/record each row
// and finalize the result file. The returned error is a file-level
// failure; row-level failures land in the stats.
func (r *Runner) processFile(ctx context.Context, path string) (model.FileStats, error) {
	var stats model.FileStats

	header, rows, err := readCSV(path)
	if err != nil {
		return stats, err
	}

	if missing := r.def.MissingColumns(header); len(missing) > 0 {
		return stats, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	if err := r.checkFilterColumns(header); err != nil {
		return stats, err
	}

	ldg := ledger.New(path, header, r.def.RequiredColumns)
	if err := ldg.Open(r.opts.Resume); err != nil {
		return stats, err
	}
	defer ldg.Close()

	processed := ldg.Processed(r.opts.DryRun)

	// Filtering: non-matching rows are excluded from the output entirely.
	var pending []indexedRow
	for i, row := range rows {
		if !r.rowFilter.Matches(row) {
			continue
		}
		stats.Total++
		if key := row.Key(r.def.RequiredColumns); key != "" {
			if _, done := processed[key]; done {
				stats.Skipped++
				continue
			}
		}
		pending = append(pending, indexedRow{index: i, row: row})
	}

	if stats.Skipped > 0 {
		fmt.Printf("⏭️ Skipping %d already processed row(s)\n", stats.Skipped)
	}

	r.processRows(ctx, pending, ldg, &stats)

	if err := ldg.Finalize(); err != nil {
		return stats, err
	}
	fmt.Printf("💾 Results saved to: %s\n", ldg.ResultPath())
	return stats, nil
}

// processRows fans pending rows out to the dispatch workers. All ledger
// appends go through a single recording goroutine so concurrent workers
// never interleave partial entries.
func (r *Runner) processRows(ctx context.Context, pending []indexedRow, ldg *ledger.Ledger, stats *model.FileStats) {
	jobs := make(chan indexedRow)
	results := make(chan rowResult)

	fileCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	workers := r.opts.Workers
	if workers > len(pending) && len(pending) > 0 {
		workers = len(pending)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				select {
				case <-fileCtx.Done():
					return
				default:
				}
				entry, recorded := r.processRow(fileCtx, item.row)
				if !recorded {
					// Interrupted mid-dispatch: the row stays out of the
					// result file and a resumed run retries it.
					return
				}
				select {
				case <-fileCtx.Done():
					return
				case results <- rowResult{index: item.index, entry: entry}:
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	go func() {
		defer close(jobs)
		for _, item := range pending {
			select {
			case <-fileCtx.Done():
				return
			case jobs <- item:
			}
		}
	}()

	// Single writer: append and count in arrival order; Finalize restores
	// input row order.
	for res := range results {
		if err := ldg.Append(res.index, res.entry); err != nil {
			fmt.Printf("❌ Failed to record row result: %v\n", err)
			r.log.Error("append failed: %v", err)
			cancel()
			continue
		}
		stats.Record(res.entry.ExitCode)

		if !r.opts.ContinueOnError && isRowFailure(res.entry.ExitCode) {
			fmt.Println("🛑 Stopping file due to error")
			cancel()
		}
	}
}

// processRow runs one row through validate → build → dispatch. A panic
// in a spec transformer is recorded as an exception entry rather than
// taking down the batch. recorded is false only when dispatch was cut
// short by cancellation; such rows must not reach the ledger.
func (r *Runner) processRow(ctx context.Context, row model.Row) (entry model.LedgerEntry, recorded bool) {
	entry = model.LedgerEntry{Fields: row}
	recorded = true
	defer func() {
		if rec := recover(); rec != nil {
			entry.ExitCode = model.ExitException
			entry.Message = fmt.Sprintf("Exception: %v", rec)
			recorded = true
		}
		entry.ProcessedAt = time.Now()
	}()

	if err := r.def.Validate(row); err != nil {
		entry.ExitCode = model.ExitValidationFailed
		entry.Message = fmt.Sprintf("Validation failed: %s", err.Error())
		return entry, true
	}

	query := r.def.Build(row)

	if r.opts.DryRun {
		entry.ExitCode = model.ExitDryRun
		entry.Message = model.DryRunMessage
		return entry, true
	}

	entry.ExitCode, entry.Message, recorded = r.dispatch(ctx, query)
	return entry, recorded
}

// isRowFailure reports whether a recorded code should trip
// --continue-on-error=false. Validation failures never stop the file.
func isRowFailure(code int) bool {
	switch code {
	case model.ExitSuccess, model.ExitDryRun, model.ExitValidationFailed:
		return false
	}
	return true
}

func (r *Runner) checkFilterColumns(header []string) error {
	if r.rowFilter == nil {
		return nil
	}
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[strings.TrimSpace(h)] = true
	}
	for _, col := range r.rowFilter.Columns() {
		if !present[col] {
			return fmt.Errorf("filter references unknown column %q", col)
		}
	}
	return nil
}

// readCSV loads the whole input file: trimmed header plus one Row per
// data line. Short records are padded with empty values.
func readCSV(path string) ([]string, []model.Row, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	rawHeader, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	header := make([]string, len(rawHeader))
	for i, h := range rawHeader {
		header[i] = strings.ReplaceAll(strings.TrimSpace(h), `"`, "")
	}

	var rows []model.Row
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("CSV read error: %w", err)
		}
		row := make(model.Row, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			} else {
				row[col] = ""
			}
		}
		rows = append(rows, row)
	}
	return header, rows, nil
}
