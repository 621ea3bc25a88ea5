package model

// FileStats counts row outcomes for a single input file.
type FileStats struct {
	Total            int `json:"total"`
	Success          int `json:"success"`
	Failed           int `json:"failed"`
	ValidationFailed int `json:"validation_failed"`
	NoResponse       int `json:"no_response"`
	Exception        int `json:"exception"`
	DryRun           int `json:"dry_run"`
	Skipped          int `json:"skipped"`
}

// Record tallies one recorded exit code.
func (s *FileStats) Record(exitCode int) {
	switch {
	case exitCode == ExitSuccess:
		s.Success++
	case exitCode == ExitNoResponse:
		s.NoResponse++
	case exitCode == ExitValidationFailed:
		s.ValidationFailed++
	case exitCode == ExitException:
		s.Exception++
	case exitCode == ExitDryRun:
		s.DryRun++
	default:
		s.Failed++
	}
}

// RowFailures returns the number of rows that ended in any failure code.
func (s FileStats) RowFailures() int {
	return s.Failed + s.ValidationFailed + s.NoResponse + s.Exception
}

// BatchStats aggregates outcomes across all files of a batch run.
type BatchStats struct {
	FilesProcessed int       `json:"files_processed"`
	FilesFailed    int       `json:"files_failed"`
	Rows           FileStats `json:"rows"`
}

// Add folds one file's stats into the batch totals.
func (b *BatchStats) Add(s FileStats) {
	b.FilesProcessed++
	b.Rows.Total += s.Total
	b.Rows.Success += s.Success
	b.Rows.Failed += s.Failed
	b.Rows.ValidationFailed += s.ValidationFailed
	b.Rows.NoResponse += s.NoResponse
	b.Rows.Exception += s.Exception
	b.Rows.DryRun += s.DryRun
	b.Rows.Skipped += s.Skipped
}

// ExitCode computes the process-level exit code: 0 when every row
// succeeded or was a dry run, 1 on any row-level failure, 2 on any
// file-level failure. File-level outranks row-level.
func (b BatchStats) ExitCode() int {
	if b.FilesFailed > 0 {
		return 2
	}
	if b.Rows.RowFailures() > 0 {
		return 1
	}
	return 0
}
