package model

import "time"

// ProcessedAtLayout is the locale-independent timestamp format used in
// result files.
const ProcessedAtLayout = "2006-01-02 15:04:05.000000"

// LedgerEntry is one processed row plus its outcome.
type LedgerEntry struct {
	Fields      Row       `json:"fields"`
	ExitCode    int       `json:"exit_code"`
	Message     string    `json:"message"`
	ProcessedAt time.Time `json:"processed_at"`
}

// Terminal reports whether this entry counts as already satisfied for a
// resume. Dry-run entries are only terminal when the new run is itself a
// dry run; a real run reprocesses them.
func (e LedgerEntry) Terminal(dryRun bool) bool {
	if e.ExitCode == ExitDryRun {
		return dryRun
	}
	return true
}
