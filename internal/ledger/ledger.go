// Package ledger owns the on-disk results of a batch run. Each input
// file gets a sibling <stem>.result.csv holding the original columns plus
// exit_code, message, and processed_at. During a run entries are appended
// and flushed one by one so a crash never loses a completed row; at the
// end the file is rewritten in stable row order via a temp file rename.
package ledger

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"mgapi/internal/model"
)

// Result column names appended after the original CSV columns.
var resultColumns = []string{"exit_code", "message", "processed_at"}

// ResultPath returns the result file path for an input CSV:
// users.csv → users.result.csv, in the same directory.
func ResultPath(inputPath string) string {
	dir := filepath.Dir(inputPath)
	base := filepath.Base(inputPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+".result.csv")
}

// Ledger manages the result file for one input file. Append is not
// goroutine-safe; the orchestrator funnels all appends through a single
// recording goroutine.
type Ledger struct {
	inputPath  string
	resultPath string
	header     []string
	keyColumns []string

	prior   []model.LedgerEntry // entries loaded from an existing result file
	entries []appendedEntry     // entries appended during this run

	file *os.File
	w    *csv.Writer
}

type appendedEntry struct {
	index int // input row index, for stable ordering at finalize
	entry model.LedgerEntry
}

// New creates a ledger for one input file. header is the input CSV header
// without the result columns; keyColumns are the identifying columns used
// for resume deduplication.
func New(inputPath string, header, keyColumns []string) *Ledger {
	return &Ledger{
		inputPath:  inputPath,
		resultPath: ResultPath(inputPath),
		header:     header,
		keyColumns: keyColumns,
	}
}

// ResultPath returns the path this ledger writes to.
func (l *Ledger) ResultPath() string { return l.resultPath }

// Open prepares the result file for appending. When resuming, prior
// entries are kept and the file is opened append-only so a crash cannot
// lose them. Otherwise — including a resume that finds no usable prior
// entries — any existing result file is backed up first and a fresh file
// with a header is created; a failed backup aborts the file.
func (l *Ledger) Open(resume bool) error {
	if resume {
		if err := l.loadPrior(); err != nil {
			return err
		}
		if len(l.prior) > 0 {
			file, err := os.OpenFile(l.resultPath, os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return fmt.Errorf("failed to open result file for resume: %w", err)
			}
			l.file = file
			l.w = csv.NewWriter(file)
			return nil
		}
		// No usable prior results; fall through to a fresh file. The
		// existing file still gets backed up before being truncated.
	}

	if _, err := l.BackupIfExists(); err != nil {
		return err
	}

	file, err := os.Create(l.resultPath)
	if err != nil {
		return fmt.Errorf("failed to create result file: %w", err)
	}
	l.file = file
	l.w = csv.NewWriter(file)

	if err := l.w.Write(append(append([]string{}, l.header...), resultColumns...)); err != nil {
		return fmt.Errorf("failed to write result header: %w", err)
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		return err
	}
	return file.Sync()
}

// BackupIfExists copies an existing result file aside with a timestamp
// suffix before it gets overwritten. Returns the backup path, or "" when
// there was nothing to back up.
func (l *Ledger) BackupIfExists() (string, error) {
	if _, err := os.Stat(l.resultPath); os.IsNotExist(err) {
		return "", nil
	}

	backupPath := fmt.Sprintf("%s.backup.%s", l.resultPath, time.Now().Format("20060102_150405"))
	src, err := os.Open(l.resultPath)
	if err != nil {
		return "", fmt.Errorf("failed to back up result file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(backupPath)
	if err != nil {
		return "", fmt.Errorf("failed to back up result file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return "", fmt.Errorf("failed to back up result file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return "", fmt.Errorf("failed to back up result file: %w", err)
	}

	fmt.Printf("💾 Backed up existing result to: %s\n", backupPath)
	return backupPath, nil
}

// Processed returns the resume view of prior entries: row key → entry,
// for entries with a terminal exit code. On duplicate keys the last
// entry wins.
func (l *Ledger) Processed(dryRun bool) map[string]model.LedgerEntry {
	processed := make(map[string]model.LedgerEntry)
	for _, e := range l.prior {
		if !e.Terminal(dryRun) {
			continue
		}
		key := e.Fields.Key(l.keyColumns)
		if key == "" {
			continue
		}
		processed[key] = e
	}
	return processed
}

// Append journals one completed row. The write is flushed before Append
// returns so an interrupt leaves every recorded row on disk.
func (l *Ledger) Append(index int, e model.LedgerEntry) error {
	if err := l.w.Write(l.record(e)); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	l.w.Flush()
	if err := l.w.Error(); err != nil {
		return fmt.Errorf("failed to append ledger entry: %w", err)
	}
	l.entries = append(l.entries, appendedEntry{index: index, entry: e})
	return l.file.Sync()
}

// Finalize rewrites the result file in stable order: prior entries first
// (their original order), then this run's entries in input row order. The
// rewrite goes through a temp file and a rename so the journal written
// during the run is never corrupted in place.
func (l *Ledger) Finalize() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	sort.SliceStable(l.entries, func(i, j int) bool {
		return l.entries[i].index < l.entries[j].index
	})

	tmp, err := os.CreateTemp(filepath.Dir(l.resultPath), filepath.Base(l.resultPath)+".tmp")
	if err != nil {
		return fmt.Errorf("failed to finalize result file: %w", err)
	}
	w := csv.NewWriter(tmp)

	if err := w.Write(append(append([]string{}, l.header...), resultColumns...)); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to finalize result file: %w", err)
	}

	// Prior entries reprocessed this run (e.g. dry-run entries on a real
	// run) are superseded by the new entry with the same key.
	superseded := make(map[string]bool, len(l.entries))
	for _, ae := range l.entries {
		if key := ae.entry.Fields.Key(l.keyColumns); key != "" {
			superseded[key] = true
		}
	}

	for _, e := range l.prior {
		if key := e.Fields.Key(l.keyColumns); key != "" && superseded[key] {
			continue
		}
		if err := w.Write(l.record(e)); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to finalize result file: %w", err)
		}
	}
	for _, ae := range l.entries {
		if err := w.Write(l.record(ae.entry)); err != nil {
			tmp.Close()
			return fmt.Errorf("failed to finalize result file: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to finalize result file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to finalize result file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to finalize result file: %w", err)
	}

	if err := os.Rename(tmp.Name(), l.resultPath); err != nil {
		return fmt.Errorf("failed to finalize result file: %w", err)
	}
	return nil
}

// Close releases the journal file handle without finalizing.
func (l *Ledger) Close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Ledger) record(e model.LedgerEntry) []string {
	rec := make([]string, 0, len(l.header)+len(resultColumns))
	for _, col := range l.header {
		rec = append(rec, e.Fields[col])
	}
	rec = append(rec,
		strconv.Itoa(e.ExitCode),
		e.Message,
		e.ProcessedAt.Format(model.ProcessedAtLayout),
	)
	return rec
}

// loadPrior reads an existing result file. Rows with an empty or
// unparseable exit_code are ignored; they were never recorded as done.
func (l *Ledger) loadPrior() error {
	file, err := os.Open(l.resultPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load result file: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read result file header: %w", err)
	}

	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[strings.TrimSpace(h)] = i
	}
	for _, col := range resultColumns {
		if _, ok := colIdx[col]; !ok {
			return fmt.Errorf("result file %s is missing column %q", l.resultPath, col)
		}
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read result file: %w", err)
		}

		get := func(col string) string {
			i := colIdx[col]
			if i >= len(rec) {
				return ""
			}
			return rec[i]
		}

		code, err := strconv.Atoi(strings.TrimSpace(get("exit_code")))
		if err != nil {
			continue
		}

		fields := make(model.Row, len(l.header))
		for _, col := range l.header {
			if i, ok := colIdx[col]; ok && i < len(rec) {
				fields[col] = rec[i]
			}
		}

		processedAt, _ := time.Parse(model.ProcessedAtLayout, get("processed_at"))
		l.prior = append(l.prior, model.LedgerEntry{
			Fields:      fields,
			ExitCode:    code,
			Message:     get("message"),
			ProcessedAt: processedAt,
		})
	}
	return nil
}
