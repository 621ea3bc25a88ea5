// Package store keeps a local sqlite history of batch runs so past runs
// can be inspected with `mgapi history` after result files move on.
package store

import (
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"mgapi/internal/model"
)

var db *sql.DB

// InitDB opens the run-history database, creating tables if needed.
func InitDB(dbPath string) error {
	var err error
	db, err = sql.Open("sqlite3", dbPath)
	if err != nil {
		return err
	}

	runTable := `
	CREATE TABLE IF NOT EXISTS batch_runs (
		id TEXT PRIMARY KEY,
		spec_type TEXT,
		files TEXT,
		status TEXT,
		stats TEXT,
		created_at DATETIME,
		updated_at DATETIME
	);
	`
	errorTable := `
	CREATE TABLE IF NOT EXISTS run_errors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT,
		error_message TEXT,
		created_at DATETIME
	);
	`

	if _, err := db.Exec(runTable); err != nil {
		return err
	}
	if _, err := db.Exec(errorTable); err != nil {
		return err
	}

	return nil
}

// Close closes the run-history database.
func Close() error {
	if db == nil {
		return nil
	}
	err := db.Close()
	db = nil
	return err
}

// SaveRun stores a new batch run.
func SaveRun(runID, specType string, files []string) error {
	now := time.Now().UTC()
	_, err := db.Exec(`INSERT INTO batch_runs (id, spec_type, files, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, specType, strings.Join(files, ","), "pending", now, now)
	return err
}

// UpdateRunStatus updates a run's status.
func UpdateRunStatus(runID, status string) error {
	now := time.Now().UTC()
	_, err := db.Exec(`UPDATE batch_runs SET status = ?, updated_at = ? WHERE id = ?`, status, now, runID)
	return err
}

// SaveRunStats records the final aggregate stats for a run.
func SaveRunStats(runID string, stats model.BatchStats) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = db.Exec(`UPDATE batch_runs SET stats = ?, updated_at = ? WHERE id = ?`, string(statsJSON), now, runID)
	return err
}

// SaveRunError records an error for a run.
func SaveRunError(runID string, err error) error {
	if err == nil {
		return nil
	}
	now := time.Now().UTC()
	_, e := db.Exec(`INSERT INTO run_errors (run_id, error_message, created_at) VALUES (?, ?, ?)`,
		runID, err.Error(), now)
	return e
}

// RunSummary is one row of the run history listing.
type RunSummary struct {
	ID        string    `json:"id"`
	SpecType  string    `json:"spec_type"`
	Files     string    `json:"files"`
	Status    string    `json:"status"`
	Stats     string    `json:"stats"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListRuns returns the most recent batch runs, newest first.
func ListRuns(limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.Query(`SELECT id, spec_type, files, status, COALESCE(stats, ''), created_at, updated_at
		FROM batch_runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.SpecType, &r.Files, &r.Status, &r.Stats, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
