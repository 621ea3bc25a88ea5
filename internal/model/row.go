package model

import "strings"

// keySep joins identifying column values into a resume key. A unit
// separator cannot appear in CSV cell values produced by this tool.
const keySep = "\x1f"

// Row is a single CSV line keyed by column name. Immutable once read.
type Row map[string]string

// Key derives the resume identity of a row from its identifying columns.
// Returns "" when any identifying column is empty, meaning the row cannot
// be deduplicated and is always reprocessed.
func (r Row) Key(columns []string) string {
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		v := r[col]
		if v == "" {
			return ""
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, keySep)
}

// Get returns the trimmed value of a column.
func (r Row) Get(col string) string {
	return strings.TrimSpace(r[col])
}
