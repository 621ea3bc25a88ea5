// Package spec holds the pluggable row transformers that turn CSV rows
// into remote commands. A spec type is registered under a name and
// provides validation plus query construction; new variants plug in
// without touching the batch orchestrator.
package spec

import (
	"fmt"
	"sort"
	"strings"

	"mgapi/internal/model"
)

// ErrUnknown is returned by Resolve for unregistered spec types.
var ErrUnknown = fmt.Errorf("unknown spec type")

// ValidationError describes why a row failed client-side validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Definition is one registered spec type.
type Definition struct {
	Name            string
	RequiredColumns []string
	OptionalColumns []string

	// Validate checks one row. Returns a *ValidationError on failure.
	// Build may only be called after Validate succeeds.
	Validate func(row model.Row) error
	Build    func(row model.Row) model.RemoteQuery
}

// MissingColumns returns the required columns absent from a CSV header.
func (d *Definition) MissingColumns(header []string) []string {
	present := make(map[string]bool, len(header))
	for _, h := range header {
		present[strings.TrimSpace(h)] = true
	}
	var missing []string
	for _, col := range d.RequiredColumns {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	return missing
}

// checkRequired is the shared presence/non-emptiness check.
func (d *Definition) checkRequired(row model.Row) error {
	for _, col := range d.RequiredColumns {
		if row.Get(col) == "" {
			return &ValidationError{Field: col, Reason: fmt.Sprintf("Missing required field: %s", col)}
		}
	}
	return nil
}

var registry = map[string]*Definition{}

// Register adds a spec type. Panics on duplicate names; registration
// happens at init time only.
func Register(def *Definition) {
	if _, ok := registry[def.Name]; ok {
		panic(fmt.Sprintf("spec type %q registered twice", def.Name))
	}
	registry[def.Name] = def
}

// Resolve looks up a spec type by name.
func Resolve(name string) (*Definition, error) {
	def, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknown, name, strings.Join(Types(), ", "))
	}
	return def, nil
}

// Types returns all registered spec type names, sorted.
func Types() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
