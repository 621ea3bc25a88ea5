package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ParseDuration safely parses a duration string like "30s", falling back
// to the given default on empty or malformed input.
func ParseDuration(d string, fallback time.Duration) time.Duration {
	if d == "" {
		return fallback
	}
	duration, err := time.ParseDuration(d)
	if err != nil {
		return fallback
	}
	return duration
}

// Numeric reports whether a string parses as a number, and its value.
func Numeric(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}

// ExpandGlobs expands file arguments that may contain wildcard patterns.
// Plain paths must exist; patterns that match nothing are skipped with a
// warning. An empty final list is an error.
func ExpandGlobs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		if strings.ContainsAny(arg, "*?[") {
			matches, err := filepath.Glob(arg)
			if err != nil {
				return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
			}
			if len(matches) == 0 {
				fmt.Printf("⚠️ No files matched pattern: %s\n", arg)
				continue
			}
			files = append(files, matches...)
			continue
		}
		if _, err := os.Stat(arg); err != nil {
			return nil, fmt.Errorf("file not found: %s", arg)
		}
		files = append(files, arg)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no CSV files to process")
	}
	return files, nil
}
