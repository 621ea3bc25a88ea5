// Package logging provides the client's leveled file logger. Console
// output is handled separately by the commands; the log file keeps a
// rotating history of every run.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger writes timestamped, leveled lines to a rotating log file.
type Logger struct {
	sink *lumberjack.Logger
}

// NewLogger creates a logger writing to the given path. Parent
// directories are created as needed.
func NewLogger(path string) (*Logger, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	return &Logger{
		sink: &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
		},
	}, nil
}

// Log writes one log line with timestamp and level.
func (l *Logger) Log(level string, format string, args ...interface{}) {
	if l == nil || l.sink == nil {
		return
	}
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	message := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("[%s] [%s] %s\n", timestamp, strings.ToUpper(level), message)
	if _, err := l.sink.Write([]byte(line)); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write to log: %v\n", err)
	}
}

// Debug logs debug information.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.Log("debug", format, args...)
}

// Info logs informational messages.
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log("info", format, args...)
}

// Warn logs warning messages.
func (l *Logger) Warn(format string, args ...interface{}) {
	l.Log("warn", format, args...)
}

// Error logs error messages.
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log("error", format, args...)
}

// Close closes the underlying log file.
func (l *Logger) Close() error {
	if l == nil || l.sink == nil {
		return nil
	}
	return l.sink.Close()
}
