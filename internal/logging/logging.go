// Package logging builds the structured loggers used across the server.
//
// Logs always go to stderr: on the stdio transport stdout carries protocol
// frames and must stay clean.
package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
)

const prefix = "editorconfig-mcp"

// New creates a logger writing to w at the named level
// (debug, info, warn, error).
func New(w io.Writer, level string) (*log.Logger, error) {
	lvl := log.InfoLevel
	if level != "" {
		parsed, err := log.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		lvl = parsed
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          prefix,
		Level:           lvl,
	})
	return logger, nil
}

// NewStderr is New writing to os.Stderr.
func NewStderr(level string) (*log.Logger, error) {
	return New(os.Stderr, level)
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// NewTestLogger creates a logger that writes to a buffer for testing.
func NewTestLogger() (*log.Logger, *bytes.Buffer) {
	var buf bytes.Buffer

	logger := log.NewWithOptions(&buf, log.Options{
		ReportTimestamp: false, // Easier to test without timestamps
		ReportCaller:    false,
		Prefix:          "Test",
		Level:           log.DebugLevel,
	})
	return logger, &buf
}

// FromContext returns the request-scoped logger stored in ctx, or fallback
// when there is none.
func FromContext(ctx context.Context, fallback *log.Logger) *log.Logger {
	if logger, ok := ctx.Value(log.ContextKey).(*log.Logger); ok {
		return logger
	}
	return fallback
}

// LogDuration records how long an operation took, at debug level.
func LogDuration(logger *log.Logger, operation string, start time.Time) {
	logger.Debug("Performance", "operation", operation, "duration", time.Since(start))
}
