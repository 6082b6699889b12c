package common

import (
	"context"
	"fmt"
	"os"
	"time"
)

// GameLogger provides structured logging for request handlers and the tick loop
type GameLogger interface {
	Log(level, message string, metadata map[string]interface{})
}

// Context keys for passing logger through context
type contextKey int

const (
	loggerKey contextKey = iota
)

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, logger GameLogger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext extracts the logger from context, or returns a no-op logger if not found
func LoggerFromContext(ctx context.Context) GameLogger {
	if logger, ok := ctx.Value(loggerKey).(GameLogger); ok {
		return logger
	}
	return &noOpLogger{}
}

// noOpLogger is a logger that does nothing (fallback when no logger in context)
type noOpLogger struct{}

func (l *noOpLogger) Log(level, message string, metadata map[string]interface{}) {
	// Do nothing
}

// StdoutLogger writes one line per entry to stdout
type StdoutLogger struct{}

// NewStdoutLogger creates the daemon's default logger
func NewStdoutLogger() *StdoutLogger {
	return &StdoutLogger{}
}

func (l *StdoutLogger) Log(level, message string, metadata map[string]interface{}) {
	if len(metadata) == 0 {
		fmt.Fprintf(os.Stdout, "%s [%s] %s\n", time.Now().UTC().Format(time.RFC3339), level, message)
		return
	}
	fmt.Fprintf(os.Stdout, "%s [%s] %s %v\n", time.Now().UTC().Format(time.RFC3339), level, message, metadata)
}
