// Package logging provides structured logging for wifitracker.
//
// This package wraps the standard library's log/slog package. Components
// receive their logger through constructor options; Component is only the
// fallback used when a caller does not supply one.
//
// Usage:
//
//	// Initialize at startup
//	logging.Init(slog.LevelInfo, false)
//
//	// Get a component logger and hand it to a constructor
//	log := logging.Component("eventlog")
//	log.Error("unable to decode line", "file", path, "line", n)
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu     sync.RWMutex
	logger *slog.Logger
)

// Init initializes the default logger with the specified level and format.
// If jsonFormat is true, logs are output as JSON; otherwise, human-readable text.
// Logs go to stderr so that snapshot output on stdout stays machine-readable.
func Init(level slog.Level, jsonFormat bool) {
	InitWithHandler(newHandler(os.Stderr, level, jsonFormat))
}

// InitWithHandler initializes the default logger with a custom handler.
// This is useful for testing or custom output destinations.
func InitWithHandler(handler slog.Handler) {
	l := slog.New(handler)

	mu.Lock()
	logger = l
	mu.Unlock()

	slog.SetDefault(l)
}

// New returns a standalone logger writing to w. It does not touch the
// default logger.
func New(w io.Writer, level slog.Level, jsonFormat bool) *slog.Logger {
	return slog.New(newHandler(w, level, jsonFormat))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newHandler(w io.Writer, level slog.Level, jsonFormat bool) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	if jsonFormat {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func current() *slog.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()

	if l == nil {
		Init(slog.LevelInfo, false)
		mu.RLock()
		l = logger
		mu.RUnlock()
	}
	return l
}

// Component returns a logger for a specific component.
// The component name is added as an attribute to all log entries.
//
// Example:
//
//	log := logging.Component("vendor")
//	log.Warn("lookup failed") // Output: time=... level=WARN component=vendor msg="lookup failed"
func Component(name string) *slog.Logger {
	return current().With("component", name)
}

// OrComponent returns l if it is non-nil, otherwise the named component logger.
func OrComponent(l *slog.Logger, name string) *slog.Logger {
	if l != nil {
		return l.With("component", name)
	}
	return Component(name)
}

// ParseLevel parses a level name as used in config files.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
