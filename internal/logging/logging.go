// Package logging provides structured logging using Go's slog package.
package logging

import (
	"log/slog"
	"os"
	"time"
)

var (
	// defaultLogger is the global logger instance.
	defaultLogger *slog.Logger
)

func init() {
	// Initialize with a default logger (text format, Warn level).
	// A library consumer translating user scores should not see chatter
	// unless something is actually wrong.
	InitLogger(LevelWarn, FormatText)
}

// Level represents a log level.
type Level int

const (
	// LevelDebug is for debug messages.
	LevelDebug Level = iota
	// LevelInfo is for informational messages.
	LevelInfo
	// LevelWarn is for warning messages.
	LevelWarn
	// LevelError is for error messages.
	LevelError
)

// Format represents a log output format.
type Format int

const (
	// FormatJSON outputs logs in JSON format.
	FormatJSON Format = iota
	// FormatText outputs logs in human-readable text format.
	FormatText
)

// InitLogger initializes the global logger with the specified level and format.
func InitLogger(level Level, format Format) {
	var slogLevel slog.Level
	switch level {
	case LevelDebug:
		slogLevel = slog.LevelDebug
	case LevelInfo:
		slogLevel = slog.LevelInfo
	case LevelWarn:
		slogLevel = slog.LevelWarn
	case LevelError:
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: slogLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Customize timestamp format
			if a.Key == slog.TimeKey {
				return slog.String(slog.TimeKey, a.Value.Time().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if format == FormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// GetLogger returns the global logger instance.
func GetLogger() *slog.Logger {
	return defaultLogger
}

// Helper functions for common logging patterns

// Debug logs a debug message with optional key-value pairs.
func Debug(msg string, args ...any) {
	defaultLogger.Debug(msg, args...)
}

// Info logs an info message with optional key-value pairs.
func Info(msg string, args ...any) {
	defaultLogger.Info(msg, args...)
}

// Warn logs a warning message with optional key-value pairs.
func Warn(msg string, args ...any) {
	defaultLogger.Warn(msg, args...)
}

// Error logs an error message with optional key-value pairs.
func Error(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
}

// CacheEvent logs document-cache activity (hit, miss, write, corrupt).
func CacheEvent(event, source, artifact string, args ...any) {
	allArgs := []any{
		"event", event,
		"source", source,
		"artifact", artifact,
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Debug("cache_event", allArgs...)
}

// CacheVersionMismatch logs a cache artifact written by a different engine
// version. The artifact is still used; this is informational only.
func CacheVersionMismatch(artifact, artifactVersion, engineVersion string) {
	defaultLogger.Warn("cache_version_mismatch",
		"artifact", artifact,
		"artifact_version", artifactVersion,
		"engine_version", engineVersion,
	)
}

// RecoveredInput logs malformed-but-recoverable content together with the
// fallback that was applied (e.g. an unmatched spanner stop dropped).
func RecoveredInput(what, fallback string, args ...any) {
	allArgs := []any{
		"what", what,
		"fallback", fallback,
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Warn("recovered_input", allArgs...)
}

// TranslationError logs a fatal per-element translation failure with its
// part/measure localization.
func TranslationError(partID, measure string, err error, args ...any) {
	allArgs := []any{
		"part", partID,
		"measure", measure,
		"error", err.Error(),
	}
	allArgs = append(allArgs, args...)
	defaultLogger.Error("translation_error", allArgs...)
}
