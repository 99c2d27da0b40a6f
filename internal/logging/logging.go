// Package logging provides structured logging using Go's slog package.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/FocuswithJustin/taxonomist/core/taxonomy"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

const (
	// ParseIDKey is the context key for parse/import run ids.
	ParseIDKey ContextKey = "parse_id"
	// ProjectKey is the context key for the store project name.
	ProjectKey ContextKey = "project"
)

var (
	// defaultLogger is the global logger instance.
	defaultLogger *slog.Logger

	// output is where the global logger writes. Stdout is reserved for
	// rendered taxonomy text, so logs go to stderr.
	output io.Writer = os.Stderr
)

func init() {
	// Initialize with a default logger (text format, Warn level)
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

// ParseLevel maps a config string to a Level. Unknown values map to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// ParseFormat maps a config string to a Format. Unknown values map to FormatText.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), "json") {
		return FormatJSON
	}
	return FormatText
}

// SetOutput changes the destination of the global logger; nil restores stderr.
// It takes effect on the next InitLogger call.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	output = w
}

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
		handler = slog.NewJSONHandler(output, opts)
	} else {
		handler = slog.NewTextHandler(output, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// GetLogger returns the global logger instance.
func GetLogger() *slog.Logger {
	return defaultLogger
}

// WithParseID adds a parse run id to the context.
func WithParseID(ctx context.Context, parseID string) context.Context {
	return context.WithValue(ctx, ParseIDKey, parseID)
}

// GetParseID retrieves the parse run id from the context.
func GetParseID(ctx context.Context) string {
	if id, ok := ctx.Value(ParseIDKey).(string); ok {
		return id
	}
	return ""
}

// WithProject adds a project name to the context.
func WithProject(ctx context.Context, project string) context.Context {
	return context.WithValue(ctx, ProjectKey, project)
}

// GetProject retrieves the project name from the context.
func GetProject(ctx context.Context) string {
	if p, ok := ctx.Value(ProjectKey).(string); ok {
		return p
	}
	return ""
}

// LoggerFromContext returns a logger with context values attached.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	logger := defaultLogger
	if id := GetParseID(ctx); id != "" {
		logger = logger.With("parse_id", id)
	}
	if p := GetProject(ctx); p != "" {
		logger = logger.With("project", p)
	}
	return logger
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

// InfoContext logs an info message with context.
func InfoContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Info(msg, args...)
}

// WarnContext logs a warning message with context.
func WarnContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Warn(msg, args...)
}

// ErrorContext logs an error message with context.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	LoggerFromContext(ctx).Error(msg, args...)
}

// ParseSummary logs the outcome of parsing one source file.
func ParseSummary(ctx context.Context, source string, entries, others, warnings, errors int, duration time.Duration, args ...any) {
	allArgs := []any{
		"source", source,
		"entries", entries,
		"other_nodes", others,
		"warnings", warnings,
		"errors", errors,
		"duration_ms", duration.Milliseconds(),
	}
	allArgs = append(allArgs, args...)
	LoggerFromContext(ctx).Info("parse_summary", allArgs...)
}

// StoreOperation logs a batch write against the graph store.
func StoreOperation(ctx context.Context, operation string, requested, created int, args ...any) {
	allArgs := []any{
		"operation", operation,
		"requested", requested,
		"created", created,
	}
	allArgs = append(allArgs, args...)
	LoggerFromContext(ctx).Debug("store_operation", allArgs...)
}

// RenderSummary logs a canonical or patch rendering.
func RenderSummary(ctx context.Context, mode string, nodes, lines int, args ...any) {
	allArgs := []any{
		"mode", mode,
		"nodes", nodes,
		"lines", lines,
	}
	allArgs = append(allArgs, args...)
	LoggerFromContext(ctx).Info("render_summary", allArgs...)
}

// Diagnostic logs a parse, load or render diagnostic at the level its
// severity calls for.
func Diagnostic(ctx context.Context, stage string, d taxonomy.Diagnostic) {
	args := []any{"stage", stage, "line", d.Line, "node", d.NodeID, "error", d.Err}
	if d.Severity == taxonomy.SeverityError {
		LoggerFromContext(ctx).Error("taxonomy_diagnostic", args...)
		return
	}
	LoggerFromContext(ctx).Warn("taxonomy_diagnostic", args...)
}
