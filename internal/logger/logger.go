package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Type alias for slog.Level for easier usage
type Level = slog.Level

const (
	LevelTrace   = slog.Level(-8)
	LevelDebug   = slog.LevelDebug // -4
	LevelInfo    = slog.LevelInfo  // 0
	LevelWarning = slog.LevelWarn  // 4
	LevelError   = slog.LevelError // 8
	LevelFatal   = slog.Level(12)  // 12
)

var (
	current      atomic.Pointer[slog.Logger]
	programLevel = new(slog.LevelVar)

	mu      sync.Mutex
	logFile io.Closer // non-nil while logging to a rotating file
)

// Counters for the metrics endpoint
var (
	TotalErrors    atomic.Int64
	TotalWarnings  atomic.Int64
	Total5xxErrors atomic.Int64
	Total4xxErrors atomic.Int64
	Total400Errors atomic.Int64
	Total404Errors atomic.Int64
	Total503Errors atomic.Int64
)

// Options controls where and how log records are written.
type Options struct {
	Level  string // trace, debug, info, warn, error
	Format string // json, text or discard
	// File, when set, receives logs through a size-rotated writer in
	// addition to stdout.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

func init() {
	// Verbose until Setup says otherwise.
	programLevel.Set(LevelDebug)
	l := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: programLevel}))
	current.Store(l)
	slog.SetDefault(l)
}

// L returns the process logger. Safe to call while Setup runs.
func L() *slog.Logger {
	return current.Load()
}

// Setup replaces the process logger according to opts.
func Setup(opts Options) error {
	level := LevelDebug
	if opts.Level != "" {
		parsed, err := ParseLevel(opts.Level)
		if err != nil {
			return err
		}
		level = parsed
	}
	programLevel.Set(level)

	var out io.Writer = os.Stdout
	var closer io.Closer
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		}
		out = io.MultiWriter(os.Stdout, rotator)
		closer = rotator
	}

	handlerOpts := &slog.HandlerOptions{Level: programLevel}
	var handler slog.Handler
	switch strings.ToLower(opts.Format) {
	case "", "json":
		handler = slog.NewJSONHandler(out, handlerOpts)
	case "text":
		handler = slog.NewTextHandler(out, handlerOpts)
	case "discard":
		handler = slog.NewTextHandler(io.Discard, handlerOpts)
	default:
		if closer != nil {
			_ = closer.Close()
		}
		return fmt.Errorf("unknown log format: %s (expected json, text or discard)", opts.Format)
	}

	mu.Lock()
	previous := logFile
	logFile = closer
	l := slog.New(handler)
	current.Store(l)
	slog.SetDefault(l)
	mu.Unlock()

	if previous != nil {
		_ = previous.Close()
	}
	return nil
}

// Shutdown flushes and closes the rotating log file, if any.
// Call this during application shutdown
func Shutdown(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// SetLevel sets the minimum log level for the logger
func SetLevel(level slog.Level) {
	programLevel.Set(level)
}

// GetLevel returns the current minimum log level
func GetLevel() slog.Level {
	return programLevel.Level()
}

// ParseLevel converts a string level name to slog.Level
func ParseLevel(levelStr string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(levelStr)) {
	case "TRACE":
		return LevelTrace, nil
	case "DEBUG":
		return LevelDebug, nil
	case "INFO":
		return LevelInfo, nil
	case "WARN", "WARNING":
		return LevelWarning, nil
	case "ERROR":
		return LevelError, nil
	case "FATAL":
		return LevelFatal, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level: %s", levelStr)
	}
}

// ============================================================================
// Logging Functions
// ============================================================================

// Trace logs a trace-level message
func Trace(msg string, args ...any) {
	L().Log(context.Background(), LevelTrace, msg, args...)
}

// Debug logs a debug-level message
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Info logs an info-level message
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn logs a warning-level message and counts it
func Warn(msg string, args ...any) {
	TotalWarnings.Add(1)
	L().Warn(msg, args...)
}

// Error logs an error-level message and counts it
func Error(msg string, args ...any) {
	TotalErrors.Add(1)
	L().Error(msg, args...)
}

// Fatal logs a fatal-level message and exits with status 1
func Fatal(msg string, args ...any) {
	L().Log(context.Background(), LevelFatal, msg, args...)
	_ = Shutdown(context.Background())
	os.Exit(1)
}

// ============================================================================
// HTTP-Specific Helpers
// ============================================================================

// ErrorHttp5xx increments the 5xx counters
func ErrorHttp5xx(status int) {
	Total5xxErrors.Add(1)
	TotalErrors.Add(1)
	if status == 503 {
		Total503Errors.Add(1)
	}
}

// WarnHttp4xx increments the 4xx counters
func WarnHttp4xx(status int) {
	Total4xxErrors.Add(1)
	TotalWarnings.Add(1)

	// Track specific common 4xx codes
	switch status {
	case 400:
		Total400Errors.Add(1)
	case 404:
		Total404Errors.Add(1)
	}
}
