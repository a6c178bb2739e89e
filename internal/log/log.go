// Package log provides structured logging for the timelapse control daemons.
// It wraps slog with sensible defaults for long-running unattended use.
package log

import (
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
)

var (
	logger *slog.Logger
	once   sync.Once
)

// Init initializes the global logger for the named daemon with the specified
// level. Valid levels: "debug", "info", "warn", "error".
// Every record carries the daemon name and a fresh run id so interleaved
// logs from the cooperating daemons can be told apart.
func Init(daemon, level string) {
	once.Do(func() {
		var lvl slog.Level
		switch level {
		case "debug":
			lvl = slog.LevelDebug
		case "warn":
			lvl = slog.LevelWarn
		case "error":
			lvl = slog.LevelError
		default:
			lvl = slog.LevelInfo
		}

		opts := &slog.HandlerOptions{
			Level: lvl,
		}

		// Use JSON in production, text in development
		var h slog.Handler
		if os.Getenv("GO_ENV") == "production" {
			h = slog.NewJSONHandler(os.Stderr, opts)
		} else {
			h = slog.NewTextHandler(os.Stderr, opts)
		}

		logger = slog.New(h).With(
			"daemon", daemon,
			"run_id", uuid.NewString(),
		)
		slog.SetDefault(logger)
	})
}

// L returns the global logger instance.
func L() *slog.Logger {
	if logger == nil {
		Init("tl", "info")
	}
	return logger
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	L().Debug(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	L().Info(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	L().Warn(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	L().Error(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *slog.Logger {
	return L().With(args...)
}
