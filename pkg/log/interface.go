// Package log provides the structured logging interface used across riskml.
//
// The Logger interface is slog-compatible so the backend can be swapped
// without touching estimator code. The default backend is zerolog; tests
// use TestLogger to capture JSON lines in memory.
//
//	logger := log.GetLoggerWithName("selection").With(log.ModelNameKey, "Logit")
//	logger.Info("adding feature",
//	    log.FeatureKey, "DEBTINC",
//	    log.PValueKey, 1.2e-9,
//	)
package log

import (
	"context"
)

// Logger defines a structured logging interface compatible with log/slog.
//
// Fields are passed as alternating key/value pairs. When an error value is
// passed to Error as the first field it is logged under the "error" key.
type Logger interface {
	// Debug logs detailed diagnostic information.
	Debug(msg string, fields ...any)

	// Info logs general progress, e.g. a feature entering the model.
	Info(msg string, fields ...any)

	// Warn logs conditions that do not stop the computation.
	Warn(msg string, fields ...any)

	// Error logs failures.
	Error(msg string, fields ...any)

	// With returns a Logger that adds fields to every record.
	With(fields ...any) Logger

	// Enabled reports whether records at level would be emitted.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, compatible with slog.Level.
type Level int

// Standard logging levels, values are compatible with slog.Level.
const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates loggers. It is the injection point for tests.
type LoggerProvider interface {
	// GetLogger returns the default logger instance.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name.
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum level for all loggers of this provider.
	SetLevel(level Level)
}
