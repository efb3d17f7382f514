// Package logger provides a structured, module-aware logging system built on Go's standard log/slog.
//
// Components never construct slog handlers themselves. They receive a Logger
// (usually through a package level GetLogger helper that scopes the global
// CentralLogger to a module name) and log with typed fields:
//
//	log := logger.Global().Module("monitor")
//	log.Info("Detection",
//	    logger.String("device", "Tetra Mobile"),
//	    logger.Float64("power_dbfs", -41.2))
//
// Console output uses a human-readable text format without timestamps, the
// optional log file uses JSON with RFC3339 timestamps for machine parsing.
//
// # Module Scoping
//
// Module loggers nest, the module attribute joins the names with a dot:
//
//	acqLogger := centralLogger.Module("acquisition")
//	rtlLogger := acqLogger.Module("rtlsdr")
//	rtlLogger.Debug("Stream started") // module="acquisition.rtlsdr"
//
// # Testing
//
// Use NewSlogLogger with a buffer to assert on output, or io.Discard to keep
// tests silent:
//
//	buf := &bytes.Buffer{}
//	testLogger := logger.NewSlogLogger(buf, logger.LogLevelDebug, time.UTC)
package logger

import (
	"context"
	"time"
	"unique"
)

// LogLevel represents log severity levels
type LogLevel string

const (
	LogLevelTrace LogLevel = "trace"
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// Field represents a structured log field.
// Keys are interned using unique.Make() so repeated keys share one allocation.
type Field struct {
	Key   string
	Value any
}

// internKey returns an interned version of the key string.
func internKey(key string) string {
	return unique.Make(key).Value()
}

// Pre-interned common keys
var (
	errorKey   = internKey("error")
	moduleKey  = internKey("module")
	traceIDKey = internKey("trace_id")
)

// Logger is the centralized logging interface for dependency injection
type Logger interface {
	// Module returns a logger scoped to a specific module
	Module(name string) Logger

	// Leveled logging methods
	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// Context-aware logging
	With(fields ...Field) Logger
	WithContext(ctx context.Context) Logger

	// Log with explicit level
	Log(level LogLevel, msg string, fields ...Field)

	// Flush ensures all buffered logs are written
	Flush() error
}

// String creates a string field for structured logging.
func String(key, value string) Field {
	return Field{Key: internKey(key), Value: value}
}

// Int creates an integer field for structured logging.
//
// Use this for counts, device indices, sizes and similar values.
func Int(key string, value int) Field {
	return Field{Key: internKey(key), Value: value}
}

// Int64 creates a 64-bit integer field for structured logging.
func Int64(key string, value int64) Field {
	return Field{Key: internKey(key), Value: value}
}

// Uint64 creates an unsigned 64-bit integer field for structured logging.
func Uint64(key string, value uint64) Field {
	return Field{Key: internKey(key), Value: value}
}

// Float64 creates a 64-bit float field for structured logging.
//
// Values are rounded to three decimal places when written, which keeps power
// readings like -63.12345678 readable in both console and JSON output.
func Float64(key string, value float64) Field {
	return Field{Key: internKey(key), Value: value}
}

// Bool creates a boolean field for structured logging.
func Bool(key string, value bool) Field {
	return Field{Key: internKey(key), Value: value}
}

// Error creates an error field for structured logging.
//
// The field key is always "error". If err is nil, the value will be nil.
//
// Example:
//
//	if err := sink.Emit(ctx, event); err != nil {
//	    log.Warn("Event sink failed",
//	        logger.Error(err),
//	        logger.String("sink", sink.Name()))
//	}
func Error(err error) Field {
	if err == nil {
		return Field{Key: errorKey, Value: nil}
	}
	return Field{Key: errorKey, Value: err.Error()}
}

// Duration creates a duration field for structured logging.
// The duration is written in its string form (e.g., "1.5s", "200ms").
func Duration(key string, value time.Duration) Field {
	return Field{Key: internKey(key), Value: value}
}

// Time creates a time field for structured logging.
func Time(key string, value time.Time) Field {
	return Field{Key: internKey(key), Value: value}
}

// Any creates a field with any value for structured logging.
//
// Use this for complex types that will be serialized by the handler.
// Prefer the typed constructors when the value type is known.
func Any(key string, value any) Field {
	return Field{Key: internKey(key), Value: value}
}
