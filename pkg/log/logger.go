// Package log provides a structured logging interface for priceml operations.
//
// The package defines a minimal, slog-compatible logging interface backed by
// zerolog. Loggers accept alternating key-value fields, mirroring log/slog:
//
//	logger := log.GetLoggerWithName("linear.ridge")
//	logger.Info("Training completed", "samples", 1000, "features", 15)
package log

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// Logger defines a structured logging interface compatible with Go's log/slog.
//
// Fields are alternating key-value pairs; keys must be strings. The interface
// is implementation-agnostic so tests can swap in a capturing logger.
type Logger interface {
	// Debug logs a debug-level message with optional structured fields.
	Debug(msg string, fields ...any)

	// Info logs an info-level message with optional structured fields.
	Info(msg string, fields ...any)

	// Warn logs a warning-level message with optional structured fields.
	Warn(msg string, fields ...any)

	// Error logs an error-level message with optional structured fields.
	// If the first field is an error it is attached under the "error" key.
	Error(msg string, fields ...any)

	// With returns a new Logger with the given fields pre-populated.
	With(fields ...any) Logger

	// Enabled reports whether the logger emits records at the given level.
	Enabled(ctx context.Context, level Level) bool
}

// Level represents a logging level, value-compatible with slog.Level.
type Level int

// Standard logging levels.
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

func (l Level) zerolog() zerolog.Level {
	switch {
	case l <= LevelDebug:
		return zerolog.DebugLevel
	case l <= LevelInfo:
		return zerolog.InfoLevel
	case l <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

var (
	mu     sync.RWMutex
	root   = newZerologLogger(zerolog.New(os.Stderr).With().Timestamp().Logger())
	global Logger
)

// SetLogger replaces the process-wide default logger.
func SetLogger(l Logger) {
	mu.Lock()
	defer mu.Unlock()
	global = l
}

// SetLevel sets the minimum level emitted by the default zerolog backend.
func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	root = newZerologLogger(root.zl.Level(level.zerolog()))
	global = nil
}

// SetOutput redirects the default zerolog backend, e.g. to a console writer.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	root = newZerologLogger(zerolog.New(w).With().Timestamp().Logger())
	global = nil
}

// GetLogger returns the default logger instance.
func GetLogger() Logger {
	mu.RLock()
	defer mu.RUnlock()
	if global != nil {
		return global
	}
	return root
}

// GetLoggerWithName returns a logger tagged with a component identifier.
func GetLoggerWithName(name string) Logger {
	return GetLogger().With("component", name)
}

// zerologLogger adapts a zerolog.Logger to the Logger interface.
type zerologLogger struct {
	zl zerolog.Logger
}

func newZerologLogger(zl zerolog.Logger) *zerologLogger {
	return &zerologLogger{zl: zl}
}

func (l *zerologLogger) Debug(msg string, fields ...any) { l.emit(l.zl.Debug(), msg, fields) }
func (l *zerologLogger) Info(msg string, fields ...any)  { l.emit(l.zl.Info(), msg, fields) }
func (l *zerologLogger) Warn(msg string, fields ...any)  { l.emit(l.zl.Warn(), msg, fields) }

func (l *zerologLogger) Error(msg string, fields ...any) {
	ev := l.zl.Error()
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			ev = ev.Err(err)
			fields = fields[1:]
		}
	}
	l.emit(ev, msg, fields)
}

func (l *zerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	for k, v := range pairs(fields) {
		ctx = ctx.Interface(k, v)
	}
	return newZerologLogger(ctx.Logger())
}

func (l *zerologLogger) Enabled(_ context.Context, level Level) bool {
	return level.zerolog() >= l.zl.GetLevel()
}

func (l *zerologLogger) emit(ev *zerolog.Event, msg string, fields []any) {
	for k, v := range pairs(fields) {
		switch val := v.(type) {
		case error:
			ev = ev.AnErr(k, val)
		case zerolog.LogObjectMarshaler:
			ev = ev.Object(k, val)
		default:
			ev = ev.Interface(k, val)
		}
	}
	ev.Msg(msg)
}

// pairs converts alternating key-value fields into a map. Keys that are not
// strings and trailing values without a key are dropped.
func pairs(fields []any) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	m := make(map[string]any, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		k, ok := fields[i].(string)
		if !ok {
			continue
		}
		m[k] = fields[i+1]
	}
	return m
}
