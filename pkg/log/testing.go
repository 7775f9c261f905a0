package log

import (
	"context"
	"sync"
)

// Entry is a single captured log record.
type Entry struct {
	Level   Level
	Message string
	Fields  map[string]any
}

// TestLogger captures log records in memory for assertions in tests.
type TestLogger struct {
	mu      sync.Mutex
	entries []Entry
	with    map[string]any
}

// NewTestLogger creates an empty capturing logger.
func NewTestLogger() *TestLogger {
	return &TestLogger{}
}

// Entries returns a copy of all captured records.
func (t *TestLogger) Entries() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func (t *TestLogger) record(level Level, msg string, fields []any) {
	merged := make(map[string]any, len(t.with)+len(fields)/2)
	for k, v := range t.with {
		merged[k] = v
	}
	for k, v := range pairs(fields) {
		merged[k] = v
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, Entry{Level: level, Message: msg, Fields: merged})
}

func (t *TestLogger) Debug(msg string, fields ...any) { t.record(LevelDebug, msg, fields) }
func (t *TestLogger) Info(msg string, fields ...any)  { t.record(LevelInfo, msg, fields) }
func (t *TestLogger) Warn(msg string, fields ...any)  { t.record(LevelWarn, msg, fields) }
func (t *TestLogger) Error(msg string, fields ...any) { t.record(LevelError, msg, fields) }

func (t *TestLogger) With(fields ...any) Logger {
	merged := make(map[string]any, len(t.with)+len(fields)/2)
	for k, v := range t.with {
		merged[k] = v
	}
	for k, v := range pairs(fields) {
		merged[k] = v
	}
	// Records from the child land in the parent so assertions see them.
	return &sharedTestLogger{parent: t, with: merged}
}

func (t *TestLogger) Enabled(context.Context, Level) bool { return true }

// sharedTestLogger forwards records to its parent with extra fields attached.
type sharedTestLogger struct {
	parent *TestLogger
	with   map[string]any
}

func (s *sharedTestLogger) forward(level Level, msg string, fields []any) {
	all := make([]any, 0, len(s.with)*2+len(fields))
	for k, v := range s.with {
		all = append(all, k, v)
	}
	all = append(all, fields...)
	s.parent.record(level, msg, all)
}

func (s *sharedTestLogger) Debug(msg string, fields ...any) { s.forward(LevelDebug, msg, fields) }
func (s *sharedTestLogger) Info(msg string, fields ...any)  { s.forward(LevelInfo, msg, fields) }
func (s *sharedTestLogger) Warn(msg string, fields ...any)  { s.forward(LevelWarn, msg, fields) }
func (s *sharedTestLogger) Error(msg string, fields ...any) { s.forward(LevelError, msg, fields) }

func (s *sharedTestLogger) With(fields ...any) Logger {
	merged := make(map[string]any, len(s.with)+len(fields)/2)
	for k, v := range s.with {
		merged[k] = v
	}
	for k, v := range pairs(fields) {
		merged[k] = v
	}
	return &sharedTestLogger{parent: s.parent, with: merged}
}

func (s *sharedTestLogger) Enabled(context.Context, Level) bool { return true }
