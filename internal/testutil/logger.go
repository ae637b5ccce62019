// Package testutil provides test helpers shared across packages.
package testutil

import (
	"sync"

	"github.com/turtacn/Guwen-Annotator/internal/infrastructure/monitoring/logging"
)

// LogEntry is one captured log call.  Fields include those added through
// With on the logger that produced it.
type LogEntry struct {
	Level   string
	Logger  string
	Message string
	Fields  []logging.Field
}

// Field returns the value of the named field and whether it was present.
func (e LogEntry) Field(key string) (interface{}, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

type logStore struct {
	mu      sync.Mutex
	entries []LogEntry
	level   string
}

// RecordingLogger implements logging.Logger and logging.LevelSetter by
// keeping every entry in memory.  Children created with With and Named
// write to the same store.
type RecordingLogger struct {
	store  *logStore
	name   string
	fields []logging.Field
}

func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{store: &logStore{}}
}

func (l *RecordingLogger) log(level, msg string, fields []logging.Field) {
	all := make([]logging.Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)

	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	l.store.entries = append(l.store.entries, LogEntry{Level: level, Logger: l.name, Message: msg, Fields: all})
}

func (l *RecordingLogger) Debug(msg string, fields ...logging.Field) { l.log("debug", msg, fields) }
func (l *RecordingLogger) Info(msg string, fields ...logging.Field)  { l.log("info", msg, fields) }
func (l *RecordingLogger) Warn(msg string, fields ...logging.Field)  { l.log("warn", msg, fields) }
func (l *RecordingLogger) Error(msg string, fields ...logging.Field) { l.log("error", msg, fields) }

// Fatal records the entry; it does not exit.
func (l *RecordingLogger) Fatal(msg string, fields ...logging.Field) { l.log("fatal", msg, fields) }

func (l *RecordingLogger) With(fields ...logging.Field) logging.Logger {
	child := &RecordingLogger{store: l.store, name: l.name}
	child.fields = append(append([]logging.Field{}, l.fields...), fields...)
	return child
}

func (l *RecordingLogger) Named(name string) logging.Logger {
	child := &RecordingLogger{store: l.store, fields: l.fields, name: name}
	if l.name != "" {
		child.name = l.name + "." + name
	}
	return child
}

// SetLevel records the requested level; filtering is not applied.
func (l *RecordingLogger) SetLevel(level string) {
	l.store.mu.Lock()
	l.store.level = level
	l.store.mu.Unlock()
}

// Level returns the last level passed to SetLevel.
func (l *RecordingLogger) Level() string {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	return l.store.level
}

// Entries returns a copy of everything logged so far.
func (l *RecordingLogger) Entries() []LogEntry {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	out := make([]LogEntry, len(l.store.entries))
	copy(out, l.store.entries)
	return out
}

// Find returns the first entry with the given level and message.
func (l *RecordingLogger) Find(level, msg string) (LogEntry, bool) {
	for _, e := range l.Entries() {
		if e.Level == level && e.Message == msg {
			return e, true
		}
	}
	return LogEntry{}, false
}

func (l *RecordingLogger) Reset() {
	l.store.mu.Lock()
	defer l.store.mu.Unlock()
	l.store.entries = nil
}

var (
	_ logging.Logger      = (*RecordingLogger)(nil)
	_ logging.LevelSetter = (*RecordingLogger)(nil)
)
