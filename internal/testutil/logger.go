package testutil

import (
	"context"
	"log/slog"
	"sync"
	"testing"
)

// TestLogger records every log entry so tests can check which warnings a
// run produced.
type TestLogger struct {
	Logger *slog.Logger

	mu      sync.Mutex
	entries []LogEntry
}

// LogEntry is one recorded log call with its attributes flattened.
type LogEntry struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

// NewTestLogger creates a logger that records entries at every level.
func NewTestLogger(t *testing.T) *TestLogger {
	t.Helper()

	tl := &TestLogger{}
	tl.Logger = slog.New(&recordHandler{log: tl})
	return tl
}

// recordHandler appends records to its TestLogger. Attributes added with
// With are carried on the handler; groups prefix keys with "group.".
type recordHandler struct {
	log    *TestLogger
	attrs  []slog.Attr
	prefix string
}

func (h *recordHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *recordHandler) Handle(_ context.Context, r slog.Record) error {
	entry := LogEntry{Level: r.Level, Message: r.Message, Attrs: make(map[string]any)}
	for _, a := range h.attrs {
		entry.Attrs[a.Key] = a.Value.Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		entry.Attrs[h.prefix+a.Key] = a.Value.Any()
		return true
	})

	h.log.mu.Lock()
	h.log.entries = append(h.log.entries, entry)
	h.log.mu.Unlock()
	return nil
}

func (h *recordHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &recordHandler{log: h.log, prefix: h.prefix}
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	return next
}

func (h *recordHandler) WithGroup(name string) slog.Handler {
	return &recordHandler{log: h.log, attrs: h.attrs, prefix: h.prefix + name + "."}
}

func (l *TestLogger) filter(keep func(LogEntry) bool) []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []LogEntry
	for _, e := range l.entries {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// Warnings returns the WARN entries.
func (l *TestLogger) Warnings() []LogEntry {
	return l.filter(func(e LogEntry) bool { return e.Level == slog.LevelWarn })
}

// AssertWarningCode asserts that at least one WARN entry carries code.
func (l *TestLogger) AssertWarningCode(t *testing.T, code string) {
	t.Helper()

	warnings := l.Warnings()
	for _, e := range warnings {
		if e.Attrs["code"] == code {
			return
		}
	}
	t.Errorf("Expected a warning with code %s, got %d warnings", code, len(warnings))
}

// AssertNoWarnings asserts that nothing was logged at WARN or above.
func (l *TestLogger) AssertNoWarnings(t *testing.T) {
	t.Helper()

	for _, e := range l.filter(func(e LogEntry) bool { return e.Level >= slog.LevelWarn }) {
		t.Errorf("Unexpected %s log: %s %v", e.Level, e.Message, e.Attrs)
	}
}
