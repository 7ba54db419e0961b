package logging

import (
	"context"
	"log/slog"
	"sync"
)

// Entry is a log record captured by a Recorder.
type Entry struct {
	Level   Level
	Message string
	Attrs   map[string]string
}

// Recorder is a slog.Handler that keeps every record in memory.
type Recorder struct {
	mu      *sync.Mutex
	entries *[]Entry
	attrs   []slog.Attr
}

// NewRecorder returns a Recorder and a logger writing to it.
func NewRecorder() (*Recorder, *slog.Logger) {
	r := &Recorder{mu: &sync.Mutex{}, entries: &[]Entry{}}
	return r, slog.New(r)
}

// Enabled reports true for every level.
func (r *Recorder) Enabled(context.Context, slog.Level) bool { return true }

// Handle stores the record.
func (r *Recorder) Handle(_ context.Context, rec slog.Record) error {
	e := Entry{Level: rec.Level, Message: rec.Message, Attrs: map[string]string{}}
	for _, a := range r.attrs {
		e.Attrs[a.Key] = a.Value.String()
	}
	rec.Attrs(func(a slog.Attr) bool {
		e.Attrs[a.Key] = a.Value.String()
		return true
	})

	r.mu.Lock()
	*r.entries = append(*r.entries, e)
	r.mu.Unlock()
	return nil
}

// WithAttrs returns a handler sharing the same storage.
func (r *Recorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(r.attrs)+len(attrs))
	merged = append(merged, r.attrs...)
	merged = append(merged, attrs...)
	return &Recorder{mu: r.mu, entries: r.entries, attrs: merged}
}

// WithGroup is not supported; groups are flattened.
func (r *Recorder) WithGroup(string) slog.Handler { return r }

// Entries returns a copy of the captured entries.
func (r *Recorder) Entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Entry, len(*r.entries))
	copy(out, *r.entries)
	return out
}

// Count returns how many entries were logged at level.
func (r *Recorder) Count(level Level) int {
	n := 0
	for _, e := range r.Entries() {
		if e.Level == level {
			n++
		}
	}
	return n
}
