/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package logtest

import (
	"sync"
	"time"

	"github.com/ssgreg/logf"

	"github.com/acronis/go-cachebatcher/log"
)

// Entry is a recorded log entry. Fields include the ones added with With.
type Entry struct {
	Level  log.Level
	Text   string
	Fields []log.Field
	Time   time.Time
}

// FindField returns the field with the given key.
func (e Entry) FindField(key string) (log.Field, bool) {
	for _, f := range e.Fields {
		if f.Key == key {
			return f, true
		}
	}
	return log.Field{}, false
}

// StringField returns the value of the string field with the given key.
func (e Entry) StringField(key string) (string, bool) {
	f, ok := e.FindField(key)
	if !ok || f.Type != logf.FieldTypeBytesToString {
		return "", false
	}
	return string(f.Bytes), true
}

var levels = map[logf.Level]log.Level{
	logf.LevelError: log.LevelError,
	logf.LevelWarn:  log.LevelWarn,
	logf.LevelInfo:  log.LevelInfo,
	logf.LevelDebug: log.LevelDebug,
}

type entryStore struct {
	mu      sync.Mutex
	entries []Entry
}

//nolint:gocritic // logf.EntryWriter passes entries by value
func (s *entryStore) WriteEntry(e logf.Entry) {
	fields := make([]log.Field, 0, len(e.Fields)+len(e.DerivedFields))
	fields = append(fields, e.DerivedFields...)
	fields = append(fields, e.Fields...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, Entry{Level: levels[e.Level], Text: e.Text, Fields: fields, Time: e.Time})
}

// Recorder is a log.FieldLogger that keeps every entry (debug ones included) in memory.
// Loggers derived with With share the entries with the parent.
type Recorder struct {
	*log.Logger
	store *entryStore
}

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	store := &entryStore{}
	return &Recorder{Logger: log.Wrap(logf.NewLogger(logf.LevelDebug, store)), store: store}
}

// With returns a Recorder adding the fields to every entry.
func (r *Recorder) With(fields ...log.Field) log.FieldLogger {
	return &Recorder{Logger: r.Logger.With(fields...).(*log.Logger), store: r.store}
}

// Entries returns a copy of the recorded entries in logging order.
func (r *Recorder) Entries() []Entry {
	return r.Filter(func(Entry) bool { return true })
}

// Filter returns the entries matching the predicate.
func (r *Recorder) Filter(match func(e Entry) bool) []Entry {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var res []Entry
	for _, e := range r.store.entries {
		if match(e) {
			res = append(res, e)
		}
	}
	return res
}

// FindEntry returns the first entry with the message.
func (r *Recorder) FindEntry(msg string) (Entry, bool) {
	found := r.Filter(func(e Entry) bool { return e.Text == msg })
	if len(found) == 0 {
		return Entry{}, false
	}
	return found[0], true
}

// EntriesAtLevel returns the entries logged at the level.
func (r *Recorder) EntriesAtLevel(level log.Level) []Entry {
	return r.Filter(func(e Entry) bool { return e.Level == level })
}

// Reset forgets all recorded entries.
func (r *Recorder) Reset() {
	r.store.mu.Lock()
	r.store.entries = nil
	r.store.mu.Unlock()
}
