// Package logtest provides a recording sink for asserting on log output.
package logtest

import (
	"sync"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/trpclog"
)

type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

type Entry struct {
	Level   Level
	Message string
	Fields  trpclog.Fields
}

// Recorder is a sink that keeps every entry in arrival order. Fields is nil
// when the statement carried no context at all, an empty map when it carried
// an empty one.
type Recorder struct {
	mu      sync.Mutex
	entries []Entry
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (T *Recorder) record(level Level, msg string, fields []trpclog.Fields) {
	var merged trpclog.Fields
	if len(fields) > 0 {
		merged = make(trpclog.Fields)
		for _, f := range fields {
			for k, v := range f {
				merged[k] = v
			}
		}
	}
	T.mu.Lock()
	defer T.mu.Unlock()
	T.entries = append(T.entries, Entry{Level: level, Message: msg, Fields: merged})
}

func (T *Recorder) Debug(msg string, fields ...trpclog.Fields) {
	T.record(LevelDebug, msg, fields)
}

func (T *Recorder) Info(msg string, fields ...trpclog.Fields) {
	T.record(LevelInfo, msg, fields)
}

func (T *Recorder) Warn(msg string, fields ...trpclog.Fields) {
	T.record(LevelWarn, msg, fields)
}

func (T *Recorder) Error(msg string, fields ...trpclog.Fields) {
	T.record(LevelError, msg, fields)
}

// Entries returns a copy of everything recorded so far.
func (T *Recorder) Entries() []Entry {
	T.mu.Lock()
	defer T.mu.Unlock()
	out := make([]Entry, len(T.entries))
	copy(out, T.entries)
	return out
}

func (T *Recorder) Len() int {
	T.mu.Lock()
	defer T.mu.Unlock()
	return len(T.entries)
}

func (T *Recorder) Reset() {
	T.mu.Lock()
	defer T.mu.Unlock()
	T.entries = nil
}

var _ trpclog.Logger = (*Recorder)(nil)
