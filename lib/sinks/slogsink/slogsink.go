// Package slogsink adapts a slog.Logger to the middleware sink contract.
package slogsink

import (
	"context"
	"log/slog"
	"sort"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/trpclog"
)

type Logger struct {
	log *slog.Logger
}

func New(log *slog.Logger) *Logger {
	return &Logger{log: log}
}

// args flattens field maps into alternating key/value pairs, sorted by key
// so entries render deterministically.
func args(fields []trpclog.Fields) []any {
	merged := make(trpclog.Fields)
	for _, f := range fields {
		for k, v := range f {
			merged[k] = v
		}
	}
	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]any, 0, 2*len(keys))
	for _, k := range keys {
		out = append(out, k, merged[k])
	}
	return out
}

func (T *Logger) write(level slog.Level, msg string, fields []trpclog.Fields) {
	if T.log == nil {
		return
	}
	T.log.Log(context.Background(), level, msg, args(fields)...)
}

func (T *Logger) Debug(msg string, fields ...trpclog.Fields) {
	T.write(slog.LevelDebug, msg, fields)
}

func (T *Logger) Info(msg string, fields ...trpclog.Fields) {
	T.write(slog.LevelInfo, msg, fields)
}

func (T *Logger) Warn(msg string, fields ...trpclog.Fields) {
	T.write(slog.LevelWarn, msg, fields)
}

func (T *Logger) Error(msg string, fields ...trpclog.Fields) {
	T.write(slog.LevelError, msg, fields)
}

var _ trpclog.Logger = (*Logger)(nil)
