// Package zapsink adapts a zap.SugaredLogger to the middleware sink contract.
package zapsink

import (
	"os"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/trpclog"
)

type Logger struct {
	log *zap.SugaredLogger
}

func New(log *zap.SugaredLogger) *Logger {
	return &Logger{log: log}
}

// NewConsole builds a sink over a console-encoded zap logger.
func NewConsole(level zapcore.LevelEnabler) *Logger {
	encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		MessageKey:       "message",
		LevelKey:         "level",
		CallerKey:        "caller",
		StacktraceKey:    "stacktrace",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalColorLevelEncoder,
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		ConsoleSeparator: ", ",
	})

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)
	return New(zap.New(core).Sugar())
}

func keysAndValues(fields []trpclog.Fields) []any {
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

func (T *Logger) Debug(msg string, fields ...trpclog.Fields) {
	if T.log == nil {
		return
	}
	T.log.Debugw(msg, keysAndValues(fields)...)
}

func (T *Logger) Info(msg string, fields ...trpclog.Fields) {
	if T.log == nil {
		return
	}
	T.log.Infow(msg, keysAndValues(fields)...)
}

func (T *Logger) Warn(msg string, fields ...trpclog.Fields) {
	if T.log == nil {
		return
	}
	T.log.Warnw(msg, keysAndValues(fields)...)
}

func (T *Logger) Error(msg string, fields ...trpclog.Fields) {
	if T.log == nil {
		return
	}
	T.log.Errorw(msg, keysAndValues(fields)...)
}

var _ trpclog.Logger = (*Logger)(nil)
