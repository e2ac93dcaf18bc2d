package trpclog

// Fields is the structured context attached to a log entry. Absent fields
// are omitted from the map entirely, never set to a nil placeholder.
type Fields map[string]any

// Logger is the severity-leveled sink consumed by the middleware. The
// context tail is optional; implementations must accept any combination of
// field maps, nil included, without panicking.
type Logger interface {
	Debug(msg string, fields ...Fields)
	Info(msg string, fields ...Fields)
	Warn(msg string, fields ...Fields)
	Error(msg string, fields ...Fields)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...Fields) {}
func (noopLogger) Info(string, ...Fields)  {}
func (noopLogger) Warn(string, ...Fields)  {}
func (noopLogger) Error(string, ...Fields) {}

var noop Logger = noopLogger{}

// NoopLogger returns the sink that discards everything. The same instance is
// returned on every call, so identity comparisons against it are valid.
func NoopLogger() Logger {
	return noop
}

func mergeFields(base Fields, fields []Fields) Fields {
	merged := make(Fields, len(base))
	for k, v := range base {
		merged[k] = v
	}
	for _, f := range fields {
		for k, v := range f {
			merged[k] = v
		}
	}
	return merged
}
