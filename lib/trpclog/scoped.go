package trpclog

type scopedLogger struct {
	registry  *Registry
	component string
}

// NewLogger returns a sink that forwards to the registry's active sink,
// stamping the component tag into every entry. Caller-supplied fields are
// merged over the tag, so a caller-supplied "component" key wins. The active
// sink is fetched per call, never at creation, so a later Configure still
// takes effect on loggers created before it.
func NewLogger(registry *Registry, component string) Logger {
	return &scopedLogger{
		registry:  registry,
		component: component,
	}
}

// NewScopedLogger is the historical name for NewLogger. Same function, not a
// separate implementation.
var NewScopedLogger = NewLogger

func (T *scopedLogger) scope(fields []Fields) Fields {
	return mergeFields(Fields{"component": T.component}, fields)
}

func (T *scopedLogger) Debug(msg string, fields ...Fields) {
	T.registry.Config().Logger.Debug(msg, T.scope(fields))
}

func (T *scopedLogger) Info(msg string, fields ...Fields) {
	T.registry.Config().Logger.Info(msg, T.scope(fields))
}

func (T *scopedLogger) Warn(msg string, fields ...Fields) {
	T.registry.Config().Logger.Warn(msg, T.scope(fields))
}

func (T *scopedLogger) Error(msg string, fields ...Fields) {
	T.registry.Config().Logger.Error(msg, T.scope(fields))
}
