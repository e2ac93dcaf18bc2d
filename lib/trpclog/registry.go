package trpclog

import "sync/atomic"

// Config holds the active sink. Exactly one is live per Registry at a time.
type Config struct {
	Logger Logger
}

// Registry is the process-wide holder of the active sink. It is constructed
// once at service startup and passed to every consumer explicitly; consumers
// read it per log statement rather than caching the sink, so a Configure
// takes effect for the very next statement, calls in flight included.
type Registry struct {
	config atomic.Pointer[Config]
}

func NewRegistry() *Registry {
	r := new(Registry)
	r.Reset()
	return r
}

// Configure replaces the active config with a copy of cfg. A nil sink is
// normalized to the noop sink so reads never observe one.
func (T *Registry) Configure(cfg Config) {
	if cfg.Logger == nil {
		cfg.Logger = noop
	}
	T.config.Store(&cfg)
}

// Config returns the active config by value. Mutating the returned struct
// has no effect on the registry.
func (T *Registry) Config() Config {
	return *T.config.Load()
}

// Reset restores the default (noop) config. Idempotent.
func (T *Registry) Reset() {
	T.config.Store(&Config{Logger: noop})
}
