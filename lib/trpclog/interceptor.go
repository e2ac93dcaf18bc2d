package trpclog

import (
	"context"
	"strconv"
	"time"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/callmeta"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/util"
)

// Component is the tag stamped into every entry the interceptor emits.
const Component = "trpc-middleware"

const (
	msgCalled    = "tRPC procedure called"
	msgCompleted = "tRPC procedure completed"
	msgFailed    = "tRPC procedure failed"
)

// Call is one intercepted procedure invocation. Path and Type may be empty,
// in which case entries carry "unknown". Next runs the rest of the pipeline.
type Call struct {
	Path string
	Type string
	Next func(ctx context.Context) (any, error)
}

// Interceptor wraps procedure invocations with lifecycle log entries: one
// start entry, then exactly one terminal entry (completed or failed). The
// continuation's outcome passes through untouched: results and errors are
// returned verbatim and panics are re-raised with the same value.
type Interceptor struct {
	registry *Registry
	now      func() time.Time
}

func NewInterceptor(registry *Registry) *Interceptor {
	return &Interceptor{
		registry: registry,
		now:      time.Now,
	}
}

// sink is resolved per log statement so a Configure lands mid-call.
func (T *Interceptor) sink() Logger {
	return T.registry.Config().Logger
}

func (T *Interceptor) Intercept(ctx context.Context, call Call) (result any, err error) {
	start := T.now()
	procedure := util.Coa(call.Path, "unknown")
	procedureType := util.Coa(call.Type, "unknown")

	fields := Fields{
		"component":     Component,
		"procedure":     procedure,
		"procedureType": procedureType,
	}
	appendCallFields(ctx, fields)
	T.sink().Info(msgCalled, fields)

	terminal := func() Fields {
		elapsed := T.now().Sub(start).Milliseconds()
		return Fields{
			"component":     Component,
			"procedure":     procedure,
			"procedureType": procedureType,
			"duration":      strconv.FormatInt(elapsed, 10) + "ms",
		}
	}
	failed := func(failure any) {
		fields := terminal()
		fields["success"] = false
		fields["error"], fields["errorType"] = classifyFailure(failure)
		T.sink().Error(msgFailed, fields)
	}

	finished := false
	defer func() {
		if finished {
			return
		}
		rec := recover()
		if rec == nil {
			// goroutine exit, not a panic; the call was abandoned and
			// there is no terminal outcome to report
			return
		}
		failed(rec)
		panic(rec)
	}()

	result, err = call.Next(ctx)
	finished = true

	if err != nil {
		failed(err)
		return result, err
	}

	fields = terminal()
	fields["success"] = true
	T.sink().Info(msgCompleted, fields)
	return result, nil
}

// appendCallFields copies the optional caller identity out of the call
// context. Session fields are included only when non-empty; client fields
// are included whenever they were derived at all, empty or not, except the
// browser which needs a recognized name. Missing metadata never fails, it
// just leaves the fields out.
func appendCallFields(ctx context.Context, fields Fields) {
	if session, err := callmeta.GetSession(ctx); err == nil {
		if session.ID != "" {
			fields["sessionId"] = session.ID
		}
		if session.UserID != "" {
			fields["userId"] = session.UserID
		}
	}
	if client, err := callmeta.GetClient(ctx); err == nil {
		if client.IPHash != nil {
			fields["clientIpHash"] = *client.IPHash
		}
		if client.DeviceType != nil {
			fields["deviceType"] = *client.DeviceType
		}
		if client.Browser != nil && client.Browser.Name != "" {
			fields["browser"] = client.Browser.Name
		}
	}
}
