package calllog

import (
	"context"

	"gfx.cafe/open/jrpc"
	"gfx.cafe/open/jrpc/pkg/jsonrpc"
	"go.uber.org/fx"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/jrpcutil"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/trpc"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/trpclog"
)

// CallLog replays every procedure call through the trpclog interceptor, so
// the lifecycle entries surround the rest of the chain. The call's outcome
// passes through verbatim: whatever the downstream handler sent is what the
// client receives, logged or not.
type CallLog struct {
	interceptor *trpclog.Interceptor
	router      *trpc.Router
}

type CallLogParams struct {
	fx.In

	Registry *trpclog.Registry
	Router   *trpc.Router
}

type CallLogResult struct {
	fx.Out

	CallLog *CallLog
}

func New(params CallLogParams) CallLogResult {
	return CallLogResult{
		CallLog: &CallLog{
			interceptor: trpclog.NewInterceptor(params.Registry),
			router:      params.Router,
		},
	}
}

func (T *CallLog) Middleware(fn jrpc.Handler) jrpc.Handler {
	return jrpc.HandlerFunc(func(w jsonrpc.ResponseWriter, r *jsonrpc.Request) {
		var procedureType string
		if kind, ok := T.router.KindOf(r.Method); ok {
			procedureType = string(kind)
		}
		result, err := T.interceptor.Intercept(r.Context(), trpclog.Call{
			Path: r.Method,
			Type: procedureType,
			Next: func(ctx context.Context) (any, error) {
				var icept jrpcutil.Recorder
				fn.ServeRPC(&icept, r.WithContext(ctx))
				return icept.Result, icept.Error
			},
		})
		_ = w.Send(result, err)
	})
}
