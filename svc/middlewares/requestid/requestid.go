package requestid

import (
	"gfx.cafe/open/jrpc"
	"gfx.cafe/open/jrpc/pkg/jsonrpc"
	"github.com/google/uuid"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/callmeta"
)

// Middleware stamps a fresh request id into every call context. It runs
// before telemetry and tracing so both see the same id.
func Middleware(next jrpc.Handler) jrpc.Handler {
	return jrpc.HandlerFunc(func(w jsonrpc.ResponseWriter, r *jsonrpc.Request) {
		r = r.WithContext(callmeta.WithRequestID(r.Context(), uuid.NewString()))
		next.ServeRPC(w, r)
	})
}
