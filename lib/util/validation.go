package util

import (
	"strings"

	"gfx.cafe/open/jrpc"
	"gfx.cafe/open/jrpc/pkg/jsonrpc"
)

const maxProcedurePathLen = 256

// ProcedureValidationMiddleware rejects malformed procedure paths before they
// reach the router: over-long names, leading/trailing dots, and the reserved
// "internal." namespace.
func ProcedureValidationMiddleware() jrpc.Middleware {
	return func(next jrpc.Handler) jrpc.Handler {
		return jrpc.HandlerFunc(func(w jrpc.ResponseWriter, r *jrpc.Request) {
			if len(r.Method) > maxProcedurePathLen {
				_ = w.Send(nil, jsonrpc.NewInvalidRequestError("procedure path too long"))
				return
			}
			if strings.HasPrefix(r.Method, ".") || strings.HasSuffix(r.Method, ".") {
				_ = w.Send(nil, jsonrpc.NewInvalidRequestError("malformed procedure path"))
				return
			}
			if strings.HasPrefix(r.Method, "internal.") {
				_ = w.Send(nil, jsonrpc.NewInvalidRequestError("procedure not allowed"))
				return
			}
			next.ServeRPC(w, r)
		})
	}
}
