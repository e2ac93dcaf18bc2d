package util

import (
	"context"
	"math"

	"gfx.cafe/open/jrpc"
	"gfx.cafe/open/jrpc/pkg/jsonrpc"
	"golang.org/x/sync/semaphore"
)

// Waiter tracks in-flight procedure calls so shutdown can drain them.
type Waiter struct {
	sema *semaphore.Weighted
}

func NewWaiter() *Waiter {
	return &Waiter{
		sema: semaphore.NewWeighted(math.MaxInt64),
	}
}

func (T *Waiter) startCall() {
	// only blocks once Wait has begun, ignoring error is fine
	_ = T.sema.Acquire(context.Background(), 1)
}

func (T *Waiter) endCall() {
	T.sema.Release(1)
}

func (T *Waiter) Middleware(fn jrpc.Handler) jrpc.Handler {
	return jrpc.HandlerFunc(func(w jsonrpc.ResponseWriter, r *jsonrpc.Request) {
		T.startCall()
		defer T.endCall()
		fn.ServeRPC(w, r)
	})
}

// Wait blocks until every active call finishes or ctx is cancelled. Calls
// arriving after Wait starts block forever, so only call it on shutdown.
func (T *Waiter) Wait(ctx context.Context) error {
	return T.sema.Acquire(ctx, math.MaxInt64)
}
