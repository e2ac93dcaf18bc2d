package promcollect

import (
	"context"
	"log/slog"
	"time"

	"gfx.cafe/open/jrpc"
	"gfx.cafe/open/jrpc/pkg/jsonrpc"
	"go.uber.org/fx"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/jrpcutil"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/trpc"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/util"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/services/prom"
)

// Collector observes every procedure call for the operators: latency
// histograms, client error counters, and a debug-level access log.
type Collector struct {
	logger *slog.Logger
	p      *prom.Prometheus
	router *trpc.Router
}

type CollectorParams struct {
	fx.In

	Logger     *slog.Logger
	Prometheus *prom.Prometheus
	Router     *trpc.Router
}

type CollectorResult struct {
	fx.Out

	Collector *Collector
}

func New(params CollectorParams) CollectorResult {
	c := &Collector{
		logger: params.Logger,
		p:      params.Prometheus,
		router: params.Router,
	}

	return CollectorResult{
		Collector: c,
	}
}

func (T *Collector) Middleware(fn jrpc.Handler) jrpc.Handler {
	return jrpc.HandlerFunc(func(w jsonrpc.ResponseWriter, r *jsonrpc.Request) {
		start := time.Now()

		kind, ok := T.router.KindOf(r.Method)
		if !ok {
			kind = "unknown"
		}
		inflight := prom.Procedures.InFlight(prom.ProcedureCallLabel{
			Procedure: r.Method,
			Type:      string(kind),
		})
		inflight.Inc()

		var icept jrpcutil.Recorder

		defer func() {
			dur := time.Since(start)

			inflight.Dec()
			label := prom.ProcedureLabel{
				Procedure: r.Method,
				Type:      string(kind),
				Success:   icept.Error == nil,
			}
			prom.Procedures.Latency(label).Observe(dur.Seconds() * 1000)
			if util.ClientError(icept.Error) {
				prom.Procedures.ClientError(label).Inc()
			}

			lvl := slog.LevelDebug
			extra := []any{
				"procedure", r.Method,
				"type", string(kind),
				"transport", r.Peer.Transport,
				"remote_addr", r.Peer.RemoteAddr,
				"duration", dur,
			}
			if icept.Error != nil {
				lvl = slog.LevelError
				extra = append(extra, "err", icept.Error)
			}
			T.logger.Log(context.Background(), lvl, "request",
				extra...,
			)
		}()

		fn.ServeRPC(&icept, r)

		_ = w.Send(icept.Result, icept.Error)
	})
}
