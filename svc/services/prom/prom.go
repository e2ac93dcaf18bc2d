package prom

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

// Prometheus exposes the default registry on the debug mux. The metrics
// listener itself is bound by the cmd layer.
type Prometheus struct {
}

type PrometheusParams struct {
	fx.In

	Lc     fx.Lifecycle
	Logger *slog.Logger
}

type PrometheusResult struct {
	fx.Out

	Prometheus *Prometheus
}

func New(params PrometheusParams) PrometheusResult {
	p := &Prometheus{}

	params.Lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			http.Handle("/metrics", promhttp.Handler())
			return nil
		},
	})

	return PrometheusResult{
		Prometheus: p,
	}
}
