package procedures

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gfx.cafe/util/go/fxplus"
	"go.uber.org/fx"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/trpc"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/quarks/stats"
)

// System owns the operational queries: health of the backing services and
// the live call statistics.
type System struct {
	healthers []fxplus.Healther
	stats     *stats.Stats
}

type SystemParams struct {
	fx.In

	Healthers []fxplus.Healther `group:"healther"`
	Stats     *stats.Stats
}

type SystemResult struct {
	fx.Out

	Procedures []trpc.Procedure `group:"procedure,flatten"`
}

func NewSystem(p SystemParams) SystemResult {
	s := &System{
		healthers: p.Healthers,
		stats:     p.Stats,
	}
	return SystemResult{
		Procedures: []trpc.Procedure{
			{Path: "system.health", Kind: trpc.KindQuery, Handler: s.health},
			{Path: "system.stats", Kind: trpc.KindQuery, Handler: s.statsSnapshot},
		},
	}
}

type HealthResult struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// healtherName derives the check name from the component's type.
func healtherName(h fxplus.Healther) string {
	return strings.TrimPrefix(fmt.Sprintf("%T", h), "*")
}

// health reports degraded rather than failing: the caller reads the status,
// the query itself succeeding just means the gateway is serving.
func (T *System) health(ctx context.Context, _ json.RawMessage) (any, error) {
	out := HealthResult{
		Status: "ok",
		Checks: make(map[string]string, len(T.healthers)),
	}
	for _, h := range T.healthers {
		name := healtherName(h)
		if err := h.Health(ctx); err != nil {
			out.Status = "degraded"
			out.Checks[name] = err.Error()
			continue
		}
		out.Checks[name] = "ok"
	}
	return out, nil
}

func (T *System) statsSnapshot(ctx context.Context, _ json.RawMessage) (any, error) {
	return T.stats.Snapshot(), nil
}
