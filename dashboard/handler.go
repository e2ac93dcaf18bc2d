// Package dashboard serves a small html dashboard over the in-process call
// statistics, plus a machine-readable snapshot of the same numbers.
package dashboard

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"go.uber.org/fx"

	"github.com/tinyland-inc/tinyland-logging-middleware/dashboard/templates"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/latencyhist"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/trpc"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/quarks/stats"
)

type Handler struct {
	stats  *stats.Stats
	router *trpc.Router
}

type Params struct {
	fx.In

	Stats  *stats.Stats
	Router *trpc.Router
}

type Result struct {
	fx.Out

	Route func(r chi.Router) `group:"route"`
}

func New(p Params) Result {
	h := &Handler{
		stats:  p.Stats,
		router: p.Router,
	}
	return Result{Route: h.Mount}
}

func (h *Handler) Mount(r chi.Router) {
	r.Route("/debug", func(r chi.Router) {
		r.Get("/procedures", h.handleOverview)
		r.Get("/procedures/{procedure}", h.handleDetail)
		r.Get("/api/stats", h.handleStatsJSON)
		r.Get("/api/procedure/{procedure}", h.handleProcedureCard)
	})
}

func (h *Handler) handleOverview(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot()
	data := templates.OverviewData{
		Uptime:             snap.Uptime.Round(time.Second).String(),
		CallsLastMinute:    snap.CallsLastMinute,
		PeakCallsPerMinute: snap.PeakCallsPerMinute,
		Procedures:         make([]templates.ProcedureInfo, 0, len(snap.Procedures)),
	}
	for _, ps := range snap.Procedures {
		data.Procedures = append(data.Procedures, h.procedureInfo(ps))
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.RenderOverview(w, data); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *Handler) handleDetail(w http.ResponseWriter, r *http.Request) {
	procedure := chi.URLParam(r, "procedure")
	ps, ok := h.lookup(procedure)
	if !ok {
		http.NotFound(w, r)
		return
	}

	data := templates.DetailData{
		Procedure: h.procedureInfo(ps),
		Latency: templates.LatencyInfo{
			Count:   ps.Latency.Count,
			Average: formatLatency(ps.Latency.Average),
			Min:     formatLatency(ps.Latency.Min),
			Max:     formatLatency(ps.Latency.Max),
			P50:     formatLatency(ps.Latency.P50),
			P95:     formatLatency(ps.Latency.P95),
			P99:     formatLatency(ps.Latency.P99),
		},
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.RenderProcedureDetail(w, data); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *Handler) handleProcedureCard(w http.ResponseWriter, r *http.Request) {
	procedure := chi.URLParam(r, "procedure")
	ps, ok := h.lookup(procedure)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.RenderProcedureCard(w, h.procedureInfo(ps)); err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *Handler) handleStatsJSON(w http.ResponseWriter, r *http.Request) {
	snap := h.snapshot()

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("uptime_seconds")
	e.Float64(snap.Uptime.Seconds())
	e.FieldStart("calls_last_minute")
	e.Int(snap.CallsLastMinute)
	e.FieldStart("peak_calls_per_minute")
	e.Int(snap.PeakCallsPerMinute)
	e.FieldStart("procedures")
	e.ArrStart()
	for _, ps := range snap.Procedures {
		kind, _ := h.router.KindOf(ps.Procedure)
		e.ObjStart()
		e.FieldStart("procedure")
		e.Str(ps.Procedure)
		e.FieldStart("type")
		e.Str(string(kind))
		e.FieldStart("calls_last_minute")
		e.Int(ps.CallsLastMinute)
		e.FieldStart("errors_last_minute")
		e.Int(ps.ErrorsLastMinute)
		e.FieldStart("latency")
		encodeLatency(&e, ps.Latency)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.Write(e.Bytes())
}

func encodeLatency(e *jx.Encoder, s latencyhist.Snapshot) {
	e.ObjStart()
	e.FieldStart("count")
	e.Int(s.Count)
	e.FieldStart("average_ms")
	e.Float64(millis(s.Average))
	e.FieldStart("min_ms")
	e.Float64(millis(s.Min))
	e.FieldStart("max_ms")
	e.Float64(millis(s.Max))
	e.FieldStart("p50_ms")
	e.Float64(millis(s.P50))
	e.FieldStart("p95_ms")
	e.Float64(millis(s.P95))
	e.FieldStart("p99_ms")
	e.Float64(millis(s.P99))
	e.ObjEnd()
}

// snapshot merges the recorded traffic with the registered procedure list, so
// procedures that have not been called yet still show up.
func (h *Handler) snapshot() stats.Snapshot {
	snap := h.stats.Snapshot()
	seen := make(map[string]struct{}, len(snap.Procedures))
	for _, ps := range snap.Procedures {
		seen[ps.Procedure] = struct{}{}
	}
	for _, path := range h.router.Paths() {
		if _, ok := seen[path]; !ok {
			snap.Procedures = append(snap.Procedures, stats.ProcedureSnapshot{Procedure: path})
		}
	}
	sort.Slice(snap.Procedures, func(i, j int) bool {
		return snap.Procedures[i].Procedure < snap.Procedures[j].Procedure
	})
	return snap
}

func (h *Handler) lookup(procedure string) (stats.ProcedureSnapshot, bool) {
	snap := h.snapshot()
	for _, ps := range snap.Procedures {
		if ps.Procedure == procedure {
			return ps, true
		}
	}
	return stats.ProcedureSnapshot{}, false
}

func (h *Handler) procedureInfo(ps stats.ProcedureSnapshot) templates.ProcedureInfo {
	kind, ok := h.router.KindOf(ps.Procedure)
	kindLabel := string(kind)
	if !ok {
		kindLabel = "unregistered"
	}
	return templates.ProcedureInfo{
		Path:             ps.Procedure,
		Kind:             kindLabel,
		CallsLastMinute:  ps.CallsLastMinute,
		ErrorsLastMinute: ps.ErrorsLastMinute,
		AvgLatency:       formatLatency(ps.Latency.Average),
		Healthy:          ps.ErrorsLastMinute == 0,
	}
}

func formatLatency(d time.Duration) string {
	return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
