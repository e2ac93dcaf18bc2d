package dashboard_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"

	"github.com/tinyland-inc/tinyland-logging-middleware/dashboard"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/trpc"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/quarks/stats"
)

func newTestDashboard(t *testing.T) (*chi.Mux, *stats.Stats) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	lc := fxtest.NewLifecycle(t)
	statsRes := stats.New(stats.Params{
		Ctx: ctx,
		Lc:  lc,
		Log: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	})
	lc.RequireStart()
	t.Cleanup(lc.RequireStop)

	router := trpc.NewRouter()
	echo := func(ctx context.Context, params json.RawMessage) (any, error) {
		return "ok", nil
	}
	require.NoError(t, router.Handle(trpc.Procedure{Path: "system.ping", Kind: trpc.KindQuery, Handler: echo}))
	require.NoError(t, router.Handle(trpc.Procedure{Path: "auth.login", Kind: trpc.KindMutation, Handler: echo}))

	res := dashboard.New(dashboard.Params{
		Stats:  statsRes.Stats,
		Router: router,
	})
	mux := chi.NewRouter()
	res.Route(mux)
	return mux, statsRes.Stats
}

func get(t *testing.T, mux *chi.Mux, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestOverviewListsProcedures(t *testing.T) {
	mux, s := newTestDashboard(t)

	s.Record("system.ping", 10*time.Millisecond, nil)
	s.Record("legacy.call", 5*time.Millisecond, nil)

	rec := get(t, mux, "/debug/procedures")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	body := rec.Body.String()
	assert.Contains(t, body, "Tinyland Gateway")
	assert.Contains(t, body, "system.ping")
	// registered but never called still shows up
	assert.Contains(t, body, "auth.login")
	// called but never registered shows up too
	assert.Contains(t, body, "legacy.call")
	assert.Contains(t, body, "unregistered")
}

func TestProcedureDetail(t *testing.T) {
	mux, s := newTestDashboard(t)

	s.Record("auth.login", 20*time.Millisecond, nil)
	s.Record("auth.login", 40*time.Millisecond, errors.New("boom"))

	rec := get(t, mux, "/debug/procedures/auth.login")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "auth.login")
	assert.Contains(t, body, "mutation")
	assert.Contains(t, body, "P95")
}

func TestProcedureDetailZeroTraffic(t *testing.T) {
	mux, _ := newTestDashboard(t)

	rec := get(t, mux, "/debug/procedures/system.ping")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "system.ping")
}

func TestProcedureDetailNotFound(t *testing.T) {
	mux, _ := newTestDashboard(t)

	rec := get(t, mux, "/debug/procedures/no.such")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProcedureCardFragment(t *testing.T) {
	mux, s := newTestDashboard(t)

	s.Record("system.ping", 10*time.Millisecond, nil)

	rec := get(t, mux, "/debug/api/procedure/system.ping")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "system.ping")
	assert.Contains(t, body, `hx-get="/debug/api/procedure/system.ping"`)
	// fragment only, no surrounding page
	assert.NotContains(t, body, "<html")

	rec = get(t, mux, "/debug/api/procedure/no.such")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatsJSON(t *testing.T) {
	mux, s := newTestDashboard(t)

	s.Record("system.ping", 10*time.Millisecond, nil)
	s.Record("system.ping", 30*time.Millisecond, nil)
	s.Record("auth.login", 5*time.Millisecond, errors.New("boom"))

	rec := get(t, mux, "/debug/api/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var got struct {
		UptimeSeconds      float64 `json:"uptime_seconds"`
		CallsLastMinute    int     `json:"calls_last_minute"`
		PeakCallsPerMinute int     `json:"peak_calls_per_minute"`
		Procedures         []struct {
			Procedure        string `json:"procedure"`
			Type             string `json:"type"`
			CallsLastMinute  int    `json:"calls_last_minute"`
			ErrorsLastMinute int    `json:"errors_last_minute"`
			Latency          struct {
				Count     int     `json:"count"`
				AverageMs float64 `json:"average_ms"`
			} `json:"latency"`
		} `json:"procedures"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))

	assert.Equal(t, 3, got.CallsLastMinute)
	assert.GreaterOrEqual(t, got.PeakCallsPerMinute, 3)
	require.Len(t, got.Procedures, 2)

	// sorted by path
	login := got.Procedures[0]
	ping := got.Procedures[1]

	assert.Equal(t, "auth.login", login.Procedure)
	assert.Equal(t, "mutation", login.Type)
	assert.Equal(t, 1, login.CallsLastMinute)
	assert.Equal(t, 1, login.ErrorsLastMinute)

	assert.Equal(t, "system.ping", ping.Procedure)
	assert.Equal(t, "query", ping.Type)
	assert.Equal(t, 2, ping.CallsLastMinute)
	assert.Equal(t, 0, ping.ErrorsLastMinute)
	assert.Equal(t, 2, ping.Latency.Count)
	assert.InDelta(t, 20.0, ping.Latency.AverageMs, 0.01)
}
