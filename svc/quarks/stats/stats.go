package stats

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"gfx.cafe/open/jrpc"
	jrpcjrpcutil "gfx.cafe/open/jrpc/contrib/jrpcutil"
	"gfx.cafe/open/jrpc/pkg/jsonrpc"
	"github.com/asecurityteam/rolling"
	"go.uber.org/fx"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/latencyhist"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/services/redi"
)

const (
	windowBuckets  = 60
	bucketDuration = time.Second
	latencyRing    = 512
	peakSyncPeriod = 15 * time.Second
)

// Stats keeps per-procedure rolling call counts and latency rings. The
// dashboard and the system.stats procedure read from it; nothing here is
// durable except the calls-per-minute peak, which is pushed to redis so the
// high-water mark survives restarts.
type Stats struct {
	mu    sync.Mutex
	procs map[string]*procStats

	peak int

	redis   *redi.Redis
	log     *slog.Logger
	started time.Time
}

type procStats struct {
	calls   *rolling.TimePolicy
	errors  *rolling.TimePolicy
	latency *latencyhist.LatencyHist
}

func newProcStats() *procStats {
	return &procStats{
		calls:   rolling.NewTimePolicy(rolling.NewWindow(windowBuckets), bucketDuration),
		errors:  rolling.NewTimePolicy(rolling.NewWindow(windowBuckets), bucketDuration),
		latency: latencyhist.New(latencyRing),
	}
}

type Params struct {
	fx.In

	Ctx   context.Context
	Lc    fx.Lifecycle
	Log   *slog.Logger
	Redis *redi.Redis `optional:"true"`
}

type Result struct {
	fx.Out

	Stats *Stats
}

func New(p Params) Result {
	s := &Stats{
		procs:   make(map[string]*procStats),
		redis:   p.Redis,
		log:     p.Log,
		started: time.Now(),
	}

	p.Lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			go s.peakLoop(p.Ctx)
			return nil
		},
	})

	return Result{Stats: s}
}

// Record books one finished call.
func (T *Stats) Record(procedure string, d time.Duration, err error) {
	T.mu.Lock()
	defer T.mu.Unlock()

	ps, ok := T.procs[procedure]
	if !ok {
		ps = newProcStats()
		T.procs[procedure] = ps
	}
	ps.calls.Append(1)
	if err != nil {
		ps.errors.Append(1)
	}
	ps.latency.Add(d)
}

// Middleware books every call that flows through it.
func (T *Stats) Middleware(next jrpc.Handler) jrpc.Handler {
	return jsonrpc.HandlerFunc(func(w jsonrpc.ResponseWriter, r *jsonrpc.Request) {
		start := time.Now()
		icept := &jrpcjrpcutil.ErrorRecorder{
			ResponseWriter: w,
		}
		next.ServeRPC(icept, r)
		T.Record(r.Method, time.Since(start), icept.Error())
	})
}

func (T *Stats) callsLastMinute() int {
	total := 0.0
	for _, ps := range T.procs {
		total += ps.calls.Reduce(func(w rolling.Window) float64 {
			return rolling.Count(w)
		})
	}
	return int(total)
}

func (T *Stats) peakLoop(ctx context.Context) {
	ticker := time.NewTicker(peakSyncPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			T.syncPeak(ctx)
		}
	}
}

func (T *Stats) syncPeak(ctx context.Context) {
	T.mu.Lock()
	current := T.callsLastMinute()
	if current > T.peak {
		T.peak = current
	}
	peak := T.peak
	T.mu.Unlock()

	if T.redis == nil {
		return
	}
	key := T.redis.Namespace() + ":stats:peak_cpm"
	old, err := T.redis.CompareAndSwapIfGreater(ctx, key, peak)
	if err != nil {
		T.log.Error("persisting stats peak", "err", err)
		return
	}
	if old > peak {
		T.mu.Lock()
		if old > T.peak {
			T.peak = old
		}
		T.mu.Unlock()
	}
}

type ProcedureSnapshot struct {
	Procedure        string               `json:"procedure"`
	CallsLastMinute  int                  `json:"calls_last_minute"`
	ErrorsLastMinute int                  `json:"errors_last_minute"`
	Latency          latencyhist.Snapshot `json:"latency"`
}

type Snapshot struct {
	Uptime             time.Duration       `json:"uptime"`
	CallsLastMinute    int                 `json:"calls_last_minute"`
	PeakCallsPerMinute int                 `json:"peak_calls_per_minute"`
	Procedures         []ProcedureSnapshot `json:"procedures"`
}

// Snapshot summarizes every procedure seen so far, sorted by path.
func (T *Stats) Snapshot() Snapshot {
	T.mu.Lock()
	defer T.mu.Unlock()

	s := Snapshot{
		Uptime:             time.Since(T.started),
		CallsLastMinute:    T.callsLastMinute(),
		PeakCallsPerMinute: T.peak,
		Procedures:         make([]ProcedureSnapshot, 0, len(T.procs)),
	}
	if s.CallsLastMinute > s.PeakCallsPerMinute {
		s.PeakCallsPerMinute = s.CallsLastMinute
	}
	for name, ps := range T.procs {
		s.Procedures = append(s.Procedures, ProcedureSnapshot{
			Procedure: name,
			CallsLastMinute: int(ps.calls.Reduce(func(w rolling.Window) float64 {
				return rolling.Count(w)
			})),
			ErrorsLastMinute: int(ps.errors.Reduce(func(w rolling.Window) float64 {
				return rolling.Count(w)
			})),
			Latency: ps.latency.Snapshot(),
		})
	}
	sort.Slice(s.Procedures, func(i, j int) bool {
		return s.Procedures[i].Procedure < s.Procedures[j].Procedure
	})
	return s
}
