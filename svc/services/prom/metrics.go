package prom

import (
	"gfx.cafe/open/gotoprom"
	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	for _, v := range []any{
		&Procedures,
		&Ratelimit,
		&Sessions,
		&Telemetry,
	} {
		gotoprom.MustInit(v, "tinyland", nil)
	}
}

type ProcedureLabel struct {
	Procedure string `label:"procedure"`
	Type      string `label:"type"`
	Success   bool   `label:"success"`
}

// ProcedureCallLabel labels metrics observed before the call finishes, so
// there is no success dimension yet.
type ProcedureCallLabel struct {
	Procedure string `label:"procedure"`
	Type      string `label:"type"`
}

var Procedures struct {
	Latency     func(label ProcedureLabel) prometheus.Histogram `name:"procedure_latency_ms" help:"The total latency of each procedure call in milliseconds" buckets:"1,10,50,100,250,500,1000,2000,5000,10000,50000"`
	ClientError func(label ProcedureLabel) prometheus.Counter   `name:"procedure_client_errors" help:"Calls that failed because of the caller: bad params, unknown procedures, rate limits"`
	InFlight    func(label ProcedureCallLabel) prometheus.Gauge `name:"procedures_in_flight" help:"Procedure calls currently executing"`
}

type RatelimitLabel struct {
	Outcome string `label:"outcome"`
}

var Ratelimit struct {
	Decisions func(label RatelimitLabel) prometheus.Counter `name:"ratelimit_decisions" help:"Limiter decisions by outcome: allowed, limited or banned"`
}

type SessionLabel struct {
	Operation string `label:"operation"`
	Success   bool   `label:"success"`
}

var Sessions struct {
	Operations func(label SessionLabel) prometheus.Counter `name:"session_operations" help:"Session store operations by kind"`
}

type TelemetryLabel struct {
	Success bool `label:"success"`
}

var Telemetry struct {
	Published func(label TelemetryLabel) prometheus.Counter `name:"telemetry_published" help:"Usage entries published to the telemetry stream"`
}
