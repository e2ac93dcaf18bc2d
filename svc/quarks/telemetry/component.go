package telemetry

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"gfx.cafe/open/jrpc/pkg/jjson"
	"github.com/nats-io/nats.go/jetstream"
	"go.uber.org/fx"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/config"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/services/gnat"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/services/prom"
)

// Telemetry publishes one usage entry per procedure call to a jetstream
// stream, so billing and abuse tooling can consume the call log offline.
// Publishing is async; a dropped ack never fails the call it describes.
type Telemetry struct {
	log     *slog.Logger
	stream  jetstream.JetStream
	subject string

	pending chan jetstream.PubAckFuture

	enabled bool
}

type Entry struct {
	RequestID string        `json:"request_id"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
	UsageKey  string        `json:"usage_key"`

	Procedure string          `json:"procedure"`
	Type      string          `json:"type"`
	Params    json.RawMessage `json:"params,omitempty"`
	Success   bool            `json:"success"`

	Metadata map[string]any `json:"metadata,omitempty"`
}

type Params struct {
	fx.In

	Config *config.Telemetry

	Gnat *gnat.Gnat

	Ctx context.Context
	Lc  fx.Lifecycle
	Log *slog.Logger
}

type Result struct {
	fx.Out

	Output *Telemetry
}

func New(p Params) (r Result, err error) {
	o := &Telemetry{}
	o.log = p.Log
	r.Output = o

	o.enabled = p.Config.Enabled
	if !o.enabled {
		return
	}

	js, err := jetstream.New(p.Gnat.Conn())
	if err != nil {
		return r, err
	}
	o.pending = make(chan jetstream.PubAckFuture, 128)
	o.subject = p.Config.Stream + ".calls"
	o.stream = js
	_, err = js.CreateOrUpdateStream(p.Ctx, jetstream.StreamConfig{
		Name:     p.Config.Stream,
		Subjects: []string{p.Config.Stream + ".>"},
	})
	if err != nil {
		return r, err
	}

	go func() {
		for {
			select {
			case pending := <-o.pending:
				select {
				case err := <-pending.Err():
					prom.Telemetry.Published(prom.TelemetryLabel{Success: false}).Inc()
					o.log.Error("telemetry publish error", "err", err)
				case <-pending.Ok():
					prom.Telemetry.Published(prom.TelemetryLabel{Success: true}).Inc()
				case <-p.Ctx.Done():
					return
				}
			case <-p.Ctx.Done():
				return
			}
		}
	}()
	p.Lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			select {
			case <-js.PublishAsyncComplete():
			case <-ctx.Done():
			}
			return nil
		},
	})

	return
}

func (o *Telemetry) Publish(ctx context.Context, e *Entry) error {
	if !o.enabled {
		return nil
	}
	buf, err := jjson.Marshal(e)
	if err != nil {
		return err
	}
	fut, err := o.stream.PublishAsync(o.subject, buf)
	if err != nil {
		return err
	}
	select {
	case o.pending <- fut:
	default:
		// ack backlog full; the publish itself is already in flight
	}

	return nil
}
