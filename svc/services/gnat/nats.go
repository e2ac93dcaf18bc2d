package gnat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gfx.cafe/util/go/fxplus"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"go.uber.org/fx"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/config"
)

const embeddedPort = 48222

// Gnat hands out the nats connection the telemetry quark publishes on. With
// no uri configured it boots an embedded jetstream-enabled server.
type Gnat struct {
	log *slog.Logger

	c *nats.Conn
}

type Params struct {
	fx.In

	Config *config.Nats `optional:"true"`
	Ctx    context.Context

	Lc  fx.Lifecycle
	Log *slog.Logger
}

type Result struct {
	fx.Out

	Output   *Gnat
	Healther fxplus.Healther `group:"healther"`
}

func New(p Params) (r Result, err error) {
	o := &Gnat{}
	o.log = p.Log

	uri := config.SafeUrl("embedded")
	if p.Config != nil {
		uri = p.Config.URI
	}

	if uri != "embedded" && uri != "" {
		o.c, err = nats.Connect(string(uri))
		if err != nil {
			return r, err
		}
		p.Lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				o.c.Close()
				return nil
			},
		})
	} else {
		p.Log.Info("running with embedded nats")
		opts := &server.Options{
			Port:      embeddedPort,
			JetStream: true,
			StoreDir:  "/tmp/tinyland-jetstream",
		}
		ns, err := server.NewServer(opts)
		if err != nil {
			return r, err
		}
		ns.ConfigureLogger()
		ns.Start()
		if !ns.ReadyForConnections(5 * time.Second) {
			return r, fmt.Errorf("failed to start embedded nats server")
		}
		p.Lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				o.c.Close()
				ns.Shutdown()
				ns.WaitForShutdown()
				return nil
			},
		})
		o.c, err = nats.Connect(ns.ClientURL())
		if err != nil {
			return r, err
		}
	}

	r.Output = o
	r.Healther = o
	return
}

func (o *Gnat) Conn() *nats.Conn {
	return o.c
}

func (o *Gnat) Health(ctx context.Context) error {
	if !o.c.IsConnected() {
		return fmt.Errorf("not connected to nats server")
	}
	return nil
}
