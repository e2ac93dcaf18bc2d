package main

import (
	"log/slog"
	"net/http"

	"gfx.cafe/util/go/fxplus"
	"gfx.cafe/util/go/gotel"
	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"
	"go.uber.org/fx"

	"github.com/tinyland-inc/tinyland-logging-middleware/dashboard"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/config"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/version"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/handler"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/middlewares/calllog"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/middlewares/promcollect"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/middlewares/ratelimit"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/procedures"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/quarks/stats"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/quarks/telemetry"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/services/gnat"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/services/prom"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/services/redi"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/services/sessions"
)

var cli struct {
	Start StartCmd `cmd:"" help:"start the gateway" default:"withargs"`

	Version kong.VersionFlag `short:"v" help:"print version and exit"`
}

type StartCmd struct {
	ConfigFile string `short:"c" help:"config file" env:"SERVERCONFIG_PATH" default:"./gateway.yml"`
}

func (o *StartCmd) Run() error {
	godotenv.Load()
	fx.New(
		fxplus.WithLogger,
		// utility services (universe)
		fx.Provide(
			fxplus.Component("tinyland-gateway"),
			config.FileParser(o.ConfigFile),
			NewHttpRouter,
			NewHttpServer,
			fxplus.Context,
		),
		// services (databases, external utilities)
		fx.Provide(
			prom.New,
			redi.New,
			gnat.New,
			sessions.New,
		),
		// simple services (quarks)
		fx.Provide(
			stats.New,
			telemetry.New,
		),
		// procedures
		fx.Provide(
			procedures.NewAccounts,
			procedures.NewAuth,
			procedures.NewUsers,
			procedures.NewSystem,
			procedures.NewRouter,
		),
		// middlewares
		fx.Provide(
			calllog.New,
			promcollect.New,
			ratelimit.New,
		),
		// http handlers
		fx.Provide(
			handler.New,
			dashboard.New,
		),
		// OTEL tracing
		fx.Provide(
			gotel.NewTraceProvider,
		),
		fx.Invoke(
			func(*prom.Prometheus) {},
			fxplus.StatLogger,
			func(*http.Server) {},
			func(m *config.Metrics, l *slog.Logger) {
				l.Info("launching", "version", version.Version)
				bind := ":6060"
				if m != nil {
					if m.Disabled {
						l.Warn("metrics disabled")
						return
					}
					if m.Bind != "" {
						bind = m.Bind
					}
				}
				go func() {
					l.Info("starting metrics server", "bind", bind)
					if err := http.ListenAndServe(bind, nil); err != nil {
						l.Error("failed to start metrics", "err", err)
					}
				}()
			},
		),
	).Run()
	return nil
}
