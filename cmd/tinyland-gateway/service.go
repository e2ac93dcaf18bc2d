package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/config"
)

type HttpRouterParams struct {
	fx.In

	Routes []func(r chi.Router) `group:"route"`
}

type HttpRouterResult struct {
	fx.Out

	Mux *chi.Mux
}

func NewHttpRouter(params HttpRouterParams) HttpRouterResult {
	mux := chi.NewRouter()
	for _, route := range params.Routes {
		mux.Group(route)
	}
	return HttpRouterResult{
		Mux: mux,
	}
}

type HttpServerParams struct {
	fx.In

	Lc     fx.Lifecycle
	Log    *slog.Logger
	Config *config.HTTP
	Mux    *chi.Mux
}

type HttpServerResult struct {
	fx.Out

	Server *http.Server
}

func NewHttpServer(params HttpServerParams) HttpServerResult {
	server := &http.Server{
		Addr:    params.Config.Bind,
		Handler: params.Mux,
	}
	params.Lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			conf := &net.ListenConfig{Control: reusePort}
			l, err := conf.Listen(context.Background(), "tcp", server.Addr)
			if err != nil {
				return err
			}
			params.Log.Info("starting http server", "addr", server.Addr)
			go func() {
				if err = server.Serve(l); err != nil {
					if !errors.Is(err, http.ErrServerClosed) {
						params.Log.Error("error serving http", "err", err)
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return server.Shutdown(ctx)
		},
	})
	return HttpServerResult{
		Server: server,
	}
}
