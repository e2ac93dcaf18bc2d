package main

import (
	_ "net/http/pprof"

	"github.com/alecthomas/kong"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/version"
)

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("tinyland-gateway"),
		kong.Description("session-aware json-rpc gateway with structured call logging"),
		kong.UsageOnError(),
		kong.Vars{"version": version.Version},
	)
	ctx.FatalIfErrorf(ctx.Run())
}
