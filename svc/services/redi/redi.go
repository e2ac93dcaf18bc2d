package redi

import (
	"context"
	"log/slog"
	"time"

	"gfx.cafe/util/go/fxplus"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/redis/rueidis"
	"go.uber.org/fx"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/config"
)

// Redis owns both client flavors: go-redis for streams, scripts and plain
// commands, rueidis for the limiter. With no uri configured it boots an
// embedded miniredis so the gateway runs with zero external services.
type Redis struct {
	c       *redis.Client
	cfg     config.Redis
	rueidis rueidis.Client
}

type RedisParams struct {
	fx.In

	Config *config.Redis `optional:"true"`
	Log    *slog.Logger
	Lc     fx.Lifecycle
}

type RedisResult struct {
	fx.Out

	Redis    *Redis
	Healther fxplus.Healther `group:"healther"`
}

func New(params RedisParams) (res RedisResult, err error) {
	cfg := config.Redis{URI: "embedded", Namespace: "tinyland"}
	if params.Config != nil {
		cfg = *params.Config
	}
	r := &Redis{
		cfg: cfg,
	}
	if cfg.URI == "embedded" || cfg.URI == "" {
		params.Log.Info("running with embedded redis")
		mr := miniredis.NewMiniRedis()
		if err := mr.Start(); err != nil {
			return res, err
		}
		r.c = redis.NewClient(&redis.Options{
			Addr: mr.Addr(),
		})
		r.rueidis, err = rueidis.NewClient(rueidis.ClientOption{
			InitAddress:  []string{mr.Addr()},
			DisableCache: true,
		})
		if err != nil {
			return res, err
		}

		params.Lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				// miniredis time stands still unless pushed, so ttls never
				// expire without this
				go func() {
					prev := time.Now()
					ticker := time.NewTicker(1 * time.Second)
					defer ticker.Stop()
					for {
						select {
						case next := <-ticker.C:
							mr.FastForward(next.Sub(prev))
							prev = next
						case <-mr.Ctx.Done():
							return
						}
					}
				}()
				return nil
			},
			OnStop: func(_ context.Context) error {
				r.rueidis.Close()
				if err := r.c.Close(); err != nil {
					return err
				}
				mr.Close()
				return nil
			},
		})
	} else {
		opts, err := redis.ParseURL(string(cfg.URI))
		if err != nil {
			return res, err
		}
		rueidisOpts, err := rueidis.ParseURL(string(cfg.URI))
		if err != nil {
			return res, err
		}
		params.Log.Info("connecting to redis", "addr", opts.Addr, "user", opts.Username)
		r.rueidis, err = rueidis.NewClient(rueidisOpts)
		if err != nil {
			return res, err
		}
		r.c = redis.NewClient(opts)
		params.Lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				r.rueidis.Close()
				return r.c.Close()
			},
		})
	}
	return RedisResult{
		Redis:    r,
		Healther: r,
	}, nil
}

func (r *Redis) Health(ctx context.Context) error {
	return r.c.Ping(ctx).Err()
}

func (r *Redis) R() rueidis.Client {
	return r.rueidis
}

func (r *Redis) C() *redis.Client {
	return r.c
}

func (r *Redis) Namespace() string {
	return r.cfg.Namespace
}

var compareAndSwapIfGreaterScript = redis.NewScript(`
redis.replicate_commands()

local old = tonumber(redis.call('GET', KEYS[1]))
if old == nil then
	old = 0
end
if tonumber(ARGV[1]) > old then
	redis.call('SET', KEYS[1], ARGV[1])
end
return old
`)

// CompareAndSwapIfGreater sets the value at key to new if new is greater.
// Returns the old value. The stats quark uses it to persist high-water marks
// across restarts.
func (r *Redis) CompareAndSwapIfGreater(ctx context.Context, key string, new int) (int, error) {
	res, err := compareAndSwapIfGreaterScript.Run(
		ctx,
		r.C(),
		[]string{key},
		new,
	).Result()
	if err != nil {
		return 0, err
	}
	return int(res.(int64)), nil
}
