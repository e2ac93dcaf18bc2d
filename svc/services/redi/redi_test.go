package redi

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/config"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	lc := fxtest.NewLifecycle(t)
	rediResult, err := New(RedisParams{
		Log: slog.New(slog.NewJSONHandler(io.Discard, nil)),
		Config: &config.Redis{
			Namespace: "test",
		},
		Lc: lc,
	})
	require.NoError(t, err)
	lc.RequireStart()
	t.Cleanup(lc.RequireStop)
	return rediResult.Redis
}

func TestRedisEmbedded(t *testing.T) {
	redi := newTestRedis(t)
	require.Equal(t, "test", redi.Namespace())

	ctx := context.Background()
	require.NoError(t, redi.C().Set(ctx, "k", "v", time.Minute).Err())
	got, err := redi.C().Get(ctx, "k").Result()
	require.NoError(t, err)
	require.Equal(t, "v", got)
}

func TestRedisCompareAndSwapIfGreater(t *testing.T) {
	redi := newTestRedis(t)
	ctx := context.Background()

	_, err := redi.C().Set(ctx, "peak", 1, 0).Result()
	require.NoError(t, err)

	old, err := redi.CompareAndSwapIfGreater(ctx, "peak", 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, old)
	res, err := redi.C().Get(ctx, "peak").Result()
	require.NoError(t, err)
	require.Equal(t, "1", res)

	old, err = redi.CompareAndSwapIfGreater(ctx, "peak", 2)
	require.NoError(t, err)
	require.EqualValues(t, 1, old)
	res, err = redi.C().Get(ctx, "peak").Result()
	require.NoError(t, err)
	require.Equal(t, "2", res)
}
