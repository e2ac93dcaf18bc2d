package ratelimit_test

import (
	"context"
	"testing"

	"gfx.cafe/open/jrpc"
	"gfx.cafe/open/jrpc/pkg/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/jrpcutil"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/ratelimit"
)

func TestLocalRatelimiterAllow(t *testing.T) {
	// no refill to speak of within the test window, burst of 2
	rl := ratelimit.NewLocalRatelimiter(rate.Limit(0.001), 2)

	assert.True(t, rl.Allow("ip:a", 1))
	assert.True(t, rl.Allow("ip:a", 1))
	assert.False(t, rl.Allow("ip:a", 1))

	// other identities have their own buckets
	assert.True(t, rl.Allow("ip:b", 1))
}

func TestLocalRatelimiterCost(t *testing.T) {
	rl := ratelimit.NewLocalRatelimiter(rate.Limit(0.001), 5)

	assert.True(t, rl.Allow("session:x", 5))
	assert.False(t, rl.Allow("session:x", 1))
}

func TestLocalRatelimiterMiddleware(t *testing.T) {
	rl := ratelimit.NewLocalRatelimiter(rate.Limit(0.001), 1)

	chain := ratelimit.WithIdentifier(func(r *jrpc.Request) (*ratelimit.Identifier, error) {
		return &ratelimit.Identifier{Type: "ip", Slug: "abc"}, nil
	})(rl.Middleware()(jrpc.HandlerFunc(func(w jrpc.ResponseWriter, r *jrpc.Request) {
		_ = w.Send("ok", nil)
	})))

	ctx := context.Background()
	var out string
	require.NoError(t, jrpcutil.Do(ctx, chain, &out, "user.me", nil))
	assert.Equal(t, "ok", out)

	err := jrpcutil.Do(ctx, chain, &out, "user.me", nil)
	require.Error(t, err)
	var codecError jsonrpc.Error
	require.ErrorAs(t, err, &codecError)
	assert.EqualValues(t, 429, codecError.ErrorCode())
}
