package ratelimit

import (
	"sync"
	"time"

	"gfx.cafe/open/jrpc"
	"gfx.cafe/open/jrpc/pkg/jsonrpc"
	"gfx.cafe/util/go/generic"
	"github.com/hashicorp/golang-lru/v2/simplelru"
	"golang.org/x/time/rate"
)

const localBucketCacheSize = 65536

// LocalRatelimiter is the in-process fallback used when redis is not
// configured. Each identifier gets its own token bucket; buckets live in a
// bounded lru so hostile traffic cannot grow the map without limit.
type LocalRatelimiter struct {
	mu      sync.Mutex
	buckets *simplelru.LRU[string, *rate.Limiter]

	limit rate.Limit
	burst int
}

func NewLocalRatelimiter(limit rate.Limit, burst int) *LocalRatelimiter {
	return &LocalRatelimiter{
		buckets: generic.Must(simplelru.NewLRU[string, *rate.Limiter](localBucketCacheSize, nil)),
		limit:   limit,
		burst:   burst,
	}
}

func (T *LocalRatelimiter) bucket(key string) *rate.Limiter {
	T.mu.Lock()
	defer T.mu.Unlock()
	if l, ok := T.buckets.Get(key); ok {
		return l
	}
	l := rate.NewLimiter(T.limit, T.burst)
	T.buckets.Add(key, l)
	return l
}

// Allow reports whether key may spend cost tokens right now.
func (T *LocalRatelimiter) Allow(key string, cost int) bool {
	return T.bucket(key).AllowN(time.Now(), cost)
}

func (T *LocalRatelimiter) Middleware() jrpc.Middleware {
	return func(next jrpc.Handler) jrpc.Handler {
		return jsonrpc.HandlerFunc(func(w jsonrpc.ResponseWriter, r *jsonrpc.Request) {
			id, err := IdentifierFromContext(r.Context())
			if err != nil {
				w.Send(nil, err)
				return
			}
			if !T.Allow(id.Key(), 1+id.ExtraCost) {
				w.Send(nil, &jsonrpc.JsonError{
					Code:    429,
					Message: "Rate Limit Hit",
					Data: map[string]any{
						"Key": id.Key(),
					},
				})
				return
			}
			next.ServeRPC(w, r)
		})
	}
}
