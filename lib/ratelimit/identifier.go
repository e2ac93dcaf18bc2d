package ratelimit

import (
	"context"
	"errors"
	"time"

	"gfx.cafe/open/jrpc"
	"gfx.cafe/open/jrpc/pkg/jsonrpc"
	"github.com/redis/rueidis/rueidislimiter"
)

// Identifier names the party a call is billed to: the session when the
// caller is logged in, otherwise the hashed client ip.
type Identifier struct {
	Type string
	Slug string

	ExtraCost int
}

func (i *Identifier) String() string {
	return i.Type + ":" + i.Slug
}

func (i *Identifier) Key() string {
	return i.Type + ":" + i.Slug
}

type identifierContextKeyType string

var identifierContextKey identifierContextKeyType = "rl_identifier"
var errNoIdentifier = errors.New("no valid ratelimit identifier for request")

func IdentifierFromContext(ctx context.Context) (*Identifier, error) {
	v := ctx.Value(identifierContextKey)
	if v == nil {
		return nil, errNoIdentifier
	}
	val, ok := v.(*Identifier)
	if !ok {
		return nil, errNoIdentifier
	}
	return val, nil
}

func WithIdentifier(idFunc func(r *jrpc.Request) (*Identifier, error)) jrpc.Middleware {
	return func(next jrpc.Handler) jrpc.Handler {
		return jsonrpc.HandlerFunc(func(w jsonrpc.ResponseWriter, r *jsonrpc.Request) {
			id, err := idFunc(r)
			if err != nil {
				w.Send(nil, err)
				return
			}
			if id == nil {
				id = &Identifier{
					Type: "anon",
					Slug: "anon",
				}
			}
			r = r.WithContext(context.WithValue(r.Context(), identifierContextKey, id))
			next.ServeRPC(w, r)
		})
	}
}

// RuedisRatelimiter enforces a fixed window limit on every call, keyed by
// the context identifier. WithIdentifier must run before it.
func RuedisRatelimiter(rl rueidislimiter.RateLimiterClient) jrpc.Middleware {
	return func(next jrpc.Handler) jrpc.Handler {
		return jsonrpc.HandlerFunc(func(w jsonrpc.ResponseWriter, r *jsonrpc.Request) {
			id, err := IdentifierFromContext(r.Context())
			if err != nil {
				w.Send(nil, err)
				return
			}
			if !allow(w, r, rl, id) {
				return
			}
			next.ServeRPC(w, r)
		})
	}
}

// ProcedureRatelimiter is RuedisRatelimiter scoped to a single procedure,
// for the tight per-procedure abuse budgets.
func ProcedureRatelimiter(procedure string, rl rueidislimiter.RateLimiterClient) jrpc.Middleware {
	return func(next jrpc.Handler) jrpc.Handler {
		return jsonrpc.HandlerFunc(func(w jsonrpc.ResponseWriter, r *jsonrpc.Request) {
			if r.Method != procedure {
				next.ServeRPC(w, r)
				return
			}
			id, err := IdentifierFromContext(r.Context())
			if err != nil {
				w.Send(nil, err)
				return
			}
			if !allow(w, r, rl, id) {
				return
			}
			next.ServeRPC(w, r)
		})
	}
}

func allow(w jsonrpc.ResponseWriter, r *jsonrpc.Request, rl rueidislimiter.RateLimiterClient, id *Identifier) bool {
	rateLimitKey := id.Key()
	wait, err := rl.AllowN(r.Context(), rateLimitKey, int64(1+id.ExtraCost))
	if err != nil {
		w.Send(nil, &jsonrpc.JsonError{
			Code:    500,
			Message: "Internal Server Error",
			Data: map[string]any{
				"Error": err.Error(),
			},
		})
		return false
	}
	if !wait.Allowed {
		waitTime := time.UnixMilli(wait.ResetAtMs).Sub(time.Now())
		w.Send(nil, &jsonrpc.JsonError{
			Code:    429,
			Message: "Rate Limit Hit",
			Data: map[string]any{
				"Wait": waitTime / time.Millisecond,
				"Key":  rateLimitKey,
			},
		})
		return false
	}
	return true
}
