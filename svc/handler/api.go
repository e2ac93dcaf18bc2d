package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"time"

	"go4.org/netipx"

	"gfx.cafe/util/go/gotel"
	"github.com/redis/rueidis"
	"github.com/redis/rueidis/rueidislimiter"
	"github.com/riandyrn/otelchi"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"gfx.cafe/open/jrpc"
	"gfx.cafe/open/jrpc/contrib/codecs"
	"gfx.cafe/open/jrpc/pkg/jsonrpc"
	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"
	"golang.org/x/time/rate"

	jrpcjrpcutil "gfx.cafe/open/jrpc/contrib/jrpcutil"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/callmeta"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/clientinfo"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/config"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/ratelimit"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/trpc"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/util"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/util/origin"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/middlewares/calllog"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/middlewares/promcollect"
	mwratelimit "github.com/tinyland-inc/tinyland-logging-middleware/svc/middlewares/ratelimit"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/middlewares/requestid"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/quarks/stats"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/quarks/telemetry"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/services/prom"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/services/redi"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/services/sessions"
)

const clientAgentCacheSize = 4096

type Params struct {
	fx.In

	Lc     fx.Lifecycle
	Logger *slog.Logger

	Security  *config.Security
	Session   *config.Session
	Ratelimit *config.RateLimit `optional:"true"`

	Redi      *redi.Redis
	Sessions  *sessions.Store
	Telemetry *telemetry.Telemetry
	Stats     *stats.Stats
	Limiter   *mwratelimit.Limiter `optional:"true"`
	Collector *promcollect.Collector
	CallLog   *calllog.CallLog
	Router    *trpc.Router

	TraceProvider *gotel.TraceProvider `optional:"true"`
}

type Result struct {
	fx.Out

	Route func(r chi.Router) `group:"route"`
}

func New(p Params) (r Result, err error) {
	waiter := util.NewWaiter()
	maxRequestBodySize := 5 * 1024 * 1024 // TODO: make this configurable

	// note that the order of middleware being added is opposite to the order
	// in which they are invoked: the last entry sees the request first.
	var middlewares []func(jrpc.Handler) jrpc.Handler

	if len(p.Session.Required) > 0 {
		middlewares = append(middlewares, func(next jrpc.Handler) jrpc.Handler {
			return jsonrpc.HandlerFunc(func(w jsonrpc.ResponseWriter, r *jsonrpc.Request) {
				for _, pattern := range p.Session.Required {
					if !pattern.MatchString(r.Method) {
						continue
					}
					if _, err := callmeta.GetSession(r.Context()); err != nil {
						w.Send(nil, &jsonrpc.JsonError{
							Code:    401,
							Message: "Authentication Required",
						})
						return
					}
					break
				}
				next.ServeRPC(w, r)
			})
		})
	}

	// the call log sits right above the router, so rejected calls still
	// produce lifecycle entries
	middlewares = append(middlewares, p.CallLog.Middleware)

	middlewares = append(middlewares, func(next jrpc.Handler) jrpc.Handler {
		return jsonrpc.HandlerFunc(func(w jsonrpc.ResponseWriter, r *jsonrpc.Request) {
			id, err := ratelimit.IdentifierFromContext(r.Context())
			if err != nil {
				w.Send(nil, err)
				return
			}
			kind, _ := p.Router.KindOf(r.Method)
			requestID, _ := callmeta.GetRequestID(r.Context())
			entry := &telemetry.Entry{
				RequestID: requestID,
				Timestamp: time.Now(),
				UsageKey:  id.Key(),
				Procedure: r.Method,
				Type:      string(kind),
				Params:    json.RawMessage(r.Params),
				Metadata:  map[string]any{},
			}
			if client, err := callmeta.GetClient(r.Context()); err == nil {
				if client.DeviceType != nil {
					entry.Metadata["device_type"] = *client.DeviceType
				}
				if client.Browser != nil {
					entry.Metadata["browser"] = client.Browser.Name
				}
			}
			icept := &jrpcjrpcutil.ErrorRecorder{
				ResponseWriter: w,
			}
			next.ServeRPC(icept, r)
			entry.Duration = time.Since(entry.Timestamp)
			entry.Success = icept.Error() == nil
			if err := p.Telemetry.Publish(r.Context(), entry); err != nil {
				p.Logger.Error("telemetry publish failed", "err", err)
			}
		})
	})

	if p.Limiter != nil {
		middlewares = append(middlewares, p.Limiter.Middleware)
	} else if p.Ratelimit != nil {
		// no redis to share state through, fall back to per-process buckets
		local := ratelimit.NewLocalRatelimiter(
			rate.Limit(float64(p.Ratelimit.BucketDrip)/float64(p.Ratelimit.BucketCycleSeconds)),
			p.Ratelimit.BucketSize,
		)
		middlewares = append(middlewares, func(next jrpc.Handler) jrpc.Handler {
			return jsonrpc.HandlerFunc(func(w jsonrpc.ResponseWriter, r *jsonrpc.Request) {
				for _, pattern := range p.Ratelimit.Exempt {
					if pattern.MatchString(r.Method) {
						next.ServeRPC(w, r)
						return
					}
				}
				id, err := ratelimit.IdentifierFromContext(r.Context())
				if err != nil {
					w.Send(nil, err)
					return
				}
				if !local.Allow(id.Key(), 1+id.ExtraCost) {
					prom.Ratelimit.Decisions(prom.RatelimitLabel{Outcome: "limited"}).Inc()
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
		})
	}

	if p.Ratelimit != nil {
		for _, v := range p.Ratelimit.Abuse {
			rc, err := rueidislimiter.NewRateLimiter(rueidislimiter.RateLimiterOption{
				ClientBuilder: func(option rueidis.ClientOption) (rueidis.Client, error) {
					return p.Redi.R(), nil
				},
				KeyPrefix: fmt.Sprintf("%s:abuse:%s", p.Redi.Namespace(), v.Id),
				Limit:     v.Total,
				Window:    v.Window.Duration,
			})
			if err != nil {
				return r, err
			}
			if v.Procedure != "" {
				middlewares = append(middlewares, ratelimit.ProcedureRatelimiter(v.Procedure, rc))
			} else {
				middlewares = append(middlewares, ratelimit.RuedisRatelimiter(rc))
			}
		}
	}

	middlewares = append(middlewares,
		p.Stats.Middleware,
		p.Collector.Middleware,
		ratelimit.WithIdentifier(func(r *jrpc.Request) (*ratelimit.Identifier, error) {
			if session, err := callmeta.GetSession(r.Context()); err == nil {
				return &ratelimit.Identifier{Type: "session", Slug: session.ID}, nil
			}
			if client, err := callmeta.GetClient(r.Context()); err == nil && client.IPHash != nil {
				return &ratelimit.Identifier{Type: "ip", Slug: *client.IPHash}, nil
			}
			return &ratelimit.Identifier{Type: "ip", Slug: util.HostFromRemoteAddr(r.Peer.RemoteAddr)}, nil
		}),
		func(next jrpc.Handler) jrpc.Handler {
			tracer := otel.Tracer("jrpc")
			fn := jrpc.HandlerFunc(func(w jsonrpc.ResponseWriter, req *jsonrpc.Request) {
				requestID, _ := callmeta.GetRequestID(req.Context())
				ctx, span := tracer.Start(req.Context(), req.Method,
					trace.WithSpanKind(trace.SpanKindServer), trace.WithAttributes(
						attribute.String("method", req.Method),
						attribute.String("params", string(req.Params)),
						attribute.String("request_id", requestID)))
				defer span.End()
				ew := &jrpcjrpcutil.ErrorRecorder{
					ResponseWriter: w,
				}
				next.ServeRPC(ew, req.WithContext(ctx))
				if err := ew.Error(); err != nil {
					span.SetStatus(codes.Error, fmt.Sprintf("error: %s", err))
					span.RecordError(err)
				}
			})
			return fn
		},
		requestid.Middleware,
		waiter.Middleware,
		util.ProcedureValidationMiddleware(),
		func(next jrpc.Handler) jrpc.Handler {
			return jrpc.HandlerFunc(func(w jsonrpc.ResponseWriter, req *jsonrpc.Request) {
				if len(req.Params) > maxRequestBodySize {
					w.Send(nil, jsonrpc.NewInvalidRequestError("request body too large"))
					return
				}
				next.ServeRPC(w, req)
			})
		},
	)

	jrpcHandler := jrpc.Handler(p.Router)
	for _, m := range middlewares {
		if m != nil {
			jrpcHandler = m(jrpcHandler)
		}
	}

	// add the waiter hook to the shutdown handler.
	p.Lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := waiter.Wait(ctx); err != nil {
				return err
			}
			return nil
		},
	})

	// bind the jrpc handler to a http+websocket codec to host on the http server
	serverHandler := codecs.HttpWebsocketHandler(jrpcHandler, nil)

	b := &netipx.IPSetBuilder{}
	if p.Security != nil {
		for _, v := range p.Security.TrustedProxies {
			parsedPrefix, err := netip.ParsePrefix(v)
			if err != nil {
				return r, fmt.Errorf("invalid trusted proxy %s: %w", v, err)
			}
			b.AddPrefix(parsedPrefix)
		}
	}
	ipset, err := b.IPSet()
	if err != nil {
		return r, err
	}

	extractor := clientinfo.NewExtractor(clientAgentCacheSize)

	// mount the http server
	r.Route = func(r chi.Router) {
		if p.Security != nil {
			r.Use(func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					parsedRemote, err := netip.ParseAddr(util.HostFromRemoteAddr(r.RemoteAddr))
					// if remote is in the trusted ipset, trust the headers that come from it
					if err == nil && ipset.Contains(parsedRemote) {
						for _, h := range p.Security.TrustedIpHeaders {
							val := r.Header.Get(h)
							if val != "" && net.ParseIP(val) != nil {
								r.RemoteAddr = val
								break
							}
						}
					}
					if len(p.Security.AllowedOrigins) > 0 {
						o := r.Header.Get("Origin")
						matched := false
						for _, v := range p.Security.AllowedOrigins {
							match, err := origin.Match(o, v)
							if err != nil {
								http.Error(w, "invalid origin", http.StatusForbidden)
								return
							}
							if match {
								matched = true
								break
							}
						}
						if !matched {
							http.Error(w, "origin not allowed", http.StatusForbidden)
							return
						}
					}
					next.ServeHTTP(w, r)
				})
			})
		}
		r.Use(func(h http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if int(r.ContentLength) > maxRequestBodySize {
					w.WriteHeader(http.StatusRequestEntityTooLarge)
					return
				}
				h.ServeHTTP(w, r)
			})
		})
		r.Use(otelchi.Middleware("tinyland-gateway", otelchi.WithChiRoutes(r), otelchi.WithFilter(
			func(r *http.Request) bool {
				return r.Header.Get("upgrade") == ""
			})))
		// resolve the caller before the codec: client info always, session
		// when the token header names a live one
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				ctx := req.Context()
				ctx = callmeta.WithClient(ctx, extractor.Client(
					util.HostFromRemoteAddr(req.RemoteAddr),
					req.Header.Get("User-Agent"),
				))
				if token := req.Header.Get(p.Session.Header); token != "" {
					session, err := p.Sessions.Get(ctx, token)
					switch {
					case err == nil:
						ctx = callmeta.WithSession(ctx, &session)
					case !errors.Is(err, sessions.ErrNotFound):
						p.Logger.Error("session lookup failed", "err", err)
					}
				}
				next.ServeHTTP(w, req.WithContext(ctx))
			})
		})

		r.Mount("/rpc", serverHandler)

		// health check
		r.Mount("/health", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		}))
	}
	return
}
