package trpclog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/callmeta"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/trpclog"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/trpclog/logtest"
)

func stampedClock(times ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := times[i]
		if i < len(times)-1 {
			i++
		}
		return t
	}
}

func strptr(s string) *string {
	return &s
}

func TestInterceptSuccess(t *testing.T) {
	reg := trpclog.NewRegistry()
	rec := logtest.NewRecorder()
	reg.Configure(trpclog.Config{Logger: rec})

	icept := trpclog.NewInterceptor(reg)
	trpclog.SetClock(icept, stampedClock(time.UnixMilli(1000), time.UnixMilli(1050)))

	result, err := icept.Intercept(context.Background(), trpclog.Call{
		Path: "user.delete",
		Type: "mutation",
		Next: func(ctx context.Context) (any, error) {
			return map[string]any{"ok": true}, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, result)

	entries := rec.Entries()
	require.Len(t, entries, 2)

	called := entries[0]
	assert.Equal(t, logtest.LevelInfo, called.Level)
	assert.Equal(t, "tRPC procedure called", called.Message)
	assert.Equal(t, "trpc-middleware", called.Fields["component"])
	assert.Equal(t, "user.delete", called.Fields["procedure"])
	assert.Equal(t, "mutation", called.Fields["procedureType"])
	assert.NotContains(t, called.Fields, "duration")
	assert.NotContains(t, called.Fields, "success")

	completed := entries[1]
	assert.Equal(t, logtest.LevelInfo, completed.Level)
	assert.Equal(t, "tRPC procedure completed", completed.Message)
	assert.Equal(t, "trpc-middleware", completed.Fields["component"])
	assert.Equal(t, "user.delete", completed.Fields["procedure"])
	assert.Equal(t, "mutation", completed.Fields["procedureType"])
	assert.Equal(t, "50ms", completed.Fields["duration"])
	assert.Equal(t, true, completed.Fields["success"])
}

func TestInterceptUnknownDefaults(t *testing.T) {
	reg := trpclog.NewRegistry()
	rec := logtest.NewRecorder()
	reg.Configure(trpclog.Config{Logger: rec})
	icept := trpclog.NewInterceptor(reg)

	_, err := icept.Intercept(context.Background(), trpclog.Call{
		Next: func(ctx context.Context) (any, error) { return nil, nil },
	})
	require.NoError(t, err)

	entries := rec.Entries()
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, "unknown", e.Fields["procedure"])
		assert.Equal(t, "unknown", e.Fields["procedureType"])
	}
}

func TestInterceptSessionFields(t *testing.T) {
	reg := trpclog.NewRegistry()
	rec := logtest.NewRecorder()
	reg.Configure(trpclog.Config{Logger: rec})
	icept := trpclog.NewInterceptor(reg)

	next := func(ctx context.Context) (any, error) { return nil, nil }

	ctx := callmeta.WithSession(context.Background(), &callmeta.Session{ID: "s1", UserID: "u1"})
	_, err := icept.Intercept(ctx, trpclog.Call{Path: "user.me", Type: "query", Next: next})
	require.NoError(t, err)

	entries := rec.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "s1", entries[0].Fields["sessionId"])
	assert.Equal(t, "u1", entries[0].Fields["userId"])

	// terminal entries never carry caller identity
	assert.NotContains(t, entries[1].Fields, "sessionId")
	assert.NotContains(t, entries[1].Fields, "userId")

	rec.Reset()
	ctx = callmeta.WithSession(context.Background(), &callmeta.Session{ID: "s1"})
	_, err = icept.Intercept(ctx, trpclog.Call{Path: "user.me", Type: "query", Next: next})
	require.NoError(t, err)

	entries = rec.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "s1", entries[0].Fields["sessionId"])
	assert.NotContains(t, entries[0].Fields, "userId")

	rec.Reset()
	ctx = callmeta.WithSession(context.Background(), &callmeta.Session{})
	_, err = icept.Intercept(ctx, trpclog.Call{Path: "user.me", Type: "query", Next: next})
	require.NoError(t, err)

	entries = rec.Entries()
	require.Len(t, entries, 2)
	assert.NotContains(t, entries[0].Fields, "sessionId")
	assert.NotContains(t, entries[0].Fields, "userId")
}

func TestInterceptClientFields(t *testing.T) {
	reg := trpclog.NewRegistry()
	rec := logtest.NewRecorder()
	reg.Configure(trpclog.Config{Logger: rec})
	icept := trpclog.NewInterceptor(reg)

	next := func(ctx context.Context) (any, error) { return nil, nil }

	ctx := callmeta.WithClient(context.Background(), &callmeta.Client{
		IPHash:     strptr("abc123"),
		DeviceType: strptr("mobile"),
		Browser:    &callmeta.Browser{Name: "Firefox", Version: "128"},
	})
	_, err := icept.Intercept(ctx, trpclog.Call{Path: "auth.login", Type: "mutation", Next: next})
	require.NoError(t, err)

	entries := rec.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "abc123", entries[0].Fields["clientIpHash"])
	assert.Equal(t, "mobile", entries[0].Fields["deviceType"])
	assert.Equal(t, "Firefox", entries[0].Fields["browser"])
	assert.NotContains(t, entries[1].Fields, "clientIpHash")
	assert.NotContains(t, entries[1].Fields, "deviceType")
	assert.NotContains(t, entries[1].Fields, "browser")

	// derived-but-empty fields still show up; only nil means absent
	rec.Reset()
	ctx = callmeta.WithClient(context.Background(), &callmeta.Client{
		IPHash:  strptr(""),
		Browser: &callmeta.Browser{},
	})
	_, err = icept.Intercept(ctx, trpclog.Call{Path: "auth.login", Type: "mutation", Next: next})
	require.NoError(t, err)

	entries = rec.Entries()
	require.Len(t, entries, 2)
	require.Contains(t, entries[0].Fields, "clientIpHash")
	assert.Equal(t, "", entries[0].Fields["clientIpHash"])
	assert.NotContains(t, entries[0].Fields, "deviceType")
	assert.NotContains(t, entries[0].Fields, "browser")

	rec.Reset()
	ctx = callmeta.WithClient(context.Background(), &callmeta.Client{})
	_, err = icept.Intercept(ctx, trpclog.Call{Path: "auth.login", Type: "mutation", Next: next})
	require.NoError(t, err)

	entries = rec.Entries()
	require.Len(t, entries, 2)
	assert.NotContains(t, entries[0].Fields, "clientIpHash")
	assert.NotContains(t, entries[0].Fields, "deviceType")
	assert.NotContains(t, entries[0].Fields, "browser")
}

func TestInterceptNoMetadata(t *testing.T) {
	reg := trpclog.NewRegistry()
	rec := logtest.NewRecorder()
	reg.Configure(trpclog.Config{Logger: rec})
	icept := trpclog.NewInterceptor(reg)

	_, err := icept.Intercept(context.Background(), trpclog.Call{
		Path: "system.health",
		Type: "query",
		Next: func(ctx context.Context) (any, error) { return "ok", nil },
	})
	require.NoError(t, err)

	entries := rec.Entries()
	require.Len(t, entries, 2)
	assert.Len(t, entries[0].Fields, 3)
	assert.Contains(t, entries[0].Fields, "component")
	assert.Contains(t, entries[0].Fields, "procedure")
	assert.Contains(t, entries[0].Fields, "procedureType")
}

func TestInterceptError(t *testing.T) {
	reg := trpclog.NewRegistry()
	rec := logtest.NewRecorder()
	reg.Configure(trpclog.Config{Logger: rec})

	icept := trpclog.NewInterceptor(reg)
	trpclog.SetClock(icept, stampedClock(time.UnixMilli(2000), time.UnixMilli(2075)))

	errBoom := errors.New("backend exploded")
	result, err := icept.Intercept(context.Background(), trpclog.Call{
		Path: "user.delete",
		Type: "mutation",
		Next: func(ctx context.Context) (any, error) {
			return "partial", errBoom
		},
	})

	// the failure comes back untouched, partial result included
	require.Error(t, err)
	assert.Same(t, errBoom, err)
	assert.Equal(t, "partial", result)

	entries := rec.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "tRPC procedure called", entries[0].Message)

	failed := entries[1]
	assert.Equal(t, logtest.LevelError, failed.Level)
	assert.Equal(t, "tRPC procedure failed", failed.Message)
	assert.Equal(t, "user.delete", failed.Fields["procedure"])
	assert.Equal(t, "mutation", failed.Fields["procedureType"])
	assert.Equal(t, "75ms", failed.Fields["duration"])
	assert.Equal(t, false, failed.Fields["success"])
	assert.Equal(t, "backend exploded", failed.Fields["error"])
	assert.Equal(t, "*errors.errorString", failed.Fields["errorType"])
}

func TestInterceptPanicError(t *testing.T) {
	reg := trpclog.NewRegistry()
	rec := logtest.NewRecorder()
	reg.Configure(trpclog.Config{Logger: rec})
	icept := trpclog.NewInterceptor(reg)

	errBoom := errors.New("kaboom")
	var recovered any
	func() {
		defer func() { recovered = recover() }()
		_, _ = icept.Intercept(context.Background(), trpclog.Call{
			Path: "user.delete",
			Type: "mutation",
			Next: func(ctx context.Context) (any, error) {
				panic(errBoom)
			},
		})
	}()

	require.NotNil(t, recovered)
	assert.Same(t, errBoom, recovered)

	entries := rec.Entries()
	require.Len(t, entries, 2)
	failed := entries[1]
	assert.Equal(t, logtest.LevelError, failed.Level)
	assert.Equal(t, "tRPC procedure failed", failed.Message)
	assert.Equal(t, false, failed.Fields["success"])
	assert.Equal(t, "kaboom", failed.Fields["error"])
	assert.Equal(t, "*errors.errorString", failed.Fields["errorType"])
}

func TestInterceptPanicString(t *testing.T) {
	reg := trpclog.NewRegistry()
	rec := logtest.NewRecorder()
	reg.Configure(trpclog.Config{Logger: rec})
	icept := trpclog.NewInterceptor(reg)

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		_, _ = icept.Intercept(context.Background(), trpclog.Call{
			Next: func(ctx context.Context) (any, error) {
				panic("not today")
			},
		})
	}()

	assert.Equal(t, "not today", recovered)

	entries := rec.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "not today", entries[1].Fields["error"])
	assert.Equal(t, "string", entries[1].Fields["errorType"])
}

func TestInterceptPanicValue(t *testing.T) {
	reg := trpclog.NewRegistry()
	rec := logtest.NewRecorder()
	reg.Configure(trpclog.Config{Logger: rec})
	icept := trpclog.NewInterceptor(reg)

	var recovered any
	func() {
		defer func() { recovered = recover() }()
		_, _ = icept.Intercept(context.Background(), trpclog.Call{
			Next: func(ctx context.Context) (any, error) {
				panic(404)
			},
		})
	}()

	assert.Equal(t, 404, recovered)

	entries := rec.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "404", entries[1].Fields["error"])
	assert.Equal(t, "int", entries[1].Fields["errorType"])
}

func TestInterceptReconfigureMidCall(t *testing.T) {
	reg := trpclog.NewRegistry()
	before := logtest.NewRecorder()
	after := logtest.NewRecorder()
	reg.Configure(trpclog.Config{Logger: before})
	icept := trpclog.NewInterceptor(reg)

	_, err := icept.Intercept(context.Background(), trpclog.Call{
		Path: "user.me",
		Type: "query",
		Next: func(ctx context.Context) (any, error) {
			reg.Configure(trpclog.Config{Logger: after})
			return nil, nil
		},
	})
	require.NoError(t, err)

	// the sink is re-read per statement, so the terminal entry lands on
	// the newly configured recorder
	require.Equal(t, 1, before.Len())
	require.Equal(t, 1, after.Len())
	assert.Equal(t, "tRPC procedure called", before.Entries()[0].Message)
	assert.Equal(t, "tRPC procedure completed", after.Entries()[0].Message)
}

func TestInterceptNilResult(t *testing.T) {
	reg := trpclog.NewRegistry()
	rec := logtest.NewRecorder()
	reg.Configure(trpclog.Config{Logger: rec})
	icept := trpclog.NewInterceptor(reg)

	result, err := icept.Intercept(context.Background(), trpclog.Call{
		Path: "auth.logout",
		Type: "mutation",
		Next: func(ctx context.Context) (any, error) { return nil, nil },
	})
	require.NoError(t, err)
	assert.Nil(t, result)

	entries := rec.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, true, entries[1].Fields["success"])
}

func TestInterceptDurationPattern(t *testing.T) {
	reg := trpclog.NewRegistry()
	rec := logtest.NewRecorder()
	reg.Configure(trpclog.Config{Logger: rec})
	icept := trpclog.NewInterceptor(reg)

	_, err := icept.Intercept(context.Background(), trpclog.Call{
		Path: "system.health",
		Type: "query",
		Next: func(ctx context.Context) (any, error) {
			time.Sleep(time.Millisecond)
			return "ok", nil
		},
	})
	require.NoError(t, err)

	entries := rec.Entries()
	require.Len(t, entries, 2)
	assert.Regexp(t, `^\d+ms$`, entries[1].Fields["duration"])
}

func TestInterceptContextPassthrough(t *testing.T) {
	reg := trpclog.NewRegistry()
	icept := trpclog.NewInterceptor(reg)

	ctx := callmeta.WithRequestID(context.Background(), "req-7")
	var seen string
	_, err := icept.Intercept(ctx, trpclog.Call{
		Next: func(ctx context.Context) (any, error) {
			seen, _ = callmeta.GetRequestID(ctx)
			return nil, nil
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "req-7", seen)
}

func TestInterceptDefaultSinkIsNoop(t *testing.T) {
	reg := trpclog.NewRegistry()
	icept := trpclog.NewInterceptor(reg)

	// nothing configured; the call must still run cleanly end to end
	result, err := icept.Intercept(context.Background(), trpclog.Call{
		Path: "user.me",
		Type: "query",
		Next: func(ctx context.Context) (any, error) { return 42, nil },
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}
