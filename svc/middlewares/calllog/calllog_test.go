package calllog_test

import (
	"context"
	"encoding/json"
	"testing"

	"gfx.cafe/open/jrpc"
	"gfx.cafe/open/jrpc/pkg/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/jrpcutil"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/trpc"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/trpclog"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/trpclog/logtest"
	"github.com/tinyland-inc/tinyland-logging-middleware/svc/middlewares/calllog"
)

func newTestCallLog(t *testing.T) (*calllog.CallLog, *logtest.Recorder) {
	t.Helper()
	router := trpc.NewRouter()
	require.NoError(t, router.Handle(trpc.Procedure{
		Path: "user.me",
		Kind: trpc.KindQuery,
		Handler: func(ctx context.Context, params json.RawMessage) (any, error) {
			return nil, nil
		},
	}))

	rec := logtest.NewRecorder()
	registry := trpclog.NewRegistry()
	registry.Configure(trpclog.Config{Logger: rec})

	res := calllog.New(calllog.CallLogParams{
		Registry: registry,
		Router:   router,
	})
	return res.CallLog, rec
}

func TestMiddlewareLogsLifecycle(t *testing.T) {
	cl, rec := newTestCallLog(t)

	h := cl.Middleware(jrpc.HandlerFunc(func(w jsonrpc.ResponseWriter, r *jsonrpc.Request) {
		_ = w.Send("pong", nil)
	}))

	var out string
	require.NoError(t, jrpcutil.Do(context.Background(), h, &out, "user.me", nil))
	assert.Equal(t, "pong", out)

	entries := rec.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "tRPC procedure called", entries[0].Message)
	assert.Equal(t, "user.me", entries[0].Fields["procedure"])
	assert.Equal(t, "query", entries[0].Fields["procedureType"])
	assert.Equal(t, "tRPC procedure completed", entries[1].Message)
	assert.Equal(t, true, entries[1].Fields["success"])
}

func TestMiddlewareForwardsErrors(t *testing.T) {
	cl, rec := newTestCallLog(t)

	sent := jsonrpc.NewInvalidParamsError("bad params")
	h := cl.Middleware(jrpc.HandlerFunc(func(w jsonrpc.ResponseWriter, r *jsonrpc.Request) {
		_ = w.Send(nil, sent)
	}))

	var out any
	err := jrpcutil.Do(context.Background(), h, &out, "user.me", nil)
	require.Error(t, err)

	var jerr jsonrpc.Error
	require.ErrorAs(t, err, &jerr)
	assert.EqualValues(t, -32602, jerr.ErrorCode())

	entries := rec.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "tRPC procedure failed", entries[1].Message)
	assert.Equal(t, logtest.LevelError, entries[1].Level)
	assert.Equal(t, false, entries[1].Fields["success"])
}

func TestMiddlewareUnknownProcedureType(t *testing.T) {
	cl, rec := newTestCallLog(t)

	h := cl.Middleware(jrpc.HandlerFunc(func(w jsonrpc.ResponseWriter, r *jsonrpc.Request) {
		_ = w.Send("ok", nil)
	}))

	var out string
	require.NoError(t, jrpcutil.Do(context.Background(), h, &out, "not.registered", nil))

	entries := rec.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "unknown", entries[0].Fields["procedureType"])
	assert.Equal(t, "not.registered", entries[0].Fields["procedure"])
}
