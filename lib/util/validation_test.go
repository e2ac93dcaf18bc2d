package util_test

import (
	"context"
	"strings"
	"testing"

	"gfx.cafe/open/jrpc"
	"gfx.cafe/open/jrpc/pkg/jsonrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/jrpcutil"
	"github.com/tinyland-inc/tinyland-logging-middleware/lib/util"
)

func echoMethod() jrpc.Handler {
	return jrpc.HandlerFunc(func(w jrpc.ResponseWriter, r *jrpc.Request) {
		_ = w.Send(r.Method, nil)
	})
}

func TestProcedureValidationMiddleware(t *testing.T) {
	ctx := context.Background()
	h := util.ProcedureValidationMiddleware()(echoMethod())

	var out string
	require.NoError(t, jrpcutil.Do(ctx, h, &out, "user.me", nil))
	assert.Equal(t, "user.me", out)

	for _, path := range []string{
		".user.me",
		"user.me.",
		"internal.debug",
		strings.Repeat("a", 300),
	} {
		err := jrpcutil.Do(ctx, h, &out, path, nil)
		require.Error(t, err, path)
		var codecError jsonrpc.Error
		require.ErrorAs(t, err, &codecError, path)
		assert.EqualValues(t, -32600, codecError.ErrorCode(), path)
	}
}
