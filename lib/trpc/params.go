package trpc

import (
	"encoding/json"

	"gfx.cafe/open/jrpc/pkg/jsonrpc"
	"github.com/bytedance/sonic"
)

// DecodeParams unmarshals raw call params into a typed value. Empty params
// decode to the zero value; the procedure decides whether that is valid.
func DecodeParams[T any](params json.RawMessage) (T, error) {
	var v T
	if len(params) == 0 {
		return v, nil
	}
	if err := sonic.Unmarshal(params, &v); err != nil {
		return v, jsonrpc.NewInvalidParamsError("params must be valid json")
	}
	return v, nil
}
