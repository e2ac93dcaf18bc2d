package jrpcutil

import (
	"context"
	"encoding/json"

	"gfx.cafe/open/jrpc"
	"gfx.cafe/open/jrpc/pkg/jsonrpc"
)

// Do drives a handler in process: it builds a request for method with args,
// serves it, and unmarshals the captured response into result.
func Do(ctx context.Context, handler jrpc.Handler, result any, method string, args any) error {
	var rec Recorder
	r, err := jsonrpc.NewRequest(ctx, jsonrpc.NewNullIDPtr(), method, args)
	if err != nil {
		return err
	}
	handler.ServeRPC(&rec, r)
	if rec.Error != nil {
		return rec.Error
	}

	if res, ok := result.(*json.RawMessage); ok {
		if recRes, ok := rec.Result.(json.RawMessage); ok {
			*res = recRes
			return nil
		}

		*res, err = json.Marshal(rec.Result)
		return err
	}

	var b json.RawMessage
	b, err = json.Marshal(rec.Result)
	if err != nil {
		return err
	}

	return json.Unmarshal(b, result)
}
