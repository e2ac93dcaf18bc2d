package jrpcutil

import (
	"errors"

	"gfx.cafe/open/jrpc"
	"gfx.cafe/open/jrpc/pkg/jsonrpc"
)

// Recorder is a ResponseWriter that captures the response instead of writing
// it, so middlewares can observe a call's outcome before forwarding it.
type Recorder struct {
	Result any
	Error  error

	extraFields jsonrpc.ExtraFields
}

func (T *Recorder) Notify(_ string, _ any) error {
	return errors.New("not supported")
}

func (T *Recorder) Send(v any, err error) error {
	T.Result, T.Error = v, err
	return nil
}

func (T *Recorder) ExtraFields() jsonrpc.ExtraFields {
	if T.extraFields == nil {
		T.extraFields = make(jsonrpc.ExtraFields)
	}
	return T.extraFields
}

var _ jrpc.ResponseWriter = (*Recorder)(nil)
