package util

import (
	"errors"

	"gfx.cafe/open/jrpc/pkg/jsonrpc"
)

// ClientError reports whether err was caused by the caller rather than the
// service: malformed requests, unknown procedures, bad params, rate limits.
// Metrics split on this so dashboards don't page over bad input.
func ClientError(err error) bool {
	if err == nil {
		return false
	}

	var codecError jsonrpc.Error
	if errors.As(err, &codecError) {
		switch codecError.ErrorCode() {
		case -32700, // parse error
			-32600, // invalid request
			-32601, // method not found
			-32602, // invalid params
			401,
			403,
			429:
			return true
		}
	}

	return false
}
