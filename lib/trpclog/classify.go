package trpclog

import "fmt"

// classifyFailure derives the log representation of a failure value: the
// message string and the concrete kind of the value. Failures are either
// error values returned by the continuation or arbitrary values recovered
// from a panic, so the classification covers the closed set of shapes
// {error, string, nil, anything else} rather than assuming error.
func classifyFailure(v any) (message string, kind string) {
	switch f := v.(type) {
	case nil:
		return "<nil>", "nil"
	case error:
		return f.Error(), fmt.Sprintf("%T", f)
	case string:
		return f, "string"
	default:
		return fmt.Sprint(f), fmt.Sprintf("%T", f)
	}
}
