package trpclog

import "time"

// SetClock swaps the interceptor's time source.
func SetClock(i *Interceptor, now func() time.Time) {
	i.now = now
}

var ClassifyFailure = classifyFailure
