package origin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinyland-inc/tinyland-logging-middleware/lib/util/origin"
)

func TestMatch(t *testing.T) {
	for _, tc := range []struct {
		origin  string
		pattern string
		want    bool
	}{
		{"https://app.tinyland.dev", "https://app.tinyland.dev", true},
		{"https://APP.tinyland.DEV", "https://app.tinyland.dev", true},
		{"https://app.tinyland.dev", "https://*.tinyland.dev", true},
		{"https://api.tinyland.dev", "https://*.tinyland.dev", true},
		{"https://tinyland.dev", "https://*.tinyland.dev", false},
		{"https://a.b.tinyland.dev", "https://*.tinyland.dev", false},
		{"http://app.tinyland.dev", "https://*.tinyland.dev", false},
		{"https://evil.dev", "https://*.tinyland.dev", false},
		{"https://eviltinyland.dev", "https://*.tinyland.dev", false},
		{"http://localhost:3000", "http://localhost:3000", true},
		{"http://localhost:3001", "http://localhost:3000", false},
		{"https://anything.example", "*", true},
		{"", "https://app.tinyland.dev", false},
		{"not a url", "https://app.tinyland.dev", false},
	} {
		got, err := origin.Match(tc.origin, tc.pattern)
		require.NoError(t, err, "%s vs %s", tc.origin, tc.pattern)
		assert.Equal(t, tc.want, got, "%s vs %s", tc.origin, tc.pattern)
	}
}

func TestMatchBadPattern(t *testing.T) {
	_, err := origin.Match("https://app.tinyland.dev", "app.tinyland.dev")
	require.Error(t, err)
}
