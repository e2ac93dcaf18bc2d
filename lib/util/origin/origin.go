// Package origin matches request Origin headers against configured allowlist
// patterns.
package origin

import (
	"fmt"
	"net/url"
	"strings"
)

// Match reports whether the request origin o satisfies pattern. Patterns
// compare scheme and host only; a "*" host label matches exactly one dns
// label, so "https://*.tinyland.dev" allows "https://app.tinyland.dev" but
// not "https://tinyland.dev" or "https://a.b.tinyland.dev". The bare pattern
// "*" allows everything.
func Match(o string, pattern string) (bool, error) {
	if pattern == "*" {
		return true, nil
	}
	parsedPattern, err := url.Parse(pattern)
	if err != nil {
		return false, fmt.Errorf("invalid origin pattern %q: %w", pattern, err)
	}
	if parsedPattern.Scheme == "" || parsedPattern.Host == "" {
		return false, fmt.Errorf("origin pattern %q must be scheme://host", pattern)
	}
	parsed, err := url.Parse(o)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		// a malformed origin header never matches, but it is the caller's
		// problem, not a config error
		return false, nil
	}
	if !strings.EqualFold(parsed.Scheme, parsedPattern.Scheme) {
		return false, nil
	}
	return hostMatch(parsed.Host, parsedPattern.Host), nil
}

func hostMatch(host, pattern string) bool {
	hostLabels := strings.Split(strings.ToLower(host), ".")
	patternLabels := strings.Split(strings.ToLower(pattern), ".")
	if len(hostLabels) != len(patternLabels) {
		return false
	}
	for i, label := range patternLabels {
		if label == "*" {
			continue
		}
		if label != hostLabels[i] {
			return false
		}
	}
	return true
}
