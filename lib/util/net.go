package util

import "net"

// HostFromRemoteAddr strips the port from an http.Request RemoteAddr. Values
// without a port (already rewritten from a trusted header) pass through as-is.
func HostFromRemoteAddr(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
