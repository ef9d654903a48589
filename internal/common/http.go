package common

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP returns the caller's address, preferring the first valid entry of
// X-Forwarded-For, then X-Real-IP, then RemoteAddr. Invalid header values are
// ignored so a spoofed garbage header cannot collapse every caller into one key.
func ClientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	for _, part := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if addr, ok := parseAddr(part); ok {
			return addr.String()
		}
	}
	if addr, ok := parseAddr(r.Header.Get("X-Real-IP")); ok {
		return addr.String()
	}
	remote := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(remote); err == nil {
		remote = host
	}
	if addr, ok := parseAddr(remote); ok {
		return addr.String()
	}
	return remote
}

// ClientNetwork groups IPv6 callers by their /64 so one host cannot dodge the
// AI rate limit by rotating addresses. IPv4 callers are returned unchanged.
func ClientNetwork(r *http.Request) string {
	ip := ClientIP(r)
	addr, ok := parseAddr(ip)
	if !ok || addr.Is4() {
		return ip
	}
	prefix, err := addr.Prefix(64)
	if err != nil {
		return ip
	}
	return prefix.String()
}

func parseAddr(s string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}
