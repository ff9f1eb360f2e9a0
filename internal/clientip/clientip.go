// Package clientip picks the caller's public IP from proxy headers.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// DefaultIP is returned when neither headers nor the peer address yield a value.
const DefaultIP = "127.0.0.1"

// HeaderPriority lists the proxy headers inspected, highest trust first.
var HeaderPriority = []string{
	"CF-Connecting-IP",
	"True-Client-IP",
	"X-Real-IP",
	"X-Forwarded-For",
	"X-Client-IP",
	"Forwarded",
}

// HeaderLookup returns the raw value of a header, or "" when absent.
type HeaderLookup func(name string) string

// Resolve returns the first non-private candidate found by scanning headers in
// HeaderPriority order and the comma-separated tokens of each header left to
// right. Falls back to peerAddress, then DefaultIP. Never returns "".
func Resolve(lookup HeaderLookup, peerAddress string) string {
	if lookup != nil {
		for _, name := range HeaderPriority {
			raw := lookup(name)
			if raw == "" {
				continue
			}
			for _, token := range strings.Split(strings.ReplaceAll(raw, `"`, ""), ",") {
				ip := strings.TrimSpace(token)
				if ip != "" && !IsPrivate(ip) {
					return ip
				}
			}
		}
	}
	if peerAddress != "" {
		return peerAddress
	}
	return DefaultIP
}

// FromRequest resolves the client IP of r using its headers and RemoteAddr.
func FromRequest(r *http.Request) string {
	return Resolve(r.Header.Get, peerHost(r.RemoteAddr))
}

// IsPrivate reports whether ip is exactly 127.0.0.1 or textually starts with a
// 10/8, 172.16/12 or 192.168/16 prefix. IPv6 and other reserved ranges pass
// through unfiltered.
func IsPrivate(ip string) bool {
	switch {
	case ip == "127.0.0.1":
		return true
	case strings.HasPrefix(ip, "10."):
		return true
	case strings.HasPrefix(ip, "192.168."):
		return true
	case strings.HasPrefix(ip, "172."):
		rest := ip[len("172."):]
		dot := strings.IndexByte(rest, '.')
		if dot != 2 {
			return false
		}
		second := rest[:dot]
		return (second[0] == '1' && second[1] >= '6' && second[1] <= '9') ||
			(second[0] == '2' && second[1] >= '0' && second[1] <= '9') ||
			(second[0] == '3' && second[1] >= '0' && second[1] <= '1')
	}
	return false
}

// peerHost strips the port from a RemoteAddr value. Addresses without a port
// are returned unchanged.
func peerHost(remoteAddr string) string {
	if remoteAddr == "" {
		return ""
	}
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
