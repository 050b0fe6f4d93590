// Package network extracts client addresses from incoming requests.
package network

import (
	"net"
	"net/http"
	"strings"
)

// ForwardedFor returns the for= parameter of the first element of an RFC 7239
// Forwarded header, e.g. "for=12.34.56.78;host=example.com, for=23.45.67.89"
// yields "12.34.56.78". It returns "" when the first element has no for=.
func ForwardedFor(field string) string {
	first, _, _ := strings.Cut(field, ",")
	for _, pair := range strings.Split(first, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || !strings.EqualFold(name, "for") {
			continue
		}
		return strings.Trim(value, `"`)
	}
	return ""
}

// RemoteAddr returns the client address for r, preferring the Forwarded
// header over the socket peer.
func RemoteAddr(r *http.Request) string {
	if forwarded := r.Header.Get("Forwarded"); forwarded != "" {
		if addr := ForwardedFor(forwarded); addr != "" {
			return addr
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
