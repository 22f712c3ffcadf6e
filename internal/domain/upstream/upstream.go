// Package upstream contains the domain types describing a route's upstream
// behavior: target URL, per-route timeouts, header injection/removal, egress
// proxy, and the upstream concurrency key.
package upstream

import (
	"net/url"
	"strings"
)

// HeaderPair is a single ordered name/value header to inject toward the
// upstream. A slice (not a map) preserves configuration order, which matters
// because injection order is observable in the upstream-key scan priority.
type HeaderPair struct {
	Name  string
	Value string
}

// ProxyProtocol identifies the egress proxy transport.
type ProxyProtocol string

const (
	ProxyHTTP  ProxyProtocol = "http"
	ProxyHTTPS ProxyProtocol = "https"
	ProxySOCKS ProxyProtocol = "socks"
)

// Proxy describes an optional egress proxy used when dialing the upstream.
type Proxy struct {
	Protocol ProxyProtocol
	Address  string // host:port
	Username string
	Password string
}

// Upstream describes how a route forwards requests to a third-party API.
type Upstream struct {
	// BaseURL is the absolute URL requests are forwarded to.
	BaseURL *url.URL
	// StripPrefix controls whether the route's prefix is removed from the
	// forwarded path. Defaults to true.
	StripPrefix bool
	// ConnectTimeoutMS bounds TCP/TLS establishment. Defaults to 10000.
	ConnectTimeoutMS int
	// RequestTimeoutMS bounds a non-SSE response, or the headers phase of an
	// SSE response. Defaults to 60000.
	RequestTimeoutMS int
	// InjectHeaders are set on the upstream-bound request, overwriting any
	// same-named client header, in configured order.
	InjectHeaders []HeaderPair
	// RemoveHeaders names headers (case-insensitive) stripped from the
	// upstream-bound request in addition to the fixed hop-by-hop set.
	RemoveHeaders map[string]struct{}
	// ForwardXFF controls whether client-IP forwarding headers are passed
	// through. Defaults to false.
	ForwardXFF bool
	// Proxy is an optional egress proxy.
	Proxy *Proxy
	// PerKeyMaxInflight is the route's effective upstream per-key cap: the
	// route's own override if set, else the global
	// upstream_per_key_max_inflight. Zero means no cap.
	PerKeyMaxInflight int
}

// KeyHeaderPriority is the fixed, ordered list of header names scanned to
// derive the route's upstream concurrency key. The first non-empty value
// wins; client headers never contribute to this key.
var KeyHeaderPriority = []string{"authorization", "x-api-key"}

// Key scans InjectHeaders in KeyHeaderPriority order and returns the first
// non-empty value found, along with whether one was found. This is a
// property of the static route configuration, computed once at startup.
func (u Upstream) Key() (string, bool) {
	lookup := make(map[string]string, len(u.InjectHeaders))
	for _, h := range u.InjectHeaders {
		name := strings.ToLower(h.Name)
		if _, exists := lookup[name]; !exists {
			lookup[name] = h.Value
		}
	}
	for _, name := range KeyHeaderPriority {
		if v, ok := lookup[name]; ok && v != "" {
			return v, true
		}
	}
	return "", false
}

// JoinPath joins BaseURL with rest, collapsing a doubled slash at the seam
// and preserving rawQuery verbatim.
func (u Upstream) JoinPath(rest, rawQuery string) string {
	base := u.BaseURL.String()
	var joined string
	if strings.HasSuffix(base, "/") && strings.HasPrefix(rest, "/") {
		joined = base + rest[1:]
	} else {
		joined = base + rest
	}
	if rawQuery != "" {
		joined += "?" + rawQuery
	}
	return joined
}
