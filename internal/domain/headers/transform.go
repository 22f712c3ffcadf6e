// Package headers implements the gateway's request/response header
// transformation rules: hop-by-hop stripping, configured removal,
// client-IP stripping, and upstream header injection.
package headers

import (
	"net/http"

	"github.com/Sentinel-Gate/aigatewayd/internal/domain/upstream"
)

// HopByHop lists headers that apply only to a single transport hop and must
// never be forwarded end-to-end (RFC 7230 Section 6.1).
var HopByHop = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Authorization",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// ClientIPHeaders lists headers that reveal the client's origin IP, removed
// unless the route's upstream explicitly opts in via ForwardXFF.
var ClientIPHeaders = []string{
	"X-Forwarded-For",
	"Forwarded",
	"Cf-Connecting-Ip",
	"True-Client-Ip",
}

// TransformRequest builds the upstream-bound header set from the client's
// request headers and a route's upstream configuration. The input header
// set is not mutated; a new http.Header is returned.
func TransformRequest(client http.Header, u upstream.Upstream) http.Header {
	out := client.Clone()
	if out == nil {
		out = make(http.Header)
	}

	for _, h := range HopByHop {
		out.Del(h)
	}
	for name := range u.RemoveHeaders {
		out.Del(name)
	}
	if !u.ForwardXFF {
		for _, h := range ClientIPHeaders {
			out.Del(h)
		}
	}
	for _, pair := range u.InjectHeaders {
		out.Del(pair.Name)
		out.Set(pair.Name, pair.Value)
	}
	return out
}

// TransformResponse builds the client-bound header set from the upstream's
// response headers, stripping hop-by-hop headers. Framing headers for SSE
// responses (Content-Type, Cache-Control, etc.) are ordinary headers here
// and pass through untouched.
func TransformResponse(upstreamHeaders http.Header) http.Header {
	out := upstreamHeaders.Clone()
	if out == nil {
		out = make(http.Header)
	}
	for _, h := range HopByHop {
		out.Del(h)
	}
	return out
}
