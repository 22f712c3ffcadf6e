package gatewayhttp

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/Sentinel-Gate/aigatewayd/internal/domain/headers"
)

// Result reports the outcome of forwarding one request to its upstream and
// streaming the response back to the client.
type Result struct {
	// HeadersSent indicates whether response headers were already written
	// to the client. Once true, no JSON error body may follow: the HTTP
	// framing is committed.
	HeadersSent bool
	// Code is the error taxonomy code for a failure that occurred before
	// HeadersSent, or "" on success (or on a failure after HeadersSent,
	// where no body can be written anymore).
	Code ErrorCode
	// SSE reports whether the upstream response was identified as a
	// Server-Sent Events stream.
	SSE bool
}

const sseContentTypePrefix = "text/event-stream"

// Forward sends req (already header-transformed) via client and streams the
// response body to w verbatim, applying the SSE vs non-SSE request-timeout
// regime from spec.md §4.7: the deadline bounds send-initiation through
// response headers always, and continues to bound the full body only for
// non-SSE responses. ctx is the inbound request's context, canceled on
// client disconnect.
func Forward(ctx context.Context, client *http.Client, req *http.Request, w http.ResponseWriter, requestTimeout time.Duration) Result {
	headerCtx, cancelHeaderPhase := context.WithCancel(ctx)
	timer := time.AfterFunc(requestTimeout, cancelHeaderPhase)
	defer timer.Stop()

	resp, err := client.Do(req.WithContext(headerCtx))
	if err != nil {
		if !timer.Stop() {
			return Result{Code: ErrUpstreamTimeout}
		}
		if ctx.Err() != nil {
			return Result{}
		}
		return Result{Code: classifyConnectErr(err)}
	}
	defer resp.Body.Close()

	sse := isSSE(resp.Header.Get("Content-Type"))
	if sse {
		// Headers confirmed: the total-duration bound no longer applies.
		timer.Stop()
	}

	for k, vv := range headers.TransformResponse(resp.Header) {
		for _, v := range vv {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32*1024)
	for {
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return Result{HeadersSent: true, SSE: sse}
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if rerr != nil {
			// EOF, deadline expiry, or client disconnect: the response is
			// already committed, so there is nothing left to do but stop.
			return Result{HeadersSent: true, SSE: sse}
		}
	}
}

func isSSE(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), sseContentTypePrefix)
}

// classifyConnectErr distinguishes a connect-timeout expiry
// (upstream_timeout) from a dial-phase failure (upstream_connect_error) and
// from a failure after the connection was established
// (upstream_request_error), matching spec.md §4.7 and §7's split. The
// connect timeout is enforced by net.Dialer itself, independent of the
// request-timeout timer above, so it can expire and surface here as a
// *net.OpError even while that timer is still pending.
func classifyConnectErr(err error) ErrorCode {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() || errors.Is(opErr, os.ErrDeadlineExceeded) {
			return ErrUpstreamTimeout
		}
		if opErr.Op == "dial" {
			return ErrUpstreamConnectFailed
		}
	}
	if errors.Is(err, io.EOF) {
		return ErrUpstreamConnectFailed
	}
	return ErrUpstreamRequestFailed
}
