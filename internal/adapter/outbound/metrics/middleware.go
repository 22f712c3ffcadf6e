package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Middleware wraps an HTTP handler to record request_duration_seconds and
// requests_total by method, skipping /healthz and /metrics themselves. Route
// and admission-gate specific metrics are recorded by the forwarding
// pipeline directly, since only it knows which route matched.
func Middleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			wrapped := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			m.InflightDownstream.Inc()
			next.ServeHTTP(wrapped, r)
			m.InflightDownstream.Dec()

			m.RequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
			m.RequestsTotal.WithLabelValues(r.Method, statusToOutcome(wrapped.status)).Inc()
		})
	}
}

// statusRecorder wraps http.ResponseWriter to capture the status code while
// still delegating Flush so SSE responses continue to stream through the
// middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack delegates to the underlying ResponseWriter so protocol-upgrade
// requests can still hijack the connection through this wrapper.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("metrics: underlying response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

func statusToOutcome(code int) string {
	if code >= 200 && code < 400 {
		return "ok"
	}
	return "error"
}
