// Package forwarding wires the route table, token extractor, rate limiter,
// concurrency gates, header transformer, upstream clients, stream bridge,
// and CORS adjunct into a single http.Handler: the gateway's request
// pipeline.
package forwarding

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Sentinel-Gate/aigatewayd/internal/adapter/inbound/gatewayhttp"
	"github.com/Sentinel-Gate/aigatewayd/internal/adapter/outbound/metrics"
	"github.com/Sentinel-Gate/aigatewayd/internal/adapter/outbound/tracing"
	"github.com/Sentinel-Gate/aigatewayd/internal/adapter/outbound/upstreamclient"
	"github.com/Sentinel-Gate/aigatewayd/internal/domain/concurrency"
	"github.com/Sentinel-Gate/aigatewayd/internal/domain/headers"
	"github.com/Sentinel-Gate/aigatewayd/internal/domain/ingress"
	"github.com/Sentinel-Gate/aigatewayd/internal/domain/ratelimit"
	"github.com/Sentinel-Gate/aigatewayd/internal/domain/route"
	"github.com/Sentinel-Gate/aigatewayd/internal/domain/upstream"
)

// RouteRuntime bundles a route with its precomputed upstream key digest,
// its pre-built client, and its effective per-key concurrency cap.
type RouteRuntime struct {
	Route             route.Route
	Client            *http.Client
	KeyDigest         string
	HasKey            bool
	PerKeyMaxInflight int
}

// Pipeline is the gateway's composed request handler.
type Pipeline struct {
	table          *route.Table
	runtimes       map[string]RouteRuntime // by route ID
	tokenSources   []ingress.TokenSource
	allowList      *ingress.AllowList
	rateLimiter    ratelimit.Limiter
	rateEnabled    bool
	ratePerMinute  int
	downstreamGate *concurrency.DownstreamGate
	upstreamGates  *concurrency.UpstreamGates
	cors           *gatewayhttp.CORSPolicy
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

// Config collects the dependencies required to build a Pipeline. The
// rate-limit fields and CORS may take zero values to disable those
// adjuncts (RateLimiter is only consulted when RateEnabled is true). A nil
// Logger falls back to slog.Default(); a nil Metrics disables recording.
type Config struct {
	Table          *route.Table
	Runtimes       map[string]RouteRuntime
	TokenSources   []ingress.TokenSource
	AllowList      *ingress.AllowList
	RateLimiter    ratelimit.Limiter
	RateEnabled    bool
	RatePerMinute  int
	DownstreamGate *concurrency.DownstreamGate
	UpstreamGates  *concurrency.UpstreamGates
	CORS           *gatewayhttp.CORSPolicy
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
}

// New builds a Pipeline from cfg.
func New(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		table:          cfg.Table,
		runtimes:       cfg.Runtimes,
		tokenSources:   cfg.TokenSources,
		allowList:      cfg.AllowList,
		rateLimiter:    cfg.RateLimiter,
		rateEnabled:    cfg.RateEnabled,
		ratePerMinute:  cfg.RatePerMinute,
		downstreamGate: cfg.DownstreamGate,
		upstreamGates:  cfg.UpstreamGates,
		cors:           cfg.CORS,
		logger:         logger,
		metrics:        cfg.Metrics,
	}
}

// applyCORS sets the CORS response headers if CORS is configured. Must be
// called before the first WriteHeader on w: headers set afterward are
// silently dropped by net/http.
func (p *Pipeline) applyCORS(w http.ResponseWriter, r *http.Request) {
	if p.cors != nil {
		p.cors.ApplyResponseHeaders(w, r)
	}
}

func (p *Pipeline) recordRejection(gate string) {
	if p.metrics != nil {
		p.metrics.AdmissionRejections.WithLabelValues(gate).Inc()
	}
}

// ServeHTTP implements http.Handler, running the full pipeline ordering
// from spec.md §4.9: resolve route, extract & validate token, rate-limit
// admission, downstream admission, upstream admission, transform request
// headers, send upstream request, stream the response, release permits.
func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/healthz" {
		p.serveHealthz(w)
		return
	}

	if p.cors != nil && p.cors.IsPreflight(r) {
		p.cors.HandlePreflight(w, r)
		return
	}

	requestID := uuid.NewString()
	ctx := gatewayhttp.WithRequestID(r.Context(), p.logger, requestID)
	r = r.WithContext(ctx)
	w.Header().Set("X-Request-Id", requestID)

	rt, ok := p.table.Match(r.URL.Path)
	if !ok {
		p.applyCORS(w, r)
		gatewayhttp.WriteError(w, gatewayhttp.ErrRouteNotFound, 0)
		return
	}
	log := gatewayhttp.LoggerFromContext(r.Context()).With("route_id", rt.ID)

	spanCtx, span := tracing.StartForwardSpan(r.Context(), rt.ID)
	r = r.WithContext(spanCtx)
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	w = recorder
	sse := false
	defer func() { tracing.EndForwardSpan(span, recorder.status, sse) }()

	p.applyCORS(w, r)

	token, ok := ingress.Extract(r, p.tokenSources)
	if !ok || !p.allowList.Allowed(token) {
		gatewayhttp.WriteError(w, gatewayhttp.ErrUnauthorized, 0)
		return
	}

	if p.rateEnabled {
		result := p.rateLimiter.Allow(ratelimit.Key{Token: token, RouteID: rt.ID}, p.ratePerMinute)
		if sized, ok := p.rateLimiter.(interface{ Size() int }); ok && p.metrics != nil {
			p.metrics.RateLimitKeys.Set(float64(sized.Size()))
		}
		if !result.Allowed {
			p.recordRejection("rate_limit")
			gatewayhttp.WriteError(w, gatewayhttp.ErrRateLimited, result.RetryAfter)
			return
		}
	}

	downstreamPermit, ok := p.downstreamGate.TryAcquire()
	if !ok {
		p.recordRejection("downstream")
		gatewayhttp.WriteError(w, gatewayhttp.ErrDownstreamConcurrencyFull, 0)
		return
	}
	defer downstreamPermit.Release()

	runtime := p.runtimes[rt.ID]
	var upstreamPermit concurrency.Permit
	if runtime.HasKey {
		permit, ok := p.upstreamGates.TryAcquire(rt.ID, runtime.KeyDigest)
		if !ok {
			p.recordRejection("upstream")
			gatewayhttp.WriteError(w, gatewayhttp.ErrUpstreamConcurrencyFull, 0)
			return
		}
		upstreamPermit = permit
	}
	defer upstreamPermit.Release()

	upstreamPath := route.RewritePath(rt, r.URL.Path)
	upstreamURL := rt.Upstream.JoinPath(upstreamPath, r.URL.RawQuery)

	upstreamReq, err := http.NewRequestWithContext(r.Context(), r.Method, upstreamURL, r.Body)
	if err != nil {
		gatewayhttp.WriteError(w, gatewayhttp.ErrUpstreamRequestFailed, 0)
		return
	}
	upstreamReq.Header = headers.TransformRequest(r.Header, rt.Upstream)
	upstreamReq.ContentLength = r.ContentLength

	if gatewayhttp.IsUpgrade(r) {
		p.forwardUpgrade(w, r, rt, upstreamReq, log)
		return
	}

	requestTimeout := time.Duration(rt.Upstream.RequestTimeoutMS) * time.Millisecond
	result := gatewayhttp.Forward(r.Context(), runtime.Client, upstreamReq, w, requestTimeout)
	sse = result.SSE
	if !result.HeadersSent && result.Code != "" {
		gatewayhttp.WriteError(w, result.Code, 0)
		return
	}
	if result.Code != "" {
		log.Warn("stream aborted after headers sent", "code", string(result.Code))
	}
}

// forwardUpgrade handles a protocol-upgrade request (e.g. a WebSocket
// handshake) by dialing the upstream directly and, once it accepts the
// handshake, relaying the hijacked connection byte-for-byte in both
// directions. Non-101 upstream responses are relayed as an ordinary
// response instead.
func (p *Pipeline) forwardUpgrade(w http.ResponseWriter, r *http.Request, rt route.Route, upstreamReq *http.Request, log *slog.Logger) {
	resp, conn, err := upstreamclient.DialUpgrade(r.Context(), rt.Upstream, upstreamReq)
	if err != nil {
		gatewayhttp.WriteError(w, gatewayhttp.ErrUpstreamConnectFailed, 0)
		return
	}
	defer conn.Close()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusSwitchingProtocols {
		for k, vv := range headers.TransformResponse(resp.Header) {
			for _, v := range vv {
				w.Header().Add(k, v)
			}
		}
		w.WriteHeader(resp.StatusCode)
		_, _ = io.Copy(w, resp.Body)
		return
	}

	if err := gatewayhttp.ForwardUpgrade(w, conn, resp); err != nil {
		log.Warn("upgrade relay ended", "error", err)
	}
}

func (p *Pipeline) serveHealthz(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// statusRecorder wraps http.ResponseWriter to capture the status code for
// tracing, while still delegating Flush so SSE responses continue to
// stream through it.
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

// Hijack delegates to the underlying ResponseWriter so upgrade requests can
// still hijack the connection through this wrapper.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("forwarding: underlying response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

// KeyDigest computes the upstream concurrency key digest for u, or reports
// false if the route has no recognizable key.
func KeyDigest(u upstream.Upstream) (string, bool) {
	key, ok := u.Key()
	if !ok {
		return "", false
	}
	return upstream.KeyDigest(key), true
}
