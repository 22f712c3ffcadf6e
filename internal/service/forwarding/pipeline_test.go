package forwarding

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/Sentinel-Gate/aigatewayd/internal/domain/concurrency"
	"github.com/Sentinel-Gate/aigatewayd/internal/domain/ingress"
	"github.com/Sentinel-Gate/aigatewayd/internal/domain/ratelimit"
	"github.com/Sentinel-Gate/aigatewayd/internal/domain/route"
	"github.com/Sentinel-Gate/aigatewayd/internal/domain/upstream"
)

func newTestPipeline(t *testing.T, upstreamURL string) *Pipeline {
	t.Helper()
	base, err := url.Parse(upstreamURL)
	if err != nil {
		t.Fatalf("parse upstream url: %v", err)
	}

	up := upstream.Upstream{
		BaseURL:          base,
		StripPrefix:      true,
		ConnectTimeoutMS: 1000,
		RequestTimeoutMS: 5000,
	}
	rt := route.Route{ID: "openai", Prefix: "/openai", Upstream: up}
	table := route.NewTable([]route.Route{rt})

	runtimes := map[string]RouteRuntime{
		"openai": {Route: rt, Client: http.DefaultClient},
	}

	return New(Config{
		Table:          table,
		Runtimes:       runtimes,
		TokenSources:   []ingress.TokenSource{{Kind: ingress.SourceAuthorizationBearer}},
		AllowList:      ingress.NewAllowList([]string{"tok-good"}),
		RateLimiter:    nil,
		RateEnabled:    false,
		DownstreamGate: concurrency.NewDownstreamGate(0),
		UpstreamGates:  concurrency.NewUpstreamGates(nil),
	})
}

func TestPipelineRouteNotFound(t *testing.T) {
	p := newTestPipeline(t, "http://example.invalid")
	r := httptest.NewRequest(http.MethodGet, "/unknown", nil)
	r.Header.Set("Authorization", "Bearer tok-good")
	w := httptest.NewRecorder()

	p.ServeHTTP(w, r)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != `{"error":"route_not_found"}`+"\n" {
		t.Fatalf("unexpected body %q", w.Body.String())
	}
}

func TestPipelineUnauthorized(t *testing.T) {
	p := newTestPipeline(t, "http://example.invalid")
	r := httptest.NewRequest(http.MethodGet, "/openai/models", nil)
	r.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()

	p.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestPipelineHealthz(t *testing.T) {
	p := newTestPipeline(t, "http://example.invalid")
	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()

	p.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != `{"status":"ok"}` {
		t.Fatalf("unexpected body %q", w.Body.String())
	}
}

func TestPipelineForwardsSuccessfully(t *testing.T) {
	upstreamServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("expected rewritten path /models, got %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer UPSTREAM_SECRET" {
			t.Errorf("expected injected authorization header, got %q", got)
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer upstreamServer.Close()

	p := newTestPipeline(t, upstreamServer.URL)
	rt := p.runtimes["openai"].Route
	rt.Upstream.InjectHeaders = []upstream.HeaderPair{{Name: "Authorization", Value: "Bearer UPSTREAM_SECRET"}}
	p.runtimes["openai"] = RouteRuntime{Route: rt, Client: http.DefaultClient}
	p.table = route.NewTable([]route.Route{rt})

	r := httptest.NewRequest(http.MethodGet, "/openai/models", nil)
	r.Header.Set("Authorization", "Bearer tok-good")
	w := httptest.NewRecorder()

	p.ServeHTTP(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != "ok" {
		t.Fatalf("unexpected body %q", w.Body.String())
	}
}

func TestPipelineDownstreamConcurrencyExceeded(t *testing.T) {
	p := newTestPipeline(t, "http://example.invalid")
	p.downstreamGate = concurrency.NewDownstreamGate(1)
	permit, ok := p.downstreamGate.TryAcquire()
	if !ok {
		t.Fatal("expected first acquire to succeed")
	}
	defer permit.Release()

	r := httptest.NewRequest(http.MethodGet, "/openai/models", nil)
	r.Header.Set("Authorization", "Bearer tok-good")
	w := httptest.NewRecorder()

	p.ServeHTTP(w, r)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	if w.Body.String() != `{"error":"downstream_concurrency_exceeded"}`+"\n" {
		t.Fatalf("unexpected body %q", w.Body.String())
	}
}

func TestPipelineRateLimited(t *testing.T) {
	p := newTestPipeline(t, "http://example.invalid")
	p.rateEnabled = true
	p.ratePerMinute = 1
	p.rateLimiter = ratelimit.NewFixedWindowLimiter()

	r1 := httptest.NewRequest(http.MethodGet, "/openai/models", nil)
	r1.Header.Set("Authorization", "Bearer tok-good")
	w1 := httptest.NewRecorder()
	p.ServeHTTP(w1, r1)
	if w1.Code == http.StatusTooManyRequests {
		t.Fatalf("first request should not be rate limited")
	}

	r2 := httptest.NewRequest(http.MethodGet, "/openai/models", nil)
	r2.Header.Set("Authorization", "Bearer tok-good")
	w2 := httptest.NewRecorder()
	p.ServeHTTP(w2, r2)
	if w2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on second request, got %d", w2.Code)
	}
	if w2.Header().Get("Retry-After") == "" {
		t.Fatal("expected Retry-After header on rate-limited response")
	}
}
