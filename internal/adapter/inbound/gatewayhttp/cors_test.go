package gatewayhttp

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Sentinel-Gate/aigatewayd/internal/config"
)

func TestIsPreflightRequiresOriginAndMethod(t *testing.T) {
	cors := NewCORSPolicy(config.CORSConfig{Enabled: true})

	r := httptest.NewRequest(http.MethodOptions, "/openai/x", nil)
	if cors.IsPreflight(r) {
		t.Fatal("expected no preflight without Origin/Access-Control-Request-Method")
	}

	r.Header.Set("Origin", "https://app.example.com")
	r.Header.Set("Access-Control-Request-Method", "POST")
	if !cors.IsPreflight(r) {
		t.Fatal("expected preflight detected")
	}
}

func TestHandlePreflightAllowedOrigin(t *testing.T) {
	cors := NewCORSPolicy(config.CORSConfig{
		Enabled:      true,
		AllowOrigins: []string{"https://app.example.com"},
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Authorization"},
	})
	r := httptest.NewRequest(http.MethodOptions, "/openai/x", nil)
	r.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()

	cors.HandlePreflight(w, r)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Fatalf("unexpected allow-origin %q", got)
	}
}

func TestHandlePreflightDisallowedOrigin(t *testing.T) {
	cors := NewCORSPolicy(config.CORSConfig{Enabled: true, AllowOrigins: []string{"https://other.example.com"}})
	r := httptest.NewRequest(http.MethodOptions, "/openai/x", nil)
	r.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()

	cors.HandlePreflight(w, r)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no allow-origin header, got %q", got)
	}
}

func TestApplyResponseHeadersWildcard(t *testing.T) {
	cors := NewCORSPolicy(config.CORSConfig{Enabled: true, AllowOrigins: []string{"*"}, ExposeHeaders: []string{"X-Request-Id"}})
	r := httptest.NewRequest(http.MethodGet, "/openai/x", nil)
	r.Header.Set("Origin", "https://anything.example.com")
	w := httptest.NewRecorder()

	cors.ApplyResponseHeaders(w, r)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://anything.example.com" {
		t.Fatalf("unexpected allow-origin %q", got)
	}
	if got := w.Header().Get("Access-Control-Expose-Headers"); got != "X-Request-Id" {
		t.Fatalf("unexpected expose-headers %q", got)
	}
}

func TestApplyResponseHeadersDisabled(t *testing.T) {
	cors := NewCORSPolicy(config.CORSConfig{Enabled: false})
	r := httptest.NewRequest(http.MethodGet, "/openai/x", nil)
	r.Header.Set("Origin", "https://app.example.com")
	w := httptest.NewRecorder()

	cors.ApplyResponseHeaders(w, r)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no header when disabled, got %q", got)
	}
}
