package upstreamclient

import (
	"net/http"
	"testing"

	"github.com/Sentinel-Gate/aigatewayd/internal/domain/upstream"
)

func TestNewAppliesNoClientTimeout(t *testing.T) {
	c, err := New(upstream.Upstream{ConnectTimeoutMS: 1000})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Timeout != 0 {
		t.Fatalf("expected zero client timeout, got %v", c.Timeout)
	}
}

func TestNewHTTPProxyConfiguresProxyFunc(t *testing.T) {
	c, err := New(upstream.Upstream{
		ConnectTimeoutMS: 1000,
		Proxy:            &upstream.Proxy{Protocol: upstream.ProxyHTTP, Address: "proxy.internal:3128"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	transport := c.Transport.(*http.Transport)
	if transport.Proxy == nil {
		t.Fatal("expected proxy func to be set")
	}
	req, _ := http.NewRequest(http.MethodGet, "https://api.example.com/x", nil)
	proxyURL, err := transport.Proxy(req)
	if err != nil {
		t.Fatalf("proxy func: %v", err)
	}
	if proxyURL.Host != "proxy.internal:3128" {
		t.Fatalf("unexpected proxy host %q", proxyURL.Host)
	}
}

func TestNewSOCKSProxyConfiguresDialContext(t *testing.T) {
	c, err := New(upstream.Upstream{
		ConnectTimeoutMS: 1000,
		Proxy:            &upstream.Proxy{Protocol: upstream.ProxySOCKS, Address: "socks.internal:1080"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	transport := c.Transport.(*http.Transport)
	if transport.DialContext == nil {
		t.Fatal("expected DialContext to be overridden for socks proxy")
	}
}

func TestNewUnknownProxyProtocolFails(t *testing.T) {
	_, err := New(upstream.Upstream{
		ConnectTimeoutMS: 1000,
		Proxy:            &upstream.Proxy{Protocol: "ftp", Address: "x:1"},
	})
	if err == nil {
		t.Fatal("expected error for unknown proxy protocol")
	}
}
