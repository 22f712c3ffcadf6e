package headers

import (
	"net/http"
	"testing"

	"github.com/Sentinel-Gate/aigatewayd/internal/domain/upstream"
)

func TestTransformRequestInjectionOverridesClient(t *testing.T) {
	client := make(http.Header)
	client.Set("Authorization", "Bearer CLIENT")

	u := upstream.Upstream{InjectHeaders: []upstream.HeaderPair{
		{Name: "Authorization", Value: "Bearer SECRET"},
	}}

	out := TransformRequest(client, u)
	values := out.Values("Authorization")
	if len(values) != 1 || values[0] != "Bearer SECRET" {
		t.Fatalf("expected exactly one overridden Authorization header, got %v", values)
	}
}

func TestTransformRequestStripsHopByHop(t *testing.T) {
	client := make(http.Header)
	client.Set("Connection", "keep-alive")
	client.Set("Transfer-Encoding", "chunked")

	out := TransformRequest(client, upstream.Upstream{})
	if out.Get("Connection") != "" || out.Get("Transfer-Encoding") != "" {
		t.Fatal("expected hop-by-hop headers removed")
	}
}

func TestTransformRequestStripsConfiguredRemovals(t *testing.T) {
	client := make(http.Header)
	client.Set("X-Debug", "1")

	u := upstream.Upstream{RemoveHeaders: map[string]struct{}{"x-debug": {}}}
	out := TransformRequest(client, u)
	if out.Get("X-Debug") != "" {
		t.Fatal("expected configured removal header stripped")
	}
}

func TestTransformRequestStripsClientIPWhenDisabled(t *testing.T) {
	client := make(http.Header)
	client.Set("X-Forwarded-For", "1.2.3.4")
	client.Set("True-Client-Ip", "1.2.3.4")

	out := TransformRequest(client, upstream.Upstream{ForwardXFF: false})
	for _, h := range ClientIPHeaders {
		if out.Get(h) != "" {
			t.Fatalf("expected %s stripped when ForwardXFF is false", h)
		}
	}
}

func TestTransformRequestKeepsClientIPWhenEnabled(t *testing.T) {
	client := make(http.Header)
	client.Set("X-Forwarded-For", "1.2.3.4")

	out := TransformRequest(client, upstream.Upstream{ForwardXFF: true})
	if out.Get("X-Forwarded-For") != "1.2.3.4" {
		t.Fatal("expected X-Forwarded-For preserved when ForwardXFF is true")
	}
}

func TestTransformResponseStripsHopByHop(t *testing.T) {
	resp := make(http.Header)
	resp.Set("Connection", "upgrade")
	resp.Set("Content-Type", "text/event-stream")

	out := TransformResponse(resp)
	if out.Get("Connection") != "" {
		t.Fatal("expected hop-by-hop stripped from response")
	}
	if out.Get("Content-Type") != "text/event-stream" {
		t.Fatal("expected Content-Type preserved")
	}
}
