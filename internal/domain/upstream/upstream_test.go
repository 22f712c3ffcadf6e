package upstream

import (
	"net/url"
	"testing"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse %q: %v", raw, err)
	}
	return u
}

func TestUpstreamKeyPriority(t *testing.T) {
	u := Upstream{InjectHeaders: []HeaderPair{
		{Name: "X-Api-Key", Value: "key-value"},
		{Name: "Authorization", Value: "Bearer secret"},
	}}
	key, ok := u.Key()
	if !ok || key != "Bearer secret" {
		t.Fatalf("expected authorization to win priority, got %q ok=%v", key, ok)
	}
}

func TestUpstreamKeyMissing(t *testing.T) {
	u := Upstream{InjectHeaders: []HeaderPair{{Name: "X-Custom", Value: "v"}}}
	if _, ok := u.Key(); ok {
		t.Fatal("expected no key when neither authorization nor x-api-key is injected")
	}
}

func TestJoinPathNoDoubleSlash(t *testing.T) {
	cases := []struct {
		base, rest, want string
	}{
		{"https://api.openai.com", "/", "https://api.openai.com/"},
		{"https://api.openai.com/", "/", "https://api.openai.com/"},
		{"https://alt.example", "/models", "https://alt.example/models"},
		{"https://alt.example/", "/models", "https://alt.example/models"},
	}
	for _, c := range cases {
		u := Upstream{BaseURL: mustURL(t, c.base)}
		got := u.JoinPath(c.rest, "")
		if got != c.want {
			t.Errorf("JoinPath(%q,%q) = %q, want %q", c.base, c.rest, got, c.want)
		}
	}
}

func TestJoinPathPreservesQuery(t *testing.T) {
	u := Upstream{BaseURL: mustURL(t, "https://api.openai.com")}
	got := u.JoinPath("/v1/models", "limit=10&cursor=abc")
	want := "https://api.openai.com/v1/models?limit=10&cursor=abc"
	if got != want {
		t.Errorf("got %q want %q", got, want)
	}
}
