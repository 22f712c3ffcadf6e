package route

import (
	"net/url"
	"testing"

	"github.com/Sentinel-Gate/aigatewayd/internal/domain/upstream"
)

func newRoute(id, prefix, base string, strip bool) Route {
	u, _ := url.Parse(base)
	return Route{ID: id, Prefix: prefix, Upstream: upstream.Upstream{BaseURL: u, StripPrefix: strip}}
}

func TestLongestPrefixMatch(t *testing.T) {
	table := NewTable([]Route{
		newRoute("r1", "/openai", "https://api.openai.com", true),
		newRoute("r2", "/openai/v1", "https://alt.example", true),
	})

	r, ok := table.Match("/openai/v1/models")
	if !ok || r.ID != "r2" {
		t.Fatalf("expected longest match r2, got %+v ok=%v", r, ok)
	}
}

func TestSegmentBoundaryNonMatch(t *testing.T) {
	table := NewTable([]Route{
		newRoute("r1", "/openai", "https://api.openai.com", true),
	})
	if _, ok := table.Match("/openai2/models"); ok {
		t.Fatal("expected no match across segment boundary")
	}
}

func TestExactPrefixMatch(t *testing.T) {
	table := NewTable([]Route{
		newRoute("r1", "/openai", "https://api.openai.com", true),
	})
	r, ok := table.Match("/openai")
	if !ok || r.ID != "r1" {
		t.Fatal("expected exact path to match its own prefix")
	}
}

func TestRootPrefixMatchesEverything(t *testing.T) {
	table := NewTable([]Route{newRoute("root", "/", "https://api.example.com", true)})
	if _, ok := table.Match("/anything/here"); !ok {
		t.Fatal("expected root prefix to match any path")
	}
}

func TestRewritePathEmptyBecomesRoot(t *testing.T) {
	r := newRoute("r1", "/openai", "https://api.openai.com", true)
	if got := RewritePath(r, "/openai"); got != "/" {
		t.Errorf("got %q want /", got)
	}
}

func TestRewritePathNoStrip(t *testing.T) {
	r := newRoute("r1", "/openai", "https://api.openai.com", false)
	if got := RewritePath(r, "/openai/v1/models"); got != "/openai/v1/models" {
		t.Errorf("got %q", got)
	}
}

func TestRewritePathStripsPrefix(t *testing.T) {
	r := newRoute("r1", "/openai", "https://api.openai.com", true)
	if got := RewritePath(r, "/openai/v1/models"); got != "/v1/models" {
		t.Errorf("got %q", got)
	}
}
