// Package route implements the gateway's route table: longest-prefix,
// segment-boundary matching from a request path to a configured upstream.
package route

import (
	"sort"
	"strings"

	"github.com/Sentinel-Gate/aigatewayd/internal/domain/upstream"
)

// Route binds a unique path prefix to an upstream. Routes are constructed
// once at startup and never mutated afterward.
type Route struct {
	// ID uniquely identifies this route.
	ID string
	// Prefix is the URL path prefix this route matches. Begins with "/" and
	// does not end with "/" unless it is exactly "/".
	Prefix string
	// Upstream describes how matched requests are forwarded.
	Upstream upstream.Upstream
}

// Table is an immutable, ordered route table. Routes are sorted by
// descending prefix length so a linear scan halts at the first match, which
// is the longest one.
type Table struct {
	routes []Route
}

// NewTable builds a route table from the given routes. The input slice is
// copied and sorted; the original is left untouched.
func NewTable(routes []Route) *Table {
	sorted := make([]Route, len(routes))
	copy(sorted, routes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Prefix) > len(sorted[j].Prefix)
	})
	return &Table{routes: sorted}
}

// Match returns the route whose prefix segment-matches path, and true. If no
// route matches, it returns the zero Route and false.
//
// A prefix x matches path p iff p == x, or p starts with x and the next
// character of p after x is '/'. Because prefixes are unique and the table
// is scanned longest-first, the first match found is the longest match.
func (t *Table) Match(path string) (Route, bool) {
	for _, r := range t.routes {
		if segmentMatch(r.Prefix, path) {
			return r, true
		}
	}
	return Route{}, false
}

// Len returns the number of routes in the table.
func (t *Table) Len() int {
	return len(t.routes)
}

func segmentMatch(prefix, path string) bool {
	if path == prefix {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	// The root prefix "/" matches every path. For a non-root prefix, the
	// next byte after the prefix must be '/'.
	if prefix == "/" {
		return true
	}
	rest := path[len(prefix):]
	return strings.HasPrefix(rest, "/")
}

// RewritePath computes the upstream-bound path for a matched route: the
// request path with the route's prefix stripped (if configured), mapped to
// "/" when the result is empty.
func RewritePath(r Route, requestPath string) string {
	if !r.Upstream.StripPrefix {
		return requestPath
	}
	rest := strings.TrimPrefix(requestPath, r.Prefix)
	if rest == "" {
		return "/"
	}
	if !strings.HasPrefix(rest, "/") {
		rest = "/" + rest
	}
	return rest
}
