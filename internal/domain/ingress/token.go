// Package ingress implements the gateway's inbound credential extraction and
// validation: pulling a token out of a configured source and checking it
// against an allow-list.
package ingress

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/alexedwards/argon2id"
)

// SourceKind identifies where an ingress token is read from.
type SourceKind string

const (
	// SourceAuthorizationBearer reads the Authorization header and accepts
	// only the case-insensitive "Bearer" scheme.
	SourceAuthorizationBearer SourceKind = "authorization_bearer"
	// SourceHeader reads an arbitrary named header, trimmed of surrounding
	// whitespace.
	SourceHeader SourceKind = "header"
)

// TokenSource describes a single place to look for an ingress credential.
type TokenSource struct {
	Kind       SourceKind
	HeaderName string // only meaningful when Kind == SourceHeader
}

// Extract scans sources in order and returns the first non-empty token
// found. No later source is consulted once one yields a value.
func Extract(r *http.Request, sources []TokenSource) (string, bool) {
	for _, s := range sources {
		var token string
		switch s.Kind {
		case SourceAuthorizationBearer:
			token = extractBearer(r.Header.Get("Authorization"))
		case SourceHeader:
			token = strings.TrimSpace(r.Header.Get(s.HeaderName))
		}
		if token != "" {
			return token, true
		}
	}
	return "", false
}

// extractBearer parses an Authorization header value, accepting only the
// case-insensitive "Bearer" scheme followed by whitespace and a non-empty
// token.
func extractBearer(header string) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}
	idx := strings.IndexAny(header, " \t")
	if idx == -1 {
		return ""
	}
	if !strings.EqualFold(header[:idx], "Bearer") {
		return ""
	}
	token := strings.TrimSpace(header[idx+1:])
	return token
}

// AllowList checks a candidate token against a configured set of accepted
// tokens using constant-time comparison for plain entries, and Argon2id
// verification for entries stored as a PHC-format hash (prefixed
// "argon2id:").
type AllowList struct {
	plain  []string
	hashed []string
}

// NewAllowList builds an AllowList from raw configuration entries. An entry
// beginning with "argon2id:" is treated as a PHC-format hash; all other
// entries are compared verbatim in constant time.
func NewAllowList(entries []string) *AllowList {
	al := &AllowList{}
	for _, e := range entries {
		if strings.HasPrefix(e, "argon2id:") {
			al.hashed = append(al.hashed, strings.TrimPrefix(e, "argon2id:"))
		} else {
			al.plain = append(al.plain, e)
		}
	}
	return al
}

// Allowed reports whether token matches any configured entry.
func (al *AllowList) Allowed(token string) bool {
	for _, p := range al.plain {
		if subtle.ConstantTimeCompare([]byte(p), []byte(token)) == 1 {
			return true
		}
	}
	for _, h := range al.hashed {
		match, err := argon2id.ComparePasswordAndHash(token, h)
		if err == nil && match {
			return true
		}
	}
	return false
}
