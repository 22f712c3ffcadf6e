package gatewayhttp

import (
	"net/http"
	"strings"

	"github.com/Sentinel-Gate/aigatewayd/internal/config"
)

// CORSPolicy applies the optional CORS adjunct: preflight short-circuit
// ahead of ingress auth, and response-header injection on matching origins
// for every other response the pipeline produces, including error bodies.
type CORSPolicy struct {
	cfg config.CORSConfig
}

// NewCORSPolicy builds a CORSPolicy from configuration.
func NewCORSPolicy(cfg config.CORSConfig) *CORSPolicy {
	return &CORSPolicy{cfg: cfg}
}

// IsPreflight reports whether r is a CORS preflight request: an OPTIONS
// request bearing both Origin and Access-Control-Request-Method.
func (c *CORSPolicy) IsPreflight(r *http.Request) bool {
	if !c.cfg.Enabled || r.Method != http.MethodOptions {
		return false
	}
	return r.Header.Get("Origin") != "" && r.Header.Get("Access-Control-Request-Method") != ""
}

// HandlePreflight answers a preflight request directly, bypassing ingress
// auth and every admission gate.
func (c *CORSPolicy) HandlePreflight(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get("Origin")
	if !c.originAllowed(origin) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", origin)
	h.Set("Access-Control-Allow-Methods", strings.Join(c.cfg.AllowMethods, ", "))
	h.Set("Access-Control-Allow-Headers", strings.Join(c.cfg.AllowHeaders, ", "))
	w.WriteHeader(http.StatusNoContent)
}

// ApplyResponseHeaders injects Access-Control-Allow-Origin (and, if
// configured, Access-Control-Expose-Headers) onto any response whose
// Origin matches, including pipeline error responses.
func (c *CORSPolicy) ApplyResponseHeaders(w http.ResponseWriter, r *http.Request) {
	if !c.cfg.Enabled {
		return
	}
	origin := r.Header.Get("Origin")
	if origin == "" || !c.originAllowed(origin) {
		return
	}
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", origin)
	if len(c.cfg.ExposeHeaders) > 0 {
		h.Set("Access-Control-Expose-Headers", strings.Join(c.cfg.ExposeHeaders, ", "))
	}
}

// originAllowed matches origin against allow_origins, accepting a full
// "scheme://host" entry, a bare host entry, or "*".
func (c *CORSPolicy) originAllowed(origin string) bool {
	host := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		host = origin[idx+3:]
	}
	for _, allowed := range c.cfg.AllowOrigins {
		if allowed == "*" || allowed == origin || allowed == host {
			return true
		}
	}
	return false
}
