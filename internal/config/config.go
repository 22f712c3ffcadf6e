// Package config provides the configuration schema for the gateway.
//
// A single static YAML document, loaded once at process start, describes
// the listen address, inbound authentication, route table, per-route
// upstream behavior, optional ingress TLS, optional egress proxy per route,
// CORS, rate limiting, and concurrency caps. Configuration hot-reload is
// explicitly out of scope: the snapshot returned by Load is frozen for the
// process lifetime.
package config

// Config is the top-level gateway configuration.
type Config struct {
	// Server configures the inbound HTTP(S) listener.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Ingress configures inbound credential extraction and the token
	// allow-list.
	Ingress IngressConfig `yaml:"ingress" mapstructure:"ingress"`

	// RateLimit configures the fixed per-minute admission window.
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`

	// Concurrency configures the two admission gates.
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`

	// CORS configures the optional CORS adjunct.
	CORS CORSConfig `yaml:"cors" mapstructure:"cors"`

	// Routes is the route table. Must be non-empty; prefixes must be
	// unique.
	Routes []RouteConfig `yaml:"routes" mapstructure:"routes" validate:"required,min=1,dive"`

	// LogLevel sets the minimum structured-log level.
	// Valid values: "debug", "info", "warn", "error".
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
}

// ServerConfig configures the inbound listener.
type ServerConfig struct {
	// ListenAddr is the "host:port" the gateway binds to.
	ListenAddr string `yaml:"listen_addr" mapstructure:"listen_addr" validate:"required,hostname_port"`

	// TLS is optional ingress TLS configuration.
	TLS TLSConfig `yaml:"tls" mapstructure:"tls"`
}

// TLSConfig configures optional ingress TLS.
//
// If both CertPath and KeyPath are set, they are loaded directly. If
// exactly one is set, configuration is rejected. Otherwise, the
// self-signed cert/key paths are consulted: loaded if present, generated
// and persisted otherwise.
type TLSConfig struct {
	CertPath           string `yaml:"cert_path" mapstructure:"cert_path"`
	KeyPath            string `yaml:"key_path" mapstructure:"key_path"`
	SelfSignedCertPath string `yaml:"self_signed_cert_path" mapstructure:"self_signed_cert_path"`
	SelfSignedKeyPath  string `yaml:"self_signed_key_path" mapstructure:"self_signed_key_path"`
}

// Enabled reports whether any TLS material was configured.
func (t TLSConfig) Enabled() bool {
	return t.CertPath != "" || t.KeyPath != "" || t.SelfSignedCertPath != "" || t.SelfSignedKeyPath != ""
}

// IngressConfig configures inbound credential extraction and validation.
type IngressConfig struct {
	// Tokens is the allow-list. An entry prefixed "argon2id:" is verified
	// as a PHC-format Argon2id hash; all other entries are compared
	// verbatim in constant time. Supports "${ENV_NAME}" substitution.
	Tokens []string `yaml:"tokens" mapstructure:"tokens" validate:"required,min=1"`

	// TokenSources is the ordered list of places to look for a credential.
	// The first source yielding a non-empty token wins.
	TokenSources []TokenSourceConfig `yaml:"token_sources" mapstructure:"token_sources" validate:"required,min=1,dive"`
}

// TokenSourceConfig configures one ingress credential source.
type TokenSourceConfig struct {
	// Type is "authorization_bearer" or "header".
	Type string `yaml:"type" mapstructure:"type" validate:"required,oneof=authorization_bearer header"`
	// Name is the header name to read. Required when Type is "header".
	Name string `yaml:"name" mapstructure:"name"`
}

// RateLimitConfig configures the fixed per-minute admission window.
type RateLimitConfig struct {
	// Enabled turns rate limiting on or off.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// PerMinute is the maximum requests allowed per (token, route) per
	// minute.
	PerMinute int `yaml:"per_minute" mapstructure:"per_minute" validate:"omitempty,min=1"`
}

// ConcurrencyConfig configures the two admission gates.
type ConcurrencyConfig struct {
	// DownstreamMaxInflight bounds total in-flight requests across all
	// routes. Zero means unbounded.
	DownstreamMaxInflight int `yaml:"downstream_max_inflight" mapstructure:"downstream_max_inflight" validate:"omitempty,min=1"`
	// UpstreamPerKeyMaxInflight is the default cap per (route, upstream
	// key digest), overridable per route. Zero means unbounded.
	UpstreamPerKeyMaxInflight int `yaml:"upstream_per_key_max_inflight" mapstructure:"upstream_per_key_max_inflight" validate:"omitempty,min=1"`
}

// CORSConfig configures the optional CORS adjunct.
type CORSConfig struct {
	Enabled       bool     `yaml:"enabled" mapstructure:"enabled"`
	AllowOrigins  []string `yaml:"allow_origins" mapstructure:"allow_origins"`
	AllowHeaders  []string `yaml:"allow_headers" mapstructure:"allow_headers"`
	AllowMethods  []string `yaml:"allow_methods" mapstructure:"allow_methods"`
	ExposeHeaders []string `yaml:"expose_headers" mapstructure:"expose_headers"`
}

// RouteConfig configures one route.
type RouteConfig struct {
	// ID uniquely identifies this route.
	ID string `yaml:"id" mapstructure:"id" validate:"required"`
	// Prefix is the URL path prefix this route matches. Begins with "/"
	// and does not end with "/" unless it is exactly "/".
	Prefix string `yaml:"prefix" mapstructure:"prefix" validate:"required"`
	// Upstream describes how matched requests are forwarded.
	Upstream UpstreamConfig `yaml:"upstream" mapstructure:"upstream" validate:"required"`
}

// UpstreamConfig configures a route's upstream behavior.
type UpstreamConfig struct {
	// BaseURL is the absolute upstream URL.
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"required,url"`
	// StripPrefix controls whether the route prefix is removed before
	// forwarding. Defaults to true.
	StripPrefix *bool `yaml:"strip_prefix" mapstructure:"strip_prefix"`
	// ConnectTimeoutMS bounds TCP/TLS establishment. Defaults to 10000.
	ConnectTimeoutMS int `yaml:"connect_timeout_ms" mapstructure:"connect_timeout_ms" validate:"omitempty,min=1"`
	// RequestTimeoutMS bounds a non-SSE response or an SSE response's
	// headers phase. Defaults to 60000.
	RequestTimeoutMS int `yaml:"request_timeout_ms" mapstructure:"request_timeout_ms" validate:"omitempty,min=1"`
	// InjectHeaders are set on the upstream-bound request, in order,
	// overwriting any same-named client header. Values support
	// "${ENV_NAME}" substitution.
	InjectHeaders []HeaderConfig `yaml:"inject_headers" mapstructure:"inject_headers" validate:"omitempty,dive"`
	// RemoveHeaders names headers stripped in addition to the fixed
	// hop-by-hop set.
	RemoveHeaders []string `yaml:"remove_headers" mapstructure:"remove_headers"`
	// ForwardXFF controls whether client-IP forwarding headers pass
	// through. Defaults to false.
	ForwardXFF bool `yaml:"forward_xff" mapstructure:"forward_xff"`
	// Proxy is an optional egress proxy.
	Proxy *ProxyConfig `yaml:"proxy" mapstructure:"proxy"`
	// UpstreamPerKeyMaxInflight overrides the global default for this
	// route. Zero means "use the global default".
	UpstreamPerKeyMaxInflight int `yaml:"upstream_per_key_max_inflight" mapstructure:"upstream_per_key_max_inflight" validate:"omitempty,min=1"`
}

// HeaderConfig is a single ordered name/value header to inject.
type HeaderConfig struct {
	Name  string `yaml:"name" mapstructure:"name" validate:"required"`
	Value string `yaml:"value" mapstructure:"value" validate:"required"`
}

// ProxyConfig configures an optional egress proxy.
type ProxyConfig struct {
	// Protocol is "http", "https", or "socks" ("socks" maps to SOCKS5
	// with remote DNS resolution).
	Protocol string `yaml:"protocol" mapstructure:"protocol" validate:"required,oneof=http https socks"`
	// Address is the proxy's "host:port".
	Address string `yaml:"address" mapstructure:"address" validate:"required,hostname_port"`
	// Username and Password are optional; both must be present or both
	// absent.
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// StripPrefixOrDefault returns StripPrefix, defaulting to true when unset.
func (u UpstreamConfig) StripPrefixOrDefault() bool {
	if u.StripPrefix == nil {
		return true
	}
	return *u.StripPrefix
}

// SetDefaults applies default values to fields left unset in YAML.
func (c *Config) SetDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	for i := range c.Routes {
		u := &c.Routes[i].Upstream
		if u.ConnectTimeoutMS == 0 {
			u.ConnectTimeoutMS = 10000
		}
		if u.RequestTimeoutMS == 0 {
			u.RequestTimeoutMS = 60000
		}
	}
	if c.CORS.Enabled {
		if len(c.CORS.AllowMethods) == 0 {
			c.CORS.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
		}
		if len(c.CORS.AllowHeaders) == 0 {
			c.CORS.AllowHeaders = []string{"Authorization", "Content-Type"}
		}
	}
}
