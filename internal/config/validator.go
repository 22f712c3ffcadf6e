package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Validate validates the Config using struct tags plus the cross-field
// invariants named in the route/upstream/ingress data model: unique route
// ids and prefixes, valid prefix shape, header-source requirements, and
// upstream-concurrency key availability.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.Server.TLS.validate(); err != nil {
		return err
	}
	if err := c.validateTokenSources(); err != nil {
		return err
	}
	if err := c.validateRoutes(); err != nil {
		return err
	}

	return nil
}

func (t TLSConfig) validate() error {
	hasCert := t.CertPath != ""
	hasKey := t.KeyPath != ""
	if hasCert != hasKey {
		return errors.New("server.tls: cert_path and key_path must both be set or both be absent")
	}
	return nil
}

func (c *Config) validateTokenSources() error {
	for i, s := range c.Ingress.TokenSources {
		if s.Type == "header" && s.Name == "" {
			return fmt.Errorf("ingress.token_sources[%d]: name is required when type is \"header\"", i)
		}
	}
	return nil
}

func (c *Config) validateRoutes() error {
	seenIDs := make(map[string]struct{}, len(c.Routes))
	seenPrefixes := make(map[string]struct{}, len(c.Routes))

	for i, r := range c.Routes {
		if _, dup := seenIDs[r.ID]; dup {
			return fmt.Errorf("routes[%d]: duplicate route id %q", i, r.ID)
		}
		seenIDs[r.ID] = struct{}{}

		if err := validatePrefixShape(r.Prefix); err != nil {
			return fmt.Errorf("routes[%d]: %w", i, err)
		}
		if _, dup := seenPrefixes[r.Prefix]; dup {
			return fmt.Errorf("routes[%d]: duplicate route prefix %q", i, r.Prefix)
		}
		seenPrefixes[r.Prefix] = struct{}{}

		if _, err := url.ParseRequestURI(r.Upstream.BaseURL); err != nil {
			return fmt.Errorf("routes[%d].upstream.base_url: must be an absolute URL", i)
		}

		if err := r.Upstream.Proxy.validate(); err != nil {
			return fmt.Errorf("routes[%d].upstream.proxy: %w", i, err)
		}

		wantsCap := r.Upstream.UpstreamPerKeyMaxInflight > 0 || c.Concurrency.UpstreamPerKeyMaxInflight > 0
		if wantsCap && !hasUpstreamKey(r.Upstream.InjectHeaders) {
			return fmt.Errorf(
				"routes[%d]: upstream concurrency cap configured but no authorization or x-api-key header present in inject_headers",
				i,
			)
		}
	}
	return nil
}

func validatePrefixShape(prefix string) error {
	if !strings.HasPrefix(prefix, "/") {
		return fmt.Errorf("prefix %q must begin with \"/\"", prefix)
	}
	if prefix != "/" && strings.HasSuffix(prefix, "/") {
		return fmt.Errorf("prefix %q must not end with \"/\" unless it is the root prefix", prefix)
	}
	return nil
}

func hasUpstreamKey(headers []HeaderConfig) bool {
	for _, h := range headers {
		name := strings.ToLower(h.Name)
		if (name == "authorization" || name == "x-api-key") && h.Value != "" {
			return true
		}
	}
	return false
}

func (p *ProxyConfig) validate() error {
	if p == nil {
		return nil
	}
	hasUser := p.Username != ""
	hasPass := p.Password != ""
	if hasUser != hasPass {
		return errors.New("username and password must both be present or both be absent")
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors into a
// secret-free, user-friendly message joining every failing field.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s items", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, e.Tag())
	}
}
