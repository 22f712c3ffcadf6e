// Package config provides configuration loading for the gateway.
package config

import (
	"fmt"
	"os"
	"regexp"

	"github.com/spf13/viper"
)

// envPattern matches "${ENV_NAME}" substrings for substitution.
var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads the YAML document at path, applies "${ENV_NAME}" substitution
// to ingress tokens and injected header values, fills in defaults, and
// validates the result. The returned Config is frozen: callers must not
// mutate it after Load returns.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := expandEnv(&cfg); err != nil {
		return nil, fmt.Errorf("expand environment variables: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// expandEnv substitutes "${ENV_NAME}" in ingress tokens and injected header
// values. A referenced variable that is not set in the environment is a
// startup failure, per the external contract that configuration never
// silently falls back to an empty secret.
func expandEnv(cfg *Config) error {
	for i, tok := range cfg.Ingress.Tokens {
		expanded, err := expandString(tok)
		if err != nil {
			return fmt.Errorf("ingress.tokens[%d]: %w", i, err)
		}
		cfg.Ingress.Tokens[i] = expanded
	}
	for ri := range cfg.Routes {
		headers := cfg.Routes[ri].Upstream.InjectHeaders
		for hi, h := range headers {
			expanded, err := expandString(h.Value)
			if err != nil {
				return fmt.Errorf("routes[%d].upstream.inject_headers[%d]: %w", ri, hi, err)
			}
			headers[hi].Value = expanded
		}
	}
	return nil
}

func expandString(s string) (string, error) {
	var firstErr error
	result := envPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := envPattern.FindStringSubmatch(match)[1]
		val, ok := os.LookupEnv(name)
		if !ok && firstErr == nil {
			firstErr = fmt.Errorf("environment variable %q is not set", name)
		}
		return val
	})
	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}
