// Package config provides reading and validation of payd configuration.
// Configuration lives in a single YAML file (default payd.yaml) holding
// server settings, auth parameters, and per-extension settings blocks
// keyed by category and name.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/payd-dev/payd/extension"
)

var (
	// ErrInvalidValue is returned when a config value is out of bounds.
	ErrInvalidValue = errors.New("invalid config value")
	// ErrMissingSecret is returned when the JWT secret is not set; the
	// server refuses to start without one.
	ErrMissingSecret = errors.New("auth.jwt_secret is not configured")
)

// Defaults applied when not configured.
const (
	DefaultListen   = ":8080"
	DefaultDatabase = "payd.db"
	DefaultTokenTTL = 30 * time.Minute
	DefaultIssuer   = "payd"
	DefaultLogLevel = "info"
)

// Auth holds authentication parameters.
type Auth struct {
	JWTSecret string         `yaml:"jwt_secret"`
	TokenTTL  *time.Duration `yaml:"token_ttl,omitempty"`
	Issuer    string         `yaml:"issuer,omitempty"`
}

// Config contains the full payd configuration.
type Config struct {
	Listen   string `yaml:"listen,omitempty"`
	Database string `yaml:"database,omitempty"`
	LogLevel string `yaml:"log_level,omitempty"`
	BaseURL  string `yaml:"base_url,omitempty"`
	Auth     Auth   `yaml:"auth"`

	// Extensions holds per-extension settings blocks keyed by category
	// then extension name, passed verbatim to the registry on each use.
	Extensions map[string]map[string]map[string]any `yaml:"extensions,omitempty"`

	// Notifiers lists the other-category extensions that receive host
	// events (new_user, new_order, payment, ticket).
	Notifiers []string `yaml:"notifiers,omitempty"`
}

// Load reads and validates the configuration file at path. A missing
// file is not an error: defaults apply, which suits tests and first-run
// commands that do not need auth.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return &cfg, nil
	case err != nil:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that all configured values are within acceptable
// bounds. The JWT secret is checked separately by RequireSecret since
// only the server needs it.
func (c *Config) Validate() error {
	if c.Auth.TokenTTL != nil && *c.Auth.TokenTTL < time.Minute {
		return fmt.Errorf("%w: auth.token_ttl must be at least 1m, got %s", ErrInvalidValue, *c.Auth.TokenTTL)
	}
	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level must be one of debug, info, warn, error", ErrInvalidValue)
	}
	for cat := range c.Extensions {
		if _, err := extension.ParseCategory(cat); err != nil {
			return fmt.Errorf("%w: unknown extension category %q", ErrInvalidValue, cat)
		}
	}
	return nil
}

// RequireSecret returns an error when no JWT secret is configured.
func (c *Config) RequireSecret() error {
	if c.Auth.JWTSecret == "" {
		return ErrMissingSecret
	}
	return nil
}

// ListenAddr returns the HTTP listen address (defaults to :8080).
func (c *Config) ListenAddr() string {
	if c.Listen == "" {
		return DefaultListen
	}
	return c.Listen
}

// DatabasePath returns the SQLite database path (defaults to payd.db).
func (c *Config) DatabasePath() string {
	if c.Database == "" {
		return DefaultDatabase
	}
	return c.Database
}

// TokenTTL returns the access token lifetime (defaults to 30m).
func (c *Config) TokenTTL() time.Duration {
	if c.Auth.TokenTTL == nil {
		return DefaultTokenTTL
	}
	return *c.Auth.TokenTTL
}

// Issuer returns the JWT issuer (defaults to "payd").
func (c *Config) Issuer() string {
	if c.Auth.Issuer == "" {
		return DefaultIssuer
	}
	return c.Auth.Issuer
}

// Settings returns the configured settings block for one extension, or
// an empty mapping when none is configured.
func (c *Config) Settings(cat extension.Category, name string) extension.Config {
	byName, ok := c.Extensions[string(cat)]
	if !ok {
		return extension.Config{}
	}
	settings, ok := byName[strings.ToLower(name)]
	if !ok {
		return extension.Config{}
	}
	out := make(extension.Config, len(settings)+1)
	for k, v := range settings {
		out[k] = v
	}
	// Gateways build redirect URLs from the deployment's base URL.
	if c.BaseURL != "" {
		if _, set := out["base_url"]; !set {
			out["base_url"] = c.BaseURL
		}
	}
	return out
}
