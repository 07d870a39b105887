// Package config loads the router process's YAML configuration file
// into a Config struct, using a Load/Validate/SetDefaults shape: defaults
// get applied first, then the result is validated before the caller ever
// sees it.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var (
	// ErrEmptyListenAddress is returned when the WebSocket listen
	// address is empty.
	ErrEmptyListenAddress = errors.New("listen address cannot be empty")
	// ErrNoRealms is returned when no realm is configured.
	ErrNoRealms = errors.New("at least one realm must be configured")
	// ErrEmptyJWTSecret is returned when auth is enabled with no secret.
	ErrEmptyJWTSecret = errors.New("jwt secret cannot be empty when auth is enabled")
)

// Config is the router process's full configuration, loaded from a
// single YAML file per SPEC_FULL.md §10.3.
type Config struct {
	// ListenAddress is where the WebSocket transport accepts client
	// connections, e.g. ":8080".
	ListenAddress string `yaml:"listen_address"`

	// AdminAddress is where internal/adminapi serves HTTP
	// introspection and Prometheus metrics, e.g. ":8081".
	AdminAddress string `yaml:"admin_address"`

	// Realms is the set of realm names the router accepts HELLO for.
	// A HELLO for any other realm is rejected with not_authorized.
	Realms []string `yaml:"realms"`

	// AuthEnabled gates HELLO acceptance behind internal/auth's JWT
	// check. When false, every HELLO for a configured realm is
	// accepted (AllowAll semantics).
	AuthEnabled bool `yaml:"auth_enabled"`

	// JWTSecret signs/validates the HELLO details.authextra.token
	// field when AuthEnabled is true.
	JWTSecret string `yaml:"jwt_secret"`

	// LogLevel is the hclog level name for internal/logging.
	LogLevel string `yaml:"log_level"`
}

// NewConfig creates a Config with safe defaults for the given listen
// address and realm list.
func NewConfig(listenAddress string, realms []string) *Config {
	c := &Config{ListenAddress: listenAddress, Realms: realms}
	c.SetDefaults()
	return c
}

// SetDefaults fills in zero-valued fields with safe defaults.
func (c *Config) SetDefaults() {
	if c.AdminAddress == "" {
		c.AdminAddress = ":8081"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if len(c.Realms) == 0 {
		c.Realms = []string{"realm1"}
	}
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return ErrEmptyListenAddress
	}
	if len(c.Realms) == 0 {
		return ErrNoRealms
	}
	if c.AuthEnabled && c.JWTSecret == "" {
		return ErrEmptyJWTSecret
	}
	return nil
}

// Load reads and parses a YAML config file at path, applies defaults,
// and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	c.SetDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return &c, nil
}
