package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/muurk/bestway-spa/internal/coordinator"
	"github.com/muurk/bestway-spa/internal/spaclient"
)

// CurrentVersion is the config file schema version
const CurrentVersion = 1

// Default bridge settings
const (
	DefaultBridgeHost = "0.0.0.0"
	DefaultBridgePort = 8089
	DefaultBridgeName = "Bestway Spa"
)

// Config is the on-disk configuration
type Config struct {
	Version     int                   `yaml:"version" toml:"version"`
	Credentials spaclient.Credentials `yaml:"credentials" toml:"credentials"`
	API         APIConfig             `yaml:"api" toml:"api"`
	Poll        PollConfig            `yaml:"poll" toml:"poll"`
	Bridge      BridgeConfig          `yaml:"bridge" toml:"bridge"`
}

// APIConfig controls how the cloud API is reached
type APIConfig struct {
	BaseURL            string   `yaml:"base_url" toml:"base_url"`
	Timeout            Duration `yaml:"timeout" toml:"timeout"`
	TokenTTL           Duration `yaml:"token_ttl" toml:"token_ttl"`
	InsecureSkipVerify bool     `yaml:"insecure_skip_verify,omitempty" toml:"insecure_skip_verify,omitempty"`
}

// PollConfig controls the coordinator timings
type PollConfig struct {
	Interval    Duration `yaml:"interval" toml:"interval"`
	SettleDelay Duration `yaml:"settle_delay" toml:"settle_delay"`
}

// BridgeConfig controls the local bridge server
type BridgeConfig struct {
	Host      string `yaml:"host" toml:"host"`
	Port      int    `yaml:"port" toml:"port"`
	Advertise bool   `yaml:"advertise" toml:"advertise"`
	Name      string `yaml:"name" toml:"name"`
}

// Addr returns host:port for net.Listen
func (b BridgeConfig) Addr() string {
	return fmt.Sprintf("%s:%d", b.Host, b.Port)
}

// Duration is a time.Duration stored as a string such as "30s" or "23h"
type Duration time.Duration

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String formats the duration like time.Duration
func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalText implements encoding.TextMarshaler
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	*d = Duration(parsed)
	return nil
}

// Default returns a config with every non-credential field set
func Default() *Config {
	cfg := &Config{Version: CurrentVersion}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults fills zero-valued fields
func (c *Config) applyDefaults() {
	if c.Version == 0 {
		c.Version = CurrentVersion
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = spaclient.DefaultBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = Duration(spaclient.DefaultTimeout)
	}
	if c.API.TokenTTL == 0 {
		c.API.TokenTTL = Duration(spaclient.DefaultTokenTTL)
	}
	if c.Poll.Interval == 0 {
		c.Poll.Interval = Duration(coordinator.DefaultInterval)
	}
	if c.Poll.SettleDelay == 0 {
		c.Poll.SettleDelay = Duration(coordinator.DefaultSettleDelay)
	}
	if c.Bridge.Host == "" {
		c.Bridge.Host = DefaultBridgeHost
	}
	if c.Bridge.Port == 0 {
		c.Bridge.Port = DefaultBridgePort
	}
	if c.Bridge.Name == "" {
		c.Bridge.Name = DefaultBridgeName
	}
}

// Validate checks the config is usable for talking to the cloud
func (c *Config) Validate() error {
	if err := c.Credentials.Validate(); err != nil {
		return err
	}

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api.base_url %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	if c.API.TokenTTL <= 0 {
		return fmt.Errorf("api.token_ttl must be positive")
	}
	if c.Poll.Interval < Duration(time.Second) {
		return fmt.Errorf("poll.interval must be at least 1s, got %s", c.Poll.Interval)
	}
	if c.Poll.SettleDelay < 0 {
		return fmt.Errorf("poll.settle_delay must not be negative")
	}
	if c.Bridge.Port < 1 || c.Bridge.Port > 65535 {
		return fmt.Errorf("bridge.port %d out of range", c.Bridge.Port)
	}
	return nil
}

// NewClient builds a cloud client from the config
func (c *Config) NewClient() *spaclient.Client {
	client := spaclient.NewClientWithURL(c.API.BaseURL, c.Credentials)
	client.Timeout = c.API.Timeout.Std()
	client.TokenTTL = c.API.TokenTTL.Std()
	client.InsecureSkipVerify = c.API.InsecureSkipVerify
	return client
}

// NewCoordinator builds a coordinator around a new client
func (c *Config) NewCoordinator() *coordinator.Coordinator {
	coord := coordinator.New(c.NewClient())
	coord.Interval = c.Poll.Interval.Std()
	coord.SettleDelay = c.Poll.SettleDelay.Std()
	return coord
}
