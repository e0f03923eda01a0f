package config

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Backends supported by the cache store.
const (
	BackendDisk   = "disk"
	BackendMemory = "memory"
)

// DefaultStoreName is the cache store version populated by the install step.
const DefaultStoreName = "bungalows-v1"

// DefaultAssets is the asset list precached when none is configured.
var DefaultAssets = []string{
	"./",
	"./index.html",
	"./manifest.webmanifest",
	"./sw.js",
}

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Origin   OriginConfig   `yaml:"origin"`
	Cache    CacheConfig    `yaml:"cache"`
	Precache PrecacheConfig `yaml:"precache"`
}

// ServerConfig contains gateway server configuration
type ServerConfig struct {
	Port  int         `yaml:"port"`
	HTTPS HTTPSConfig `yaml:"https"`
}

// HTTPSConfig contains TLS interception configuration
type HTTPSConfig struct {
	CACertFile      string `yaml:"ca_cert_file"`
	CAKeyFile       string `yaml:"ca_key_file"`
	TransparentAddr string `yaml:"transparent_addr"`
}

// OriginConfig describes the origin the install step precaches from
type OriginConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
	Retries int    `yaml:"retries"`
}

// CacheConfig contains cache store configuration
type CacheConfig struct {
	Name     string `yaml:"name"`
	Folder   string `yaml:"folder"`
	Backend  string `yaml:"backend"`
	TTL      string `yaml:"ttl"`
	Compress bool   `yaml:"compress"`
}

// PrecacheConfig lists the asset paths fetched at install time
type PrecacheConfig struct {
	Assets []string `yaml:"assets"`
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	config.applyDefaults()

	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Origin.Timeout == "" {
		c.Origin.Timeout = "30s"
	}
	if c.Origin.Retries == 0 {
		c.Origin.Retries = 3
	}
	if c.Cache.Name == "" {
		c.Cache.Name = DefaultStoreName
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = BackendDisk
	}
	if c.Cache.TTL == "" {
		c.Cache.TTL = "0"
	}
	if len(c.Precache.Assets) == 0 {
		c.Precache.Assets = append([]string(nil), DefaultAssets...)
	}
}

// GetCacheTTL parses and returns the entry TTL. Zero means entries never expire.
func (c *Config) GetCacheTTL() (time.Duration, error) {
	if c.Cache.TTL == "0" {
		return 0, nil
	}
	return time.ParseDuration(c.Cache.TTL)
}

// GetOriginTimeout parses and returns the per-request origin timeout
func (c *Config) GetOriginTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Origin.Timeout)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}

	if c.Cache.Name == "" {
		return fmt.Errorf("cache name is required")
	}

	switch c.Cache.Backend {
	case BackendDisk:
		if c.Cache.Folder == "" {
			return fmt.Errorf("cache folder is required for the disk backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("cache backend must be '%s' or '%s', got: %s", BackendDisk, BackendMemory, c.Cache.Backend)
	}

	if _, err := c.GetCacheTTL(); err != nil {
		return fmt.Errorf("invalid cache TTL format: %w", err)
	}

	if _, err := c.GetOriginTimeout(); err != nil {
		return fmt.Errorf("invalid origin timeout format: %w", err)
	}

	if c.Origin.Retries < 1 {
		return fmt.Errorf("origin retries must be at least 1, got: %d", c.Origin.Retries)
	}

	if c.Origin.BaseURL != "" {
		base, err := url.Parse(c.Origin.BaseURL)
		if err != nil {
			return fmt.Errorf("invalid origin base URL: %w", err)
		}
		if !base.IsAbs() {
			return fmt.Errorf("origin base URL must be absolute, got: %s", c.Origin.BaseURL)
		}
	}

	for _, asset := range c.Precache.Assets {
		if asset == "" {
			return fmt.Errorf("precache asset paths must not be empty")
		}
		u, err := url.Parse(asset)
		if err != nil {
			return fmt.Errorf("invalid precache asset path %q: %w", asset, err)
		}
		if u.IsAbs() {
			return fmt.Errorf("precache asset paths must be relative, got: %s", asset)
		}
	}

	return nil
}

// ValidateForInstall additionally requires an origin, which serve does not need
func (c *Config) ValidateForInstall() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Origin.BaseURL == "" {
		return fmt.Errorf("origin base URL is required for install")
	}
	return nil
}
