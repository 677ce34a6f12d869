// Package config handles loading and parsing the huntboard YAML configuration
// file, and provides structured access to application settings including the
// server port, state directory, upstream hunt API endpoint, discovery cache
// tuning, and media-provider OAuth credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the corresponding YAML keys are absent.
const (
	DefaultPort          = 8686
	DefaultStateDir      = "~/.huntboard"
	DefaultCacheTTLHours = 12
	DefaultHuntTimeout   = 30 * time.Second
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// Port is the TCP port the HTTP surface listens on.
	Port int `yaml:"port"`

	// Debug enables verbose logging and gin debug mode.
	Debug bool `yaml:"debug"`

	// LoggingToFile redirects logs to rotating files under LogsDir instead of stdout.
	LoggingToFile bool `yaml:"logging-to-file"`

	// LogsDir is the directory holding rotated log files. Empty means "<state-dir>/logs".
	LogsDir string `yaml:"logs-dir"`

	// StateDir is the directory used for durable client-side state: linked
	// provider credentials, discovery cache blobs, and rotation state.
	StateDir string `yaml:"state-dir"`

	// ProxyURL optionally routes outbound requests through a proxy server.
	// Supports http, https and socks5 schemes.
	ProxyURL string `yaml:"proxy-url"`

	// Hunt configures the upstream media-hunt API this daemon consumes.
	Hunt HuntConfig `yaml:"hunt"`

	// Discovery tunes the discovery content cache.
	Discovery DiscoveryConfig `yaml:"discovery"`

	// Trakt holds the Trakt OAuth application credentials.
	Trakt TraktConfig `yaml:"trakt"`

	// Plex holds the Plex PIN-link settings.
	Plex PlexConfig `yaml:"plex"`

	// Postgres optionally replaces the file-backed state store with a
	// PostgreSQL-backed one shared across instances.
	Postgres PostgresConfig `yaml:"postgres"`
}

// HuntConfig describes the upstream media-hunt REST API.
type HuntConfig struct {
	// BaseURL is the root of the hunt API, e.g. "http://localhost:9705".
	BaseURL string `yaml:"base-url"`

	// APIKey authenticates this daemon against the hunt API. Optional.
	APIKey string `yaml:"api-key"`

	// TimeoutSeconds bounds each discovery request. <= 0 uses the default.
	TimeoutSeconds int `yaml:"timeout-seconds"`
}

// Timeout returns the per-request timeout as a duration.
func (h HuntConfig) Timeout() time.Duration {
	if h.TimeoutSeconds <= 0 {
		return DefaultHuntTimeout
	}
	return time.Duration(h.TimeoutSeconds) * time.Second
}

// DiscoveryConfig tunes the discovery content cache.
type DiscoveryConfig struct {
	// CacheTTLHours is how long a cached section stays fresh. <= 0 uses the default.
	CacheTTLHours int `yaml:"cache-ttl-hours"`
}

// CacheTTL returns the section cache TTL as a duration.
func (d DiscoveryConfig) CacheTTL() time.Duration {
	if d.CacheTTLHours <= 0 {
		return DefaultCacheTTLHours * time.Hour
	}
	return time.Duration(d.CacheTTLHours) * time.Hour
}

// TraktConfig holds the Trakt OAuth application credentials.
type TraktConfig struct {
	// ClientID is the Trakt application client identifier.
	ClientID string `yaml:"client-id"`

	// ClientSecret is the Trakt application secret. Never sent to browsers.
	ClientSecret string `yaml:"client-secret"`

	// BaseURL overrides the Trakt API root. Empty uses the public endpoint.
	BaseURL string `yaml:"base-url"`
}

// PlexConfig holds the Plex PIN-link settings.
type PlexConfig struct {
	// Product is the application name shown on the Plex authorization page.
	Product string `yaml:"product"`

	// ClientIdentifier uniquely identifies this installation to Plex.
	// Generated and persisted on first use when empty.
	ClientIdentifier string `yaml:"client-identifier"`

	// BaseURL overrides the plex.tv API root. Empty uses the public endpoint.
	BaseURL string `yaml:"base-url"`
}

// PostgresConfig configures the optional PostgreSQL state store.
type PostgresConfig struct {
	// DSN is the connection string. Empty keeps the file-backed store.
	DSN string `yaml:"dsn"`

	// Schema optionally namespaces the state table.
	Schema string `yaml:"schema"`

	// Table overrides the state table name. Empty uses "huntboard_state".
	Table string `yaml:"table"`
}

// LoadConfig reads the configuration file at the given path, applies defaults
// and expands the state directory. A missing file is an error; use
// LoadConfigOptional when the caller can proceed on defaults.
func LoadConfig(configFile string) (*Config, error) {
	return loadConfig(configFile, false)
}

// LoadConfigOptional behaves like LoadConfig but returns a default
// configuration when optional is true and the file does not exist.
func LoadConfigOptional(configFile string, optional bool) (*Config, error) {
	return loadConfig(configFile, optional)
}

func loadConfig(configFile string, optional bool) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(configFile)
	switch {
	case err == nil:
		if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
			return nil, fmt.Errorf("config: parse %s: %w", configFile, errUnmarshal)
		}
	case os.IsNotExist(err) && optional:
		// Fall through to defaults.
	default:
		return nil, fmt.Errorf("config: read %s: %w", configFile, err)
	}

	cfg.applyDefaults()

	if cfg.StateDir, err = expandPath(cfg.StateDir); err != nil {
		return nil, fmt.Errorf("config: resolve state-dir: %w", err)
	}
	if cfg.LogsDir == "" {
		cfg.LogsDir = filepath.Join(cfg.StateDir, "logs")
	} else if cfg.LogsDir, err = expandPath(cfg.LogsDir); err != nil {
		return nil, fmt.Errorf("config: resolve logs-dir: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Port <= 0 {
		c.Port = DefaultPort
	}
	if strings.TrimSpace(c.StateDir) == "" {
		c.StateDir = DefaultStateDir
	}
	if strings.TrimSpace(c.Plex.Product) == "" {
		c.Plex.Product = "Huntboard"
	}
}

// expandPath resolves a leading "~" against the user home directory and
// returns an absolute path.
func expandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return filepath.Abs(path)
}
