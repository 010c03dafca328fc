package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for a config file when --config is not given.
const DefaultPath = "sgam.yaml"

// Config holds all sgam configuration.
type Config struct {
	// Site access
	Site SiteConfig `yaml:"site"`

	// Requests file location
	Requests RequestsConfig `yaml:"requests"`

	// Scraping and entry concurrency
	Scrape ScrapeConfig `yaml:"scrape"`

	// Entry history database
	History HistoryConfig `yaml:"history"`

	// Watch loop
	Watch WatchConfig `yaml:"watch"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// SiteConfig configures the HTTP client talking to the giveaway site.
type SiteConfig struct {
	BaseURL        string `yaml:"base_url"`
	UserAgent      string `yaml:"user_agent"`
	RequestTimeout string `yaml:"request_timeout"`
}

// RequestsConfig locates the requests file.
type RequestsConfig struct {
	Path string `yaml:"path"`
}

// ScrapeConfig bounds how much work runs in parallel.
type ScrapeConfig struct {
	PageBatch      int `yaml:"page_batch"`      // search pages fetched per batch
	MaxConcurrency int `yaml:"max_concurrency"` // in-flight requests
}

// HistoryConfig configures the SQLite entry log.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Driver  string `yaml:"driver"` // sqlite3 (cgo) or sqlite (pure Go)
	Path    string `yaml:"path"`
}

// WatchConfig configures `sgam run --watch`.
type WatchConfig struct {
	Interval string `yaml:"interval"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
	JSON  bool   `yaml:"json"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			BaseURL:        "https://www.steamgifts.com",
			UserAgent:      "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0",
			RequestTimeout: "30s",
		},
		Requests: RequestsConfig{
			Path: "./requests.txt",
		},
		Scrape: ScrapeConfig{
			PageBatch:      10,
			MaxConcurrency: 10,
		},
		History: HistoryConfig{
			Enabled: true,
			Driver:  "sqlite3",
			Path:    "data/history.db",
		},
		Watch: WatchConfig{
			Interval: "1h",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SGAM_BASE_URL"); v != "" {
		c.Site.BaseURL = v
	}
	if v := os.Getenv("SGAM_USER_AGENT"); v != "" {
		c.Site.UserAgent = v
	}
	if v := os.Getenv("SGAM_REQUESTS_FILE"); v != "" {
		c.Requests.Path = v
	}
	if v := os.Getenv("SGAM_HISTORY_PATH"); v != "" {
		c.History.Path = v
	}
	if v := os.Getenv("SGAM_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// GetRequestTimeout returns the per-request timeout as a duration.
func (c *Config) GetRequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.Site.RequestTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetWatchInterval returns the watch loop interval as a duration.
func (c *Config) GetWatchInterval() time.Duration {
	d, err := time.ParseDuration(c.Watch.Interval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// ValidDrivers lists the registered database/sql driver names for history.
var ValidDrivers = []string{"sqlite3", "sqlite"}

// ValidLevels lists the accepted log levels.
var ValidLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Site.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid site base_url: %q", c.Site.BaseURL)
	}
	if c.Requests.Path == "" {
		return fmt.Errorf("requests path not configured")
	}
	if c.Scrape.PageBatch < 1 {
		return fmt.Errorf("scrape page_batch must be at least 1, got %d", c.Scrape.PageBatch)
	}
	if c.Scrape.MaxConcurrency < 1 {
		return fmt.Errorf("scrape max_concurrency must be at least 1, got %d", c.Scrape.MaxConcurrency)
	}
	if c.History.Enabled {
		if !contains(ValidDrivers, c.History.Driver) {
			return fmt.Errorf("invalid history driver: %s (valid: %v)", c.History.Driver, ValidDrivers)
		}
		if c.History.Path == "" {
			return fmt.Errorf("history path not configured")
		}
	}
	if !contains(ValidLevels, c.Logging.Level) {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, ValidLevels)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
