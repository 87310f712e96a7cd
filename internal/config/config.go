package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultPort            = "8080"
	defaultAPIURL          = "http://api:8080"
	defaultUpstreamTimeout = "5s"
	defaultHistoryRecords  = 10000
)

// Config holds the gateway configuration.
type Config struct {
	Port     string         `yaml:"port"`
	Admin    AdminConfig    `yaml:"admin"`
	Upstream UpstreamConfig `yaml:"upstream"`
	Redis    RedisConfig    `yaml:"redis"`
	History  HistoryConfig  `yaml:"history"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AdminConfig holds the shared admin credential pair.
type AdminConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// UpstreamConfig addresses the calculation service that owns deduction settings.
type UpstreamConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// RedisConfig enables the Redis-backed calculation history. Empty URL keeps it in memory.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// HistoryConfig bounds the calculation history; older records are evicted
// first.
type HistoryConfig struct {
	MaxRecords int `yaml:"max_records"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

func DefaultConfig() *Config {
	return &Config{
		Port: defaultPort,
		Upstream: UpstreamConfig{
			BaseURL: defaultAPIURL,
			Timeout: defaultUpstreamTimeout,
		},
		History: HistoryConfig{MaxRecords: defaultHistoryRecords},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads configuration from a YAML file, if path is set, then applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("API_URL"); v != "" {
		c.Upstream.BaseURL = v
	}
	if v := os.Getenv("UPSTREAM_TIMEOUT"); v != "" {
		c.Upstream.Timeout = v
	}
	if v := os.Getenv("ADMIN_USERNAME"); v != "" {
		c.Admin.Username = v
	}
	if v := os.Getenv("ADMIN_PASSWORD"); v != "" {
		c.Admin.Password = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv("HISTORY_MAX_RECORDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.History.MaxRecords = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// GetUpstreamTimeout returns the parsed upstream timeout, falling back to the default.
func (c *Config) GetUpstreamTimeout() time.Duration {
	d, err := time.ParseDuration(c.Upstream.Timeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(defaultUpstreamTimeout)
	}
	return d
}

func (c *Config) Validate() error {
	if c.Admin.Username == "" || c.Admin.Password == "" {
		return errors.New("admin username and password are required")
	}
	if c.Upstream.BaseURL == "" {
		return errors.New("upstream base_url is required")
	}
	d, err := time.ParseDuration(c.Upstream.Timeout)
	if err != nil {
		return fmt.Errorf("invalid upstream timeout %q: %w", c.Upstream.Timeout, err)
	}
	if d <= 0 {
		return fmt.Errorf("upstream timeout must be positive, got %s", d)
	}
	if c.History.MaxRecords <= 0 {
		return fmt.Errorf("history max_records must be positive, got %d", c.History.MaxRecords)
	}
	return nil
}

func (c *Config) Addr() string {
	return ":" + c.Port
}
