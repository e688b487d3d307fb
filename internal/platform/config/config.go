package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	errInvalidPort               = errors.New("config: invalid PORT number")
	errConcurrencyOutOfRange     = errors.New("config: LINK_CHECK_CONCURRENCY must be 1-100")
	errPageConcurrencyOutOfRange = errors.New("config: PAGE_CHECK_CONCURRENCY must be 1-50")
	errTimeoutTooShort           = errors.New("config: LINK_CHECK_TIMEOUT must be at least 1s")
	errInvalidCachePeriod        = errors.New("config: LINK_CACHE_PERIOD must be positive")
	errInvalidRate               = errors.New("config: LINK_CHECK_RATE must not be negative")
	errEmptyDatabasePath         = errors.New("config: DATABASE_PATH must not be empty")
)

// Config holds all application configuration. Values come from the
// defaults, then an optional YAML file, then environment variables.
type Config struct {
	Port                 string        `yaml:"port"`
	LogLevel             string        `yaml:"log_level"`
	DatabasePath         string        `yaml:"database_path"`
	LinkCheckConcurrency int           `yaml:"link_check_concurrency"`
	PageCheckConcurrency int           `yaml:"page_check_concurrency"`
	LinkCheckTimeout     time.Duration `yaml:"link_check_timeout"`
	LinkCachePeriod      time.Duration `yaml:"link_cache_period"`
	LinkCheckRate        float64       `yaml:"link_check_rate"` // probes per second, 0 = unlimited
	InternalUserAgent    string        `yaml:"internal_user_agent"`
	ExternalUserAgent    string        `yaml:"external_user_agent"`
	BlockPrivateNetworks bool          `yaml:"block_private_networks"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:                 "8080",
		LogLevel:             "ERROR",
		DatabasePath:         "content.db",
		LinkCheckConcurrency: 10,
		PageCheckConcurrency: 4,
		LinkCheckTimeout:     30 * time.Second,
		LinkCachePeriod:      time.Minute,
	}
}

// Load builds the configuration. An empty path skips the YAML file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return cfg, err
		}
	}

	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.DatabasePath = getEnv("DATABASE_PATH", cfg.DatabasePath)
	cfg.LinkCheckConcurrency = getEnvAsInt("LINK_CHECK_CONCURRENCY", cfg.LinkCheckConcurrency)
	cfg.PageCheckConcurrency = getEnvAsInt("PAGE_CHECK_CONCURRENCY", cfg.PageCheckConcurrency)
	cfg.LinkCheckTimeout = getEnvAsDuration("LINK_CHECK_TIMEOUT", cfg.LinkCheckTimeout)
	cfg.LinkCachePeriod = getEnvAsDuration("LINK_CACHE_PERIOD", cfg.LinkCachePeriod)
	cfg.LinkCheckRate = getEnvAsFloat("LINK_CHECK_RATE", cfg.LinkCheckRate)
	cfg.InternalUserAgent = getEnv("INTERNAL_USER_AGENT", cfg.InternalUserAgent)
	cfg.ExternalUserAgent = getEnv("EXTERNAL_USER_AGENT", cfg.ExternalUserAgent)
	cfg.BlockPrivateNetworks = getEnvAsBool("BLOCK_PRIVATE_NETWORKS", cfg.BlockPrivateNetworks)

	return cfg, cfg.validate()
}

func (c *Config) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c Config) validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("%w: %q", errInvalidPort, c.Port)
	}

	if c.LinkCheckConcurrency < 1 || c.LinkCheckConcurrency > 100 {
		return fmt.Errorf("%w: got %d", errConcurrencyOutOfRange, c.LinkCheckConcurrency)
	}

	if c.PageCheckConcurrency < 1 || c.PageCheckConcurrency > 50 {
		return fmt.Errorf("%w: got %d", errPageConcurrencyOutOfRange, c.PageCheckConcurrency)
	}

	if c.LinkCheckTimeout < time.Second {
		return fmt.Errorf("%w: got %s", errTimeoutTooShort, c.LinkCheckTimeout)
	}

	if c.LinkCachePeriod <= 0 {
		return fmt.Errorf("%w: got %s", errInvalidCachePeriod, c.LinkCachePeriod)
	}

	if c.LinkCheckRate < 0 {
		return fmt.Errorf("%w: got %g", errInvalidRate, c.LinkCheckRate)
	}

	if c.DatabasePath == "" {
		return errEmptyDatabasePath
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsFloat(key string, fallback float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvAsBool(key string, fallback bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return v
}

// getEnvAsDuration accepts Go durations ("45s") or a bare number of seconds.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return fallback
	}
	if v, err := time.ParseDuration(s); err == nil {
		return v
	}
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
