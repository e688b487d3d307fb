package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configEnvKeys = []string{
	"PORT", "LOG_LEVEL", "DATABASE_PATH", "LINK_CHECK_CONCURRENCY", "PAGE_CHECK_CONCURRENCY",
	"LINK_CHECK_TIMEOUT", "LINK_CACHE_PERIOD", "LINK_CHECK_RATE", "INTERNAL_USER_AGENT",
	"EXTERNAL_USER_AGENT", "BLOCK_PRIVATE_NETWORKS",
}

// clearEnv blanks every config variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configEnvKeys {
		t.Setenv(key, "")
	}
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != Default() {
		t.Errorf("Load() = %+v, want %+v", cfg, Default())
	}
}

func TestLoad_Env(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("LINK_CHECK_CONCURRENCY", "25")
	t.Setenv("PAGE_CHECK_CONCURRENCY", "8")
	t.Setenv("LINK_CHECK_TIMEOUT", "45")
	t.Setenv("LINK_CACHE_PERIOD", "5m")
	t.Setenv("LINK_CHECK_RATE", "2.5")
	t.Setenv("EXTERNAL_USER_AGENT", "checker/1.0")
	t.Setenv("BLOCK_PRIVATE_NETWORKS", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "9090" || cfg.LogLevel != "DEBUG" {
		t.Errorf("Port/LogLevel = %q/%q", cfg.Port, cfg.LogLevel)
	}
	if cfg.LinkCheckConcurrency != 25 || cfg.PageCheckConcurrency != 8 {
		t.Errorf("concurrency = %d/%d, want 25/8", cfg.LinkCheckConcurrency, cfg.PageCheckConcurrency)
	}
	if cfg.LinkCheckTimeout != 45*time.Second {
		t.Errorf("LinkCheckTimeout = %v, want 45s", cfg.LinkCheckTimeout)
	}
	if cfg.LinkCachePeriod != 5*time.Minute {
		t.Errorf("LinkCachePeriod = %v, want 5m", cfg.LinkCachePeriod)
	}
	if cfg.LinkCheckRate != 2.5 {
		t.Errorf("LinkCheckRate = %v, want 2.5", cfg.LinkCheckRate)
	}
	if cfg.ExternalUserAgent != "checker/1.0" {
		t.Errorf("ExternalUserAgent = %q", cfg.ExternalUserAgent)
	}
	if !cfg.BlockPrivateNetworks {
		t.Error("BlockPrivateNetworks = false, want true")
	}
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
port: "7000"
database_path: /var/lib/linkchecker/content.db
link_check_timeout: 10s
page_check_concurrency: 2
`)
	t.Setenv("PORT", "7001")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "7001" {
		t.Errorf("Port = %q, want the environment to win", cfg.Port)
	}
	if cfg.DatabasePath != "/var/lib/linkchecker/content.db" {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.LinkCheckTimeout != 10*time.Second {
		t.Errorf("LinkCheckTimeout = %v, want 10s", cfg.LinkCheckTimeout)
	}
	if cfg.PageCheckConcurrency != 2 {
		t.Errorf("PageCheckConcurrency = %d, want 2", cfg.PageCheckConcurrency)
	}
	if cfg.LinkCheckConcurrency != 10 {
		t.Errorf("LinkCheckConcurrency = %d, want the default", cfg.LinkCheckConcurrency)
	}
}

func TestLoad_FileErrors(t *testing.T) {
	clearEnv(t)

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for a missing file")
	}
	if _, err := Load(writeFile(t, "unknown_key: 1\n")); err == nil {
		t.Error("expected error for an unknown key")
	}
	if _, err := Load(writeFile(t, "")); err != nil {
		t.Errorf("empty file: unexpected error: %v", err)
	}
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("LINK_CHECK_CONCURRENCY", "many")
	t.Setenv("LINK_CHECK_TIMEOUT", "soon")
	t.Setenv("BLOCK_PRIVATE_NETWORKS", "perhaps")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LinkCheckConcurrency != 10 || cfg.LinkCheckTimeout != 30*time.Second || cfg.BlockPrivateNetworks {
		t.Errorf("unparsable values should keep defaults: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "port not a number", mutate: func(c *Config) { c.Port = "http" }, wantErr: errInvalidPort},
		{name: "port out of range", mutate: func(c *Config) { c.Port = "70000" }, wantErr: errInvalidPort},
		{name: "zero link concurrency", mutate: func(c *Config) { c.LinkCheckConcurrency = 0 }, wantErr: errConcurrencyOutOfRange},
		{name: "link concurrency too high", mutate: func(c *Config) { c.LinkCheckConcurrency = 101 }, wantErr: errConcurrencyOutOfRange},
		{name: "page concurrency too high", mutate: func(c *Config) { c.PageCheckConcurrency = 51 }, wantErr: errPageConcurrencyOutOfRange},
		{name: "timeout below a second", mutate: func(c *Config) { c.LinkCheckTimeout = 500 * time.Millisecond }, wantErr: errTimeoutTooShort},
		{name: "zero cache period", mutate: func(c *Config) { c.LinkCachePeriod = 0 }, wantErr: errInvalidCachePeriod},
		{name: "negative rate", mutate: func(c *Config) { c.LinkCheckRate = -1 }, wantErr: errInvalidRate},
		{name: "empty database path", mutate: func(c *Config) { c.DatabasePath = "" }, wantErr: errEmptyDatabasePath},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
