package config

import (
	"os"
	"testing"
	"time"
)

// Test helpers to reduce cyclomatic complexity

// setupTestEnv sets up test environment variables and returns cleanup function
func setupTestEnv(t *testing.T, envVars map[string]string) func() {
	t.Helper()
	os.Clearenv()
	for k, v := range envVars {
		if err := os.Setenv(k, v); err != nil {
			t.Fatalf("failed to set env var %s: %v", k, err)
		}
	}
	return func() {
		os.Clearenv()
	}
}

func assertNoError(t *testing.T, err error, testName string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", testName, err)
	}
}

func assertError(t *testing.T, err error, testName string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected error, got nil", testName)
	}
}

func assertConfigNotNil(t *testing.T, cfg *Config, testName string) {
	t.Helper()
	if cfg == nil {
		t.Fatalf("%s: config is nil", testName)
	}
}

func TestLoadLegacy_Defaults(t *testing.T) {
	defer setupTestEnv(t, map[string]string{})()

	cfg, err := LoadLegacy()
	assertNoError(t, err, "LoadLegacy defaults")
	assertConfigNotNil(t, cfg, "LoadLegacy defaults")

	if cfg.Database.Path != "/data/pulsewatch.duckdb" {
		t.Errorf("Database.Path = %q, want default", cfg.Database.Path)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Linker.L1Capacity != 10000 {
		t.Errorf("Linker.L1Capacity = %d, want 10000", cfg.Linker.L1Capacity)
	}
	if cfg.Embedder.Concurrency != 4 {
		t.Errorf("Embedder.Concurrency = %d, want 4", cfg.Embedder.Concurrency)
	}
	if cfg.Queue.MaxConcurrent != 8 {
		t.Errorf("Queue.MaxConcurrent = %d, want 8", cfg.Queue.MaxConcurrent)
	}
	if cfg.Trend.DefaultPeriodDays != 30 || cfg.Trend.DefaultBaselineDays != 180 {
		t.Errorf("Trend defaults = %d/%d, want 30/180", cfg.Trend.DefaultPeriodDays, cfg.Trend.DefaultBaselineDays)
	}
}

func TestLoadLegacy_EnvOverrides(t *testing.T) {
	defer setupTestEnv(t, map[string]string{
		"PULSEWATCH_DB_PATH":      "/tmp/test.duckdb",
		"PULSEWATCH_PORT":         "8080",
		"LOG_LEVEL":               "debug",
		"VALIDATOR_STRICT":        "true",
		"LINKER_REQUEST_INTERVAL": "1s",
		"EMBEDDER_CONCURRENCY":    "16",
	})()

	cfg, err := LoadLegacy()
	assertNoError(t, err, "LoadLegacy overrides")

	if cfg.Database.Path != "/tmp/test.duckdb" {
		t.Errorf("Database.Path = %q, want override", cfg.Database.Path)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if !cfg.Validator.Strict {
		t.Error("Validator.Strict = false, want true")
	}
	if cfg.Linker.RequestInterval != time.Second {
		t.Errorf("Linker.RequestInterval = %v, want 1s", cfg.Linker.RequestInterval)
	}
	if cfg.Embedder.Concurrency != 16 {
		t.Errorf("Embedder.Concurrency = %d, want 16", cfg.Embedder.Concurrency)
	}
}

func TestConfig_Validate(t *testing.T) {
	base := func() *Config {
		cfg := defaultConfig()
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"empty db path", func(c *Config) { c.Database.Path = "" }, true},
		{"negative threads", func(c *Config) { c.Database.Threads = -1 }, true},
		{"port too low", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"linker zero capacity", func(c *Config) { c.Linker.L1Capacity = 0 }, true},
		{"linker zero interval", func(c *Config) { c.Linker.RequestInterval = 0 }, true},
		{"linker negative retries", func(c *Config) { c.Linker.MaxRetries = -1 }, true},
		{"embedder zero concurrency", func(c *Config) { c.Embedder.Concurrency = 0 }, true},
		{"queue zero concurrency", func(c *Config) { c.Queue.MaxConcurrent = 0 }, true},
		{"trend zero period", func(c *Config) { c.Trend.DefaultPeriodDays = 0 }, true},
		{"trend zero baseline", func(c *Config) { c.Trend.DefaultBaselineDays = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assertError(t, err, tt.name)
			} else {
				assertNoError(t, err, tt.name)
			}
		})
	}
}

func TestConfig_ValidateAdapters(t *testing.T) {
	tests := []struct {
		name     string
		adapters []AdapterConfig
		wantErr  bool
	}{
		{
			name: "valid rss adapter",
			adapters: []AdapterConfig{
				{Name: "reuters", Type: "rss", Enabled: true, Interval: time.Minute, FeedURL: "https://example.com/rss"},
			},
			wantErr: false,
		},
		{
			name: "disabled adapter skips validation",
			adapters: []AdapterConfig{
				{Name: "broken", Type: "not-a-type", Enabled: false},
			},
			wantErr: false,
		},
		{
			name: "missing name",
			adapters: []AdapterConfig{
				{Type: "rss", Enabled: true, Interval: time.Minute, FeedURL: "https://example.com/rss"},
			},
			wantErr: true,
		},
		{
			name: "duplicate name",
			adapters: []AdapterConfig{
				{Name: "reuters", Type: "rss", Enabled: true, Interval: time.Minute, FeedURL: "https://a.example.com/rss"},
				{Name: "reuters", Type: "rss", Enabled: true, Interval: time.Minute, FeedURL: "https://b.example.com/rss"},
			},
			wantErr: true,
		},
		{
			name: "unknown type",
			adapters: []AdapterConfig{
				{Name: "mystery", Type: "carrier-pigeon", Enabled: true, Interval: time.Minute, BaseURL: "https://example.com"},
			},
			wantErr: true,
		},
		{
			name: "non-positive interval",
			adapters: []AdapterConfig{
				{Name: "sanctions", Type: "sanctions", Enabled: true, Interval: 0, BaseURL: "https://example.com"},
			},
			wantErr: true,
		},
		{
			name: "rss without feed url",
			adapters: []AdapterConfig{
				{Name: "reuters", Type: "rss", Enabled: true, Interval: time.Minute},
			},
			wantErr: true,
		},
		{
			name: "events without template",
			adapters: []AdapterConfig{
				{Name: "events", Type: "events", Enabled: true, Interval: time.Minute, BaseURL: "https://example.com"},
			},
			wantErr: true,
		},
		{
			name: "filings without base url",
			adapters: []AdapterConfig{
				{Name: "filings", Type: "filings", Enabled: true, Interval: time.Minute, ContactEmail: "ops@example.com"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.Adapters = tt.adapters
			err := cfg.Validate()
			if tt.wantErr {
				assertError(t, err, tt.name)
			} else {
				assertNoError(t, err, tt.name)
			}
		})
	}
}

func TestConfig_IsProductionIsDevelopment(t *testing.T) {
	cfg := defaultConfig()

	cfg.Server.Environment = "production"
	if !cfg.IsProduction() {
		t.Error("IsProduction() = false, want true for 'production'")
	}
	if cfg.IsDevelopment() {
		t.Error("IsDevelopment() = true, want false for 'production'")
	}

	cfg.Server.Environment = ""
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false, want true for empty environment")
	}

	cfg.Server.Environment = "dev"
	if !cfg.IsDevelopment() {
		t.Error("IsDevelopment() = false, want true for 'dev'")
	}
}
