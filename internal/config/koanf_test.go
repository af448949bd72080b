package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Database.Path != "/data/pulsewatch.duckdb" {
		t.Errorf("Database.Path = %q, want /data/pulsewatch.duckdb", cfg.Database.Path)
	}
	if cfg.Database.MaxMemory != "2GB" {
		t.Errorf("Database.MaxMemory = %q, want 2GB", cfg.Database.MaxMemory)
	}
	if !cfg.Database.PreserveInsertionOrder {
		t.Error("Database.PreserveInsertionOrder should be true by default")
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Environment != "development" {
		t.Errorf("Server.Environment = %q, want development", cfg.Server.Environment)
	}

	if len(cfg.Adapters) != 0 {
		t.Errorf("Adapters should be empty by default, got %d entries", len(cfg.Adapters))
	}

	if cfg.Validator.Strict {
		t.Error("Validator.Strict should be false by default")
	}

	if len(cfg.Ranker.SourceCredibility) == 0 {
		t.Error("Ranker.SourceCredibility should have default weights")
	}
	if len(cfg.Ranker.CategoryImportance) == 0 {
		t.Error("Ranker.CategoryImportance should have default weights")
	}

	if cfg.Linker.L1Capacity != 10000 {
		t.Errorf("Linker.L1Capacity = %d, want 10000", cfg.Linker.L1Capacity)
	}
	if cfg.Linker.L1TTL != 24*time.Hour {
		t.Errorf("Linker.L1TTL = %v, want 24h", cfg.Linker.L1TTL)
	}
	if cfg.Linker.RequestInterval != 500*time.Millisecond {
		t.Errorf("Linker.RequestInterval = %v, want 500ms", cfg.Linker.RequestInterval)
	}

	if cfg.Embedder.Concurrency != 4 {
		t.Errorf("Embedder.Concurrency = %d, want 4", cfg.Embedder.Concurrency)
	}
	if cfg.Queue.MaxConcurrent != 8 {
		t.Errorf("Queue.MaxConcurrent = %d, want 8", cfg.Queue.MaxConcurrent)
	}
	if cfg.Trend.DefaultPeriodDays != 30 {
		t.Errorf("Trend.DefaultPeriodDays = %d, want 30", cfg.Trend.DefaultPeriodDays)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want json", cfg.Logging.Format)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"db path", "PULSEWATCH_DB_PATH", "database.path"},
		{"server port", "PULSEWATCH_PORT", "server.port"},
		{"environment", "ENVIRONMENT", "server.environment"},
		{"log level", "LOG_LEVEL", "logging.level"},
		{"linker interval", "LINKER_REQUEST_INTERVAL", "linker.request_interval"},
		{"embedder concurrency", "EMBEDDER_CONCURRENCY", "embedder.concurrency"},
		{"queue concurrency", "QUEUE_MAX_CONCURRENT", "queue.max_concurrent"},
		{"trend period", "TREND_DEFAULT_PERIOD_DAYS", "trend.default_period_days"},
		{"unmapped key skipped", "SOME_RANDOM_VAR", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := envTransformFunc(tt.key); got != tt.want {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "config_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	defer func() {
		if err := os.Chdir(origDir); err != nil {
			t.Errorf("Failed to restore working directory: %v", err)
		}
	}()

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}

	t.Run("no config file exists", func(t *testing.T) {
		os.Unsetenv(ConfigPathEnvVar)
		if result := findConfigFile(); result != "" {
			t.Errorf("findConfigFile() = %q, want empty string", result)
		}
	})

	t.Run("config.yaml exists", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, "config.yaml")
		if err := os.WriteFile(configPath, []byte("server:\n  port: 9090\n"), 0644); err != nil {
			t.Fatalf("Failed to create config file: %v", err)
		}
		defer os.Remove(configPath)

		os.Unsetenv(ConfigPathEnvVar)
		if result := findConfigFile(); result != "config.yaml" {
			t.Errorf("findConfigFile() = %q, want config.yaml", result)
		}
	})

	t.Run("CONFIG_PATH env var takes precedence", func(t *testing.T) {
		customPath := filepath.Join(tmpDir, "custom_config.yaml")
		if err := os.WriteFile(customPath, []byte("server:\n  port: 9090\n"), 0644); err != nil {
			t.Fatalf("Failed to create custom config file: %v", err)
		}
		defer os.Remove(customPath)

		os.Setenv(ConfigPathEnvVar, customPath)
		defer os.Unsetenv(ConfigPathEnvVar)

		if result := findConfigFile(); result != customPath {
			t.Errorf("findConfigFile() = %q, want %q", result, customPath)
		}
	})

	t.Run("CONFIG_PATH env var with non-existent file falls back", func(t *testing.T) {
		os.Setenv(ConfigPathEnvVar, "/non/existent/config.yaml")
		defer os.Unsetenv(ConfigPathEnvVar)

		if result := findConfigFile(); result != "" {
			t.Errorf("findConfigFile() = %q, want empty string", result)
		}
	})
}

func TestLoadWithKoanfEnvVars(t *testing.T) {
	os.Clearenv()
	os.Setenv("PULSEWATCH_PORT", "9000")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("EMBEDDER_CONCURRENCY", "12")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Embedder.Concurrency != 12 {
		t.Errorf("Embedder.Concurrency = %d, want 12", cfg.Embedder.Concurrency)
	}

	// Defaults still apply for unset values
	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0 (default)", cfg.Server.Host)
	}
	if cfg.Database.MaxMemory != "2GB" {
		t.Errorf("Database.MaxMemory = %q, want 2GB (default)", cfg.Database.MaxMemory)
	}
}

func TestLoadWithKoanfConfigFile(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "config_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	configContent := `
server:
  port: 8888
  host: "127.0.0.1"

logging:
  level: "warn"

adapters:
  - name: reuters-world
    type: rss
    enabled: true
    interval: 15m
    feed_url: "https://example.com/reuters/world/rss"
`
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}

	os.Clearenv()
	os.Setenv(ConfigPathEnvVar, configPath)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 8888 {
		t.Errorf("Server.Port = %d, want 8888", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
	if len(cfg.Adapters) != 1 || cfg.Adapters[0].Name != "reuters-world" {
		t.Fatalf("Adapters = %+v, want one entry named reuters-world", cfg.Adapters)
	}
	if cfg.Adapters[0].Interval != 15*time.Minute {
		t.Errorf("Adapters[0].Interval = %v, want 15m", cfg.Adapters[0].Interval)
	}

	// Defaults still apply for unset values
	if cfg.Database.Path != "/data/pulsewatch.duckdb" {
		t.Errorf("Database.Path = %q, want default", cfg.Database.Path)
	}
}

func TestLoadWithKoanfEnvOverridesFile(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "config_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tmpDir)

	configContent := `
server:
  port: 8888

logging:
  level: "warn"
`
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}

	os.Clearenv()
	os.Setenv(ConfigPathEnvVar, configPath)
	os.Setenv("PULSEWATCH_PORT", "9999")
	os.Setenv("LOG_LEVEL", "error")
	os.Setenv("PULSEWATCH_DB_PATH", "/custom/db.duckdb")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("Server.Port = %d, want 9999 (env override)", cfg.Server.Port)
	}
	if cfg.Logging.Level != "error" {
		t.Errorf("Logging.Level = %q, want error (env override)", cfg.Logging.Level)
	}
	if cfg.Database.Path != "/custom/db.duckdb" {
		t.Errorf("Database.Path = %q, want /custom/db.duckdb (env override)", cfg.Database.Path)
	}
}

func TestLoadWithKoanfValidation(t *testing.T) {
	os.Clearenv()
	os.Setenv("PULSEWATCH_PORT", "999999") // out of range

	_, err := LoadWithKoanf()
	if err == nil {
		t.Fatal("LoadWithKoanf() error = nil, want validation error for out-of-range port")
	}
}

func TestLoadBackwardCompatibility(t *testing.T) {
	os.Clearenv()

	cfg, err := LoadLegacy()
	if err != nil {
		t.Fatalf("LoadLegacy() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
}

func TestGetKoanfInstance(t *testing.T) {
	k := GetKoanfInstance()
	if k == nil {
		t.Fatal("GetKoanfInstance() returned nil")
	}
}
