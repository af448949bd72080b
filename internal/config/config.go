// Package config loads and validates pulsewatch's runtime configuration.
//
// Configuration is layered through Koanf v2 with three sources, in order of
// increasing precedence: built-in struct defaults, an optional YAML config
// file, and environment variables. See LoadWithKoanf for the layering
// mechanics and koanf.go for the env-var name mappings.
//
// Config sections:
//   - Database: the DuckDB file backing the store package
//   - Server: host/port for the /metrics and /healthz endpoints
//   - Adapters: the source-adapter registry the scheduler consults
//   - Validator, Ranker, Linker, Embedder, Queue, Trend: tuning for the
//     matching internal package
//   - Logging: zerolog level/format/caller settings
package config

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Config is the root configuration object for pulsewatch.
type Config struct {
	Database  DatabaseConfig  `koanf:"database"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Adapters  []AdapterConfig `koanf:"adapters"`
	Validator ValidatorConfig `koanf:"validator"`
	Ranker    RankerConfig    `koanf:"ranker"`
	Linker    LinkerConfig    `koanf:"linker"`
	Embedder  EmbedderConfig  `koanf:"embedder"`
	Queue     QueueConfig     `koanf:"queue"`
	Trend     TrendConfig     `koanf:"trend"`
}

// DatabaseConfig configures the embedded DuckDB file store.Open opens.
type DatabaseConfig struct {
	// Path is the DuckDB database file path.
	Path string `koanf:"path" validate:"required"`

	// MaxMemory is DuckDB's memory_limit setting, e.g. "2GB".
	MaxMemory string `koanf:"max_memory"`

	// Threads is DuckDB's worker thread count. 0 means runtime.NumCPU().
	Threads int `koanf:"threads" validate:"gte=0"`

	// PreserveInsertionOrder trades memory for deterministic result
	// ordering; DuckDB's own default is true.
	PreserveInsertionOrder bool `koanf:"preserve_insertion_order"`

	// SeedMockData seeds a handful of synthetic items/entities at startup,
	// for running the pipeline against a fresh database without waiting on
	// a live collection run.
	SeedMockData bool `koanf:"seed_mock_data"`

	// SkipIndexes skips secondary-index creation during schema migration;
	// useful for bulk-load benchmarking, never for production use.
	SkipIndexes bool `koanf:"skip_indexes"`
}

// ServerConfig configures the process's own HTTP surface: Prometheus
// /metrics and a liveness /healthz. There is no other external interface.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port" validate:"min=1,max=65535"`

	// Environment selects production-mode checks (see IsProduction).
	Environment string `koanf:"environment"`

	// OwnerID is the UUID of the single owner whose tracked entities,
	// collected items, and trend snapshots this deployment manages. There
	// is no multi-tenant isolation (see spec's TrackedEntity Non-goals);
	// one process serves exactly one owner, fixed at startup.
	OwnerID string `koanf:"owner_id" validate:"uuid"`
}

// OwnerUUID parses OwnerID, returning an error if it isn't a well-formed
// UUID. Load/LoadLegacy's Validate call already guarantees this succeeds.
func (c *Config) OwnerUUID() (uuid.UUID, error) {
	return uuid.Parse(c.Server.OwnerID)
}

// LoggingConfig configures the zerolog logger.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// AdapterConfig describes one registered source adapter. Not every field
// applies to every adapter Type; unused fields are ignored by that type's
// constructor. See internal/collector for the concrete adapter
// constructors this feeds.
type AdapterConfig struct {
	// Name identifies this adapter instance for logging, metrics, and
	// scheduler registration (e.g. "reuters-world", "sec-filings").
	Name string `koanf:"name"`

	// Type selects the adapter constructor: "rss", "events", "sanctions",
	// "filings", or "forum". Not struct-tag validated: whether it's
	// required, and against which set, depends on Enabled and Type
	// themselves (see validateAdapters/validateAdapterEndpoint).
	Type string `koanf:"type"`

	Enabled bool `koanf:"enabled"`

	// Interval is how often the scheduler runs this adapter.
	Interval time.Duration `koanf:"interval"`

	// BaseURL is the adapter's upstream endpoint. Required for all types
	// except "rss", which uses FeedURL instead.
	BaseURL string `koanf:"base_url"`

	// FeedURL and FeedName are used only by Type "rss".
	FeedURL  string `koanf:"feed_url"`
	FeedName string `koanf:"feed_name"`

	// Template and Recency are used only by Type "events".
	Template string `koanf:"template"`
	Recency  string `koanf:"recency"`

	// BearerToken is used only by Type "sanctions".
	BearerToken string `koanf:"bearer_token"`

	// ContactEmail is used only by Type "filings" (SEC EDGAR requires a
	// contact email in the User-Agent of every request).
	ContactEmail string `koanf:"contact_email"`

	// Communities is used only by Type "forum".
	Communities []string `koanf:"communities"`
}

// ValidatorConfig configures internal/validator.
type ValidatorConfig struct {
	// Strict raises the acceptance threshold from 0.4 to 0.6.
	Strict bool `koanf:"strict"`
}

// RankerConfig configures internal/ranker's two weighting tables.
type RankerConfig struct {
	SourceCredibility  map[string]float64 `koanf:"source_credibility"`
	CategoryImportance map[string]float64 `koanf:"category_importance"`
}

// LinkerConfig configures internal/linker's cache sizing, TTLs, and
// outbound pacing against the external knowledge base.
type LinkerConfig struct {
	L1Capacity      int           `koanf:"l1_capacity" validate:"gt=0"`
	L1TTL           time.Duration `koanf:"l1_ttl"`
	L2TTL           time.Duration `koanf:"l2_ttl"`
	RequestInterval time.Duration `koanf:"request_interval" validate:"gt=0"`
	MaxRetries      int           `koanf:"max_retries" validate:"gte=0"`

	// L2Path is the badger database directory backing the linker's L2
	// cache tier. Empty disables L2 and runs L1-only.
	L2Path string `koanf:"l2_path"`
}

// EmbedderConfig configures internal/embedder's concurrency.
type EmbedderConfig struct {
	Concurrency int `koanf:"concurrency" validate:"gt=0"`
}

// QueueConfig configures internal/queue's worker pool.
type QueueConfig struct {
	MaxConcurrent int `koanf:"max_concurrent" validate:"gt=0"`
}

// TrendConfig holds a default snapshot window. It is loaded and validated,
// but internal/trend does not read it: trend uses its own 30/180-day
// defaults.
type TrendConfig struct {
	DefaultPeriodDays   int `koanf:"default_period_days" validate:"gt=0"`
	DefaultBaselineDays int `koanf:"default_baseline_days" validate:"gt=0"`
}

// Load reads configuration from environment variables and an optional
// config file, in the order described in LoadWithKoanf.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// LoadLegacy builds a Config directly from environment variables, with no
// config-file layer. It covers only the scalar sections (Database, Server,
// Logging, Validator, Linker, Embedder, Queue, Trend); Adapters and Ranker
// hold structured data (slices of structs, maps) that environment
// variables can't express, so those sections are left at their zero value
// here. Use Load for the full three-layer configuration.
//
// Deprecated: Use Load instead for new code.
func LoadLegacy() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Path:                   getEnv("PULSEWATCH_DB_PATH", "/data/pulsewatch.duckdb"),
			MaxMemory:              getEnv("PULSEWATCH_DB_MAX_MEMORY", "2GB"),
			Threads:                getIntEnv("PULSEWATCH_DB_THREADS", 0),
			PreserveInsertionOrder: getBoolEnv("PULSEWATCH_DB_PRESERVE_INSERTION_ORDER", true),
			SeedMockData:           getBoolEnv("PULSEWATCH_SEED_MOCK_DATA", false),
			SkipIndexes:            getBoolEnv("PULSEWATCH_DB_SKIP_INDEXES", false),
		},
		Server: ServerConfig{
			Host:        getEnv("PULSEWATCH_HOST", "0.0.0.0"),
			Port:        getIntEnv("PULSEWATCH_PORT", 9090),
			Environment: getEnv("ENVIRONMENT", "development"),
			OwnerID:     getEnv("PULSEWATCH_OWNER_ID", "00000000-0000-0000-0000-000000000001"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Caller: getBoolEnv("LOG_CALLER", false),
		},
		Validator: ValidatorConfig{
			Strict: getBoolEnv("VALIDATOR_STRICT", false),
		},
		Linker: LinkerConfig{
			L1Capacity:      getIntEnv("LINKER_L1_CAPACITY", 10000),
			L1TTL:           getDurationEnv("LINKER_L1_TTL", 24*time.Hour),
			L2TTL:           getDurationEnv("LINKER_L2_TTL", 24*time.Hour),
			RequestInterval: getDurationEnv("LINKER_REQUEST_INTERVAL", 500*time.Millisecond),
			MaxRetries:      getIntEnv("LINKER_MAX_RETRIES", 3),
			L2Path:          getEnv("LINKER_L2_PATH", ""),
		},
		Embedder: EmbedderConfig{
			Concurrency: getIntEnv("EMBEDDER_CONCURRENCY", 4),
		},
		Queue: QueueConfig{
			MaxConcurrent: getIntEnv("QUEUE_MAX_CONCURRENT", 8),
		},
		Trend: TrendConfig{
			DefaultPeriodDays:   getIntEnv("TREND_DEFAULT_PERIOD_DAYS", 30),
			DefaultBaselineDays: getIntEnv("TREND_DEFAULT_BASELINE_DAYS", 180),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// NOTE: Validate() lives in config_validate.go
// NOTE: URL validation lives in config_url.go
// NOTE: environment variable helpers live in config_env.go
