/*
Package config provides centralized configuration management for pulsewatch.

This package handles loading, validation, and parsing of the application's
runtime configuration. It ensures consistent defaults across every component
and lets production deployments override them via a YAML file and/or
environment variables.

# Configuration Sources

Configuration is loaded in three layers, later sources overriding earlier
ones:

 1. Built-in struct defaults (see defaultConfig in koanf.go)
 2. An optional YAML config file (config.yaml, or CONFIG_PATH env var)
 3. Environment variables

# Configuration Structure

  - DatabaseConfig: the DuckDB file backing internal/store
  - ServerConfig: host/port for the process's /metrics and /healthz endpoints,
    plus the fixed owner UUID this deployment manages (see OwnerUUID)
  - AdapterConfig: one entry per registered source adapter (internal/collector)
  - ValidatorConfig: internal/validator's strictness toggle
  - RankerConfig: internal/ranker's source-credibility and category-importance tables
  - LinkerConfig: internal/linker's cache sizing, TTLs, and outbound pacing
  - EmbedderConfig: internal/embedder's concurrency
  - QueueConfig: internal/queue's worker pool size
  - TrendConfig: internal/trend's default snapshot window
  - LoggingConfig: zerolog level/format/caller settings

# Adapters Example (config.yaml)

The adapter registry is structured data (a slice of per-adapter settings)
and so can only be populated through the YAML file layer, not environment
variables:

	adapters:
	  - name: reuters-world
	    type: rss
	    enabled: true
	    interval: 15m
	    feed_url: https://example.com/reuters/world/rss
	  - name: sec-filings
	    type: filings
	    enabled: true
	    interval: 1h
	    base_url: https://example.com/edgar/filings
	    contact_email: ops@example.com
	  - name: global-events
	    type: events
	    enabled: true
	    interval: 30m
	    base_url: https://example.com/events/query
	    template: armed-conflict
	    recency: 24h

# Usage Example

	cfg, err := config.Load()
	if err != nil {
	    log.Fatalf("failed to load config: %v", err)
	}

	st, err := store.Open(cfg.Database.Path)
	emb := embedder.New(model, st, cfg.Embedder.Concurrency)
	rk := ranker.New(cfg.Ranker.SourceCredibility, cfg.Ranker.CategoryImportance)
	ownerID, err := cfg.OwnerUUID()

# Environment Variables

See envTransformFunc in koanf.go for the full PULSEWATCH_*/LOG_*/LINKER_*/
EMBEDDER_*/QUEUE_*/TREND_*/VALIDATOR_* mapping table. Scalar fields (ints,
durations, strings, bools) are all overridable this way; Adapters and
Ranker's maps are not, since env vars can't express nested structures.

# Validation

Validate() is run automatically by Load() and LoadLegacy(). It checks:

  - database.path is set, database.threads is non-negative
  - server.port is in the valid TCP range and server.owner_id is a well-formed UUID
  - every enabled adapter has a unique name, a recognized type, a positive
    interval, and a well-formed endpoint URL for its type
  - linker/embedder/queue/trend numeric settings are positive where required
  - logging.level and logging.format are recognized values

# Hot Reload

WatchConfigFile wires a file-change callback for config.yaml; the caller is
responsible for synchronizing access to the reloaded Config (see the
example in koanf.go).

# Thread Safety

A Config returned by Load is immutable; reading its fields concurrently
needs no synchronization. Protect only the pointer itself if you reload it.

# See Also

  - internal/supervisor: wires the loaded Config into the service tree
*/
package config
