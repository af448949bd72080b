/*
Package main is the entry point for the pulsewatch server process.

pulsewatch is a personal intelligence aggregation platform: it collects
items from a configurable set of news, events, sanctions, filings, and
forum sources, runs them through a validation/ranking/entity-extraction/
embedding pipeline, tracks named entities across time, periodically
resolves those entities against an external knowledge base, and computes
rolling trend indicators over the collected corpus.

# Application Architecture

The process supervises its work with a three-layer suture tree:

	SupervisorTree ("pulsewatch")
	├── Collection  ("collection-layer")
	│   └── CollectionService (one goroutine per registered source adapter)
	├── Processing  ("processing-layer")
	│   ├── ProcessingService (validate/rank/extract/embed pipeline)
	│   ├── EnrichmentService (tracked-entity knowledge-base resolution)
	│   └── TrendService (baseline-vs-current indicator computation)
	└── API         ("api-layer")
	    └── HTTPServerService (/metrics, /healthz)

Component initialization order:

 1. Configuration: Koanf v2, layered defaults -> config file -> env vars
 2. Logging: zerolog with JSON/console output modes
 3. Store: DuckDB-backed persistence, optionally seeded with synthetic data
 4. Collection: scheduler + registered adapters (RSS, events, sanctions,
    filings, forum)
 5. Processing: validator, ranker, embedder (stubbed pending a real model/
    vector store), pipeline orchestrator
 6. Enrichment: entity linker (stubbed pending a real knowledge-base
    client), optional BadgerDB L2 cache, queue-gated enrichment ticks
 7. Trend: periodic baseline-vs-current indicator snapshots
 8. Supervisor Tree: suture v4 process supervision across all of the above
 9. HTTP: a minimal /metrics and /healthz surface; no other external
    interface exists in this deployment

# Configuration

Configuration is loaded via Koanf v2 with layered sources (highest
priority wins):

	Priority: Environment variables > Config file > Defaults

Core environment variables:

	# Server
	PULSEWATCH_PORT=9090          # HTTP server port
	LOG_LEVEL=info                # trace, debug, info, warn, error
	LOG_FORMAT=json               # json or console
	PULSEWATCH_OWNER_ID=<uuid>    # the single owner this deployment tracks data for

	# Database
	PULSEWATCH_DB_PATH=/data/pulsewatch.duckdb
	PULSEWATCH_SEED_MOCK_DATA=false # populate synthetic items/entities on startup

	# Queue
	QUEUE_MAX_CONCURRENT=8        # concurrent enrichment/extraction batches

Adapter registration (RSS feeds, event sources, sanctions lists, filings
feeds, forum communities) can only be expressed through the config file
layer, since environment variables can't carry a slice of structs — see
internal/config/doc.go for a worked config.yaml example.

# Signal Handling

The process handles graceful shutdown on SIGINT and SIGTERM: the root
context is canceled, every supervised service winds down within its own
configured timeout, the HTTP server drains in-flight requests, and any
service that failed to stop in time is logged by name before the process
exits.

# No Vendored External Clients

internal/embedder's vector store/embedding model and internal/linker's
knowledge-base client are both deliberately left unvendored (see
cmd/server/noop.go): this tree ships the interfaces and a no-op stand-in
returning a single sentinel error, not a specific backend choice.
Production deployments supply real implementations at the same two call
sites in main().

# See Also

  - internal/config: configuration management
  - internal/supervisor: process supervision tree
  - internal/supervisor/services: suture.Service adapters wired into the tree
  - internal/pipeline: the validate/rank/extract/embed orchestrator
  - internal/trend: baseline-vs-current indicator computation
*/
package main
