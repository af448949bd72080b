/*
Package metrics provides Prometheus metrics collection and export for observability.

This package implements application instrumentation using the Prometheus client
library, exposing metrics for monitoring collection throughput, pipeline health,
and the entity linker's external-lookup efficiency.

# Overview

The package provides metrics for:
  - Source adapter collection runs (duration, items fetched/stored, dedup count)
  - Processing pipeline stage durations and per-stage pass/fail counts
  - Entity linker cache hit ratio and knowledge-base lookup latency
  - Extraction queue depth
  - Circuit breaker state (linker and adapter resilience)
  - DuckDB query performance

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:9090/metrics

# Available Metrics

Collection Metrics:
  - collection_run_duration_seconds: Duration of a single adapter run (histogram)
    Labels: adapter
  - collection_items_fetched_total / collection_items_stored_total: throughput (counters)
    Labels: adapter
  - collection_duplicates_skipped_total: content-hash dedup count (counter)
    Labels: adapter
  - collection_errors_total: adapter run failures (counter)
    Labels: adapter, error_type
  - collection_last_success_timestamp: last successful run (gauge)
    Labels: adapter
  - collection_consecutive_failures: health-summary input (gauge)
    Labels: adapter

Pipeline Metrics:
  - pipeline_stage_duration_seconds: per-stage duration over a batch (histogram)
    Labels: stage (validate, rank, extract_mentions, detect_relationships, embed)
  - pipeline_items_processed_total / pipeline_items_failed_total: per-stage outcome (counters)
    Labels: stage
  - pipeline_batch_size: items per ProcessPendingItems call (histogram)
  - pipeline_run_duration_seconds: full batch-run duration (histogram)

Entity Linker Metrics:
  - linker_cache_hits_total / linker_cache_misses_total: two-tier cache outcome (counters)
    Labels: tier (l1, l2)
  - linker_lookup_duration_seconds: external knowledge-base call latency (histogram)
  - linker_rate_limit_waits_total: lookups delayed by the rate limiter (counter)

Extraction Queue Metrics:
  - extraction_queue_depth: queued task count (gauge)
  - extraction_queue_tasks_completed_total: task outcome (counter)
    Labels: result (success, failed)
  - extraction_queue_task_duration_seconds: per-task duration (histogram)

Trend Metrics:
  - trend_computation_duration_seconds: full indicator pass duration (histogram)
  - trend_alerts_raised_total: indicators crossing an alert threshold (counter)
    Labels: indicator, level

Database Metrics:
  - duckdb_query_duration_seconds: query execution time (histogram)
    Labels: operation, table
  - duckdb_query_errors_total: failed queries (counter)
    Labels: operation, table, error_type
  - duckdb_connection_pool_size: active connections (gauge)

Circuit Breaker Metrics:
  - circuit_breaker_state: current state (gauge)
    Labels: name
    Values: 0=closed, 1=half-open, 2=open
  - circuit_breaker_requests_total: outcome counts (counter)
    Labels: name, result (success, failure, rejected)
  - circuit_breaker_state_transitions_total: state change counts (counter)
    Labels: name, from_state, to_state

Cache Metrics (General):
  - cache_hits_total / cache_misses_total: generic cache outcome (counters)
    Labels: cache_type
  - cache_entries: current cache size (gauge)
    Labels: cache_type
  - cache_evictions_total: TTL or capacity evictions (counter)
    Labels: cache_type

Broadcast Bus Metrics:
  - broadcast_events_published_total: events published (counter)
    Labels: topic
  - broadcast_subscribers: active subscriber count (gauge)

# Usage Example

Basic setup in main.go:

	import (
	    "github.com/christiancopeland/pulsewatch/internal/metrics"
	    "github.com/prometheus/client_golang/prometheus/promhttp"
	)

	func main() {
	    http.Handle("/metrics", promhttp.Handler())

	    metrics.RecordCollectionRun("rss", elapsed, fetched, stored, duplicates, err)
	    metrics.RecordPipelineStage("rank", elapsed, processed, failed)
	}

Recording a collection run:

	start := time.Now()
	items, err := adapter.Collect(ctx)
	res, _ := st.PersistBatch(ctx, items)
	metrics.RecordCollectionRun(adapter.Name(), time.Since(start), len(items), res.Collected, res.Duplicate, err)
	metrics.UpdateCollectionHealth(adapter.Name(), consecutiveFailures)

Recording a pipeline stage:

	start := time.Now()
	valid, validated, failed := o.stageValidation(items)
	metrics.RecordPipelineStage("validate", time.Since(start), validated, failed)

# Prometheus Configuration

Example prometheus.yml configuration:

	scrape_configs:
	  - job_name: 'pulsewatch'
	    static_configs:
	      - targets: ['localhost:9090']
	    metrics_path: '/metrics'
	    scrape_interval: 15s

Example PromQL queries:

	# Collection throughput by adapter
	rate(collection_items_stored_total[5m])

	# Dedup ratio
	rate(collection_duplicates_skipped_total[5m]) / rate(collection_items_fetched_total[5m])

	# Pipeline stage p95 latency
	histogram_quantile(0.95, rate(pipeline_stage_duration_seconds_bucket[5m]))

	# Linker cache hit rate
	sum(rate(linker_cache_hits_total[5m])) / (sum(rate(linker_cache_hits_total[5m])) + sum(rate(linker_cache_misses_total[5m])))

# Thread Safety

All metric recording functions are thread-safe and designed for concurrent use
from multiple goroutines. The Prometheus client library handles synchronization
internally.

# Cardinality Management

To prevent high cardinality issues:
  - Adapter names are a fixed, small set of registered source adapters
  - Collection error types are limited to the predefined categories in classifyError
    (duckdb_query_errors_total's error_type is the error text cut to 50 characters)
  - No per-item or per-entity labels are ever attached to a metric

# Alerting Rules

Example Prometheus alerting rules:

	groups:
	  - name: pulsewatch
	    rules:
	      - alert: AdapterConsecutiveFailures
	        expr: collection_consecutive_failures >= 3
	        for: 5m
	        annotations:
	          summary: "Adapter {{ $labels.adapter }} has failed 3+ runs in a row"

	      - alert: CircuitBreakerOpen
	        expr: circuit_breaker_state > 0
	        for: 2m
	        annotations:
	          summary: "Circuit breaker open for {{ $labels.name }}"

	      - alert: PipelineStageSlow
	        expr: |
	          histogram_quantile(0.95,
	            rate(pipeline_stage_duration_seconds_bucket[5m]))
	          > 5
	        for: 5m
	        annotations:
	          summary: "p95 {{ $labels.stage }} duration over 5s"

# See Also

  - internal/scheduler: collection run metrics source
  - internal/pipeline: pipeline stage metrics source
  - internal/linker: cache and circuit breaker metrics source
  - https://prometheus.io/docs/practices/naming/: Metric naming conventions
*/
package metrics
