package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus Metrics Integration for Production Observability
// This package provides instrumentation for:
// - Database query performance (DuckDB)
// - Source adapter collection runs
// - Processing pipeline stage durations
// - Entity linker cache efficiency
// - Extraction queue depth
// - Circuit breaker state (linker, adapters)

var (
	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	DBConnectionPoolSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "duckdb_connection_pool_size",
			Help: "Current number of database connections in use",
		},
	)

	// Collection Metrics
	CollectionRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "collection_run_duration_seconds",
			Help:    "Duration of a single source adapter collection run",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"adapter"},
	)

	CollectionItemsFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collection_items_fetched_total",
			Help: "Total number of raw items fetched per adapter run",
		},
		[]string{"adapter"},
	)

	CollectionItemsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collection_items_stored_total",
			Help: "Total number of items persisted after dedup per adapter run",
		},
		[]string{"adapter"},
	)

	CollectionDuplicatesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collection_duplicates_skipped_total",
			Help: "Total number of items skipped due to content-hash deduplication",
		},
		[]string{"adapter"},
	)

	CollectionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collection_errors_total",
			Help: "Total number of adapter collection run failures",
		},
		[]string{"adapter", "error_type"},
	)

	CollectionLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "collection_last_success_timestamp",
			Help: "Unix timestamp of the adapter's last successful collection run",
		},
		[]string{"adapter"},
	)

	CollectionConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "collection_consecutive_failures",
			Help: "Current consecutive failure count per adapter (drives the health summary)",
		},
		[]string{"adapter"},
	)

	// Processing Pipeline Metrics
	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipeline_stage_duration_seconds",
			Help:    "Duration of a single pipeline stage over a batch",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"}, // validate, rank, extract_mentions, detect_relationships, embed
	)

	PipelineItemsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_items_processed_total",
			Help: "Total number of items that passed a pipeline stage",
		},
		[]string{"stage"},
	)

	PipelineItemsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_items_failed_total",
			Help: "Total number of items that failed a pipeline stage",
		},
		[]string{"stage"},
	)

	PipelineBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_batch_size",
			Help:    "Number of items in a single ProcessPendingItems batch",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	PipelineRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_run_duration_seconds",
			Help:    "Duration of a full ProcessPendingItems run",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	// Entity Linker Metrics
	LinkerCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linker_cache_hits_total",
			Help: "Total number of entity linker cache hits",
		},
		[]string{"tier"}, // l1, l2
	)

	LinkerCacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "linker_cache_misses_total",
			Help: "Total number of entity linker cache misses",
		},
		[]string{"tier"},
	)

	LinkerLookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "linker_lookup_duration_seconds",
			Help:    "Duration of entity linker knowledge-base lookups",
			Buckets: prometheus.DefBuckets,
		},
	)

	LinkerRateLimitWaits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "linker_rate_limit_waits_total",
			Help: "Total number of lookups delayed by the linker's rate limiter",
		},
	)

	// Extraction Queue Metrics
	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "extraction_queue_depth",
			Help: "Current number of queued extraction tasks",
		},
	)

	QueueTasksCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "extraction_queue_tasks_completed_total",
			Help: "Total number of extraction tasks completed",
		},
		[]string{"result"}, // success, failed
	)

	QueueTaskDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "extraction_queue_task_duration_seconds",
			Help:    "Duration of a single extraction task",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Trend Computation Metrics
	TrendComputationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "trend_computation_duration_seconds",
			Help:    "Duration of a full trend indicator computation pass",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		},
	)

	TrendAlertsRaised = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trend_alerts_raised_total",
			Help: "Total number of trend indicators that crossed an alert threshold",
		},
		[]string{"indicator", "level"},
	)

	// Cache Metrics (General)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of cached entries",
		},
		[]string{"cache_type"},
	)

	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Total number of cache evictions (TTL expiry or capacity eviction)",
		},
		[]string{"cache_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Broadcast Bus Metrics
	BroadcastEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_events_published_total",
			Help: "Total number of events published to the broadcast bus",
		},
		[]string{"topic"},
	)

	BroadcastSubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "broadcast_subscribers",
			Help: "Current number of active broadcast bus subscribers",
		},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordDBQuery records a database query metric.
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordCollectionRun records the outcome of a single adapter collection run.
func RecordCollectionRun(adapter string, duration time.Duration, fetched, stored, duplicates int, err error) {
	CollectionRunDuration.WithLabelValues(adapter).Observe(duration.Seconds())
	CollectionItemsFetched.WithLabelValues(adapter).Add(float64(fetched))
	CollectionItemsStored.WithLabelValues(adapter).Add(float64(stored))
	CollectionDuplicatesSkipped.WithLabelValues(adapter).Add(float64(duplicates))
	if err != nil {
		errorType := classifyError(err.Error())
		CollectionErrors.WithLabelValues(adapter, errorType).Inc()
	} else {
		CollectionLastSuccess.WithLabelValues(adapter).Set(float64(time.Now().Unix()))
	}
}

// UpdateCollectionHealth updates the consecutive-failure gauge an adapter's health
// summary is derived from.
func UpdateCollectionHealth(adapter string, consecutiveFailures int) {
	CollectionConsecutiveFailures.WithLabelValues(adapter).Set(float64(consecutiveFailures))
}

// RecordPipelineStage records the outcome of a single pipeline stage over a batch.
func RecordPipelineStage(stage string, duration time.Duration, processed, failed int) {
	PipelineStageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	PipelineItemsProcessed.WithLabelValues(stage).Add(float64(processed))
	if failed > 0 {
		PipelineItemsFailed.WithLabelValues(stage).Add(float64(failed))
	}
}

// RecordPipelineRun records a full ProcessPendingItems run.
func RecordPipelineRun(duration time.Duration, batchSize int) {
	PipelineRunDuration.Observe(duration.Seconds())
	PipelineBatchSize.Observe(float64(batchSize))
}

// RecordLinkerCacheResult records an entity linker cache lookup outcome.
func RecordLinkerCacheResult(tier string, hit bool) {
	if hit {
		LinkerCacheHits.WithLabelValues(tier).Inc()
	} else {
		LinkerCacheMisses.WithLabelValues(tier).Inc()
	}
}

// RecordLinkerLookup records the duration of an external knowledge-base lookup.
func RecordLinkerLookup(duration time.Duration) {
	LinkerLookupDuration.Observe(duration.Seconds())
}

// RecordLinkerRateLimitWait records a lookup delayed by the linker's rate limiter.
func RecordLinkerRateLimitWait() {
	LinkerRateLimitWaits.Inc()
}

// UpdateQueueDepth updates the extraction queue depth gauge.
func UpdateQueueDepth(depth int) {
	QueueDepth.Set(float64(depth))
}

// RecordQueueTask records completion of a single extraction task.
func RecordQueueTask(duration time.Duration, success bool) {
	QueueTaskDuration.Observe(duration.Seconds())
	result := "success"
	if !success {
		result = "failed"
	}
	QueueTasksCompleted.WithLabelValues(result).Inc()
}

// RecordTrendComputation records a full trend indicator computation pass.
func RecordTrendComputation(duration time.Duration) {
	TrendComputationDuration.Observe(duration.Seconds())
}

// RecordTrendAlert records a trend indicator crossing an alert threshold.
func RecordTrendAlert(indicator, level string) {
	TrendAlertsRaised.WithLabelValues(indicator, level).Inc()
}

// RecordBroadcastEvent records an event published to the broadcast bus.
func RecordBroadcastEvent(topic string) {
	BroadcastEventsPublished.WithLabelValues(topic).Inc()
}

// SetBroadcastSubscribers sets the current subscriber count gauge.
func SetBroadcastSubscribers(count int) {
	BroadcastSubscribers.Set(float64(count))
}

// classifyError buckets an error message into a small set of cardinality-bounded
// categories for the collection_errors_total label.
func classifyError(msg string) string {
	switch {
	case contains(msg, "timeout"), contains(msg, "deadline"):
		return "timeout"
	case contains(msg, "connection"), contains(msg, "dial"):
		return "connection"
	case contains(msg, "rate limit"), contains(msg, "429"):
		return "rate_limited"
	case contains(msg, "parse"), contains(msg, "unmarshal"), contains(msg, "decode"):
		return "parse"
	case contains(msg, "database"), contains(msg, "duckdb"):
		return "database"
	default:
		return "other"
	}
}

// contains reports whether s contains substr, case-sensitively.
func contains(s, substr string) bool {
	return len(substr) == 0 || indexOf(s, substr) >= 0
}

func indexOf(s, substr string) int {
	n, m := len(s), len(substr)
	if m > n {
		return -1
	}
	for i := 0; i <= n-m; i++ {
		if s[i:i+m] == substr {
			return i
		}
	}
	return -1
}
