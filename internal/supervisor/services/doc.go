/*
Package services provides suture.Service wrappers for pulsewatch's
collection and processing loops.

This package adapts the scheduler and pipeline orchestrator's own
lifecycle patterns (Start/Stop, a direct call repeated on a ticker) to
suture v4's context-aware Serve pattern.

# Overview

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

# Available Services

Collection Service (CollectionService):
  - Wraps *scheduler.Scheduler's Start/Stop lifecycle
  - Starts one goroutine per registered source adapter
  - Stops all adapter loops within a configurable timeout on shutdown

Processing Service (ProcessingService):
  - Calls pipeline.Orchestrator.ProcessPendingItems on a fixed interval
  - Runs one batch immediately, then again on every tick
  - Logs a summary after each non-empty batch

Enrichment Service (EnrichmentService):
  - Resolves tracked entities lacking a canonical link against the
    external knowledge base on a fixed interval (default 15m)
  - Persists a successful resolution's canonical ID/label/aliases back
    onto the tracked entity for QID-based dedup
  - Runs independently of the per-item pipeline, since linking is a
    one-time-per-entity operation rather than a per-mention one
  - Treats each tick as one extraction batch against an optional
    QueueGate (internal/queue.Manager), acquiring a slot before the
    tick's entities are processed and releasing it afterward so ticks
    share the same concurrency bound as any other extraction caller;
    a nil gate disables bounding entirely

Trend Service (TrendService):
  - Recomputes baseline-vs-current trend indicators on a fixed interval
    (default 30m) and logs the overall status, so a standing alert
    signal exists without an inbound API call
  - Logs at warn level when the computed snapshot is not normal

HTTP Server Service (HTTPServerService):
  - Wraps the process's only external interface, a /metrics and /healthz
    http.Server, adapting ListenAndServe/Shutdown to Serve
  - Shuts down gracefully within a configurable timeout on cancellation

# Usage Example

	tree, _ := supervisor.NewSupervisorTree(logger, supervisor.DefaultTreeConfig())

	collectionSvc := services.NewCollectionService(sched, 10*time.Second)
	tree.AddCollectionService(collectionSvc)

	processingSvc := services.NewProcessingService(orch, time.Minute, 100, userID, log)
	tree.AddProcessingService(processingSvc)

	tree.Serve(ctx)

# Error Handling

Return values determine supervisor behavior:

	nil         -> Service stopped cleanly, will not restart
	error       -> Service crashed, supervisor will restart
	ctx.Err()   -> Shutdown requested, normal termination

# Service Identification

Every service implements fmt.Stringer for logging:

	func (s *CollectionService) String() string { return "collection-scheduler" }
	func (s *ProcessingService) String() string { return "pipeline-processor" }
	func (s *EnrichmentService) String() string { return "entity-enrichment" }
	func (s *TrendService) String() string { return "trend-indicators" }
	func (s *HTTPServerService) String() string { return "http-server" }

# See Also

  - internal/supervisor: SupervisorTree that manages these services
  - github.com/thejerf/suture/v4: Underlying supervision library
  - internal/scheduler: the adapter scheduler wrapped by CollectionService
  - internal/pipeline: the orchestrator wrapped by ProcessingService
*/
package services
