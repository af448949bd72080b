// Package main is the entry point for the pulsewatch server process.
//
// pulsewatch is a personal intelligence aggregation platform: it collects
// items from a configurable set of news, events, sanctions, filings, and
// forum sources, runs them through a validation/ranking/entity-extraction/
// embedding pipeline, tracks named entities across time, and periodically
// resolves those entities against an external knowledge base for
// QID-style deduplication.
//
// # Application Architecture
//
// The process initializes components in the following order:
//
//  1. Configuration: Koanf v2, layered defaults -> config file -> env vars
//  2. Store: DuckDB-backed persistence for items, runs, entities, mentions
//  3. Collection: a scheduler driving one goroutine per registered source
//     adapter (RSS, global-events, sanctions, filings, forum)
//  4. Processing: validator -> ranker -> entity extraction -> relationship
//     detection -> embedding, run as a periodic pipeline orchestrator
//  5. Enrichment: a periodic pass resolving tracked entities against an
//     external knowledge base
//  6. HTTP: a minimal /metrics and /healthz surface; no other external
//     interface exists in this deployment
//
// Every component above the store layer runs as a suture-supervised
// service, isolated into collection/processing/API failure domains so a
// crash in one adapter's loop can't take down the rest of the system.
//
// # Configuration
//
// See internal/config for the full layered configuration mechanics and
// internal/config/doc.go for a worked config.yaml example (adapter
// registration in particular can only be expressed through the file
// layer, since environment variables can't carry a slice of structs).
//
// # Signal Handling
//
// The process handles graceful shutdown on SIGINT and SIGTERM: the root
// context is canceled, every supervised service winds down within its own
// configured timeout, and any service that failed to stop in time is
// logged by name before the process exits.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/christiancopeland/pulsewatch/internal/broadcast"
	"github.com/christiancopeland/pulsewatch/internal/collector"
	"github.com/christiancopeland/pulsewatch/internal/config"
	"github.com/christiancopeland/pulsewatch/internal/embedder"
	"github.com/christiancopeland/pulsewatch/internal/extractor"
	"github.com/christiancopeland/pulsewatch/internal/linker"
	"github.com/christiancopeland/pulsewatch/internal/logging"
	"github.com/christiancopeland/pulsewatch/internal/pipeline"
	"github.com/christiancopeland/pulsewatch/internal/queue"
	"github.com/christiancopeland/pulsewatch/internal/ranker"
	"github.com/christiancopeland/pulsewatch/internal/scheduler"
	"github.com/christiancopeland/pulsewatch/internal/store"
	"github.com/christiancopeland/pulsewatch/internal/supervisor"
	"github.com/christiancopeland/pulsewatch/internal/supervisor/services"
	"github.com/christiancopeland/pulsewatch/internal/trend"
	"github.com/christiancopeland/pulsewatch/internal/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	ownerID, err := cfg.OwnerUUID()
	if err != nil {
		logging.Fatal().Err(err).Msg("invalid server.owner_id")
	}

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("owner_id", ownerID.String()).
		Int("adapters", len(cfg.Adapters)).
		Msg("starting pulsewatch")

	st, err := store.OpenWithOptions(cfg.Database.Path, store.Options{
		MaxMemory:              cfg.Database.MaxMemory,
		Threads:                cfg.Database.Threads,
		PreserveInsertionOrder: cfg.Database.PreserveInsertionOrder,
		SkipIndexes:            cfg.Database.SkipIndexes,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to open store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("error closing store")
		}
	}()

	if cfg.Database.SeedMockData {
		if err := st.SeedMockData(context.Background(), ownerID); err != nil {
			logging.Fatal().Err(err).Msg("failed to seed mock data")
		}
		logging.Info().Msg("seeded synthetic items and tracked entities")
	}

	bus := broadcast.New(logging.Logger())
	sched := scheduler.New(st, bus, logging.Logger())
	registerAdapters(sched, cfg.Adapters)

	val := validator.New()
	val.Strict = cfg.Validator.Strict
	rk := ranker.New(cfg.Ranker.SourceCredibility, cfg.Ranker.CategoryImportance)
	emb := embedder.New(noopEmbedModel{}, noopVectorStore{}, cfg.Embedder.Concurrency)
	orch := pipeline.New(st, val, rk, emb, logging.Logger())

	var l2 *badger.DB
	if cfg.Linker.L2Path != "" {
		l2, err = badger.Open(badger.DefaultOptions(cfg.Linker.L2Path))
		if err != nil {
			logging.Fatal().Err(err).Msg("failed to open linker L2 cache")
		}
		defer func() {
			if err := l2.Close(); err != nil {
				logging.Error().Err(err).Msg("error closing linker L2 cache")
			}
		}()
	}
	lnk := linker.New(noopKnowledgeBase(), l2, logging.Logger(), linker.Settings{
		L1Capacity:      cfg.Linker.L1Capacity,
		L1TTL:           cfg.Linker.L1TTL,
		L2TTL:           cfg.Linker.L2TTL,
		RequestInterval: cfg.Linker.RequestInterval,
		MaxRetries:      cfg.Linker.MaxRetries,
	})
	ext := extractor.New(nil) // regex/NER fallback; no concrete model vendored

	q := queue.New(cfg.Queue.MaxConcurrent)

	trendSvc := trend.New(st)

	slogLogger := logging.NewSlogLogger()
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("failed to create supervisor tree")
	}

	tree.AddCollectionService(services.NewCollectionService(sched, 10*time.Second))
	tree.AddProcessingService(services.NewProcessingService(orch, time.Minute, 100, ownerID, logging.Logger()))
	tree.AddProcessingService(services.NewEnrichmentService(st, ext, lnk, q, ownerID, 15*time.Minute, 0, logging.Logger()))
	tree.AddProcessingService(services.NewTrendService(trendSvc, ownerID, 30*time.Minute, logging.Logger()))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	tree.AddAPIService(services.NewHTTPServerService(httpServer, 10*time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", httpServer.Addr).Msg("starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("service failed to stop")
		}
	}

	logging.Info().Msg("pulsewatch stopped gracefully")
}

// registerAdapters constructs and registers every enabled adapter entry
// against sched. A misconfigured or unknown adapter is logged and
// skipped rather than treated as fatal, so one bad entry in config.yaml
// doesn't prevent the rest of the fleet from starting.
func registerAdapters(sched *scheduler.Scheduler, adapters []config.AdapterConfig) {
	for _, a := range adapters {
		if !a.Enabled {
			continue
		}
		adapter, err := buildAdapter(a)
		if err != nil {
			logging.Error().Err(err).Str("adapter", a.Name).Msg("failed to construct adapter, skipping")
			continue
		}
		sched.Register(adapter, a.Interval)
		logging.Info().Str("adapter", a.Name).Str("type", a.Type).Dur("interval", a.Interval).Msg("adapter registered")
	}
}

func buildAdapter(a config.AdapterConfig) (collector.Adapter, error) {
	switch a.Type {
	case "rss":
		return collector.NewRSSAdapter(a.FeedName, a.FeedURL), nil
	case "events":
		return collector.NewEventsAdapter(a.Template, a.BaseURL, a.Recency)
	case "sanctions":
		return collector.NewSanctionsAdapter(a.BaseURL, a.BearerToken), nil
	case "filings":
		return collector.NewFilingsAdapter(a.BaseURL, a.ContactEmail), nil
	case "forum":
		return collector.NewForumAdapter(a.BaseURL, a.Communities), nil
	default:
		return nil, fmt.Errorf("unknown adapter type %q", a.Type)
	}
}
