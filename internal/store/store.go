// Package store persists collected items and tracked-entity state to DuckDB,
// enforcing the URL- and content-hash-uniqueness invariants ahead of the
// processing pipeline.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/google/uuid"

	"github.com/christiancopeland/pulsewatch/internal/cache"
	"github.com/christiancopeland/pulsewatch/internal/metrics"
	"github.com/christiancopeland/pulsewatch/internal/models"
)

// Store wraps a DuckDB connection pool plus a Bloom-filter pre-check that
// short-circuits the common case of "definitely not a duplicate" before
// ever reaching the database.
type Store struct {
	db       *sql.DB
	urlSeen  *cache.BloomLRU
	hashSeen *cache.BloomLRU
}

// Options configures DuckDB session settings applied once after connect.
// The zero value leaves memory and threads at DuckDB's own default but
// turns preserve_insertion_order off (see PreserveInsertionOrder).
type Options struct {
	// MaxMemory sets DuckDB's memory_limit, e.g. "2GB". Empty leaves
	// DuckDB's own default.
	MaxMemory string

	// Threads sets DuckDB's worker thread count. Zero leaves DuckDB's
	// own default (runtime.NumCPU()).
	Threads int

	// PreserveInsertionOrder trades memory for deterministic result
	// ordering. DuckDB's own default is true; leaving this field false
	// (including in the zero value) switches it off, true keeps the default.
	PreserveInsertionOrder bool

	// SkipIndexes skips secondary-index creation during migration;
	// useful for bulk-load benchmarking, never for production use.
	SkipIndexes bool
}

// Open opens (creating if absent) a DuckDB file at path with default
// session settings. See OpenWithOptions to override DuckDB's memory,
// thread, and ordering defaults.
func Open(path string) (*Store, error) {
	return OpenWithOptions(path, Options{PreserveInsertionOrder: true})
}

// OpenWithOptions opens a DuckDB file at path and configures the
// connection pool the way a single-process, moderately-concurrent workload
// wants it: a handful of open connections scaled off the machine's core
// count, a small idle pool, and connections recycled periodically so
// long-lived processes don't accumulate stale handles.
func OpenWithOptions(path string, opts Options) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	maxOpen := runtime.NumCPU()
	if maxOpen < 2 {
		maxOpen = 2
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", path, err)
	}

	if err := applySessionSettings(db, opts); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{
		db:       db,
		urlSeen:  cache.NewBloomLRU(100_000, time.Hour, 0.01),
		hashSeen: cache.NewBloomLRU(100_000, time.Hour, 0.01),
	}
	if err := s.migrate(context.Background(), opts.SkipIndexes); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func applySessionSettings(db *sql.DB, opts Options) error {
	if opts.MaxMemory != "" {
		if _, err := db.Exec(fmt.Sprintf("SET memory_limit='%s'", opts.MaxMemory)); err != nil {
			return fmt.Errorf("store: set memory_limit: %w", err)
		}
	}
	if opts.Threads > 0 {
		if _, err := db.Exec(fmt.Sprintf("SET threads=%d", opts.Threads)); err != nil {
			return fmt.Errorf("store: set threads: %w", err)
		}
	}
	if !opts.PreserveInsertionOrder {
		if _, err := db.Exec("SET preserve_insertion_order=false"); err != nil {
			return fmt.Errorf("store: set preserve_insertion_order: %w", err)
		}
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context, skipIndexes bool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS news_items (
			id UUID PRIMARY KEY,
			source_type VARCHAR NOT NULL,
			source_name VARCHAR NOT NULL,
			source_url VARCHAR,
			title VARCHAR NOT NULL,
			content VARCHAR,
			summary VARCHAR,
			url VARCHAR NOT NULL UNIQUE,
			published_at TIMESTAMP NOT NULL,
			collected_at TIMESTAMP NOT NULL,
			author VARCHAR,
			categories VARCHAR[],
			processed TINYINT NOT NULL DEFAULT 0,
			relevance_score DOUBLE NOT NULL DEFAULT 0,
			content_hash VARCHAR,
			embedding_ref VARCHAR,
			metadata VARCHAR
		)`,
	}
	if !skipIndexes {
		stmts = append(stmts,
			`CREATE INDEX IF NOT EXISTS idx_news_items_content_hash ON news_items(content_hash)`,
			`CREATE INDEX IF NOT EXISTS idx_news_items_processed ON news_items(processed)`,
		)
	}
	stmts = append(stmts,
		`CREATE TABLE IF NOT EXISTS collection_runs (
			id UUID PRIMARY KEY,
			collector_type VARCHAR NOT NULL,
			collector_name VARCHAR NOT NULL,
			started_at TIMESTAMP NOT NULL,
			completed_at TIMESTAMP,
			status VARCHAR NOT NULL,
			items_collected INTEGER NOT NULL DEFAULT 0,
			items_new INTEGER NOT NULL DEFAULT 0,
			items_duplicate INTEGER NOT NULL DEFAULT 0,
			items_filtered INTEGER NOT NULL DEFAULT 0,
			error_message VARCHAR,
			metadata VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS tracked_entities (
			entity_id UUID PRIMARY KEY,
			user_id UUID NOT NULL,
			name VARCHAR NOT NULL,
			name_lower VARCHAR NOT NULL,
			entity_type VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL,
			first_seen TIMESTAMP NOT NULL,
			last_seen TIMESTAMP NOT NULL,
			metadata VARCHAR,
			UNIQUE(user_id, name_lower)
		)`,
		`CREATE TABLE IF NOT EXISTS entity_mentions (
			mention_id UUID PRIMARY KEY,
			entity_id UUID NOT NULL REFERENCES tracked_entities(entity_id),
			document_id UUID,
			news_article_id UUID,
			news_item_id UUID,
			user_id UUID NOT NULL,
			chunk_id VARCHAR,
			context VARCHAR,
			timestamp TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS entity_relationships (
			id UUID PRIMARY KEY,
			source_entity_id UUID NOT NULL,
			target_entity_id UUID NOT NULL,
			relationship_type VARCHAR NOT NULL,
			description VARCHAR,
			first_seen TIMESTAMP NOT NULL,
			last_seen TIMESTAMP NOT NULL,
			mention_count INTEGER NOT NULL DEFAULT 1,
			confidence DOUBLE NOT NULL,
			user_id UUID NOT NULL,
			metadata VARCHAR,
			UNIQUE(source_entity_id, target_entity_id, relationship_type)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: migrate: %w", err)
		}
	}
	return nil
}

// PersistResult carries the outcome of persisting one adapter batch.
type PersistResult struct {
	Collected int
	New       int
	Duplicate int
}

// PersistBatch implements the Deduper/Store contract: URL uniqueness is
// checked first (primary, indexed), then non-empty content-hash
// uniqueness; anything left is inserted. Duplicates are counted, never
// treated as errors. The whole batch commits once; any failure rolls the
// batch back.
func (s *Store) PersistBatch(ctx context.Context, items []models.CollectedItem) (res PersistResult, err error) {
	start := time.Now()
	defer func() { metrics.RecordDBQuery("persist_batch", "news_items", time.Since(start), err) }()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return PersistResult{}, fmt.Errorf("store: begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, item := range items {
		res.Collected++

		dup, dupErr := s.isDuplicateTx(ctx, tx, item)
		if dupErr != nil {
			err = dupErr
			return PersistResult{}, err
		}
		if dup {
			res.Duplicate++
			continue
		}

		if insErr := s.insertTx(ctx, tx, item); insErr != nil {
			err = insErr
			return PersistResult{}, err
		}
		res.New++
		s.urlSeen.Record(item.URL)
		if h := contentHash(item); h != "" {
			s.hashSeen.Record(h)
		}
	}

	if commitErr := tx.Commit(); commitErr != nil {
		err = fmt.Errorf("store: commit: %w", commitErr)
		return PersistResult{}, err
	}

	for _, item := range items {
		s.urlSeen.Record(item.URL)
		if h := contentHash(item); h != "" {
			s.hashSeen.Record(h)
		}
	}
	if res.Duplicate > 0 {
		metrics.CacheHits.WithLabelValues("dedup").Add(float64(res.Duplicate))
	}
	if res.New > 0 {
		metrics.CacheMisses.WithLabelValues("dedup").Add(float64(res.New))
	}

	return res, nil
}

func (s *Store) isDuplicateTx(ctx context.Context, tx *sql.Tx, item models.CollectedItem) (bool, error) {
	if !s.urlSeen.Contains(item.URL) {
		// Bloom filter says definitely not seen; skip the URL round-trip.
	} else {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM news_items WHERE url = ?`, item.URL).Scan(&n); err != nil {
			return false, fmt.Errorf("store: url lookup: %w", err)
		}
		if n > 0 {
			return true, nil
		}
	}

	h := contentHash(item)
	if h == "" {
		return false, nil
	}
	if !s.hashSeen.Contains(h) {
		return false, nil
	}
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM news_items WHERE content_hash = ?`, h).Scan(&n); err != nil {
		return false, fmt.Errorf("store: hash lookup: %w", err)
	}
	return n > 0, nil
}

func (s *Store) insertTx(ctx context.Context, tx *sql.Tx, item models.CollectedItem) error {
	id := uuid.New()
	published := item.Published
	if published.IsZero() {
		published = time.Now().UTC()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO news_items (id, source_type, source_name, source_url, title, content, summary,
			url, published_at, collected_at, author, categories, processed, relevance_score,
			content_hash, embedding_ref, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, NULL, ?)`,
		id, item.SourceType, item.SourceName, item.SourceURL, item.Title, item.RawContent, item.Summary,
		item.URL, published, time.Now().UTC(), item.Author, item.Categories, contentHash(item), encodeMetadata(item.Metadata),
	)
	if err != nil {
		return fmt.Errorf("store: insert: %w", err)
	}
	return nil
}

// StartRun inserts a new CollectionRun row in the running state.
func (s *Store) StartRun(ctx context.Context, collectorType, collectorName string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO collection_runs (id, collector_type, collector_name, started_at, status)
		VALUES (?, ?, ?, ?, ?)`,
		id, collectorType, collectorName, time.Now().UTC(), models.RunRunning,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("store: start run: %w", err)
	}
	return id, nil
}

// CompleteRun transitions a CollectionRun to a terminal status exactly once.
func (s *Store) CompleteRun(ctx context.Context, id uuid.UUID, res PersistResult, filtered int, status models.RunStatus, errMsg string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE collection_runs
		SET completed_at = ?, status = ?, items_collected = ?, items_new = ?,
		    items_duplicate = ?, items_filtered = ?, error_message = ?
		WHERE id = ?`,
		time.Now().UTC(), status, res.Collected, res.New, res.Duplicate, filtered, errMsg, id,
	)
	if err != nil {
		return fmt.Errorf("store: complete run: %w", err)
	}
	return nil
}

func encodeMetadata(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	b, err := jsonMarshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}
