package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/christiancopeland/pulsewatch/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "test.duckdb"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleItems() []models.CollectedItem {
	now := time.Now().UTC()
	return []models.CollectedItem{
		{SourceType: "rss", SourceName: "feed", URL: "https://example.com/u1", Title: "one", RawContent: "body one", Published: now},
		{SourceType: "rss", SourceName: "feed", URL: "https://example.com/u2", Title: "two", RawContent: "body two", Published: now},
		{SourceType: "rss", SourceName: "feed", URL: "https://example.com/u3", Title: "three", RawContent: "body three", Published: now},
	}
}

func TestStore_PersistBatch_RSSDedup(t *testing.T) {
	if os.Getenv("PULSEWATCH_SKIP_DUCKDB_TESTS") != "" {
		t.Skip("duckdb driver unavailable in this environment")
	}
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.PersistBatch(ctx, sampleItems())
	if err != nil {
		t.Fatalf("first PersistBatch: %v", err)
	}
	if first.Collected != 3 || first.New != 3 || first.Duplicate != 0 {
		t.Fatalf("first run = %+v, want Collected=3 New=3 Duplicate=0", first)
	}

	second, err := s.PersistBatch(ctx, sampleItems())
	if err != nil {
		t.Fatalf("second PersistBatch: %v", err)
	}
	if second.Collected != 3 || second.New != 0 || second.Duplicate != 3 {
		t.Fatalf("second run = %+v, want Collected=3 New=0 Duplicate=3", second)
	}
}

func TestStore_ContentHashDedup(t *testing.T) {
	if os.Getenv("PULSEWATCH_SKIP_DUCKDB_TESTS") != "" {
		t.Skip("duckdb driver unavailable in this environment")
	}
	s := openTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	a := models.CollectedItem{SourceType: "rss", URL: "https://example.com/a", Title: "a", RawContent: "identical body", Published: now}
	b := models.CollectedItem{SourceType: "rss", URL: "https://example.com/b", Title: "b", RawContent: "identical body", Published: now}

	res, err := s.PersistBatch(ctx, []models.CollectedItem{a, b})
	if err != nil {
		t.Fatalf("PersistBatch: %v", err)
	}
	if res.New != 1 || res.Duplicate != 1 {
		t.Fatalf("res = %+v, want New=1 Duplicate=1 (same content_hash, different url)", res)
	}
}

func TestStore_SeedMockData(t *testing.T) {
	if os.Getenv("PULSEWATCH_SKIP_DUCKDB_TESTS") != "" {
		t.Skip("duckdb driver unavailable in this environment")
	}
	s := openTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	if err := s.SeedMockData(ctx, userID); err != nil {
		t.Fatalf("SeedMockData: %v", err)
	}

	pending, err := s.FetchPendingItems(ctx, 1000)
	if err != nil {
		t.Fatalf("FetchPendingItems: %v", err)
	}
	if len(pending) == 0 {
		t.Error("expected SeedMockData to insert pending news items")
	}

	entities, err := s.ListTrackedEntities(ctx, userID)
	if err != nil {
		t.Fatalf("ListTrackedEntities: %v", err)
	}
	if len(entities) == 0 {
		t.Error("expected SeedMockData to insert tracked entities")
	}
}

func TestStore_OpenWithOptions_SkipIndexes(t *testing.T) {
	if os.Getenv("PULSEWATCH_SKIP_DUCKDB_TESTS") != "" {
		t.Skip("duckdb driver unavailable in this environment")
	}
	dir := t.TempDir()
	s, err := OpenWithOptions(filepath.Join(dir, "test.duckdb"), Options{SkipIndexes: true, MaxMemory: "256MB", Threads: 1})
	if err != nil {
		t.Fatalf("OpenWithOptions: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if _, err := s.PersistBatch(ctx, sampleItems()); err != nil {
		t.Fatalf("PersistBatch on an index-free store: %v", err)
	}
}

func TestStore_SetEntityCanonicalLink(t *testing.T) {
	if os.Getenv("PULSEWATCH_SKIP_DUCKDB_TESTS") != "" {
		t.Skip("duckdb driver unavailable in this environment")
	}
	s := openTestStore(t)
	ctx := context.Background()
	userID := uuid.New()

	entityID, err := s.UpsertTrackedEntity(ctx, userID, "Joe Biden", models.EntityPerson)
	if err != nil {
		t.Fatalf("UpsertTrackedEntity: %v", err)
	}

	if err := s.SetEntityCanonicalLink(ctx, entityID, "Q6279", "Joe Biden", "46th U.S. President", "https://example.org/Q6279", []string{"Joseph Biden"}, 0.95); err != nil {
		t.Fatalf("SetEntityCanonicalLink: %v", err)
	}

	entities, err := s.ListTrackedEntities(ctx, userID)
	if err != nil {
		t.Fatalf("ListTrackedEntities: %v", err)
	}
	if len(entities) != 1 {
		t.Fatalf("expected one tracked entity, got %d", len(entities))
	}
	canonicalID, ok := entities[0].CanonicalID()
	if !ok || canonicalID != "Q6279" {
		t.Errorf("CanonicalID() = %q, %v, want Q6279, true", canonicalID, ok)
	}
}

func TestContentHash_PrefersRawContentThenSummaryThenTitle(t *testing.T) {
	withRaw := models.CollectedItem{Title: "t", Summary: "s", RawContent: "r"}
	withSummary := models.CollectedItem{Title: "t", Summary: "s"}
	withTitleOnly := models.CollectedItem{Title: "t"}

	if contentHash(withRaw) == contentHash(withSummary) {
		t.Error("expected different hashes when RawContent differs from Summary")
	}
	if contentHash(withSummary) == contentHash(withTitleOnly) {
		t.Error("expected different hashes when Summary differs from Title")
	}
	if contentHash(models.CollectedItem{}) != "" {
		t.Error("expected empty hash for an item with no body text at all")
	}
}
