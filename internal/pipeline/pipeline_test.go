package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/christiancopeland/pulsewatch/internal/embedder"
	"github.com/christiancopeland/pulsewatch/internal/models"
	"github.com/christiancopeland/pulsewatch/internal/ranker"
	"github.com/christiancopeland/pulsewatch/internal/store"
	"github.com/christiancopeland/pulsewatch/internal/validator"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "test.duckdb"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

type fakeModel struct{}

func (fakeModel) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeVectorStore struct {
	upserts int
}

func (f *fakeVectorStore) Upsert(ctx context.Context, vectorID string, vector []float32, payload embedder.Payload) error {
	f.upserts++
	return nil
}

func (f *fakeVectorStore) Search(ctx context.Context, queryVector []float32, limit int, filters map[string]string) ([]embedder.SearchHit, error) {
	return nil, nil
}

func (f *fakeVectorStore) DeleteByNewsItemID(ctx context.Context, newsItemID uuid.UUID) (bool, error) {
	return false, nil
}

func newTestOrchestrator(t *testing.T, st *store.Store) *Orchestrator {
	t.Helper()
	vecStore := &fakeVectorStore{}
	emb := embedder.New(fakeModel{}, vecStore, 2)
	return New(st, validator.New(), ranker.New(nil, nil), emb, zerolog.Nop())
}

func mustPersist(t *testing.T, st *store.Store, items []models.CollectedItem) {
	t.Helper()
	if _, err := st.PersistBatch(context.Background(), items); err != nil {
		t.Fatalf("PersistBatch: %v", err)
	}
}

func skipIfNoDuckDB(t *testing.T) {
	t.Helper()
	if os.Getenv("PULSEWATCH_SKIP_DUCKDB_TESTS") != "" {
		t.Skip("duckdb driver unavailable in this environment")
	}
}

func TestProcessBatch_OnlyValidItemsGetMarkedProcessed(t *testing.T) {
	skipIfNoDuckDB(t)
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mustPersist(t, st, []models.CollectedItem{
		{SourceType: "rss", SourceName: "feed", URL: "https://example.com/good", Title: "A perfectly reasonable headline", RawContent: "This is a long enough body of real content to pass validation checks easily.", Published: now},
		{SourceType: "rss", SourceName: "feed", URL: "https://example.com/bad", Title: "x", RawContent: "", Published: now},
	})

	items, err := st.FetchPendingItems(ctx, 10)
	if err != nil {
		t.Fatalf("FetchPendingItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}

	orch := newTestOrchestrator(t, st)
	stats := orch.ProcessBatch(ctx, items, uuid.New(), false, false)

	if stats.TotalItems != 2 {
		t.Errorf("TotalItems = %d, want 2", stats.TotalItems)
	}
	if stats.Validated != 1 || stats.ValidationFailed != 1 {
		t.Errorf("Validated=%d ValidationFailed=%d, want 1 and 1", stats.Validated, stats.ValidationFailed)
	}

	remaining, err := st.FetchPendingItems(ctx, 10)
	if err != nil {
		t.Fatalf("FetchPendingItems after processing: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("len(remaining pending) = %d, want 1 (only the invalid item stays pending)", len(remaining))
	}
	if remaining[0].URL != "https://example.com/bad" {
		t.Errorf("remaining pending item = %q, want the invalid one", remaining[0].URL)
	}
}

func TestProcessBatch_EntityMentionAndRelationshipDetection(t *testing.T) {
	skipIfNoDuckDB(t)
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()
	userID := uuid.New()

	if _, err := st.UpsertTrackedEntity(ctx, userID, "Acme Corp", models.EntityOrganization); err != nil {
		t.Fatalf("UpsertTrackedEntity acme: %v", err)
	}
	if _, err := st.UpsertTrackedEntity(ctx, userID, "Jane Doe", models.EntityPerson); err != nil {
		t.Fatalf("UpsertTrackedEntity jane: %v", err)
	}

	body := "Jane Doe announced today that Acme Corp will partner with the firm on a new initiative. " +
		"Acme Corp confirmed the deal in a statement, and Jane Doe is expected to lead the effort."
	mustPersist(t, st, []models.CollectedItem{
		{SourceType: "rss", SourceName: "feed", URL: "https://example.com/partner", Title: "Acme Corp and Jane Doe announce partnership", RawContent: body, Published: now},
	})

	items, err := st.FetchPendingItems(ctx, 10)
	if err != nil {
		t.Fatalf("FetchPendingItems: %v", err)
	}

	orch := newTestOrchestrator(t, st)
	stats := orch.ProcessBatch(ctx, items, userID, false, true)

	if stats.EntitiesExtracted == 0 {
		t.Errorf("EntitiesExtracted = 0, want at least one mention recorded for each tracked entity occurrence")
	}
	if stats.RelationshipsFound == 0 {
		t.Errorf("RelationshipsFound = 0, want at least one co-occurring pair detected")
	}

	mentionCount, err := st.CountEntityMentions(ctx, userID, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("CountEntityMentions: %v", err)
	}
	if mentionCount != stats.EntitiesExtracted {
		t.Errorf("CountEntityMentions = %d, want it to match stats.EntitiesExtracted = %d", mentionCount, stats.EntitiesExtracted)
	}
}

func TestProcessBatch_EmptyBatchReturnsZeroStats(t *testing.T) {
	skipIfNoDuckDB(t)
	st := openTestStore(t)
	orch := newTestOrchestrator(t, st)

	stats := orch.ProcessBatch(context.Background(), nil, uuid.New(), false, false)
	if stats.TotalItems != 0 || stats.Validated != 0 {
		t.Errorf("stats for empty batch = %+v, want all zero", stats)
	}
}

func TestExtractContexts_WrapsLongMatchesInEllipsis(t *testing.T) {
	text := "prefix " + sampleFiller(300) + " ACME CORP " + sampleFiller(300) + " suffix"
	got := extractContexts(text, "acme corp", 200)
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}
	window := got[0]
	if window[:3] != "..." {
		t.Errorf("expected left ellipsis, got prefix %q", window[:3])
	}
	if window[len(window)-3:] != "..." {
		t.Errorf("expected right ellipsis, got suffix %q", window[len(window)-3:])
	}
}

func TestExtractContexts_NoEllipsisWhenMatchNearBoundary(t *testing.T) {
	text := "ACME CORP is right at the start of this short string."
	got := extractContexts(text, "acme corp", 200)
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1", len(got))
	}
	if got[0][:3] == "..." {
		t.Errorf("did not expect a left ellipsis when the match is at the very start, got %q", got[0])
	}
}

func TestExtractContexts_FindsAllOccurrences(t *testing.T) {
	text := "acme corp said one thing. later, acme corp said another thing entirely."
	got := extractContexts(text, "acme corp", 50)
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2 occurrences", len(got))
	}
}

func sampleFiller(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'x'
	}
	return string(b)
}
