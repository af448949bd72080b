package embedder

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/christiancopeland/pulsewatch/internal/models"
)

type stubModel struct {
	fail  bool
	calls int
}

func (m *stubModel) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls++
	if m.fail {
		return nil, errors.New("model unavailable")
	}
	v := make([]float32, vectorDimension)
	v[0] = float32(len(text))
	return v, nil
}

type stubStore struct {
	upserts map[string]Payload
	deleted map[uuid.UUID]bool
}

func newStubStore() *stubStore {
	return &stubStore{upserts: make(map[string]Payload), deleted: make(map[uuid.UUID]bool)}
}

func (s *stubStore) Upsert(ctx context.Context, vectorID string, vector []float32, payload Payload) error {
	s.upserts[vectorID] = payload
	return nil
}

func (s *stubStore) Search(ctx context.Context, queryVector []float32, limit int, filters map[string]string) ([]SearchHit, error) {
	return nil, nil
}

func (s *stubStore) DeleteByNewsItemID(ctx context.Context, newsItemID uuid.UUID) (bool, error) {
	existed := s.deleted[newsItemID]
	s.deleted[newsItemID] = false
	return existed, nil
}

func TestEmbed_SuccessWritesPayload(t *testing.T) {
	store := newStubStore()
	e := New(&stubModel{}, store, 2)
	item := models.NewsItem{ID: uuid.New(), Title: "Test Item", Content: "Some content here."}

	res := e.Embed(context.Background(), item)
	if !res.Success {
		t.Fatalf("expected success, got error: %v", res.Error)
	}
	if _, ok := store.upserts[res.VectorID]; !ok {
		t.Fatal("expected the vector store to receive an upsert for the returned vector ID")
	}
}

func TestEmbed_ModelFailureIsReportedNotPanicked(t *testing.T) {
	store := newStubStore()
	e := New(&stubModel{fail: true}, store, 2)
	item := models.NewsItem{ID: uuid.New(), Title: "X"}

	res := e.Embed(context.Background(), item)
	if res.Success {
		t.Fatal("expected failure when the model errors")
	}
	if res.Error == nil {
		t.Error("expected a non-nil error")
	}
}

func TestEmbedBatch_IsolatesPerItemFailure(t *testing.T) {
	store := newStubStore()
	model := &stubModel{}
	e := New(model, store, 2)
	items := []models.NewsItem{
		{ID: uuid.New(), Title: "a"},
		{ID: uuid.New(), Title: "b"},
		{ID: uuid.New(), Title: "c"},
	}

	results := e.EmbedBatch(context.Background(), items)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if !r.Success {
			t.Errorf("result %d unexpectedly failed: %v", i, r.Error)
		}
		if r.ItemID != items[i].ID {
			t.Errorf("result %d ItemID mismatch: got %v want %v", i, r.ItemID, items[i].ID)
		}
	}
}

func TestEmbed_SameContentSkipsSecondModelCall(t *testing.T) {
	store := newStubStore()
	model := &stubModel{}
	e := New(model, store, 2)
	// Same title/content but different item IDs, as happens when the same
	// headline is reposted by another source feed.
	first := models.NewsItem{ID: uuid.New(), Title: "Repeated headline", Content: "identical body"}
	second := models.NewsItem{ID: uuid.New(), Title: "Repeated headline", Content: "identical body"}

	if res := e.Embed(context.Background(), first); !res.Success {
		t.Fatalf("first Embed failed: %v", res.Error)
	}
	if res := e.Embed(context.Background(), second); !res.Success {
		t.Fatalf("second Embed failed: %v", res.Error)
	}

	if model.calls != 1 {
		t.Errorf("model.calls = %d, want 1 (second embed should hit the vector cache)", model.calls)
	}
	if len(store.upserts) != 2 {
		t.Errorf("len(store.upserts) = %d, want 2 (each item still gets its own vector store entry)", len(store.upserts))
	}
}

func TestPrepareText_TruncatesContentAt8000Chars(t *testing.T) {
	item := models.NewsItem{Title: "T", SourceName: "S", Content: strings.Repeat("x", 9000)}
	text := PrepareText(item)
	contentIdx := strings.Index(text, "Content: ")
	content := text[contentIdx+len("Content: "):]
	if len(content) != maxContentChars {
		t.Errorf("expected content truncated to %d chars, got %d", maxContentChars, len(content))
	}
}

func TestPrepareText_StripsControlCharactersButKeepsNewlines(t *testing.T) {
	item := models.NewsItem{Title: "Has\x00Null\x01Control", Content: "fine\n\ttext"}
	text := PrepareText(item)
	if strings.ContainsRune(text, 0) || strings.ContainsRune(text, 1) {
		t.Error("expected null and control characters to be stripped")
	}
	if !strings.Contains(text, "fine\n\ttext") {
		t.Error("expected newlines and tabs in content to survive sanitization")
	}
}

func TestDeleteEmbedding_IsIdempotent(t *testing.T) {
	store := newStubStore()
	e := New(&stubModel{}, store, 2)
	id := uuid.New()
	store.deleted[id] = true

	first, err := e.DeleteEmbedding(context.Background(), id)
	if err != nil || !first {
		t.Fatalf("expected the first delete to report true, got %v, err=%v", first, err)
	}
	second, err := e.DeleteEmbedding(context.Background(), id)
	if err != nil || second {
		t.Fatalf("expected the second delete to report false (nothing left to delete), got %v, err=%v", second, err)
	}
}
