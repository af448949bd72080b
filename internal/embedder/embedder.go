// Package embedder generates dense vectors for collected items and writes
// them through to a vector store for later semantic search.
package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/sync/semaphore"

	"github.com/google/uuid"

	"github.com/christiancopeland/pulsewatch/internal/cache"
	"github.com/christiancopeland/pulsewatch/internal/models"
)

const (
	vectorDimension    = 768
	maxContentChars    = 8000
	defaultConcurrency = 4

	vectorCacheCapacity = 2000
	vectorCacheTTL      = time.Hour
)

// Model generates a fixed-dimension embedding for text. Callers must not
// assume the model is available at startup; a transport or load failure
// surfaces as an error, not a panic.
type Model interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Payload is the flat record written alongside a vector: a flat shape
// rather than a nested one, since the vector store treats payload fields
// as opaque metadata either way.
type Payload struct {
	NewsItemID  uuid.UUID `json:"news_item_id"`
	Title       string    `json:"title"`
	SourceType  string    `json:"source_type"`
	SourceName  string    `json:"source_name"`
	URL         string    `json:"url"`
	Categories  []string  `json:"categories"`
	PublishedAt time.Time `json:"published_at"`
	CollectedAt time.Time `json:"collected_at"`
	EmbeddedAt  time.Time `json:"embedded_at"`
}

// VectorStore is the persistence/search backend behind the Embedder. No
// concrete vector database client is vendored in this tree; production
// wiring supplies one (e.g. Qdrant or pgvector) behind this interface.
type VectorStore interface {
	Upsert(ctx context.Context, vectorID string, vector []float32, payload Payload) error
	Search(ctx context.Context, queryVector []float32, limit int, filters map[string]string) ([]SearchHit, error)
	DeleteByNewsItemID(ctx context.Context, newsItemID uuid.UUID) (bool, error)
}

// SearchHit is one semantic-search result.
type SearchHit struct {
	NewsItemID uuid.UUID
	Title      string
	Score      float64
}

// Result is the outcome of embedding a single item.
type Result struct {
	ItemID     uuid.UUID
	VectorID   string
	Success    bool
	Error      error
	DurationMS int64
}

// Embedder drives text preparation, model inference, and vector-store
// persistence.
type Embedder struct {
	model    Model
	store    VectorStore
	sem      *semaphore.Weighted
	vecCache *cache.LFUCacheGeneric[[]float32]
}

// New constructs an Embedder. concurrency bounds the number of in-flight
// Embed calls across EmbedBatch; zero or negative defaults to 4. An
// in-process LFU cache, keyed by the prepared text's content hash, skips
// the model call entirely when the same text (a repost, or a reprocessed
// item) was embedded within the last hour — the model call is the only
// external dependency on this path, so a dedup cache ahead of it is worth
// the memory.
func New(model Model, store VectorStore, concurrency int) *Embedder {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Embedder{
		model:    model,
		store:    store,
		sem:      semaphore.NewWeighted(int64(concurrency)),
		vecCache: cache.NewLFUCacheGeneric[[]float32](vectorCacheCapacity, vectorCacheTTL),
	}
}

// Embed generates and persists a vector for a single item.
func (e *Embedder) Embed(ctx context.Context, item models.NewsItem) Result {
	start := time.Now()
	text := PrepareText(item)

	vector, ok := e.vecCache.Get(textCacheKey(text))
	if !ok {
		var err error
		vector, err = e.model.Embed(ctx, text)
		if err != nil {
			return Result{ItemID: item.ID, Success: false, Error: fmt.Errorf("embedder: model call: %w", err), DurationMS: elapsedMS(start)}
		}
		e.vecCache.Set(textCacheKey(text), vector)
	}

	vectorID := uuid.NewString()
	payload := Payload{
		NewsItemID:  item.ID,
		Title:       item.Title,
		SourceType:  item.SourceType,
		SourceName:  item.SourceName,
		URL:         item.URL,
		Categories:  item.Categories,
		PublishedAt: item.PublishedAt,
		CollectedAt: item.CollectedAt,
		EmbeddedAt:  time.Now().UTC(),
	}

	if err := e.store.Upsert(ctx, vectorID, vector, payload); err != nil {
		return Result{ItemID: item.ID, Success: false, Error: fmt.Errorf("embedder: vector store upsert: %w", err), DurationMS: elapsedMS(start)}
	}

	return Result{ItemID: item.ID, VectorID: vectorID, Success: true, DurationMS: elapsedMS(start)}
}

// EmbedBatch embeds every item with bounded concurrency, returning one
// Result per item in the same order. One item's failure does not prevent
// the rest from completing.
func (e *Embedder) EmbedBatch(ctx context.Context, items []models.NewsItem) []Result {
	results := make([]Result, len(items))
	done := make(chan struct{}, len(items))

	for i, item := range items {
		i, item := i, item
		if err := e.sem.Acquire(ctx, 1); err != nil {
			results[i] = Result{ItemID: item.ID, Success: false, Error: err}
			done <- struct{}{}
			continue
		}
		go func() {
			defer e.sem.Release(1)
			results[i] = e.Embed(ctx, item)
			done <- struct{}{}
		}()
	}

	for range items {
		<-done
	}
	return results
}

// SearchSimilar embeds queryText with the same model used for indexing
// and returns the nearest matches from the vector store.
func (e *Embedder) SearchSimilar(ctx context.Context, queryText string, limit int, filters map[string]string) ([]SearchHit, error) {
	vector, err := e.model.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embedder: query embedding: %w", err)
	}
	return e.store.Search(ctx, vector, limit, filters)
}

// DeleteEmbedding is idempotent: it reports whether a vector existed for
// newsItemID, without erroring when none did.
func (e *Embedder) DeleteEmbedding(ctx context.Context, newsItemID uuid.UUID) (bool, error) {
	return e.store.DeleteByNewsItemID(ctx, newsItemID)
}

// PrepareText builds the model input text: title/source/categories header
// plus content truncated at 8000 chars, sanitized of control characters.
func PrepareText(item models.NewsItem) string {
	content := item.Content
	if len(content) > maxContentChars {
		content = content[:maxContentChars]
	}

	var b strings.Builder
	b.WriteString("Title: ")
	b.WriteString(sanitize(item.Title))
	b.WriteString("\n\nSource: ")
	b.WriteString(sanitize(item.SourceName))
	b.WriteString("\n\nCategories: ")
	b.WriteString(strings.Join(item.Categories, ", "))
	b.WriteString("\n\nContent: ")
	b.WriteString(sanitize(content))
	return b.String()
}

// sanitize removes null bytes and control characters other than \n, \r, \t.
// Go strings are already valid UTF-8 once decoded from a []byte, so no
// re-encoding step is required beyond dropping invalid runes.
func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if r == 0 {
			return -1
		}
		if r == '\n' || r == '\r' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		if r == unicode.ReplacementChar {
			return -1
		}
		return r
	}, s)
}

func elapsedMS(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}

func textCacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
