package main

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/christiancopeland/pulsewatch/internal/embedder"
	"github.com/christiancopeland/pulsewatch/internal/linker"
)

// errNotConfigured is returned by every stub below: none of these vendor a
// concrete third-party client (no embedding model, vector database, or
// knowledge-base API is bundled with this tree). Production deployments
// supply real implementations of embedder.Model/VectorStore and a
// linker.KnowledgeBase behind these same interfaces.
var errNotConfigured = errors.New("not configured: no backing client wired for this deployment")

// noopEmbedModel is the default embedder.Model until a real one is wired.
type noopEmbedModel struct{}

func (noopEmbedModel) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errNotConfigured
}

// noopVectorStore is the default embedder.VectorStore until a real one is
// wired (e.g. Qdrant or pgvector).
type noopVectorStore struct{}

func (noopVectorStore) Upsert(ctx context.Context, vectorID string, vector []float32, payload embedder.Payload) error {
	return errNotConfigured
}

func (noopVectorStore) Search(ctx context.Context, queryVector []float32, limit int, filters map[string]string) ([]embedder.SearchHit, error) {
	return nil, errNotConfigured
}

func (noopVectorStore) DeleteByNewsItemID(ctx context.Context, newsItemID uuid.UUID) (bool, error) {
	return false, errNotConfigured
}

// noopKnowledgeBase is the default linker.KnowledgeBase until a real
// backend (e.g. a Wikidata-style REST client) is wired.
func noopKnowledgeBase() linker.KnowledgeBase {
	return linker.KnowledgeBase{
		Search: func(ctx context.Context, text string) ([]linker.Candidate, error) {
			return nil, errNotConfigured
		},
		Properties: func(ctx context.Context, canonicalID string) (map[string]string, string, error) {
			return nil, "", errNotConfigured
		},
	}
}
