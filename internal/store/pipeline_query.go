package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/christiancopeland/pulsewatch/internal/models"
	"github.com/christiancopeland/pulsewatch/internal/relationship"
)

// FetchPendingItems returns up to limit unprocessed news_items, oldest
// collected first, as input to the pipeline orchestrator.
func (s *Store) FetchPendingItems(ctx context.Context, limit int) ([]models.NewsItem, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.queryItems(ctx, `
		SELECT id, source_type, source_name, source_url, title, content, summary, url,
			published_at, collected_at, author, categories, processed, relevance_score,
			content_hash, embedding_ref, metadata
		FROM news_items
		WHERE processed = 0
		ORDER BY collected_at ASC
		LIMIT ?`, limit)
}

// FetchItemsByID re-reads a specific set of items, used by ReprocessItems.
func (s *Store) FetchItemsByID(ctx context.Context, ids []uuid.UUID) ([]models.NewsItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := fmt.Sprintf(`
		SELECT id, source_type, source_name, source_url, title, content, summary, url,
			published_at, collected_at, author, categories, processed, relevance_score,
			content_hash, embedding_ref, metadata
		FROM news_items WHERE id IN (%s)`, placeholders)
	return s.queryItems(ctx, query, args...)
}

func (s *Store) queryItems(ctx context.Context, query string, args ...any) ([]models.NewsItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query items: %w", err)
	}
	defer rows.Close()

	var items []models.NewsItem
	for rows.Next() {
		var it models.NewsItem
		var metadata sql.NullString
		if err := rows.Scan(&it.ID, &it.SourceType, &it.SourceName, &it.SourceURL, &it.Title, &it.Content, &it.Summary,
			&it.URL, &it.PublishedAt, &it.CollectedAt, &it.Author, &it.Categories, &it.Processed, &it.RelevanceScore,
			&it.ContentHash, &it.EmbeddingRef, &metadata); err != nil {
			return nil, fmt.Errorf("store: scan item: %w", err)
		}
		it.Metadata = decodeMetadata(metadata.String)
		items = append(items, it)
	}
	return items, rows.Err()
}

// UpdateRelevance writes a ranker score back onto a news_item without
// touching its processed state.
func (s *Store) UpdateRelevance(ctx context.Context, id uuid.UUID, score float64) error {
	_, err := s.db.ExecContext(ctx, `UPDATE news_items SET relevance_score = ? WHERE id = ?`, score, id)
	if err != nil {
		return fmt.Errorf("store: update relevance: %w", err)
	}
	return nil
}

// SetEmbeddingRef records a vector store reference for a news_item.
func (s *Store) SetEmbeddingRef(ctx context.Context, id uuid.UUID, ref string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE news_items SET embedding_ref = ? WHERE id = ?`, ref, id)
	if err != nil {
		return fmt.Errorf("store: set embedding ref: %w", err)
	}
	return nil
}

// MarkProcessed transitions a news_item's processed state to its terminal
// value (Done or Failed); it never moves backward to Pending.
func (s *Store) MarkProcessed(ctx context.Context, id uuid.UUID, state models.ProcessState) error {
	if state == models.ProcessPending {
		return fmt.Errorf("store: mark processed: cannot move an item back to pending")
	}
	_, err := s.db.ExecContext(ctx, `UPDATE news_items SET processed = ? WHERE id = ?`, int(state), id)
	if err != nil {
		return fmt.Errorf("store: mark processed: %w", err)
	}
	return nil
}

// UpsertTrackedEntity returns the ID of the (user_id, name_lower) entity,
// creating it if absent and touching LastSeen otherwise. A unique-
// constraint violation on insert (lost the race to a concurrent writer) is
// resolved by re-reading the winning row rather than failing the caller:
// optimistic writes, rely on the constraint, never block the batch.
func (s *Store) UpsertTrackedEntity(ctx context.Context, userID uuid.UUID, name string, entityType models.EntityType) (uuid.UUID, error) {
	nameLower := strings.ToLower(strings.TrimSpace(name))
	now := time.Now().UTC()

	var id uuid.UUID
	err := s.db.QueryRowContext(ctx, `
		SELECT entity_id FROM tracked_entities WHERE user_id = ? AND name_lower = ?`, userID, nameLower).Scan(&id)
	switch {
	case err == nil:
		if _, err := s.db.ExecContext(ctx, `UPDATE tracked_entities SET last_seen = ? WHERE entity_id = ?`, now, id); err != nil {
			return uuid.Nil, fmt.Errorf("store: touch tracked entity: %w", err)
		}
		return id, nil
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.New()
		_, insertErr := s.db.ExecContext(ctx, `
			INSERT INTO tracked_entities (entity_id, user_id, name, name_lower, entity_type, created_at, first_seen, last_seen, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, NULL)`,
			id, userID, name, nameLower, entityType, now, now, now)
		if insertErr == nil {
			return id, nil
		}
		var existing uuid.UUID
		if lookupErr := s.db.QueryRowContext(ctx, `
			SELECT entity_id FROM tracked_entities WHERE user_id = ? AND name_lower = ?`, userID, nameLower).Scan(&existing); lookupErr == nil {
			return existing, nil
		}
		return uuid.Nil, fmt.Errorf("store: insert tracked entity: %w", insertErr)
	default:
		return uuid.Nil, fmt.Errorf("store: lookup tracked entity: %w", err)
	}
}

// ListTrackedEntities returns every entity userID tracks, for the
// pipeline's per-batch entity-mention scan.
func (s *Store) ListTrackedEntities(ctx context.Context, userID uuid.UUID) ([]models.TrackedEntity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT entity_id, user_id, name, name_lower, entity_type, created_at, first_seen, last_seen, metadata
		FROM tracked_entities WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list tracked entities: %w", err)
	}
	defer rows.Close()

	var out []models.TrackedEntity
	for rows.Next() {
		var e models.TrackedEntity
		var metadata sql.NullString
		if err := rows.Scan(&e.EntityID, &e.UserID, &e.Name, &e.NameLower, &e.EntityType,
			&e.CreatedAt, &e.FirstSeen, &e.LastSeen, &metadata); err != nil {
			return nil, fmt.Errorf("store: scan tracked entity: %w", err)
		}
		e.Metadata = decodeMetadata(metadata.String)
		out = append(out, e)
	}
	return out, rows.Err()
}

// InsertEntityMention records one occurrence of entityID in newsItemID's
// text, with a surrounding-context window.
func (s *Store) InsertEntityMention(ctx context.Context, entityID, userID, newsItemID uuid.UUID, mentionContext string, ts time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO entity_mentions (mention_id, entity_id, document_id, news_article_id, news_item_id, user_id, chunk_id, context, timestamp)
		VALUES (?, ?, NULL, NULL, ?, ?, NULL, ?, ?)`,
		uuid.New(), entityID, newsItemID, userID, mentionContext, ts)
	if err != nil {
		return fmt.Errorf("store: insert entity mention: %w", err)
	}
	return nil
}

// UpsertRelationship implements the relationship package's get-or-create
// contract as a single atomic INSERT ... ON CONFLICT DO UPDATE against the
// UNIQUE(source_entity_id, target_entity_id, relationship_type) constraint,
// rather than a read-then-write: two concurrent upserts of the same edge
// (plausible, since pipeline stages across a batch can interleave) would
// otherwise both observe no existing row, or one could overwrite the
// other's freshly-bumped mention_count with a stale read. The database
// resolves the race instead of the caller. confidence' is computed the
// same way on both the insert and conflict branches via
// relationship.NextConfidence's formula (max(existing, min(base +
// 0.05*mentionCount, 0.95))), so a brand-new row and an advanced row end up
// with the same value NextConfidence would have produced.
func (s *Store) UpsertRelationship(ctx context.Context, userID uuid.UUID, sourceID, targetID string, relType models.RelationshipType, description string, confidence float64) error {
	srcID, err := uuid.Parse(sourceID)
	if err != nil {
		return fmt.Errorf("store: parse source entity id: %w", err)
	}
	dstID, err := uuid.Parse(targetID)
	if err != nil {
		return fmt.Errorf("store: parse target entity id: %w", err)
	}

	now := time.Now().UTC()
	insertConfidence := relationship.NextConfidence(0, confidence, 1)

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entity_relationships (id, source_entity_id, target_entity_id, relationship_type,
			description, first_seen, last_seen, mention_count, confidence, user_id, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?, NULL)
		ON CONFLICT (source_entity_id, target_entity_id, relationship_type) DO UPDATE SET
			mention_count = entity_relationships.mention_count + 1,
			confidence = GREATEST(
				entity_relationships.confidence,
				LEAST(?+0.05*(entity_relationships.mention_count+1), 0.95)
			),
			last_seen = excluded.last_seen,
			description = excluded.description`,
		uuid.New(), srcID, dstID, relType, description, now, now, insertConfidence, userID, confidence)
	if err != nil {
		return fmt.Errorf("store: upsert relationship: %w", err)
	}
	return nil
}

// SetEntityCanonicalLink merges a resolved external-knowledge-base link
// into a tracked entity's metadata, keyed the way TrackedEntity.CanonicalID
// reads it back, persisted for QID-based dedup.
func (s *Store) SetEntityCanonicalLink(ctx context.Context, entityID uuid.UUID, canonicalID, label, description, externalURL string, aliases []string, confidence float64) error {
	var existing sql.NullString
	if err := s.db.QueryRowContext(ctx, `SELECT metadata FROM tracked_entities WHERE entity_id = ?`, entityID).Scan(&existing); err != nil {
		return fmt.Errorf("store: load tracked entity metadata: %w", err)
	}

	meta := decodeMetadata(existing.String)
	if meta == nil {
		meta = make(map[string]any)
	}
	meta["canonical_id"] = canonicalID
	meta["canonical_label"] = label
	meta["canonical_description"] = description
	meta["canonical_aliases"] = aliases
	meta["canonical_confidence"] = confidence
	if externalURL != "" {
		meta["canonical_url"] = externalURL
	}

	if _, err := s.db.ExecContext(ctx, `UPDATE tracked_entities SET metadata = ? WHERE entity_id = ?`, encodeMetadata(meta), entityID); err != nil {
		return fmt.Errorf("store: set tracked entity canonical link: %w", err)
	}
	return nil
}

func decodeMetadata(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var m map[string]any
	if err := jsonUnmarshal([]byte(raw), &m); err != nil {
		return nil
	}
	return m
}
