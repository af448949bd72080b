// Package pipeline drives collected items through validation, ranking,
// entity-mention extraction, relationship detection, and embedding, with
// per-item failure isolation at every stage.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/christiancopeland/pulsewatch/internal/embedder"
	"github.com/christiancopeland/pulsewatch/internal/extractor"
	"github.com/christiancopeland/pulsewatch/internal/metrics"
	"github.com/christiancopeland/pulsewatch/internal/models"
	"github.com/christiancopeland/pulsewatch/internal/ranker"
	"github.com/christiancopeland/pulsewatch/internal/relationship"
	"github.com/christiancopeland/pulsewatch/internal/store"
	"github.com/christiancopeland/pulsewatch/internal/validator"
)

const (
	defaultPendingLimit = 100
	mentionContextChars = 200
)

// ProcessingStats counts the outcome of one ProcessBatch run.
type ProcessingStats struct {
	TotalItems         int
	Validated          int
	ValidationFailed   int
	Ranked             int
	EntitiesExtracted  int
	RelationshipsFound int
	Embedded           int
	EmbeddingFailed    int
	ProcessingTimeMS   int64
}

// Orchestrator drives the five-stage pipeline over a batch of NewsItems.
type Orchestrator struct {
	store     *store.Store
	validator *validator.Validator
	ranker    *ranker.Ranker
	embedder  *embedder.Embedder
	log       zerolog.Logger
}

// New constructs an Orchestrator. Any of validator/ranker/embedder may be
// nil only for tests exercising a subset of stages; production wiring
// supplies all three.
func New(st *store.Store, val *validator.Validator, rk *ranker.Ranker, emb *embedder.Embedder, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{store: st, validator: val, ranker: rk, embedder: emb, log: log}
}

// ProcessPendingItems loads up to limit unprocessed items and runs them
// through the pipeline.
func (o *Orchestrator) ProcessPendingItems(ctx context.Context, limit int, userID uuid.UUID) (ProcessingStats, error) {
	if limit <= 0 {
		limit = defaultPendingLimit
	}
	items, err := o.store.FetchPendingItems(ctx, limit)
	if err != nil {
		return ProcessingStats{}, fmt.Errorf("pipeline: fetch pending items: %w", err)
	}
	return o.ProcessBatch(ctx, items, userID, false, false), nil
}

// ReprocessItems re-runs the pipeline over an explicit set of item IDs,
// regardless of their current processed state.
func (o *Orchestrator) ReprocessItems(ctx context.Context, ids []uuid.UUID, userID uuid.UUID) (ProcessingStats, error) {
	items, err := o.store.FetchItemsByID(ctx, ids)
	if err != nil {
		return ProcessingStats{}, fmt.Errorf("pipeline: fetch items by id: %w", err)
	}
	return o.ProcessBatch(ctx, items, userID, false, false), nil
}

// ProcessBatch drives all five stages over items. One item's failure at
// any stage never prevents the others from progressing.
func (o *Orchestrator) ProcessBatch(ctx context.Context, items []models.NewsItem, userID uuid.UUID, skipValidation, skipEmbedding bool) ProcessingStats {
	start := time.Now()
	stats := ProcessingStats{TotalItems: len(items)}
	if len(items) == 0 {
		return stats
	}

	valid := items
	if !skipValidation {
		stageStart := time.Now()
		valid, stats.Validated, stats.ValidationFailed = o.stageValidation(items)
		metrics.RecordPipelineStage("validate", time.Since(stageStart), stats.Validated, stats.ValidationFailed)
	} else {
		stats.Validated = len(valid)
	}
	if len(valid) == 0 {
		stats.ProcessingTimeMS = time.Since(start).Milliseconds()
		metrics.RecordPipelineRun(time.Since(start), len(items))
		return stats
	}

	rankStart := time.Now()
	stats.Ranked = o.stageRanking(ctx, valid)
	metrics.RecordPipelineStage("rank", time.Since(rankStart), stats.Ranked, len(valid)-stats.Ranked)

	tracked, err := o.store.ListTrackedEntities(ctx, userID)
	if err != nil {
		o.log.Warn().Err(err).Msg("pipeline: could not load tracked entities, skipping extraction and relationship stages")
		tracked = nil
	}

	extractStart := time.Now()
	present, mentionCount := o.stageEntityExtraction(ctx, valid, userID, tracked)
	stats.EntitiesExtracted = mentionCount
	metrics.RecordPipelineStage("extract_mentions", time.Since(extractStart), mentionCount, 0)

	entityIDs := make(map[string]string, len(tracked))
	for _, e := range tracked {
		entityIDs[e.NameLower] = e.EntityID.String()
	}
	relStart := time.Now()
	stats.RelationshipsFound = o.stageRelationshipDetection(ctx, valid, present, entityIDs, userID)
	metrics.RecordPipelineStage("detect_relationships", time.Since(relStart), stats.RelationshipsFound, 0)

	if !skipEmbedding && o.embedder != nil {
		embedStart := time.Now()
		stats.Embedded, stats.EmbeddingFailed = o.stageEmbedding(ctx, valid)
		metrics.RecordPipelineStage("embed", time.Since(embedStart), stats.Embedded, stats.EmbeddingFailed)
	}

	o.markProcessed(ctx, valid)

	stats.ProcessingTimeMS = time.Since(start).Milliseconds()
	metrics.RecordPipelineRun(time.Since(start), len(items))
	return stats
}

func (o *Orchestrator) stageValidation(items []models.NewsItem) (valid []models.NewsItem, validated, failed int) {
	for _, item := range items {
		result := o.validator.Validate(models.CollectedItem{Title: item.Title, RawContent: item.Content, URL: item.URL})
		if result.IsValid {
			valid = append(valid, item)
			validated++
		} else {
			failed++
		}
	}
	return valid, validated, failed
}

func (o *Orchestrator) stageRanking(ctx context.Context, items []models.NewsItem) int {
	if o.ranker == nil {
		return 0
	}
	entityNames := make([]string, len(items))
	results := o.ranker.RankBatch(items, entityNames)
	ranker.ApplyScores(items, results)

	ranked := 0
	for i, item := range items {
		if err := o.store.UpdateRelevance(ctx, item.ID, results[i].Score); err != nil {
			o.log.Warn().Err(err).Str("item_id", item.ID.String()).Msg("pipeline: failed to persist relevance score")
			continue
		}
		ranked++
	}
	return ranked
}

// stageEntityExtraction finds tracked-entity name_lower occurrences in each
// item's concatenated text and records one EntityMention per occurrence.
// It returns, per item index, the set of entities present (as pseudo
// ExtractedEntity values reused by relationship detection) and the total
// mention count.
func (o *Orchestrator) stageEntityExtraction(ctx context.Context, items []models.NewsItem, userID uuid.UUID, tracked []models.TrackedEntity) (map[uuid.UUID][]extractor.ExtractedEntity, int) {
	present := make(map[uuid.UUID][]extractor.ExtractedEntity, len(items))
	if len(tracked) == 0 {
		return present, 0
	}

	total := 0
	for _, item := range items {
		text := strings.TrimSpace(item.Title + " " + item.Content + " " + item.Summary)
		if text == "" {
			continue
		}
		lower := strings.ToLower(text)

		var itemEntities []extractor.ExtractedEntity
		for _, entity := range tracked {
			if !strings.Contains(lower, entity.NameLower) {
				continue
			}
			contexts := extractContexts(text, entity.NameLower, mentionContextChars)
			for _, ctxWindow := range contexts {
				if err := o.store.InsertEntityMention(ctx, entity.EntityID, userID, item.ID, ctxWindow, time.Now().UTC()); err != nil {
					o.log.Warn().Err(err).Str("entity_id", entity.EntityID.String()).Msg("pipeline: failed to insert entity mention")
					continue
				}
				total++
			}
			itemEntities = append(itemEntities, extractor.ExtractedEntity{
				Text:       entity.Name,
				EntityType: entity.EntityType,
				Confidence: 1.0,
				Source:     "tracked",
				Normalized: entity.NameLower,
			})
		}
		if len(itemEntities) > 0 {
			present[item.ID] = itemEntities
		}
	}
	return present, total
}

// extractContexts finds every occurrence of term (case-insensitive) in text
// and returns an ellipsis-bounded context window of radius chars around
// each (grounded on the original's `_extract_contexts`).
func extractContexts(text, term string, radius int) []string {
	lower := strings.ToLower(text)
	termLower := strings.ToLower(term)

	var out []string
	start := 0
	for {
		pos := strings.Index(lower[start:], termLower)
		if pos == -1 {
			break
		}
		pos += start

		ctxStart := pos - radius
		leftEllipsis := ctxStart > 0
		if ctxStart < 0 {
			ctxStart = 0
		}
		ctxEnd := pos + len(term) + radius
		rightEllipsis := ctxEnd < len(text)
		if ctxEnd > len(text) {
			ctxEnd = len(text)
		}

		var b strings.Builder
		if leftEllipsis {
			b.WriteString("...")
		}
		b.WriteString(strings.TrimSpace(text[ctxStart:ctxEnd]))
		if rightEllipsis {
			b.WriteString("...")
		}
		out = append(out, b.String())

		start = pos + 1
		if start >= len(lower) {
			break
		}
	}
	return out
}

func (o *Orchestrator) stageRelationshipDetection(ctx context.Context, items []models.NewsItem, present map[uuid.UUID][]extractor.ExtractedEntity, entityIDs map[string]string, userID uuid.UUID) int {
	if len(entityIDs) < 2 {
		return 0
	}

	adapter := relationshipStore{store: o.store, userID: userID}
	found := 0
	for _, item := range items {
		entities := present[item.ID]
		if len(entities) < 2 {
			continue
		}
		text := item.Title + " " + item.Content + " " + item.Summary
		candidates := relationship.Detect(text, entities, entityIDs)
		for _, errResult := range relationship.Persist(ctx, adapter, candidates) {
			o.log.Warn().Err(errResult).Msg("pipeline: failed to persist relationship candidate")
		}
		found += len(candidates)
	}
	return found
}

// relationshipStore adapts store.Store's UpsertRelationship (which takes an
// explicit owning user) to relationship.Store's narrower per-call contract.
type relationshipStore struct {
	store  *store.Store
	userID uuid.UUID
}

func (r relationshipStore) UpsertRelationship(ctx context.Context, sourceID, targetID string, relType models.RelationshipType, description string, confidence float64) error {
	return r.store.UpsertRelationship(ctx, r.userID, sourceID, targetID, relType, description, confidence)
}

func (o *Orchestrator) stageEmbedding(ctx context.Context, items []models.NewsItem) (embedded, failed int) {
	var toEmbed []models.NewsItem
	for _, item := range items {
		if strings.TrimSpace(item.Content) != "" || strings.TrimSpace(item.Summary) != "" {
			toEmbed = append(toEmbed, item)
		}
	}
	if len(toEmbed) == 0 {
		return 0, 0
	}

	results := o.embedder.EmbedBatch(ctx, toEmbed)
	for _, res := range results {
		if !res.Success {
			failed++
			o.log.Warn().Err(res.Error).Str("item_id", res.ItemID.String()).Msg("pipeline: embedding failed")
			continue
		}
		if err := o.store.SetEmbeddingRef(ctx, res.ItemID, res.VectorID); err != nil {
			o.log.Warn().Err(err).Str("item_id", res.ItemID.String()).Msg("pipeline: failed to persist embedding ref")
			failed++
			continue
		}
		embedded++
	}
	return embedded, failed
}

func (o *Orchestrator) markProcessed(ctx context.Context, items []models.NewsItem) {
	for _, item := range items {
		if err := o.store.MarkProcessed(ctx, item.ID, models.ProcessDone); err != nil {
			o.log.Warn().Err(err).Str("item_id", item.ID.String()).Msg("pipeline: failed to mark item processed")
		}
	}
}
