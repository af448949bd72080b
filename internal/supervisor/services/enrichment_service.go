package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/christiancopeland/pulsewatch/internal/extractor"
	"github.com/christiancopeland/pulsewatch/internal/linker"
	"github.com/christiancopeland/pulsewatch/internal/models"
	"github.com/christiancopeland/pulsewatch/internal/queue"
)

// EntityLister matches internal/store.Store's tracked-entity listing, the
// input side of canonical-link resolution.
type EntityLister interface {
	ListTrackedEntities(ctx context.Context, userID uuid.UUID) ([]models.TrackedEntity, error)
	SetEntityCanonicalLink(ctx context.Context, entityID uuid.UUID, canonicalID, label, description, externalURL string, aliases []string, confidence float64) error
}

// EntityExtractor matches internal/extractor.Extractor's entry point, used
// here only to confirm a tracked entity's type before linking (the
// pipeline's own mention scan does the substring-match extraction; this
// service's extraction call is a confidence cross-check, not a duplicate
// mention pass).
type EntityExtractor interface {
	Extract(ctx context.Context, text string, types []models.EntityType, threshold float64, includeContext bool) ([]extractor.ExtractedEntity, error)
}

// EntityLinker matches internal/linker.Linker's resolution entry point.
type EntityLinker interface {
	LinkEntity(ctx context.Context, text, expectedType string, minConfidence float64) (*linker.LinkedEntity, error)
}

// QueueGate matches internal/queue.Manager's concurrency-bounding entry
// points. A nil QueueGate disables gating, running every tick unbounded.
type QueueGate interface {
	AcquireSlot(ctx context.Context, itemsTotal int) (*queue.Task, error)
	UpdateProgress(task *queue.Task, processed, total int)
	ReleaseSlot(task *queue.Task, success bool, errMsg string)
}

// EnrichmentService periodically resolves every tracked entity lacking a
// canonical link against the external knowledge base, persisting the
// result for QID-based dedup outside the per-item pipeline, since linking
// is a one-time-per-entity operation rather than a per-mention one. A tick
// is itself one extraction batch, so an optional QueueGate bounds how many
// ticks' worth of knowledge-base traffic run concurrently with any other
// extraction work sharing the same gate.
type EnrichmentService struct {
	entities EntityLister
	extract  EntityExtractor
	link     EntityLinker
	gate     QueueGate
	userID   uuid.UUID
	interval time.Duration
	minConf  float64
	log      zerolog.Logger
	name     string
}

// NewEnrichmentService constructs an EnrichmentService. interval defaults
// to 15 minutes when non-positive; minConfidence defaults to 0.6. gate may
// be nil to run without concurrency gating.
func NewEnrichmentService(entities EntityLister, extract EntityExtractor, link EntityLinker, gate QueueGate, userID uuid.UUID, interval time.Duration, minConfidence float64, log zerolog.Logger) *EnrichmentService {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if minConfidence <= 0 {
		minConfidence = 0.6
	}
	return &EnrichmentService{
		entities: entities,
		extract:  extract,
		link:     link,
		gate:     gate,
		userID:   userID,
		interval: interval,
		minConf:  minConfidence,
		log:      log,
		name:     "entity-enrichment",
	}
}

// Serve implements suture.Service: resolve once immediately, then again on
// every tick until the context is canceled.
func (s *EnrichmentService) Serve(ctx context.Context) error {
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *EnrichmentService) tick(ctx context.Context) {
	tracked, err := s.entities.ListTrackedEntities(ctx, s.userID)
	if err != nil {
		s.log.Warn().Err(err).Msg("enrichment service: list tracked entities failed")
		return
	}

	var task *queue.Task
	if s.gate != nil {
		task, err = s.gate.AcquireSlot(ctx, len(tracked))
		if err != nil {
			s.log.Warn().Err(err).Msg("enrichment service: queue gate unavailable")
			return
		}
	}

	linked, processed := 0, 0
	for _, e := range tracked {
		if _, ok := e.CanonicalID(); ok {
			continue
		}

		// A confirming extraction pass is advisory only: the knowledge-base
		// lookup below applies its own confidence scoring regardless of
		// whether the regex/NER fallback also recognized the entity.
		if _, err := s.extract.Extract(ctx, e.Name, []models.EntityType{e.EntityType}, s.minConf, false); err != nil {
			s.log.Warn().Err(err).Str("entity", e.Name).Msg("enrichment service: extract confirmation failed")
		}

		resolved, err := s.link.LinkEntity(ctx, e.Name, string(e.EntityType), s.minConf)
		processed++
		if s.gate != nil && task != nil {
			s.gate.UpdateProgress(task, processed, len(tracked))
		}
		if err != nil {
			s.log.Debug().Err(err).Str("entity", e.Name).Msg("enrichment service: link below confidence or unavailable")
			continue
		}
		if resolved == nil {
			continue
		}

		if err := s.entities.SetEntityCanonicalLink(ctx, e.EntityID, resolved.CanonicalID, resolved.Label, resolved.Description, resolved.ExternalURL, resolved.Aliases, resolved.Confidence); err != nil {
			s.log.Warn().Err(err).Str("entity", e.Name).Msg("enrichment service: persist canonical link failed")
			continue
		}
		linked++
	}

	if s.gate != nil && task != nil {
		s.gate.ReleaseSlot(task, true, "")
	}

	if linked > 0 {
		s.log.Info().Int("linked", linked).Int("tracked", len(tracked)).Msg("enrichment service: canonical links resolved")
	}
}

// String implements fmt.Stringer for suture's log messages.
func (s *EnrichmentService) String() string {
	return s.name
}
