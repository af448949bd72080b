// Package relationship infers typed relationships between co-occurring
// entities within sentence-scoped text windows.
package relationship

import (
	"context"
	"math"
	"regexp"
	"strings"

	"github.com/christiancopeland/pulsewatch/internal/cache"
	"github.com/christiancopeland/pulsewatch/internal/extractor"
	"github.com/christiancopeland/pulsewatch/internal/models"
)

const confidenceIncrement = 0.05
const confidenceCap = 0.95

var sentenceSplit = regexp.MustCompile(`[.!?]`)

// keywordOrder is the ordered list of relationship-type keyword matchers;
// the first list whose matcher fires on a sentence wins.
var keywordOrder = []struct {
	relType models.RelationshipType
	matcher *cache.PatternMatcher
}{
	{models.RelCollaborates, cache.NewPatternMatcherFromSlice([]string{"met with", "meeting", "talks", "negotiat"}, nil)},
	{models.RelOpposes, cache.NewPatternMatcherFromSlice([]string{"attack", "strike", "target", "condemn"}, nil)},
	{models.RelSupports, cache.NewPatternMatcherFromSlice([]string{"support", "aid", "assist", "back"}, nil)},
	{models.RelLeads, cache.NewPatternMatcherFromSlice([]string{"lead", "head", "chair", "command"}, nil)},
	{models.RelPartOf, cache.NewPatternMatcherFromSlice([]string{"member", "part of", "belongs"}, nil)},
	{models.RelFunds, cache.NewPatternMatcherFromSlice([]string{"fund", "finance", "bankroll"}, nil)},
	{models.RelRegulates, cache.NewPatternMatcherFromSlice([]string{"regulat", "oversee", "enforce"}, nil)},
	{models.RelImplements, cache.NewPatternMatcherFromSlice([]string{"implement", "enact", "adopt"}, nil)},
	{models.RelRespondsTo, cache.NewPatternMatcherFromSlice([]string{"respond", "reaction", "retaliat"}, nil)},
}

// Candidate is one detected relationship prior to persistence.
type Candidate struct {
	SourceEntityID string
	TargetEntityID string
	Type           models.RelationshipType
	Confidence     float64
	Description    string
}

// mentionRef pairs an entity ID with its extracted-entity evidence.
type mentionRef struct {
	entityID string
	entity   extractor.ExtractedEntity
}

// Detect splits text into sentences and, for each unordered pair of
// tracked entities co-occurring in a sentence, emits one relationship
// Candidate. entityIDs maps an extracted entity's normalized text to its
// TrackedEntity ID.
func Detect(text string, entities []extractor.ExtractedEntity, entityIDs map[string]string) []Candidate {
	sentences := sentenceSplit.Split(text, -1)
	var out []Candidate

	for _, sentence := range sentences {
		lower := strings.ToLower(sentence)
		present := mentionsInSentence(lower, entities, entityIDs)

		for i := 0; i < len(present); i++ {
			for j := i + 1; j < len(present); j++ {
				out = append(out, buildCandidate(lower, present[i], present[j]))
			}
		}
	}
	return out
}

func mentionsInSentence(lowerSentence string, entities []extractor.ExtractedEntity, entityIDs map[string]string) []mentionRef {
	var present []mentionRef
	seen := make(map[string]bool)
	for _, e := range entities {
		norm := strings.ToLower(e.Normalized)
		if norm == "" || !strings.Contains(lowerSentence, norm) {
			continue
		}
		id, ok := entityIDs[norm]
		if !ok || seen[id] {
			continue
		}
		seen[id] = true
		present = append(present, mentionRef{entityID: id, entity: e})
	}
	return present
}

func buildCandidate(lowerSentence string, a, b mentionRef) Candidate {
	relType, patternMatched := classify(lowerSentence)
	if !patternMatched {
		relType = defaultType(a.entity.EntityType, b.entity.EntityType)
	}

	base := math.Min(a.entity.Confidence, b.entity.Confidence) * 0.8
	if patternMatched {
		base = math.Min(1.0, base+0.1)
	}

	return Candidate{
		SourceEntityID: a.entityID,
		TargetEntityID: b.entityID,
		Type:           relType,
		Confidence:     clamp01(base),
		Description:    strings.TrimSpace(lowerSentence),
	}
}

func classify(lowerSentence string) (models.RelationshipType, bool) {
	for _, k := range keywordOrder {
		if k.matcher.Contains(lowerSentence) {
			return k.relType, true
		}
	}
	return "", false
}

// defaultType derives a relationship type from the entity-type pair when
// no keyword pattern matches.
func defaultType(a, b models.EntityType) models.RelationshipType {
	if isPair(a, b, models.EntityPerson, models.EntityOrganization) {
		return models.RelPartOf
	}
	if a == models.EntityLocation || b == models.EntityLocation {
		other := a
		if a == models.EntityLocation {
			other = b
		}
		if other == models.EntityPerson || other == models.EntityOrganization {
			return models.RelImpacts
		}
	}
	if a == models.EntityPerson && b == models.EntityPerson {
		return models.RelCollaborates
	}
	return models.RelCoOccurrence
}

func isPair(a, b, x, y models.EntityType) bool {
	return (a == x && b == y) || (a == y && b == x)
}

// Store persists relationship candidates via an atomic upsert that either
// inserts a new row or monotonically advances an existing one.
type Store interface {
	UpsertRelationship(ctx context.Context, sourceID, targetID string, relType models.RelationshipType, description string, confidence float64) error
}

// Persist funnels every candidate through Store's get-or-create upsert.
// One candidate's failure does not prevent the rest from persisting.
func Persist(ctx context.Context, store Store, candidates []Candidate) []error {
	var errs []error
	for _, c := range candidates {
		if c.SourceEntityID == c.TargetEntityID {
			continue
		}
		if err := store.UpsertRelationship(ctx, c.SourceEntityID, c.TargetEntityID, c.Type, c.Description, c.Confidence); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// NextConfidence implements the monotonic confidence-advance formula used
// by a get-or-create upsert when a relationship row already exists:
// confidence' = max(confidence, base + 0.05*mentionCount), capped at 0.95.
func NextConfidence(existing, base float64, mentionCount int) float64 {
	candidate := base + confidenceIncrement*float64(mentionCount)
	if candidate > confidenceCap {
		candidate = confidenceCap
	}
	if existing > candidate {
		return existing
	}
	return candidate
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
