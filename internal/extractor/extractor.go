// Package extractor performs named-entity recognition over collected text:
// a primary zero-shot model when one is configured, and a regex fallback
// otherwise (or when the model returns nothing).
package extractor

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/christiancopeland/pulsewatch/internal/cache"
	"github.com/christiancopeland/pulsewatch/internal/models"
)

const (
	defaultFallbackConfidence = 0.7
	contextRadius             = 50
	cacheCapacity              = 5000
	cacheTTL                   = 30 * time.Minute
)

// ExtractedEntity is one NER hit within a text span.
type ExtractedEntity struct {
	Text       string
	EntityType models.EntityType
	Start      int
	End        int
	Confidence float64
	Source     string // "model" or "regex"
	Normalized string
	Context    string
}

// Model is the primary zero-shot NER backend. It is loaded lazily by
// implementations and shared across Extractor instances; no model is
// vendored in this tree, so production wiring supplies a concrete Model
// (e.g. an ONNX runtime or remote inference client) behind this interface.
type Model interface {
	Extract(ctx context.Context, text string, types []models.EntityType, threshold float64) ([]ExtractedEntity, error)
}

// fallbackPatterns maps an entity type to the regex patterns used when no
// Model is configured, or when the Model returns no results for a call.
var fallbackPatterns = map[models.EntityType][]*regexp.Regexp{
	models.EntityPerson: {
		regexp.MustCompile(`\b([A-Z][a-z]+ [A-Z][a-z]+)\b`),
		regexp.MustCompile(`\b(President|Prime Minister|Secretary|General|Senator|Minister) ([A-Z][a-z]+)\b`),
	},
	models.EntityOrganization: {
		regexp.MustCompile(`\b([A-Z][A-Za-z&]+(?: [A-Z][A-Za-z&]+)*) (?:Inc\.|Corp\.|Ltd\.|LLC|Group|Agency|Organization)\b`),
		regexp.MustCompile(`\b([A-Z]{2,6})\b`),
	},
	models.EntityGovernmentAgency: {
		regexp.MustCompile(`\b(Department of [A-Z][a-z]+(?: [A-Z][a-z]+)*)\b`),
		regexp.MustCompile(`\b(Ministry of [A-Z][a-z]+(?: [A-Z][a-z]+)*)\b`),
	},
	models.EntityMilitaryUnit: {
		regexp.MustCompile(`\b(\d+(?:st|nd|rd|th) (?:Infantry|Armored|Airborne|Marine) (?:Division|Brigade|Regiment))\b`),
	},
	models.EntityLocation: {
		regexp.MustCompile(`\b([A-Z][a-z]+(?:, [A-Z][a-z]+)?)\b`),
	},
	models.EntityPoliticalParty: {
		regexp.MustCompile(`\b([A-Z][a-z]+ (?:Party|Movement|Coalition|Front))\b`),
	},
	models.EntityEvent: {
		regexp.MustCompile(`\b([A-Z][a-z]+ (?:Summit|Conference|Accord|Treaty|Crisis|War))\b`),
	},
}

// Extractor drives the model-then-fallback extraction pipeline with LRU
// memoization of recent (prefix, threshold, types) → result sets.
type Extractor struct {
	model Model
	cache *cache.LRUCache[[]ExtractedEntity]
}

// New constructs an Extractor. model may be nil, in which case every call
// falls straight to the regex strategy.
func New(model Model) *Extractor {
	return &Extractor{
		model: model,
		cache: cache.NewLRUCache[[]ExtractedEntity](cacheCapacity, cacheTTL),
	}
}

// Extract runs NER over text for the requested entity types, returning
// hits sorted by start offset with overlapping spans resolved in favor of
// the higher-confidence, longer match.
func (e *Extractor) Extract(ctx context.Context, text string, types []models.EntityType, threshold float64, includeContext bool) ([]ExtractedEntity, error) {
	key := memoKey(text, types, threshold)
	if cached, ok := e.cache.Get(key); ok {
		return attachContext(cached, text, includeContext), nil
	}

	var hits []ExtractedEntity
	usedFallback := false

	if e.model != nil {
		modelHits, err := e.model.Extract(ctx, text, types, threshold)
		if err == nil && len(modelHits) > 0 {
			hits = modelHits
		} else {
			usedFallback = true
		}
	} else {
		usedFallback = true
	}

	if usedFallback {
		hits = extractWithRegex(text, types)
	}

	hits = dedupOverlaps(hits)
	sort.Slice(hits, func(i, j int) bool { return hits[i].Start < hits[j].Start })

	e.cache.Add(key, hits)
	return attachContext(hits, text, includeContext), nil
}

func extractWithRegex(text string, types []models.EntityType) []ExtractedEntity {
	wanted := types
	if len(wanted) == 0 {
		wanted = allEntityTypes()
	}

	var hits []ExtractedEntity
	for _, t := range wanted {
		patterns, ok := fallbackPatterns[t]
		if !ok {
			continue
		}
		for _, p := range patterns {
			for _, loc := range p.FindAllStringSubmatchIndex(text, -1) {
				start, end := loc[0], loc[1]
				if len(loc) >= 4 && loc[2] >= 0 {
					start, end = loc[2], loc[3]
				}
				raw := text[start:end]
				hits = append(hits, ExtractedEntity{
					Text:       raw,
					EntityType: t,
					Start:      start,
					End:        end,
					Confidence: defaultFallbackConfidence,
					Source:     "regex",
					Normalized: normalize(raw),
				})
			}
		}
	}
	return hits
}

func allEntityTypes() []models.EntityType {
	return []models.EntityType{
		models.EntityPerson, models.EntityOrganization, models.EntityGovernmentAgency,
		models.EntityMilitaryUnit, models.EntityLocation, models.EntityPoliticalParty,
		models.EntityEvent,
	}
}

// dedupOverlaps keeps the higher-confidence, longer span when two hits
// overlap.
func dedupOverlaps(hits []ExtractedEntity) []ExtractedEntity {
	sort.Slice(hits, func(i, j int) bool { return hits[i].Start < hits[j].Start })

	var out []ExtractedEntity
	for _, h := range hits {
		keep := true
		for i := 0; i < len(out); i++ {
			if overlaps(out[i], h) {
				if better(h, out[i]) {
					out[i] = h
				}
				keep = false
				break
			}
		}
		if keep {
			out = append(out, h)
		}
	}
	return out
}

func overlaps(a, b ExtractedEntity) bool {
	return a.Start < b.End && b.Start < a.End
}

func better(a, b ExtractedEntity) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	return (a.End - a.Start) > (b.End - b.Start)
}

func normalize(s string) string {
	trimmed := strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) && r != '\''
	})
	fields := strings.Fields(trimmed)
	return strings.Join(fields, " ")
}

func attachContext(hits []ExtractedEntity, text string, include bool) []ExtractedEntity {
	if !include {
		return hits
	}
	out := make([]ExtractedEntity, len(hits))
	for i, h := range hits {
		out[i] = h
		out[i].Context = contextWindow(text, h.Start, h.End)
	}
	return out
}

func contextWindow(text string, start, end int) string {
	left := start - contextRadius
	leftEllipsis := true
	if left < 0 {
		left = 0
		leftEllipsis = false
	}
	right := end + contextRadius
	rightEllipsis := true
	if right > len(text) {
		right = len(text)
		rightEllipsis = false
	}

	var b strings.Builder
	if leftEllipsis {
		b.WriteString("…")
	}
	b.WriteString(text[left:right])
	if rightEllipsis {
		b.WriteString("…")
	}
	return b.String()
}

func memoKey(text string, types []models.EntityType, threshold float64) string {
	prefixLen := 200
	if len(text) < prefixLen {
		prefixLen = len(text)
	}
	strTypes := make([]string, len(types))
	for i, t := range types {
		strTypes[i] = string(t)
	}
	sort.Strings(strTypes)

	h := md5.Sum([]byte(text[:prefixLen] + "|" + strings.Join(strTypes, ",") + "|" + strconv.FormatFloat(threshold, 'f', 3, 64)))
	return hex.EncodeToString(h[:])
}
