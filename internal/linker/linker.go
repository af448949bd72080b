// Package linker resolves an entity mention string to a canonical external
// knowledge-base identifier, behind a two-tier cache, a circuit breaker,
// and an outbound rate limiter.
package linker

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/dgraph-io/badger/v4"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/christiancopeland/pulsewatch/internal/cache"
	"github.com/christiancopeland/pulsewatch/internal/metrics"
)

const l2KeyPrefix = "entitylink:"

// Settings tunes the cache sizing, TTLs, and outbound pacing a Linker uses.
// New uses the fields as given; NewWithDefaults uses DefaultSettings.
type Settings struct {
	L1Capacity      int
	L1TTL           time.Duration
	L2TTL           time.Duration
	RequestInterval time.Duration
	MaxRetries      int
}

// DefaultSettings returns the tuning this package shipped with before
// Settings was exposed as a constructor parameter.
func DefaultSettings() Settings {
	return Settings{
		L1Capacity:      10000,
		L1TTL:           24 * time.Hour,
		L2TTL:           24 * time.Hour,
		RequestInterval: 500 * time.Millisecond,
		MaxRetries:      3,
	}
}

// LinkedEntity is a resolved external knowledge-base record.
type LinkedEntity struct {
	OriginalText string            `json:"original_text"`
	CanonicalID  string            `json:"canonical_id"`
	Label        string            `json:"label"`
	Description  string            `json:"description"`
	EntityType   string            `json:"entity_type"`
	Aliases      []string          `json:"aliases"`
	Properties   map[string]string `json:"properties"`
	Confidence   float64           `json:"confidence"`
	ExternalURL  string            `json:"external_url,omitempty"`
}

// Candidate is one knowledge-base search hit, ahead of confidence scoring.
type Candidate struct {
	CanonicalID string
	Label       string
	Description string
	EntityType  string
}

// KnowledgeBase is the external search/lookup backend. No concrete
// knowledge-base client is vendored in this tree; production wiring
// supplies one (e.g. a Wikidata-style REST client) behind this interface.
type KnowledgeBase struct {
	Search     func(ctx context.Context, text string) ([]Candidate, error)
	Properties func(ctx context.Context, canonicalID string) (map[string]string, string, error)
}

// propertyWhitelist bounds which properties are retained from a knowledge-
// base lookup.
var propertyWhitelist = map[string]bool{
	"instance_of": true, "country": true, "coordinates": true, "inception": true,
	"official_website": true, "headquarters": true, "population": true,
	"date_of_birth": true, "nationality": true, "position_held": true,
}

// Linker resolves entity mentions through a two-tier cache ahead of a
// circuit-breaker- and rate-limit-guarded knowledge-base lookup.
type Linker struct {
	kb       KnowledgeBase
	l1       *cache.LRUCache[LinkedEntity]
	l2       *badger.DB // optional; nil disables L2
	l2TTL    time.Duration
	cb       *gobreaker.CircuitBreaker[[]Candidate]
	lim      *rate.Limiter
	interval time.Duration
	retries  int
	log      zerolog.Logger
}

// New constructs a Linker with explicit cache/rate-limit settings. l2 may
// be nil to run L1-only.
func New(kb KnowledgeBase, l2 *badger.DB, log zerolog.Logger, settings Settings) *Linker {
	cb := gobreaker.NewCircuitBreaker[[]Candidate](gobreaker.Settings{
		Name:        "entity-linker-kb",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
	})

	return &Linker{
		kb:       kb,
		l1:       cache.NewLRUCache[LinkedEntity](settings.L1Capacity, settings.L1TTL),
		l2:       l2,
		l2TTL:    settings.L2TTL,
		cb:       cb,
		lim:      rate.NewLimiter(rate.Every(settings.RequestInterval), 1),
		interval: settings.RequestInterval,
		retries:  settings.MaxRetries,
		log:      log.With().Str("component", "linker").Logger(),
	}
}

// NewWithDefaults constructs a Linker using DefaultSettings.
func NewWithDefaults(kb KnowledgeBase, l2 *badger.DB, log zerolog.Logger) *Linker {
	return New(kb, l2, log, DefaultSettings())
}

// ErrBelowConfidence is returned when the best candidate does not clear
// minConfidence; it is not treated as a hard failure by callers.
var ErrBelowConfidence = errors.New("linker: no candidate met the confidence threshold")

// LinkEntity resolves text to a LinkedEntity, consulting L1 then L2 before
// calling the knowledge base. expectedType, if non-empty, filters
// candidates ahead of confidence scoring.
func (l *Linker) LinkEntity(ctx context.Context, text string, expectedType string, minConfidence float64) (*LinkedEntity, error) {
	key := cacheKey(text, expectedType)

	if entity, ok := l.l1.Get(key); ok {
		metrics.RecordLinkerCacheResult("l1", true)
		return &entity, nil
	}
	metrics.RecordLinkerCacheResult("l1", false)
	if l.l2 != nil {
		if entity, ok := l.getL2(key); ok {
			metrics.RecordLinkerCacheResult("l2", true)
			l.l1.Add(key, entity)
			return &entity, nil
		}
		metrics.RecordLinkerCacheResult("l2", false)
	}

	lookupStart := time.Now()
	candidates, err := l.search(ctx, text)
	metrics.RecordLinkerLookup(time.Since(lookupStart))
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	filtered := candidates
	if expectedType != "" {
		filtered = filterByType(candidates, expectedType)
	}

	best, confidence := bestCandidate(text, filtered)
	if best == nil || confidence < minConfidence {
		return nil, ErrBelowConfidence
	}

	props, url, err := l.kb.Properties(ctx, best.CanonicalID)
	if err != nil {
		return nil, fmt.Errorf("linker: fetch properties for %s: %w", best.CanonicalID, err)
	}

	entity := LinkedEntity{
		OriginalText: text,
		CanonicalID:  best.CanonicalID,
		Label:        best.Label,
		Description:  best.Description,
		EntityType:   best.EntityType,
		Properties:   whitelistProperties(props),
		Confidence:   confidence,
		ExternalURL:  url,
	}

	l.l1.Add(key, entity)
	if l.l2 != nil {
		l.setL2(key, entity)
	}
	return &entity, nil
}

// search performs the rate-limited, circuit-breaker-guarded knowledge-base
// search, retrying a 429 response with exponential backoff up to
// maxRetries times after the first attempt.
func (l *Linker) search(ctx context.Context, text string) ([]Candidate, error) {
	for attempt := 0; attempt <= l.retries; attempt++ {
		if err := l.lim.Wait(ctx); err != nil {
			return nil, err
		}

		candidates, err := l.cb.Execute(func() ([]Candidate, error) {
			return l.kb.Search(ctx, text)
		})
		if err == nil {
			return candidates, nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, err
		}
		if !isRateLimited(err) {
			l.log.Warn().Err(err).Str("text", text).Msg("knowledge base search failed")
			return nil, nil
		}
		metrics.RecordLinkerRateLimitWait()

		backoff := l.interval * time.Duration(1<<uint(attempt))
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, nil
}

func isRateLimited(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "429")
}

func filterByType(candidates []Candidate, expectedType string) []Candidate {
	wanted := strings.ToLower(expectedType)
	var out []Candidate
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c.Description), wanted) || strings.EqualFold(c.EntityType, expectedType) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return candidates
	}
	if len(out) > 3 {
		out = out[:3]
	}
	return out
}

// bestCandidate scores the first filtered candidate via exact match,
// substring containment, or Jaccard word-overlap.
func bestCandidate(text string, candidates []Candidate) (*Candidate, float64) {
	if len(candidates) == 0 {
		return nil, 0
	}
	best := candidates[0]
	return &best, confidenceFor(text, best.Label)
}

func confidenceFor(text, label string) float64 {
	lowerText := strings.ToLower(strings.TrimSpace(text))
	lowerLabel := strings.ToLower(strings.TrimSpace(label))

	if lowerText == lowerLabel {
		return 0.95
	}
	if strings.Contains(lowerLabel, lowerText) || strings.Contains(lowerText, lowerLabel) {
		return 0.85
	}

	overlap := jaccard(lowerText, lowerLabel)
	return 0.5 + overlap*0.4
}

func jaccard(a, b string) float64 {
	setA := wordSet(a)
	setB := wordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}
	intersection := 0
	for w := range setA {
		if setB[w] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func wordSet(s string) map[string]bool {
	words := strings.Fields(s)
	out := make(map[string]bool, len(words))
	for _, w := range words {
		out[w] = true
	}
	return out
}

func whitelistProperties(props map[string]string) map[string]string {
	out := make(map[string]string, len(props))
	for k, v := range props {
		if propertyWhitelist[k] {
			out[k] = v
		}
	}
	return out
}

func cacheKey(text, expectedType string) string {
	t := expectedType
	if t == "" {
		t = "any"
	}
	sum := md5.Sum([]byte(strings.ToLower(text) + "|" + t))
	return hex.EncodeToString(sum[:])
}

func (l *Linker) getL2(key string) (LinkedEntity, bool) {
	var entity LinkedEntity
	err := l.l2.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(l2KeyPrefix + key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &entity)
		})
	})
	if err != nil {
		return LinkedEntity{}, false
	}
	return entity, true
}

func (l *Linker) setL2(key string, entity LinkedEntity) {
	data, err := json.Marshal(entity)
	if err != nil {
		return
	}
	_ = l.l2.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(l2KeyPrefix+key), data).WithTTL(l.l2TTL)
		return txn.SetEntry(e)
	})
}
