// Package collector defines the SourceAdapter contract and a registry of
// concrete adapters that fetch from external intelligence sources.
package collector

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/christiancopeland/pulsewatch/internal/models"
)

// Adapter is the capability set every source adapter implements: a name, a
// short source-type tag, and a single Collect operation. Concrete variants
// (RSS, query-template-driven news/events, sanctions, filings, forums) are
// plain structs implementing this interface — no duck-typed base class.
type Adapter interface {
	Name() string
	SourceType() string
	Collect(ctx context.Context) ([]models.CollectedItem, error)
}

// Registry is an additive, idempotent map from adapter name to adapter.
// Registration twice with the same name replaces the prior entry.
type Registry struct {
	adapters map[string]Adapter
}

// NewRegistry returns an empty adapter registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds or replaces an adapter under its own Name().
func (r *Registry) Register(a Adapter) {
	r.adapters[a.Name()] = a
}

// Get returns the adapter registered under name, if any.
func (r *Registry) Get(name string) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// All returns every registered adapter, in no particular order.
func (r *Registry) All() []Adapter {
	out := make([]Adapter, 0, len(r.adapters))
	for _, a := range r.adapters {
		out = append(out, a)
	}
	return out
}

const maxSummaryLen = 500

var whitespaceRun = regexp.MustCompile(`\s+`)
var htmlTagRun = regexp.MustCompile(`<[^>]*>`)

// CleanText strips HTML tags and collapses runs of whitespace to a single
// space, as every adapter MUST do to its title/summary/content fields
// before they reach the store.
func CleanText(s string) string {
	s = htmlTagRun.ReplaceAllString(s, " ")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// TruncateAtWord truncates s to at most maxLen characters, backing off to
// the preceding word boundary rather than splitting mid-word.
func TruncateAtWord(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := strings.LastIndexByte(s[:maxLen], ' ')
	if cut <= 0 {
		cut = maxLen
	}
	return strings.TrimSpace(s[:cut])
}

// NormalizeSummary applies CleanText then TruncateAtWord at the 500-char
// default summary bound.
func NormalizeSummary(s string) string {
	return TruncateAtWord(CleanText(s), maxSummaryLen)
}

// NormalizePublished converts t to UTC; if t is zero (unparseable upstream
// timestamp), it returns now in UTC, matching the "normalize to UTC, or
// collection time if unparseable" rule.
func NormalizePublished(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
