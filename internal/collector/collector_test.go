package collector

import (
	"context"
	"strings"
	"testing"

	"github.com/christiancopeland/pulsewatch/internal/models"
)

type stubAdapter struct {
	name       string
	sourceType string
}

func (s stubAdapter) Name() string       { return s.name }
func (s stubAdapter) SourceType() string { return s.sourceType }
func (s stubAdapter) Collect(ctx context.Context) ([]models.CollectedItem, error) {
	return nil, nil
}

func TestRegistry_RegisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Register(stubAdapter{name: "a", sourceType: "rss"})
	r.Register(stubAdapter{name: "a", sourceType: "rss-updated"})

	got, ok := r.Get("a")
	if !ok {
		t.Fatal("expected adapter \"a\" to be registered")
	}
	if got.SourceType() != "rss-updated" {
		t.Errorf("re-registering should replace the entry, got SourceType %q", got.SourceType())
	}
	if len(r.All()) != 1 {
		t.Errorf("expected exactly one registered adapter, got %d", len(r.All()))
	}
}

func TestCleanText_StripsTagsAndCollapsesWhitespace(t *testing.T) {
	got := CleanText("<p>Hello   <b>world</b>\n\n\tfoo</p>")
	want := "Hello world foo"
	if got != want {
		t.Errorf("CleanText() = %q, want %q", got, want)
	}
}

func TestTruncateAtWord_BreaksOnWordBoundary(t *testing.T) {
	s := strings.Repeat("word ", 200)
	got := TruncateAtWord(s, 50)
	if len(got) > 50 {
		t.Errorf("TruncateAtWord() result length %d exceeds bound 50", len(got))
	}
	if strings.HasSuffix(got, "wor") {
		t.Error("expected truncation to land on a word boundary, not mid-word")
	}
}

func TestNormalizePublished_ZeroTimeFallsBackToNow(t *testing.T) {
	var zero = models.CollectedItem{}.Published
	got := NormalizePublished(zero)
	if got.IsZero() {
		t.Error("expected NormalizePublished to substitute collection time for a zero timestamp")
	}
}
