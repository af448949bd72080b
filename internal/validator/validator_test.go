package validator

import (
	"strings"
	"testing"

	"github.com/christiancopeland/pulsewatch/internal/models"
)

func goodItem() models.CollectedItem {
	return models.CollectedItem{
		Title:      "Diplomatic Talks Resume Between Regional Powers",
		URL:        "https://example.com/news/diplomatic-talks-resume",
		RawContent: strings.Repeat("Officials met today to discuss the ongoing negotiations over trade and border security. ", 10),
	}
}

func TestValidate_WellFormedItemPasses(t *testing.T) {
	v := New()
	res := v.Validate(goodItem())
	if !res.IsValid {
		t.Fatalf("expected a well-formed item to validate, got score=%v issues=%v", res.Score, res.Issues)
	}
}

func TestValidate_EmptyTitleIsCriticalAndInvalid(t *testing.T) {
	v := New()
	item := goodItem()
	item.Title = ""
	res := v.Validate(item)
	if res.IsValid {
		t.Fatal("expected an empty title to fail validation regardless of score")
	}
	foundCritical := false
	for _, i := range res.Issues {
		if i.Severity == SeverityCritical {
			foundCritical = true
		}
	}
	if !foundCritical {
		t.Error("expected a critical issue for an empty title")
	}
}

func TestValidate_ShortTitleIsCritical(t *testing.T) {
	v := New()
	item := goodItem()
	item.Title = "Breaking"
	res := v.Validate(item)
	if res.IsValid {
		t.Error("expected a title under 10 non-whitespace characters to invalidate the item")
	}
}

func TestValidate_SpamPatternForcesInvalid(t *testing.T) {
	v := New()
	item := goodItem()
	item.RawContent = "Click here to win free money now, act now, limited time offer!"
	res := v.Validate(item)
	if res.IsValid {
		t.Error("expected a spam-pattern match to invalidate the item even with an otherwise fine title/url")
	}
}

func TestValidate_EmptyURLIsCritical(t *testing.T) {
	v := New()
	item := goodItem()
	item.URL = ""
	res := v.Validate(item)
	if res.IsValid {
		t.Error("expected an empty url to invalidate the item")
	}
}

func TestValidate_StrictModeRaisesThreshold(t *testing.T) {
	lenient := New()
	strict := &Validator{Strict: true}

	item := goodItem()
	item.RawContent = strings.Repeat("x", 80)

	lenientRes := lenient.Validate(item)
	strictRes := strict.Validate(item)

	if strictRes.Score != lenientRes.Score {
		t.Fatalf("strict and default mode should score identically, only the threshold differs: %v vs %v", strictRes.Score, lenientRes.Score)
	}

	borderline := goodItem()
	borderline.URL = "example.com/news"
	borderline.RawContent = strings.Repeat("word ", 20)
	if !lenient.Validate(borderline).IsValid {
		t.Errorf("expected a borderline item to pass the default threshold")
	}
	if strict.Validate(borderline).IsValid {
		t.Errorf("expected a borderline item to fail the strict threshold")
	}
}

func TestValidate_ShortenerURLLowersScoreButNotCritical(t *testing.T) {
	v := New()
	item := goodItem()
	item.URL = "https://bit.ly/abc123"
	res := v.Validate(item)
	for _, i := range res.Issues {
		if i.Severity == SeverityCritical {
			t.Error("a shortener URL should only be a warning, not a critical issue")
		}
	}
}
