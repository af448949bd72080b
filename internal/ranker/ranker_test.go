package ranker

import (
	"strings"
	"testing"
	"time"

	"github.com/christiancopeland/pulsewatch/internal/models"
)

func testRanker() *Ranker {
	return New(DefaultSourceCredibility, DefaultCategoryImportance)
}

func TestRank_RecentHighCredibilityItemScoresHigh(t *testing.T) {
	r := testRanker()
	item := models.NewsItem{
		SourceName:  "Reuters",
		PublishedAt: time.Now().Add(-1 * time.Hour),
		Categories:  []string{"armed-conflict"},
		Title:       "Forces Clash Near Border Amid Escalating Tensions",
		Content:     strings.Repeat("Analysts report the situation on the ground remains volatile. ", 30) + "\n\n" + strings.Repeat("Local officials urge calm. ", 30) + "\n\n" + strings.Repeat("The international community is watching closely. ", 30),
	}
	res := r.Rank(item, nil)
	if res.Score < 0.6 {
		t.Errorf("expected a high score for a recent, credible, high-importance item, got %v (%+v)", res.Score, res.Components)
	}
}

func TestRank_HobbyCategoryIsSuppressed(t *testing.T) {
	r := testRanker()
	item := models.NewsItem{
		SourceName:  "Reuters",
		PublishedAt: time.Now(),
		Categories:  []string{"hobby"},
		Content:     strings.Repeat("word ", 50),
	}
	res := r.Rank(item, nil)
	if res.Components.Category > 0.05 {
		t.Errorf("expected hobby category score near zero, got %v", res.Components.Category)
	}
}

func TestRank_OldItemHasZeroRecency(t *testing.T) {
	r := testRanker()
	item := models.NewsItem{
		SourceName:  "Reuters",
		PublishedAt: time.Now().Add(-200 * time.Hour),
	}
	res := r.Rank(item, nil)
	if res.Components.Recency != 0 {
		t.Errorf("expected zero recency score beyond the 168h cutoff, got %v", res.Components.Recency)
	}
}

func TestRank_UnknownSourceIsNeutral(t *testing.T) {
	r := testRanker()
	item := models.NewsItem{SourceName: "Some Obscure Blog Nobody Tracks"}
	res := r.Rank(item, nil)
	if res.Components.Source != 0.5 {
		t.Errorf("expected an unmatched source to score 0.5, got %v", res.Components.Source)
	}
}

func TestRank_EntityScoreStepsByMentionCount(t *testing.T) {
	r := testRanker()
	item := models.NewsItem{
		Title:   "Officials Smith and Jones Meet With Secretary Brown",
		Content: "Smith and Jones attended the summit.",
	}
	res0 := r.Rank(item, nil)
	res2 := r.Rank(item, []string{"smith", "jones"})

	if res0.Components.Entity != 0.3 {
		t.Errorf("expected zero-match entity score 0.3, got %v", res0.Components.Entity)
	}
	if res2.Components.Entity != 0.75 {
		t.Errorf("expected two-match entity score 0.75, got %v", res2.Components.Entity)
	}
}

func TestGetTopItems_SortsDescendingAndBounds(t *testing.T) {
	items := []models.NewsItem{
		{Title: "low", RelevanceScore: 0.2},
		{Title: "high", RelevanceScore: 0.9},
		{Title: "mid", RelevanceScore: 0.5},
	}
	top := GetTopItems(items, 2)
	if len(top) != 2 {
		t.Fatalf("expected 2 items, got %d", len(top))
	}
	if top[0].Title != "high" || top[1].Title != "mid" {
		t.Errorf("expected [high, mid], got [%s, %s]", top[0].Title, top[1].Title)
	}
}

func TestApplyScores_WritesBackInOrder(t *testing.T) {
	items := []models.NewsItem{{Title: "a"}, {Title: "b"}}
	results := []Result{{Score: 0.1}, {Score: 0.9}}
	ApplyScores(items, results)
	if items[0].RelevanceScore != 0.1 || items[1].RelevanceScore != 0.9 {
		t.Errorf("ApplyScores did not write back scores in order: %+v", items)
	}
}
