package store

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/christiancopeland/pulsewatch/internal/models"
)

// mockHeadlines and mockEntities back SeedMockData's synthetic dataset.
var mockHeadlines = []struct {
	source, title, content string
	categories             []string
}{
	{"reuters", "Central bank signals rate pause amid cooling inflation", "Policymakers cited moderating price growth as justification for holding rates steady this quarter.", []string{"financial"}},
	{"bbc", "Regional tensions escalate after border incident", "Diplomats from both nations called for restraint following the clash.", []string{"geopolitics"}},
	{"sec_edgar", "Quarterly filing discloses new supply chain risk factors", "The filing outlines exposure to semiconductor shortages and shipping delays.", []string{"financial"}},
	{"gdelt", "Joint military exercise held near disputed waters", "Naval forces from three countries participated in the multi-day drill.", []string{"military", "geopolitics"}},
	{"reuters", "Sanctions expanded against state-linked shipping firms", "The new measures target vessels believed to be evading existing export controls.", []string{"geopolitics", "financial"}},
	{"bbc", "Tech firm unveils new data center investment plan", "The announcement includes a multi-billion dollar commitment over five years.", []string{"technology"}},
	{"forum", "Analysts debate implications of leadership reshuffle", "Community discussion centers on whether the change signals a policy shift.", []string{"geopolitics"}},
	{"gdelt", "Cross-border trade talks resume after months-long pause", "Negotiators reported modest progress on tariff schedules.", []string{"financial", "geopolitics"}},
}

var mockEntities = []struct {
	name       string
	entityType models.EntityType
}{
	{"Joe Biden", models.EntityPerson},
	{"Xi Jinping", models.EntityPerson},
	{"Reuters", models.EntityOrganization},
	{"United Nations", models.EntityOrganization},
	{"Taiwan Strait", models.EntityLocation},
	{"South China Sea", models.EntityLocation},
}

// SeedMockData populates a handful of synthetic news_items and
// tracked_entities for userID, for exercising the pipeline against a fresh
// database without waiting on a live collection run (Database.SeedMockData
// in internal/config).
func (s *Store) SeedMockData(ctx context.Context, userID uuid.UUID) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	items := make([]models.CollectedItem, 0, len(mockHeadlines)*3)
	now := time.Now().UTC()
	for day := 0; day < 3; day++ {
		for i, h := range mockHeadlines {
			published := now.Add(-time.Duration(day*24+i) * time.Hour)
			items = append(items, models.CollectedItem{
				SourceType: h.source,
				SourceName: h.source,
				URL:        fmt.Sprintf("https://example.com/mock/%d/%d/%d", day, i, rng.Int()),
				Title:      h.title,
				RawContent: h.content,
				Categories: h.categories,
				Published:  published,
			})
		}
	}

	if _, err := s.PersistBatch(ctx, items); err != nil {
		return fmt.Errorf("store: seed mock news items: %w", err)
	}

	for _, e := range mockEntities {
		if _, err := s.UpsertTrackedEntity(ctx, userID, e.name, e.entityType); err != nil {
			return fmt.Errorf("store: seed mock tracked entity %q: %w", e.name, err)
		}
	}

	return nil
}
