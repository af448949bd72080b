// Package trend computes rolling baseline-vs-current indicators over
// collected intelligence: category-based activity indices, tracked-entity
// mention activity, and collection-system health.
package trend

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/christiancopeland/pulsewatch/internal/cache"
	"github.com/christiancopeland/pulsewatch/internal/store"
)

const snapshotCacheTTL = 5 * time.Minute

const (
	defaultPeriodDays   = 30
	defaultBaselineDays = 180

	stableThresholdPct   = 5.0
	elevatedThresholdPct = 25.0
	criticalThresholdPct = 50.0

	healthNormalPct   = 95.0
	healthElevatedPct = 80.0

	notableChangeThresholdPct = 20.0
)

// Direction is the qualitative movement of an indicator relative to its
// baseline.
type Direction string

const (
	DirectionRising  Direction = "rising"
	DirectionFalling Direction = "falling"
	DirectionStable  Direction = "stable"
)

// AlertLevel classifies how far an indicator has moved from its baseline.
type AlertLevel string

const (
	AlertNormal   AlertLevel = "normal"
	AlertElevated AlertLevel = "elevated"
	AlertCritical AlertLevel = "critical"
)

func alertRank(a AlertLevel) int {
	switch a {
	case AlertCritical:
		return 2
	case AlertElevated:
		return 1
	default:
		return 0
	}
}

// Indicator is one named trend metric with its computed baseline
// comparison.
type Indicator struct {
	Name          string
	Description   string
	CurrentValue  float64
	BaselineValue float64
	ChangePercent float64
	Direction     Direction
	AlertLevel    AlertLevel
	Sparkline     []float64
	Metadata      map[string]any
}

// Snapshot is the full set of indicators computed for one (period_days,
// baseline_days) window.
type Snapshot struct {
	GeneratedAt   time.Time
	PeriodDays    int
	BaselineDays  int
	Indicators    map[string]Indicator
	Summary       string
	OverallStatus AlertLevel
}

// categoryDef is the static definition of one category-based indicator.
type categoryDef struct {
	key         string
	name        string
	description string
	categories  []string
}

// sourceTypeMap maps a category keyword to source types that count toward
// the same indicator even on rows with no matching categories entry.
var sourceTypeMap = map[string][]string{
	"conflict":  {"acled", "gdelt"},
	"military":  {"gdelt"},
	"financial": {"sec_edgar"},
	"tech_ai":   {"arxiv"},
}

var categoryIndicators = []categoryDef{
	{
		key:         "conflict_index",
		name:        "Conflict Index",
		description: "Armed conflict, military activity, and security events",
		categories:  []string{"conflict", "military", "violence", "security", "defense", "war", "attack", "casualties", "armed_conflict"},
	},
	{
		key:         "market_volatility",
		name:        "Market Volatility",
		description: "Financial, business, and economic event activity",
		categories:  []string{"financial", "market", "business", "economic", "trade", "banking", "investment", "commerce"},
	},
	{
		key:         "political_instability",
		name:        "Political Instability",
		description: "Political turmoil, governance, and election events",
		categories:  []string{"political", "governance", "election", "government", "diplomacy", "policy", "legislative", "regulatory"},
	},
	{
		key:         "tech_activity",
		name:        "Tech Activity",
		description: "Technology, AI, and cyber event activity",
		categories:  []string{"tech_ai", "technology", "science", "research", "cyber", "innovation", "digital"},
	},
}

func sourceTypesFor(categories []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, cat := range categories {
		for _, src := range sourceTypeMap[cat] {
			if !seen[src] {
				seen[src] = true
				out = append(out, src)
			}
		}
	}
	return out
}

// Service computes TrendSnapshots directly against the store's news_items,
// collection_runs, tracked_entities, and entity_mentions tables.
type Service struct {
	store *store.Store
	cache *cache.Cache
}

// New constructs a Service backed by st. Computed snapshots are cached for
// 5 minutes per (userID, periodDays, baselineDays) key, since the six
// indicator queries are each a full table scan and callers (the periodic
// TrendService and any on-demand lookup sharing the same Service) tend to
// ask for the same window repeatedly within that window.
func New(st *store.Store) *Service {
	return &Service{store: st, cache: cache.New(snapshotCacheTTL)}
}

// ComputeSnapshot computes all six named indicators. periodDays and
// baselineDays default to 30 and 180 when non-positive. userID scopes the
// entity_activity indicator; the zero UUID yields zero values for it,
// matching the original service's behavior when no user is supplied.
func (svc *Service) ComputeSnapshot(ctx context.Context, userID uuid.UUID, periodDays, baselineDays int) (Snapshot, error) {
	if periodDays <= 0 {
		periodDays = defaultPeriodDays
	}
	if baselineDays <= 0 {
		baselineDays = defaultBaselineDays
	}

	cacheKey := fmt.Sprintf("%s:%d:%d", userID, periodDays, baselineDays)
	if cached, ok := svc.cache.Get(cacheKey); ok {
		if snapshot, ok := cached.(Snapshot); ok {
			return snapshot, nil
		}
	}

	indicators := make(map[string]Indicator, 6)

	for _, def := range categoryIndicators {
		ind, err := svc.computeCategoryIndex(ctx, def, periodDays, baselineDays)
		if err != nil {
			return Snapshot{}, fmt.Errorf("trend: %s: %w", def.key, err)
		}
		indicators[def.key] = ind
	}

	entityInd, err := svc.computeEntityActivity(ctx, userID, periodDays, baselineDays)
	if err != nil {
		return Snapshot{}, fmt.Errorf("trend: entity_activity: %w", err)
	}
	indicators["entity_activity"] = entityInd

	healthInd, err := svc.computeCollectionHealth(ctx, periodDays)
	if err != nil {
		return Snapshot{}, fmt.Errorf("trend: collection_health: %w", err)
	}
	indicators["collection_health"] = healthInd

	snapshot := Snapshot{
		GeneratedAt:   time.Now().UTC(),
		PeriodDays:    periodDays,
		BaselineDays:  baselineDays,
		Indicators:    indicators,
		Summary:       summarize(indicators),
		OverallStatus: overallStatus(indicators),
	}
	svc.cache.Set(cacheKey, snapshot)
	return snapshot, nil
}

func (svc *Service) computeCategoryIndex(ctx context.Context, def categoryDef, periodDays, baselineDays int) (Indicator, error) {
	now := time.Now().UTC()
	periodStart := now.AddDate(0, 0, -periodDays)
	baselineStart := now.AddDate(0, 0, -baselineDays)
	sourceTypes := sourceTypesFor(def.categories)

	current, err := svc.store.CountItemsByCategory(ctx, def.categories, sourceTypes, periodStart, now)
	if err != nil {
		return Indicator{}, err
	}
	baselineTotal, err := svc.store.CountItemsByCategory(ctx, def.categories, sourceTypes, baselineStart, now)
	if err != nil {
		return Indicator{}, err
	}

	periodsInBaseline := float64(baselineDays) / float64(periodDays)
	var baselineValue float64
	if periodsInBaseline > 0 {
		baselineValue = float64(baselineTotal) / periodsInBaseline
	}

	changePercent := changePercentOf(float64(current), baselineValue)

	daily, err := svc.store.DailyItemCounts(ctx, def.categories, sourceTypes, periodStart, now)
	if err != nil {
		return Indicator{}, err
	}
	sparkline := fillSparkline(daily, periodStart, now)

	return Indicator{
		Name:          def.name,
		Description:   def.description,
		CurrentValue:  float64(current),
		BaselineValue: baselineValue,
		ChangePercent: changePercent,
		Direction:     direction(changePercent),
		AlertLevel:    alertLevel(changePercent),
		Sparkline:     sparkline,
		Metadata: map[string]any{
			"categories":    def.categories,
			"period_days":   periodDays,
			"baseline_days": baselineDays,
		},
	}, nil
}

func (svc *Service) computeEntityActivity(ctx context.Context, userID uuid.UUID, periodDays, baselineDays int) (Indicator, error) {
	now := time.Now().UTC()
	periodStart := now.AddDate(0, 0, -periodDays)
	baselineStart := now.AddDate(0, 0, -baselineDays)

	var current, baselineTotal, tracked int
	var err error
	if userID != uuid.Nil {
		current, err = svc.store.CountEntityMentions(ctx, userID, periodStart)
		if err != nil {
			return Indicator{}, err
		}
		baselineTotal, err = svc.store.CountEntityMentions(ctx, userID, baselineStart)
		if err != nil {
			return Indicator{}, err
		}
		tracked, err = svc.store.CountTrackedEntities(ctx, userID)
		if err != nil {
			return Indicator{}, err
		}
	}

	periodsInBaseline := float64(baselineDays) / float64(periodDays)
	var baselineValue float64
	if periodsInBaseline > 0 {
		baselineValue = float64(baselineTotal) / periodsInBaseline
	}
	changePercent := changePercentOf(float64(current), baselineValue)

	return Indicator{
		Name:          "Entity Activity",
		Description:   "Tracked entity mention frequency",
		CurrentValue:  float64(current),
		BaselineValue: baselineValue,
		ChangePercent: changePercent,
		Direction:     direction(changePercent),
		AlertLevel:    alertLevel(changePercent),
		Metadata: map[string]any{
			"user_id":          userID,
			"tracked_entities": tracked,
			"period_days":      periodDays,
		},
	}, nil
}

func (svc *Service) computeCollectionHealth(ctx context.Context, periodDays int) (Indicator, error) {
	now := time.Now().UTC()
	periodStart := now.AddDate(0, 0, -periodDays)

	total, successful, itemsNew, err := svc.store.RunCounts(ctx, periodStart)
	if err != nil {
		return Indicator{}, err
	}

	successRate := 100.0
	if total > 0 {
		successRate = float64(successful) / float64(total) * 100
	}

	var level AlertLevel
	var dir Direction
	switch {
	case successRate >= healthNormalPct:
		level, dir = AlertNormal, DirectionStable
	case successRate >= healthElevatedPct:
		level, dir = AlertElevated, DirectionFalling
	default:
		level, dir = AlertCritical, DirectionFalling
	}

	return Indicator{
		Name:          "Collection Health",
		Description:   "Data collection system success rate",
		CurrentValue:  successRate,
		BaselineValue: healthNormalPct,
		ChangePercent: successRate - healthNormalPct,
		Direction:     dir,
		AlertLevel:    level,
		Metadata: map[string]any{
			"successful_runs": successful,
			"total_runs":      total,
			"items_collected": itemsNew,
			"period_days":     periodDays,
		},
	}, nil
}

// CategoryBreakdown returns the per-source-type item count for the last
// periodDays.
func (svc *Service) CategoryBreakdown(ctx context.Context, periodDays int) (map[string]int, error) {
	if periodDays <= 0 {
		periodDays = defaultPeriodDays
	}
	since := time.Now().UTC().AddDate(0, 0, -periodDays)
	return svc.store.CategoryBreakdown(ctx, since)
}

func changePercentOf(current, baseline float64) float64 {
	if baseline == 0 {
		if current > 0 {
			return 100.0
		}
		return 0.0
	}
	return (current - baseline) / baseline * 100
}

func direction(changePercent float64) Direction {
	switch {
	case changePercent > stableThresholdPct:
		return DirectionRising
	case changePercent < -stableThresholdPct:
		return DirectionFalling
	default:
		return DirectionStable
	}
}

func alertLevel(changePercent float64) AlertLevel {
	abs := changePercent
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= criticalThresholdPct:
		return AlertCritical
	case abs >= elevatedThresholdPct:
		return AlertElevated
	default:
		return AlertNormal
	}
}

func overallStatus(indicators map[string]Indicator) AlertLevel {
	status := AlertNormal
	for _, ind := range indicators {
		if alertRank(ind.AlertLevel) > alertRank(status) {
			status = ind.AlertLevel
		}
	}
	return status
}

// fillSparkline zero-fills daily counts across the continuous date range
// [from, to], keyed the same way DailyItemCounts returns them.
func fillSparkline(daily map[string]int, from, to time.Time) []float64 {
	var out []float64
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		out = append(out, float64(daily[d.Format("2006-01-02")]))
	}
	return out
}

// summarize builds the human-readable rollup: critical indicators first,
// then elevated, then notably rising/falling ones.
func summarize(indicators map[string]Indicator) string {
	keys := sortedKeys(indicators)
	var parts []string

	if critical := namesWithLevel(keys, indicators, AlertCritical); len(critical) > 0 {
		parts = append(parts, fmt.Sprintf("CRITICAL: %s require attention", strings.Join(critical, ", ")))
	}
	if elevated := namesWithLevel(keys, indicators, AlertElevated); len(elevated) > 0 {
		parts = append(parts, fmt.Sprintf("ELEVATED: %s above normal", strings.Join(elevated, ", ")))
	}

	var rising, falling []string
	for _, k := range keys {
		ind := indicators[k]
		if ind.Direction == DirectionRising && ind.ChangePercent > notableChangeThresholdPct {
			rising = append(rising, fmt.Sprintf("%s (+%.0f%%)", k, ind.ChangePercent))
		}
		if ind.Direction == DirectionFalling && ind.ChangePercent < -notableChangeThresholdPct {
			falling = append(falling, fmt.Sprintf("%s (%.0f%%)", k, ind.ChangePercent))
		}
	}
	if len(rising) > 0 {
		parts = append(parts, fmt.Sprintf("Rising: %s", strings.Join(rising, ", ")))
	}
	if len(falling) > 0 {
		parts = append(parts, fmt.Sprintf("Falling: %s", strings.Join(falling, ", ")))
	}

	if len(parts) == 0 {
		return "All indicators within normal parameters"
	}
	return strings.Join(parts, " | ")
}

func namesWithLevel(keys []string, indicators map[string]Indicator, level AlertLevel) []string {
	var out []string
	for _, k := range keys {
		if indicators[k].AlertLevel == level {
			out = append(out, k)
		}
	}
	return out
}

func sortedKeys(indicators map[string]Indicator) []string {
	keys := make([]string, 0, len(indicators))
	for k := range indicators {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
