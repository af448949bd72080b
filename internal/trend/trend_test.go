package trend

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/christiancopeland/pulsewatch/internal/models"
	"github.com/christiancopeland/pulsewatch/internal/store"
)

func TestChangePercentOf_ZeroBaselineWithPositiveCurrentYields100(t *testing.T) {
	if got := changePercentOf(5, 0); got != 100.0 {
		t.Errorf("changePercentOf(5, 0) = %v, want 100", got)
	}
}

func TestChangePercentOf_ZeroBaselineZeroCurrentYieldsZero(t *testing.T) {
	if got := changePercentOf(0, 0); got != 0.0 {
		t.Errorf("changePercentOf(0, 0) = %v, want 0", got)
	}
}

func TestDirection_ClassifiesByStableThreshold(t *testing.T) {
	cases := map[float64]Direction{
		10:  DirectionRising,
		-10: DirectionFalling,
		0:   DirectionStable,
		5:   DirectionStable,
		5.1: DirectionRising,
	}
	for pct, want := range cases {
		if got := direction(pct); got != want {
			t.Errorf("direction(%v) = %v, want %v", pct, got, want)
		}
	}
}

func TestAlertLevel_ClassifiesByElevatedAndCriticalThresholds(t *testing.T) {
	cases := map[float64]AlertLevel{
		10:  AlertNormal,
		25:  AlertElevated,
		-25: AlertElevated,
		50:  AlertCritical,
		-60: AlertCritical,
	}
	for pct, want := range cases {
		if got := alertLevel(pct); got != want {
			t.Errorf("alertLevel(%v) = %v, want %v", pct, got, want)
		}
	}
}

func TestOverallStatus_ReturnsHighestAlertAcrossIndicators(t *testing.T) {
	indicators := map[string]Indicator{
		"a": {AlertLevel: AlertNormal},
		"b": {AlertLevel: AlertElevated},
		"c": {AlertLevel: AlertNormal},
	}
	if got := overallStatus(indicators); got != AlertElevated {
		t.Errorf("overallStatus = %v, want elevated", got)
	}

	indicators["d"] = Indicator{AlertLevel: AlertCritical}
	if got := overallStatus(indicators); got != AlertCritical {
		t.Errorf("overallStatus = %v, want critical once one indicator is critical", got)
	}
}

func TestSummarize_AllNormalYieldsDefaultMessage(t *testing.T) {
	indicators := map[string]Indicator{
		"conflict_index": {AlertLevel: AlertNormal, Direction: DirectionStable, ChangePercent: 1},
	}
	if got := summarize(indicators); got != "All indicators within normal parameters" {
		t.Errorf("summarize = %q", got)
	}
}

func TestSummarize_CriticalAndRisingAppearInOutput(t *testing.T) {
	indicators := map[string]Indicator{
		"conflict_index":    {AlertLevel: AlertCritical, Direction: DirectionRising, ChangePercent: 60},
		"tech_activity":     {AlertLevel: AlertNormal, Direction: DirectionRising, ChangePercent: 30},
		"collection_health": {AlertLevel: AlertNormal, Direction: DirectionStable, ChangePercent: 0},
	}
	got := summarize(indicators)
	if !contains(got, "CRITICAL: conflict_index") {
		t.Errorf("expected summary to flag the critical indicator, got %q", got)
	}
	if !contains(got, "Rising:") {
		t.Errorf("expected summary to list notable rising indicators, got %q", got)
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && (func() bool {
		for i := 0; i+len(needle) <= len(haystack); i++ {
			if haystack[i:i+len(needle)] == needle {
				return true
			}
		}
		return false
	})()
}

func TestFillSparkline_ZeroFillsGapsAcrossContinuousRange(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	daily := map[string]int{
		"2026-01-01": 3,
		"2026-01-03": 7,
	}
	got := fillSparkline(daily, from, to)
	want := []float64{3, 0, 7, 0, 0}
	if len(got) != len(want) {
		t.Fatalf("len(got) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(filepath.Join(dir, "test.duckdb"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestComputeSnapshot_CollectionHealthReflectsRunOutcomes(t *testing.T) {
	if os.Getenv("PULSEWATCH_SKIP_DUCKDB_TESTS") != "" {
		t.Skip("duckdb driver unavailable in this environment")
	}
	st := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		runID, err := st.StartRun(ctx, "rss", "feed")
		if err != nil {
			t.Fatalf("StartRun: %v", err)
		}
		if err := st.CompleteRun(ctx, runID, store.PersistResult{Collected: 1, New: 1}, 0, models.RunCompleted, ""); err != nil {
			t.Fatalf("CompleteRun: %v", err)
		}
	}
	runID, err := st.StartRun(ctx, "rss", "feed")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := st.CompleteRun(ctx, runID, store.PersistResult{}, 0, models.RunFailed, "boom"); err != nil {
		t.Fatalf("CompleteRun: %v", err)
	}

	svc := New(st)
	snap, err := svc.ComputeSnapshot(ctx, uuid.Nil, 30, 180)
	if err != nil {
		t.Fatalf("ComputeSnapshot: %v", err)
	}

	health := snap.Indicators["collection_health"]
	if health.CurrentValue != 75.0 {
		t.Errorf("collection_health current value = %v, want 75 (3/4 completed)", health.CurrentValue)
	}
	if health.AlertLevel != AlertCritical {
		t.Errorf("collection_health alert level = %v, want critical (below 80%%)", health.AlertLevel)
	}
}

func TestComputeSnapshot_SameWindowHitsCacheWithoutRecomputing(t *testing.T) {
	if os.Getenv("PULSEWATCH_SKIP_DUCKDB_TESTS") != "" {
		t.Skip("duckdb driver unavailable in this environment")
	}
	st := openTestStore(t)
	ctx := context.Background()

	runID, err := st.StartRun(ctx, "rss", "feed")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := st.CompleteRun(ctx, runID, store.PersistResult{Collected: 1, New: 1}, 0, models.RunCompleted, ""); err != nil {
		t.Fatalf("CompleteRun: %v", err)
	}

	svc := New(st)
	first, err := svc.ComputeSnapshot(ctx, uuid.Nil, 30, 180)
	if err != nil {
		t.Fatalf("ComputeSnapshot: %v", err)
	}

	// A run completed after the first snapshot must not change the second
	// snapshot's counts if the cached value from the first call is reused.
	runID2, err := st.StartRun(ctx, "rss", "feed")
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if err := st.CompleteRun(ctx, runID2, store.PersistResult{}, 0, models.RunFailed, "boom"); err != nil {
		t.Fatalf("CompleteRun: %v", err)
	}

	second, err := svc.ComputeSnapshot(ctx, uuid.Nil, 30, 180)
	if err != nil {
		t.Fatalf("ComputeSnapshot: %v", err)
	}
	if second.GeneratedAt != first.GeneratedAt {
		t.Errorf("GeneratedAt changed across calls in the same window (%v vs %v); expected the cached snapshot to be reused", first.GeneratedAt, second.GeneratedAt)
	}
	if second.Indicators["collection_health"].AlertLevel != first.Indicators["collection_health"].AlertLevel {
		t.Error("collection_health alert level changed despite an unexpired cache entry for the same window")
	}
}
