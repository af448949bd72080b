package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/christiancopeland/pulsewatch/internal/trend"
)

type mockSnapshotComputer struct {
	snapshot trend.Snapshot
	err      error
	calls    int
}

func (m *mockSnapshotComputer) ComputeSnapshot(ctx context.Context, userID uuid.UUID, periodDays, baselineDays int) (trend.Snapshot, error) {
	m.calls++
	return m.snapshot, m.err
}

func TestTrendService_ImplementsSutureService(t *testing.T) {
	var _ suture.Service = (*TrendService)(nil)
}

func TestTrendService_ComputesOnEveryTick(t *testing.T) {
	computer := &mockSnapshotComputer{snapshot: trend.Snapshot{OverallStatus: trend.AlertNormal, Summary: "all indicators normal"}}
	svc := NewTrendService(computer, uuid.New(), 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 35*time.Millisecond)
	defer cancel()

	if err := svc.Serve(ctx); err != context.DeadlineExceeded {
		t.Errorf("Serve err = %v, want context.DeadlineExceeded", err)
	}
	if computer.calls < 2 {
		t.Errorf("calls = %d, want at least 2 (immediate tick plus at least one ticker firing)", computer.calls)
	}
}

func TestTrendService_SurvivesComputeSnapshotError(t *testing.T) {
	computer := &mockSnapshotComputer{err: context.DeadlineExceeded}
	svc := NewTrendService(computer, uuid.New(), time.Hour, zerolog.Nop())

	svc.tick(context.Background())

	if computer.calls != 1 {
		t.Errorf("calls = %d, want 1", computer.calls)
	}
}

func TestTrendService_String(t *testing.T) {
	svc := NewTrendService(&mockSnapshotComputer{}, uuid.New(), 0, zerolog.Nop())
	if svc.String() != "trend-indicators" {
		t.Errorf("String() = %q, want trend-indicators", svc.String())
	}
}

func TestTrendService_DefaultsApplied(t *testing.T) {
	svc := NewTrendService(&mockSnapshotComputer{}, uuid.New(), 0, zerolog.Nop())
	if svc.interval != 30*time.Minute {
		t.Errorf("interval = %v, want 30m default", svc.interval)
	}
	if svc.periodDays != 30 || svc.baselineDays != 180 {
		t.Errorf("periodDays/baselineDays = %d/%d, want 30/180", svc.periodDays, svc.baselineDays)
	}
}
