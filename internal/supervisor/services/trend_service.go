package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/christiancopeland/pulsewatch/internal/trend"
)

// SnapshotComputer matches internal/trend.Service's entry point for
// computing a baseline-vs-current indicator snapshot.
type SnapshotComputer interface {
	ComputeSnapshot(ctx context.Context, userID uuid.UUID, periodDays, baselineDays int) (trend.Snapshot, error)
}

// TrendService periodically recomputes trend indicators and logs any
// elevated or critical movement, giving the otherwise on-demand trend
// computation a standing background presence rather than existing only for
// direct API callers.
type TrendService struct {
	computer     SnapshotComputer
	userID       uuid.UUID
	interval     time.Duration
	periodDays   int
	baselineDays int
	log          zerolog.Logger
	name         string
}

// NewTrendService constructs a TrendService. interval defaults to 30
// minutes when non-positive; periodDays/baselineDays default to 30/180, the
// same defaults internal/trend.Service applies when called with zeros.
func NewTrendService(computer SnapshotComputer, userID uuid.UUID, interval time.Duration, log zerolog.Logger) *TrendService {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &TrendService{
		computer:     computer,
		userID:       userID,
		interval:     interval,
		periodDays:   30,
		baselineDays: 180,
		log:          log,
		name:         "trend-indicators",
	}
}

// Serve implements suture.Service: compute once immediately, then again on
// every tick until the context is canceled.
func (s *TrendService) Serve(ctx context.Context) error {
	s.tick(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *TrendService) tick(ctx context.Context) {
	snapshot, err := s.computer.ComputeSnapshot(ctx, s.userID, s.periodDays, s.baselineDays)
	if err != nil {
		s.log.Warn().Err(err).Msg("trend service: snapshot computation failed")
		return
	}

	event := s.log.Info()
	if snapshot.OverallStatus != "normal" {
		event = s.log.Warn()
	}
	event.Str("status", string(snapshot.OverallStatus)).Str("summary", snapshot.Summary).Msg("trend service: snapshot computed")
}

// String implements fmt.Stringer for suture's log messages.
func (s *TrendService) String() string {
	return s.name
}
