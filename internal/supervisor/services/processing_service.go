package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/christiancopeland/pulsewatch/internal/pipeline"
)

// BatchProcessor matches internal/pipeline.Orchestrator's entry point for
// draining the unprocessed-item backlog.
type BatchProcessor interface {
	ProcessPendingItems(ctx context.Context, limit int, userID uuid.UUID) (pipeline.ProcessingStats, error)
}

// ProcessingService runs the pipeline orchestrator on a fixed interval,
// draining whatever backlog of unprocessed items has accumulated since the
// previous tick.
type ProcessingService struct {
	processor BatchProcessor
	interval  time.Duration
	batchSize int
	userID    uuid.UUID
	log       zerolog.Logger
	name      string
}

// NewProcessingService constructs a ProcessingService. interval defaults to
// one minute and batchSize to 100 when non-positive.
func NewProcessingService(processor BatchProcessor, interval time.Duration, batchSize int, userID uuid.UUID, log zerolog.Logger) *ProcessingService {
	if interval <= 0 {
		interval = time.Minute
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &ProcessingService{
		processor: processor,
		interval:  interval,
		batchSize: batchSize,
		userID:    userID,
		log:       log,
		name:      "pipeline-processor",
	}
}

// Serve implements suture.Service: process a batch immediately, then again
// on every tick until the context is canceled.
func (s *ProcessingService) Serve(ctx context.Context) error {
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

func (s *ProcessingService) tick(ctx context.Context) {
	stats, err := s.processor.ProcessPendingItems(ctx, s.batchSize, s.userID)
	if err != nil {
		s.log.Warn().Err(err).Msg("processing service: batch failed")
		return
	}
	if stats.TotalItems > 0 {
		s.log.Info().Int("total", stats.TotalItems).Int("validated", stats.Validated).Int("embedded", stats.Embedded).Msg("processing service: batch complete")
	}
}

// String implements fmt.Stringer for suture's log messages.
func (s *ProcessingService) String() string {
	return s.name
}
