package services

import (
	"context"
	"time"
)

// StartStopScheduler matches internal/scheduler.Scheduler's lifecycle
// (Start spawns one goroutine per registered adapter; Stop cancels them
// and waits up to a timeout for them to finish).
type StartStopScheduler interface {
	Start(ctx context.Context)
	Stop(timeout time.Duration)
}

// CollectionService wraps the adapter scheduler as a supervised service,
// adapting its Start/Stop lifecycle to suture's Serve pattern.
type CollectionService struct {
	scheduler   StartStopScheduler
	stopTimeout time.Duration
	name        string
}

// NewCollectionService creates a new collection service wrapper. stopTimeout
// bounds how long Serve waits for adapter loops to wind down on shutdown;
// zero defaults to 10s.
func NewCollectionService(scheduler StartStopScheduler, stopTimeout time.Duration) *CollectionService {
	if stopTimeout <= 0 {
		stopTimeout = 10 * time.Second
	}
	return &CollectionService{scheduler: scheduler, stopTimeout: stopTimeout, name: "collection-scheduler"}
}

// Serve implements suture.Service: start every adapter loop, block until
// the context is canceled, then stop them all with the configured timeout.
func (s *CollectionService) Serve(ctx context.Context) error {
	s.scheduler.Start(ctx)
	<-ctx.Done()
	s.scheduler.Stop(s.stopTimeout)
	return ctx.Err()
}

// String implements fmt.Stringer for suture's log messages.
func (s *CollectionService) String() string {
	return s.name
}
