package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

// mockScheduler simulates internal/scheduler.Scheduler's lifecycle, matching
// the StartStopScheduler interface.
type mockScheduler struct {
	started atomic.Bool
	stopped atomic.Bool
}

func (m *mockScheduler) Start(ctx context.Context) {
	m.started.Store(true)
}

func (m *mockScheduler) Stop(timeout time.Duration) {
	m.stopped.Store(true)
}

func TestCollectionService_ImplementsSutureService(t *testing.T) {
	var _ suture.Service = (*CollectionService)(nil)
}

func TestCollectionService_StartsSchedulerAndStopsOnCancel(t *testing.T) {
	sched := &mockScheduler{}
	svc := NewCollectionService(sched, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	var started bool
	for i := 0; i < 10; i++ {
		time.Sleep(10 * time.Millisecond)
		if sched.started.Load() {
			started = true
			break
		}
	}
	if !started {
		t.Fatal("scheduler was not started")
	}

	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("service did not stop in time")
	}

	if !sched.stopped.Load() {
		t.Error("scheduler was not stopped")
	}
}

func TestCollectionService_String(t *testing.T) {
	svc := NewCollectionService(&mockScheduler{}, 0)
	if svc.String() != "collection-scheduler" {
		t.Errorf("String() = %q, want collection-scheduler", svc.String())
	}
}

func TestCollectionService_ZeroTimeoutDefaultsToTenSeconds(t *testing.T) {
	svc := NewCollectionService(&mockScheduler{}, 0)
	if svc.stopTimeout != 10*time.Second {
		t.Errorf("stopTimeout = %v, want 10s default", svc.stopTimeout)
	}
}
