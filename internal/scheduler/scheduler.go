// Package scheduler drives each registered collector adapter on its own
// interval, tracks per-adapter health, and emits lifecycle events to the
// broadcast bus.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/christiancopeland/pulsewatch/internal/broadcast"
	"github.com/christiancopeland/pulsewatch/internal/collector"
	"github.com/christiancopeland/pulsewatch/internal/metrics"
	"github.com/christiancopeland/pulsewatch/internal/models"
	"github.com/christiancopeland/pulsewatch/internal/store"
)

// Health classifies an adapter's recent run history.
type Health string

const (
	HealthHealthy   Health = "healthy"
	HealthDegraded  Health = "degraded"
	HealthUnhealthy Health = "unhealthy"
)

// cooldown replaces the normal interval after a failed run (an adapter
// error, a persist error or a recovered panic).
const cooldown = 60 * time.Second

// Status is the per-adapter snapshot returned by GetStatus.
type Status struct {
	Name                string
	Running             bool
	LastRun             time.Time
	LastRunItems        int
	ConsecutiveFailures int
	Health              Health
}

type entry struct {
	adapter  collector.Adapter
	interval time.Duration

	mu                  sync.Mutex
	running             bool
	lastRun             time.Time
	lastRunItems        int
	consecutiveFailures int
	cancel              context.CancelFunc
	done                chan struct{}
}

func (e *entry) health() Health {
	switch {
	case e.consecutiveFailures == 0:
		return HealthHealthy
	case e.consecutiveFailures <= 2:
		return HealthDegraded
	default:
		return HealthUnhealthy
	}
}

// Scheduler owns one independent loop per registered adapter.
type Scheduler struct {
	mu      sync.RWMutex
	entries map[string]*entry
	store   *store.Store
	bus     *broadcast.Bus
	log     zerolog.Logger
}

// New constructs a Scheduler. The registry is additive and idempotent:
// Register may be called repeatedly before or after Start.
func New(st *store.Store, bus *broadcast.Bus, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		entries: make(map[string]*entry),
		store:   st,
		bus:     bus,
		log:     log.With().Str("component", "scheduler").Logger(),
	}
}

// Register adds an adapter with its run interval. Calling Register again
// for the same adapter name replaces the prior entry (the loop, if
// running, keeps running against the old entry; Stop no longer reaches it,
// and it ends when the context passed to Start is cancelled).
func (s *Scheduler) Register(a collector.Adapter, interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[a.Name()] = &entry{adapter: a, interval: interval}
}

// Unregister removes an adapter from the registry. It does not stop an
// already-running loop; call Stop first if one is active.
func (s *Scheduler) Unregister(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, name)
}

// Start launches one independent scheduling loop per registered adapter:
// run once immediately, then sleep the interval, cooperatively cancellable
// at the sleep point.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, e := range s.entries {
		e.mu.Lock()
		if e.running {
			e.mu.Unlock()
			continue
		}
		loopCtx, cancel := context.WithCancel(ctx)
		e.cancel = cancel
		e.done = make(chan struct{})
		e.running = true
		e.mu.Unlock()

		go s.runLoop(loopCtx, e)
	}
}

// Stop cancels every loop and waits up to timeout for them to finish.
// Loops that do not finish within timeout are abandoned; Stop still
// returns promptly.
func (s *Scheduler) Stop(timeout time.Duration) {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	for _, e := range entries {
		e.mu.Lock()
		cancel := e.cancel
		done := e.done
		e.mu.Unlock()
		if cancel == nil {
			continue
		}
		cancel()
		_ = done
	}

	deadline := time.After(timeout)
	for _, e := range entries {
		e.mu.Lock()
		done := e.done
		e.mu.Unlock()
		if done == nil {
			continue
		}
		select {
		case <-done:
		case <-deadline:
			return
		}
	}
}

func (s *Scheduler) runLoop(ctx context.Context, e *entry) {
	defer func() {
		e.mu.Lock()
		e.running = false
		close(e.done)
		e.mu.Unlock()
	}()

	for {
		s.runOnce(ctx, e)

		select {
		case <-ctx.Done():
			return
		default:
		}

		e.mu.Lock()
		failed := e.consecutiveFailures > 0
		e.mu.Unlock()

		wait := e.interval
		if failed {
			wait = cooldown
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

// runOnce invokes the adapter exactly once, emitting collection.started
// before and exactly one terminal event after. A panic inside the adapter
// is recovered so it degrades to a logged failure, never terminating the
// loop.
func (s *Scheduler) runOnce(ctx context.Context, e *entry) {
	defer func() {
		if r := recover(); r != nil {
			s.recordFailure(e, "panic in adapter")
			s.log.Error().Str("adapter", e.adapter.Name()).Interface("panic", r).Msg("adapter loop recovered from panic")
			s.bus.Publish(broadcast.Event{
				Type:      broadcast.CollectionFailed,
				Payload:   map[string]any{"adapter": e.adapter.Name(), "error": "panic in adapter"},
				Timestamp: time.Now().UTC(),
				Source:    e.adapter.Name(),
			})
		}
	}()

	name := e.adapter.Name()
	sourceType := e.adapter.SourceType()
	runStart := time.Now()

	s.bus.Publish(broadcast.Event{
		Type:      broadcast.CollectionStarted,
		Payload:   map[string]any{"adapter": name},
		Timestamp: time.Now().UTC(),
		Source:    name,
	})

	var runID uuid.UUID
	if s.store != nil {
		id, err := s.store.StartRun(ctx, sourceType, name)
		if err == nil {
			runID = id
		}
	}

	items, err := e.adapter.Collect(ctx)
	if err != nil {
		s.recordFailure(e, err.Error())
		s.completeRun(ctx, runID, store.PersistResult{}, models.RunFailed, err.Error())
		metrics.RecordCollectionRun(name, time.Since(runStart), 0, 0, 0, err)
		s.bus.Publish(broadcast.Event{
			Type:      broadcast.CollectionFailed,
			Payload:   map[string]any{"adapter": name, "run_id": runID.String(), "error": err.Error()},
			Timestamp: time.Now().UTC(),
			Source:    name,
		})
		return
	}

	var res store.PersistResult
	if s.store != nil && len(items) > 0 {
		res, err = s.store.PersistBatch(ctx, items)
		if err != nil {
			s.recordFailure(e, err.Error())
			s.completeRun(ctx, runID, res, models.RunFailed, err.Error())
			metrics.RecordCollectionRun(name, time.Since(runStart), len(items), res.Collected, res.Duplicate, err)
			s.bus.Publish(broadcast.Event{
				Type:      broadcast.CollectionFailed,
				Payload:   map[string]any{"adapter": name, "run_id": runID.String(), "error": err.Error()},
				Timestamp: time.Now().UTC(),
				Source:    name,
			})
			return
		}
	}
	s.completeRun(ctx, runID, res, models.RunCompleted, "")
	metrics.RecordCollectionRun(name, time.Since(runStart), len(items), res.Collected, res.Duplicate, nil)

	e.mu.Lock()
	e.lastRun = time.Now().UTC()
	e.lastRunItems = res.Collected
	e.consecutiveFailures = 0
	e.mu.Unlock()
	metrics.UpdateCollectionHealth(name, 0)

	s.bus.Publish(broadcast.Event{
		Type: broadcast.CollectionCompleted,
		Payload: map[string]any{
			"adapter": name, "run_id": runID.String(),
			"items_collected": res.Collected, "items_new": res.New, "items_duplicate": res.Duplicate,
		},
		Timestamp: time.Now().UTC(),
		Source:    name,
	})
}

func (s *Scheduler) completeRun(ctx context.Context, runID uuid.UUID, res store.PersistResult, status models.RunStatus, errMsg string) {
	if s.store == nil || runID == uuid.Nil {
		return
	}
	if err := s.store.CompleteRun(ctx, runID, res, 0, status, errMsg); err != nil {
		s.log.Warn().Str("run_id", runID.String()).Err(err).Msg("failed to record collection run completion")
	}
}

func (s *Scheduler) recordFailure(e *entry, msg string) {
	e.mu.Lock()
	e.lastRun = time.Now().UTC()
	e.consecutiveFailures++
	failures := e.consecutiveFailures
	e.mu.Unlock()
	metrics.UpdateCollectionHealth(e.adapter.Name(), failures)
	s.log.Warn().Str("adapter", e.adapter.Name()).Str("error", msg).Msg("adapter run failed")
}

// RunAllNow invokes every registered adapter out-of-band, without
// disturbing its schedule.
func (s *Scheduler) RunAllNow(ctx context.Context) {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.entries))
	for _, e := range s.entries {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	for _, e := range entries {
		s.runOnce(ctx, e)
	}
}

// RunCollectorNow invokes the named adapter out-of-band. Returns false if
// no adapter is registered under that name.
func (s *Scheduler) RunCollectorNow(ctx context.Context, name string) bool {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return false
	}
	s.runOnce(ctx, e)
	return true
}

// GetStatus returns a snapshot of every registered adapter's status.
func (s *Scheduler) GetStatus() []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Status, 0, len(s.entries))
	for name, e := range s.entries {
		e.mu.Lock()
		out = append(out, Status{
			Name:                name,
			Running:             e.running,
			LastRun:             e.lastRun,
			LastRunItems:        e.lastRunItems,
			ConsecutiveFailures: e.consecutiveFailures,
			Health:              e.health(),
		})
		e.mu.Unlock()
	}
	return out
}

// GetCollectorStatus returns the status of a single named adapter.
func (s *Scheduler) GetCollectorStatus(name string) (Status, bool) {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return Status{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		Name:                name,
		Running:             e.running,
		LastRun:             e.lastRun,
		LastRunItems:        e.lastRunItems,
		ConsecutiveFailures: e.consecutiveFailures,
		Health:              e.health(),
	}, true
}

// GetHealthSummary aggregates every adapter's health into one overall
// value: unhealthy if any adapter is unhealthy, else degraded if any is
// degraded, else healthy.
func (s *Scheduler) GetHealthSummary() Health {
	statuses := s.GetStatus()
	overall := HealthHealthy
	for _, st := range statuses {
		switch st.Health {
		case HealthUnhealthy:
			return HealthUnhealthy
		case HealthDegraded:
			overall = HealthDegraded
		}
	}
	return overall
}
