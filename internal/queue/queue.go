// Package queue enforces at-most-N concurrent extraction batches and
// exposes progress/status for the currently active and recently completed
// tasks.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const recentCompletedCap = 10

// TaskStatus is the lifecycle state of an extraction task.
type TaskStatus string

const (
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskFailed     TaskStatus = "failed"
)

// Task is the progress/result record for one extraction batch.
type Task struct {
	RequestID     uuid.UUID
	Status        TaskStatus
	CreatedAt     time.Time
	StartedAt     time.Time
	CompletedAt   time.Time
	ItemsTotal    int
	ItemsProcessed int
	Error         string
}

// Status is the consistent snapshot returned by GetStatus.
type Status struct {
	IsActive       bool
	ActiveTask     *Task
	QueueSize      int
	RecentCompleted []Task
}

// Manager guards concurrent extraction batches with a bounded semaphore
// and retains a capped history of recently completed tasks.
type Manager struct {
	mu        sync.Mutex
	sem       chan struct{}
	queueSize int
	active    map[uuid.UUID]*Task
	recent    []Task
}

// New constructs a Manager allowing up to maxConcurrent simultaneous
// extraction batches; zero or negative defaults to 1.
func New(maxConcurrent int) *Manager {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Manager{
		sem:    make(chan struct{}, maxConcurrent),
		active: make(map[uuid.UUID]*Task),
	}
}

// AcquireSlot blocks until a slot is available, then installs and returns
// a new active Task with status in_progress and itemsTotal set.
func (m *Manager) AcquireSlot(ctx context.Context, itemsTotal int) (*Task, error) {
	m.mu.Lock()
	m.queueSize++
	m.mu.Unlock()

	select {
	case m.sem <- struct{}{}:
	case <-ctx.Done():
		m.mu.Lock()
		m.queueSize--
		m.mu.Unlock()
		return nil, ctx.Err()
	}

	now := time.Now().UTC()
	task := &Task{
		RequestID:  uuid.New(),
		Status:     TaskInProgress,
		CreatedAt:  now,
		StartedAt:  now,
		ItemsTotal: itemsTotal,
	}

	m.mu.Lock()
	m.queueSize--
	m.active[task.RequestID] = task
	m.mu.Unlock()

	return task, nil
}

// UpdateProgress updates a task's processed/total counters without
// requiring the caller to hold any lock.
func (m *Manager) UpdateProgress(task *Task, processed, total int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.active[task.RequestID]; ok {
		t.ItemsProcessed = processed
		t.ItemsTotal = total
		*task = *t
	}
}

// ReleaseSlot transitions task to completed or failed, records it in the
// recent-completed history (evicting the oldest on overflow), and frees
// the slot.
func (m *Manager) ReleaseSlot(task *Task, success bool, errMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if success {
		task.Status = TaskCompleted
	} else {
		task.Status = TaskFailed
		task.Error = errMsg
	}
	task.CompletedAt = time.Now().UTC()

	delete(m.active, task.RequestID)
	m.recent = append(m.recent, *task)
	if len(m.recent) > recentCompletedCap {
		m.recent = m.recent[len(m.recent)-recentCompletedCap:]
	}

	<-m.sem
}

// GetStatus returns a consistent snapshot of the manager's state.
func (m *Manager) GetStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	var activeTask *Task
	for _, t := range m.active {
		copied := *t
		activeTask = &copied
		break
	}

	recent := make([]Task, len(m.recent))
	copy(recent, m.recent)

	return Status{
		IsActive:        activeTask != nil,
		ActiveTask:      activeTask,
		QueueSize:       m.queueSize,
		RecentCompleted: recent,
	}
}
