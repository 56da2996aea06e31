// Package taskqueue provides an in-memory registry for background tasks with
// observable lifecycle state. Duplicate work is collapsed through dedup keys:
// enqueueing a task whose dedup key matches a pending or running task returns
// the existing one. Callers can subscribe to a task's completion.
package taskqueue

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status of a task in the registry.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IsTerminal reports whether the status is a final state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Task is one unit of background work.
type Task struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Payload   map[string]string `json:"payload,omitempty"`
	Status    Status            `json:"status"`
	Result    string            `json:"result,omitempty"`
	Error     string            `json:"error,omitempty"`
	DedupKey  string            `json:"dedup_key,omitempty"`
	GroupKey  string            `json:"group_key,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Spec describes a task to enqueue.
type Spec struct {
	Type     string
	Payload  map[string]string
	DedupKey string
	GroupKey string
}

// Service is the in-memory task registry. Finished tasks are retained up to
// a fixed cap and evicted oldest-first.
type Service struct {
	mu          sync.Mutex
	tasks       map[string]*Task
	order       []string          // insertion order, for eviction
	activeDedup map[string]string // dedup key -> task id (pending/running only)
	waiters     map[string][]chan Task
	maxFinished int
}

const defaultMaxFinished = 512

// NewService creates an empty task registry.
func NewService() *Service {
	return &Service{
		tasks:       make(map[string]*Task),
		activeDedup: make(map[string]string),
		waiters:     make(map[string][]chan Task),
		maxFinished: defaultMaxFinished,
	}
}

// Enqueue registers a new pending task. When spec.DedupKey matches a pending
// or running task, the existing task is returned and created is false.
func (s *Service) Enqueue(spec Spec) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if spec.DedupKey != "" {
		if id, ok := s.activeDedup[spec.DedupKey]; ok {
			if existing, found := s.tasks[id]; found {
				return *existing, false
			}
			delete(s.activeDedup, spec.DedupKey)
		}
	}

	now := time.Now()
	t := &Task{
		ID:        uuid.NewString(),
		Type:      spec.Type,
		Payload:   spec.Payload,
		Status:    StatusPending,
		DedupKey:  spec.DedupKey,
		GroupKey:  spec.GroupKey,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.tasks[t.ID] = t
	s.order = append(s.order, t.ID)
	if spec.DedupKey != "" {
		s.activeDedup[spec.DedupKey] = t.ID
	}
	s.evictLocked()
	return *t, true
}

// SetRunning transitions a pending task to running.
func (s *Service) SetRunning(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[id]; ok && t.Status == StatusPending {
		t.Status = StatusRunning
		t.UpdatedAt = time.Now()
	}
}

// Complete marks a task as completed with a result.
func (s *Service) Complete(id, result string) {
	s.finish(id, StatusCompleted, result, "")
}

// Fail marks a task as failed with an error message.
func (s *Service) Fail(id, errMsg string) {
	s.finish(id, StatusFailed, "", errMsg)
}

// Cancel cancels a pending task. Running and finished tasks cannot be
// cancelled.
func (s *Service) Cancel(id string) error {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("task %q not found", id)
	}
	if t.Status != StatusPending {
		s.mu.Unlock()
		return fmt.Errorf("task %q is %s, only pending tasks can be cancelled", id, t.Status)
	}
	s.mu.Unlock()

	s.finish(id, StatusCancelled, "", "")
	return nil
}

func (s *Service) finish(id string, status Status, result, errMsg string) {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok || t.Status.IsTerminal() {
		s.mu.Unlock()
		return
	}
	t.Status = status
	t.Result = result
	t.Error = errMsg
	t.UpdatedAt = time.Now()
	if t.DedupKey != "" && s.activeDedup[t.DedupKey] == id {
		delete(s.activeDedup, t.DedupKey)
	}
	done := *t
	waiters := s.waiters[id]
	delete(s.waiters, id)
	s.mu.Unlock()

	for _, ch := range waiters {
		ch <- done
		close(ch)
	}
}

// Get returns a task by id.
func (s *Service) Get(id string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[id]; ok {
		return *t, true
	}
	return Task{}, false
}

// Active returns the pending/running task registered under a dedup key.
func (s *Service) Active(dedupKey string) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.activeDedup[dedupKey]
	if !ok {
		return Task{}, false
	}
	t, ok := s.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// WaitActive returns a channel that receives the final state of the
// pending/running task registered under dedupKey, or (nil, false) when no
// such task exists. The channel is buffered; the value arrives exactly once.
func (s *Service) WaitActive(dedupKey string) (<-chan Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.activeDedup[dedupKey]
	if !ok {
		return nil, false
	}
	t, ok := s.tasks[id]
	if !ok || t.Status.IsTerminal() {
		return nil, false
	}

	ch := make(chan Task, 1)
	s.waiters[id] = append(s.waiters[id], ch)
	return ch, true
}

// List returns tasks, newest first, optionally filtered by group key and
// status. Empty filters match everything.
func (s *Service) List(groupKey string, status Status) []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Task, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		t, ok := s.tasks[s.order[i]]
		if !ok {
			continue
		}
		if groupKey != "" && t.GroupKey != groupKey {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, *t)
	}
	return out
}

// evictLocked drops the oldest finished tasks beyond the retention cap.
// Active tasks are never evicted. Caller must hold s.mu.
func (s *Service) evictLocked() {
	finished := 0
	for _, id := range s.order {
		if t, ok := s.tasks[id]; ok && t.Status.IsTerminal() {
			finished++
		}
	}
	if finished <= s.maxFinished {
		return
	}

	keep := s.order[:0]
	toDrop := finished - s.maxFinished
	for _, id := range s.order {
		t, ok := s.tasks[id]
		if !ok {
			continue
		}
		if toDrop > 0 && t.Status.IsTerminal() {
			delete(s.tasks, id)
			toDrop--
			continue
		}
		keep = append(keep, id)
	}
	s.order = keep
}
