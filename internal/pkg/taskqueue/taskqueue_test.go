package taskqueue

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnqueueAndGet(t *testing.T) {
	s := NewService()

	task, created := s.Enqueue(Spec{
		Type:     "insight",
		Payload:  map[string]string{"slug": "cs-101", "key": "tldr"},
		DedupKey: "cs-101:tldr",
		GroupKey: "cs-101",
	})
	require.True(t, created)
	assert.NotEmpty(t, task.ID)
	assert.Equal(t, StatusPending, task.Status)
	assert.False(t, task.CreatedAt.IsZero())

	got, ok := s.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, "insight", got.Type)
	assert.Equal(t, "cs-101", got.Payload["slug"])

	_, ok = s.Get("missing")
	assert.False(t, ok)
}

func TestEnqueueCollapsesDuplicates(t *testing.T) {
	s := NewService()

	first, created := s.Enqueue(Spec{Type: "insight", DedupKey: "cs-101:tldr"})
	require.True(t, created)

	second, created := s.Enqueue(Spec{Type: "insight", DedupKey: "cs-101:tldr"})
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	// Still collapsed while the task is running.
	s.SetRunning(first.ID)
	third, created := s.Enqueue(Spec{Type: "insight", DedupKey: "cs-101:tldr"})
	assert.False(t, created)
	assert.Equal(t, first.ID, third.ID)

	// A finished task no longer blocks a fresh enqueue.
	s.Complete(first.ID, "done")
	fourth, created := s.Enqueue(Spec{Type: "insight", DedupKey: "cs-101:tldr"})
	assert.True(t, created)
	assert.NotEqual(t, first.ID, fourth.ID)
}

func TestEnqueueWithoutDedupKeyNeverCollapses(t *testing.T) {
	s := NewService()

	a, created := s.Enqueue(Spec{Type: "compare"})
	require.True(t, created)
	b, created := s.Enqueue(Spec{Type: "compare"})
	require.True(t, created)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestLifecycleTransitions(t *testing.T) {
	s := NewService()
	task, _ := s.Enqueue(Spec{Type: "insight", DedupKey: "k"})

	s.SetRunning(task.ID)
	got, _ := s.Get(task.ID)
	assert.Equal(t, StatusRunning, got.Status)

	s.Complete(task.ID, "cached")
	got, _ = s.Get(task.ID)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "cached", got.Result)
	assert.True(t, got.Status.IsTerminal())

	// Terminal states never change again.
	s.Fail(task.ID, "late error")
	got, _ = s.Get(task.ID)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Empty(t, got.Error)
}

func TestFailRecordsError(t *testing.T) {
	s := NewService()
	task, _ := s.Enqueue(Spec{Type: "insight", DedupKey: "k"})
	s.SetRunning(task.ID)

	s.Fail(task.ID, "model timed out")
	got, _ := s.Get(task.ID)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "model timed out", got.Error)
}

func TestCancelPendingOnly(t *testing.T) {
	s := NewService()

	pending, _ := s.Enqueue(Spec{Type: "insight", DedupKey: "a"})
	require.NoError(t, s.Cancel(pending.ID))
	got, _ := s.Get(pending.ID)
	assert.Equal(t, StatusCancelled, got.Status)

	running, _ := s.Enqueue(Spec{Type: "insight", DedupKey: "b"})
	s.SetRunning(running.ID)
	err := s.Cancel(running.ID)
	assert.ErrorContains(t, err, "only pending tasks")

	err = s.Cancel("missing")
	assert.ErrorContains(t, err, "not found")
}

func TestActiveTracksDedupKey(t *testing.T) {
	s := NewService()

	_, ok := s.Active("cs-101:tldr")
	assert.False(t, ok)

	task, _ := s.Enqueue(Spec{Type: "insight", DedupKey: "cs-101:tldr"})
	active, ok := s.Active("cs-101:tldr")
	require.True(t, ok)
	assert.Equal(t, task.ID, active.ID)

	s.Complete(task.ID, "")
	_, ok = s.Active("cs-101:tldr")
	assert.False(t, ok)
}

func TestWaitActiveDeliversFinalState(t *testing.T) {
	s := NewService()
	task, _ := s.Enqueue(Spec{Type: "insight", DedupKey: "cs-101:tldr"})
	s.SetRunning(task.ID)

	ch, ok := s.WaitActive("cs-101:tldr")
	require.True(t, ok)

	go s.Complete(task.ID, "- point one")

	select {
	case done := <-ch:
		assert.Equal(t, StatusCompleted, done.Status)
		assert.Equal(t, "- point one", done.Result)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter never received the final state")
	}

	// Channel is closed after the single delivery.
	_, open := <-ch
	assert.False(t, open)
}

func TestWaitActiveNoActiveTask(t *testing.T) {
	s := NewService()

	ch, ok := s.WaitActive("nothing")
	assert.False(t, ok)
	assert.Nil(t, ch)

	task, _ := s.Enqueue(Spec{Type: "insight", DedupKey: "k"})
	s.Fail(task.ID, "boom")
	ch, ok = s.WaitActive("k")
	assert.False(t, ok)
	assert.Nil(t, ch)
}

func TestListFiltersAndOrder(t *testing.T) {
	s := NewService()

	a, _ := s.Enqueue(Spec{Type: "insight", DedupKey: "cs-101:tldr", GroupKey: "cs-101"})
	b, _ := s.Enqueue(Spec{Type: "insight", DedupKey: "cs-101:workload", GroupKey: "cs-101"})
	c, _ := s.Enqueue(Spec{Type: "insight", DedupKey: "hist-7:tldr", GroupKey: "hist-7"})
	s.Complete(b.ID, "")

	all := s.List("", "")
	require.Len(t, all, 3)
	// Newest first.
	assert.Equal(t, c.ID, all[0].ID)
	assert.Equal(t, a.ID, all[2].ID)

	group := s.List("cs-101", "")
	require.Len(t, group, 2)

	completed := s.List("cs-101", StatusCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, b.ID, completed[0].ID)

	assert.Empty(t, s.List("cs-101", StatusFailed))
}

func TestEvictionDropsOldestFinished(t *testing.T) {
	s := NewService()
	s.maxFinished = 3

	var oldest Task
	for i := 0; i < 5; i++ {
		task, _ := s.Enqueue(Spec{Type: "insight", DedupKey: fmt.Sprintf("k%d", i)})
		if i == 0 {
			oldest = task
		}
		s.Complete(task.ID, "")
	}
	active, _ := s.Enqueue(Spec{Type: "insight", DedupKey: "live"})

	finished := s.List("", StatusCompleted)
	assert.Len(t, finished, 3)

	_, ok := s.Get(oldest.ID)
	assert.False(t, ok, "the oldest finished task should have been evicted")

	// Active tasks survive regardless of the cap.
	_, ok = s.Get(active.ID)
	assert.True(t, ok)
}
