package core

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

// TestTaskScheduler_ExecutionOrder tests FIFO execution order
// Main test items:
// 1. Work items are handed out in insertion order
// 2. First-in, First-out order is maintained across GetWork calls
func TestTaskScheduler_ExecutionOrder(t *testing.T) {
	s := NewTaskScheduler("test", 1)
	defer s.Shutdown()

	results := make(chan string, 10)
	makeTask := func(name string) WorkItem {
		return func(ctx context.Context) {
			results <- name
		}
	}

	s.PostInternal(makeTask("First"))
	s.PostInternal(makeTask("Second"))
	s.PostInternal(makeTask("Third"))

	expected := []string{"First", "Second", "Third"}
	stopCh := make(chan struct{})

	for i, exp := range expected {
		task, ok := s.GetWork(stopCh)
		if !ok {
			t.Fatalf("Step %d: expected task but got none", i)
		}
		task(context.Background())

		got := <-results
		if got != exp {
			t.Errorf("Step %d: Expected %s, got %s", i, exp, got)
		}
	}
}

// TestTaskScheduler_GetWorkStops tests that GetWork returns when stopCh closes
func TestTaskScheduler_GetWorkStops(t *testing.T) {
	s := NewTaskScheduler("test", 1)
	defer s.Shutdown()

	stopCh := make(chan struct{})
	done := make(chan bool, 1)
	go func() {
		_, ok := s.GetWork(stopCh)
		done <- ok
	}()

	close(stopCh)

	select {
	case ok := <-done:
		if ok {
			t.Error("GetWork returned work after stop, want none")
		}
	case <-time.After(time.Second):
		t.Fatal("GetWork did not return after stopCh closed")
	}
}

// TestTaskScheduler_Metrics tests scheduler metric reporting
// Main test items:
// 1. WorkerCount returns configured worker count
// 2. QueuedTaskCount reports queued tasks accurately
// 3. ActiveTaskCount reports active tasks accurately
func TestTaskScheduler_Metrics(t *testing.T) {
	s := NewTaskScheduler("test", 2)
	defer s.Shutdown()

	if s.WorkerCount() != 2 {
		t.Errorf("Expected WorkerCount 2, got %d", s.WorkerCount())
	}
	if s.Name() != "test" {
		t.Errorf("Expected Name test, got %s", s.Name())
	}

	noop := func(ctx context.Context) {}

	if s.QueuedTaskCount() != 0 {
		t.Errorf("Expected QueuedTaskCount 0, got %d", s.QueuedTaskCount())
	}
	if s.ActiveTaskCount() != 0 {
		t.Errorf("Expected ActiveTaskCount 0, got %d", s.ActiveTaskCount())
	}

	s.PostInternal(noop)
	s.PostInternal(noop)

	if s.QueuedTaskCount() != 2 {
		t.Errorf("Expected QueuedTaskCount 2, got %d", s.QueuedTaskCount())
	}

	stopCh := make(chan struct{})
	if _, ok := s.GetWork(stopCh); !ok {
		t.Fatal("Failed to get work")
	}

	if s.QueuedTaskCount() != 1 {
		t.Errorf("Expected QueuedTaskCount 1 (after pop), got %d", s.QueuedTaskCount())
	}

	s.OnTaskStart()
	if s.ActiveTaskCount() != 1 {
		t.Errorf("Expected ActiveTaskCount 1, got %d", s.ActiveTaskCount())
	}

	s.OnTaskEnd()
	if s.ActiveTaskCount() != 0 {
		t.Errorf("Expected ActiveTaskCount 0, got %d", s.ActiveTaskCount())
	}
}

type countingRejectedHandler struct {
	count  atomic.Int32
	reason atomic.Value
}

func (h *countingRejectedHandler) HandleRejectedTask(runnerName string, reason string) {
	h.count.Add(1)
	h.reason.Store(reason)
}

// TestTaskScheduler_Shutdown tests immediate shutdown behavior
// Main test items:
// 1. Shutdown() clears the queue
// 2. New work items are rejected after shutdown, through the RejectedTaskHandler
func TestTaskScheduler_Shutdown(t *testing.T) {
	handler := &countingRejectedHandler{}
	s := NewTaskSchedulerWithConfig("test", 1, &TaskSchedulerConfig{RejectedTaskHandler: handler})
	noop := func(ctx context.Context) {}

	s.PostInternal(noop)
	if s.QueuedTaskCount() != 1 {
		t.Fatal("Setup failed: should have 1 task")
	}

	s.Shutdown()
	if s.QueuedTaskCount() != 0 {
		t.Errorf("Expected QueuedTaskCount 0 after shutdown, got %d", s.QueuedTaskCount())
	}

	s.PostInternal(noop)
	s.PostDelayedInternal(noop, time.Millisecond, newRecordingRunner())

	if s.QueuedTaskCount() != 0 {
		t.Errorf("Shutdown failed: accepted new task (count: %d)", s.QueuedTaskCount())
	}
	if got := handler.count.Load(); got != 2 {
		t.Errorf("Expected 2 rejections, got %d", got)
	}
	if reason, _ := handler.reason.Load().(string); reason != "shutting down" {
		t.Errorf("Expected reason %q, got %q", "shutting down", reason)
	}
}

// TestTaskScheduler_DelayedTask tests delayed task execution
// Main test items:
// 1. Delayed work item is posted to the target after the delay
// 2. DelayedTaskCount is updated correctly
func TestTaskScheduler_DelayedTask(t *testing.T) {
	s := NewTaskScheduler("test", 1)
	defer s.Shutdown()

	target := newRecordingRunner()
	delay := 50 * time.Millisecond

	s.PostDelayedInternal(func(ctx context.Context) {}, delay, target)

	if s.DelayedTaskCount() != 1 {
		t.Errorf("Expected DelayedTaskCount 1, got %d", s.DelayedTaskCount())
	}
	if target.Len() != 0 {
		t.Fatal("Delayed task posted too early")
	}

	select {
	case <-target.posts:
	case <-time.After(time.Second):
		t.Fatal("Delayed task was not posted to the target")
	}

	if s.DelayedTaskCount() != 0 {
		t.Errorf("Expected DelayedTaskCount 0, got %d", s.DelayedTaskCount())
	}
}

// =============================================================================
// Graceful Shutdown Tests
// =============================================================================

// TestTaskScheduler_ShutdownGraceful_EmptyQueue tests graceful shutdown with no pending tasks
// Main test items:
// 1. ShutdownGraceful completes immediately when queue is empty
// 2. New tasks are rejected after graceful shutdown
func TestTaskScheduler_ShutdownGraceful_EmptyQueue(t *testing.T) {
	s := NewTaskScheduler("test", 2)

	if err := s.ShutdownGraceful(1 * time.Second); err != nil {
		t.Fatalf("ShutdownGraceful failed: %v", err)
	}

	s.PostInternal(func(ctx context.Context) {})
	if s.QueuedTaskCount() != 0 {
		t.Error("ShutdownGraceful should reject new tasks")
	}
}

// TestTaskScheduler_ShutdownGraceful_WithActiveTasks tests graceful shutdown with active tasks
// Main test items:
// 1. ShutdownGraceful waits for active tasks to complete
// 2. Returns nil when all active tasks finish
func TestTaskScheduler_ShutdownGraceful_WithActiveTasks(t *testing.T) {
	s := NewTaskScheduler("test", 2)

	for i := 0; i < 3; i++ {
		s.OnTaskStart()
	}

	go func() {
		for i := 0; i < 3; i++ {
			time.Sleep(20 * time.Millisecond)
			s.OnTaskEnd()
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.ShutdownGraceful(1 * time.Second)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("ShutdownGraceful failed: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Error("ShutdownGraceful timed out")
	}

	if s.ActiveTaskCount() != 0 {
		t.Errorf("Expected 0 active tasks after shutdown, got %d", s.ActiveTaskCount())
	}
}

// TestTaskScheduler_ShutdownGraceful_Timeout tests graceful shutdown timeout behavior
// Main test items:
// 1. ShutdownGraceful returns error when timeout occurs
// 2. Queue is cleared even when timeout happens
func TestTaskScheduler_ShutdownGraceful_Timeout(t *testing.T) {
	s := NewTaskScheduler("test", 1)
	s.PostInternal(func(ctx context.Context) {})
	s.OnTaskStart()

	err := s.ShutdownGraceful(50 * time.Millisecond)
	if err == nil {
		t.Error("Expected timeout error, got nil")
	}

	if s.QueuedTaskCount() != 0 {
		t.Errorf("Expected queue to be cleared after timeout, got %d", s.QueuedTaskCount())
	}
}
