package core

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// manualTimer records armed callbacks; the test fires them.
type manualTimer struct {
	mu    sync.Mutex
	armed []time.Duration
	fns   []func()
}

func (m *manualTimer) AfterFunc(d time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.armed = append(m.armed, d)
	m.fns = append(m.fns, fn)
}

func (m *manualTimer) Armed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fns)
}

func (m *manualTimer) FireAll() {
	m.mu.Lock()
	fns := m.fns
	m.fns = nil
	m.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// TestDelayFuture_PendingUntilFired verifies the timer-driven transition
// Main test items:
// 1. Poll before the deadline is Pending and arms the timer once
// 2. Repeated Pending polls do not arm again
// 3. Firing invokes the most recent waker exactly once
// 4. Poll after firing is Ready
func TestDelayFuture_PendingUntilFired(t *testing.T) {
	timer := &manualTimer{}
	f := NewDelayFuture(time.Hour, timer)

	var first, second atomic.Int32
	if res := f.Poll(NewPollContext(WakerFunc(func() { first.Add(1) }))); res.IsReady() {
		t.Fatal("Poll() before deadline = Ready, want Pending")
	}
	if res := f.Poll(NewPollContext(WakerFunc(func() { second.Add(1) }))); res.IsReady() {
		t.Fatal("second Poll() before deadline = Ready, want Pending")
	}
	if timer.Armed() != 1 {
		t.Fatalf("timer armed %d times, want 1", timer.Armed())
	}
	if f.Done() {
		t.Fatal("Done() before fire = true")
	}

	timer.FireAll()

	if first.Load() != 0 || second.Load() != 1 {
		t.Errorf("wakes first=%d second=%d, want 0 and 1", first.Load(), second.Load())
	}
	if !f.Done() {
		t.Error("Done() after fire = false")
	}
	if res := f.Poll(NewPollContext(WakerFunc(func() {}))); !res.IsReady() {
		t.Error("Poll() after fire = Pending, want Ready")
	}
}

// TestDelayFuture_ElapsedDeadline verifies a past deadline is Ready without a timer
func TestDelayFuture_ElapsedDeadline(t *testing.T) {
	timer := &manualTimer{}
	f := NewDelayFuture(0, timer)

	if res := f.Poll(NewPollContext(WakerFunc(func() {}))); !res.IsReady() {
		t.Fatal("Poll() with zero delay = Pending, want Ready")
	}
	if timer.Armed() != 0 {
		t.Errorf("timer armed %d times, want 0", timer.Armed())
	}
}

// TestDelayFuture_SystemTimer verifies the default timer wakes after the delay
func TestDelayFuture_SystemTimer(t *testing.T) {
	delay := 30 * time.Millisecond
	start := time.Now()
	f := NewDelayFuture(delay, nil)

	woke := make(chan struct{}, 1)
	if res := f.Poll(NewPollContext(WakerFunc(func() { woke <- struct{}{} }))); res.IsReady() {
		t.Fatal("Poll() before deadline = Ready, want Pending")
	}

	select {
	case <-woke:
	case <-time.After(time.Second):
		t.Fatal("waker not invoked")
	}

	if elapsed := time.Since(start); elapsed < delay {
		t.Errorf("woke after %v, want at least %v", elapsed, delay)
	}
	if res := f.Poll(NewPollContext(WakerFunc(func() {}))); !res.IsReady() {
		t.Error("Poll() after wake = Pending, want Ready")
	}
	if f.Deadline().Before(start.Add(delay)) {
		t.Errorf("Deadline() = %v, want at least %v", f.Deadline(), start.Add(delay))
	}
}

// TestQueueTimer verifies the callback is submitted to the configured queue
func TestQueueTimer(t *testing.T) {
	queues := newManualQueues()
	timer := QueueTimer{Queues: queues, Queue: QueueWorker}

	var fired atomic.Bool
	timer.AfterFunc(10*time.Millisecond, func() { fired.Store(true) })

	select {
	case <-queues.worker.posts:
	case <-time.After(time.Second):
		t.Fatal("QueueTimer did not submit to the worker queue")
	}
	if queues.primary.Len() != 0 {
		t.Error("QueueTimer submitted to the primary queue")
	}

	queues.worker.RunAll(context.Background())
	if !fired.Load() {
		t.Error("callback did not run")
	}
}
