package asyncrunner

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// TestRuntime_Wiring verifies the bundle is connected
// Main test items:
// 1. Names derive from the runtime name
// 2. Worker count is applied, with a floor of one
func TestRuntime_Wiring(t *testing.T) {
	rt := NewRuntimeWithConfig(RuntimeConfig{Name: "app", Workers: 3})
	defer rt.Stop()

	if rt.MainLoop.Name() != "app-main" {
		t.Errorf("MainLoop.Name() = %q, want app-main", rt.MainLoop.Name())
	}
	if rt.Pool.ID() != "app-pool" || rt.Pool.WorkerCount() != 3 {
		t.Errorf("pool = %s/%d, want app-pool/3", rt.Pool.ID(), rt.Pool.WorkerCount())
	}
	if rt.Executor.Name() != "app-executor" {
		t.Errorf("Executor.Name() = %q, want app-executor", rt.Executor.Name())
	}

	small := NewRuntime(0)
	defer small.Stop()
	if small.Pool.WorkerCount() != 1 {
		t.Errorf("WorkerCount() = %d, want 1", small.Pool.WorkerCount())
	}
}

// TestRuntime_PrimaryDelayScenario runs a primary task awaiting a one second
// delay and then printing
// Main test items:
// 1. Run blocks at least one second
// 2. The continuation runs before Run returns
// 3. Pending is zero when Run returns
func TestRuntime_PrimaryDelayScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("one second scenario")
	}

	rt := NewRuntime(2)
	rt.Start(context.Background())
	defer rt.Stop()

	var printed atomic.Bool

	start := time.Now()
	rt.SubmitToPrimary(Sequence(rt.Delay(time.Second), Lazy(func() any {
		printed.Store(true)
		return nil
	})))

	if err := rt.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	if elapsed := time.Since(start); elapsed < time.Second {
		t.Errorf("Run() returned after %v, want at least 1s", elapsed)
	}
	if !printed.Load() {
		t.Error("continuation did not run")
	}
	if rt.Executor.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", rt.Executor.Pending())
	}
}

// TestRuntime_MixedScenario submits work to both queues the way an
// application would
// Main test items:
// 1. All tasks complete before Run returns
// 2. Completions follow deadlines across both queues
// 3. Stats and history reflect every task
func TestRuntime_MixedScenario(t *testing.T) {
	rt := NewRuntime(4)
	rt.Start(context.Background())
	defer rt.Stop()

	var mu sync.Mutex
	var events []string
	record := func(name string) Future {
		return Lazy(func() any {
			mu.Lock()
			events = append(events, name)
			mu.Unlock()
			return nil
		})
	}

	rt.SubmitToWorker(Sequence(rt.Delay(200*time.Millisecond), record("worker-200ms")))
	rt.SubmitToWorker(Sequence(rt.Delay(100*time.Millisecond), record("worker-100ms")))
	rt.SubmitToPrimary(Sequence(rt.Delay(150*time.Millisecond), record("primary-150ms")))

	if err := rt.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"worker-100ms", "primary-150ms", "worker-200ms"}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("events = %v, want %v", events, want)
			break
		}
	}

	stats := rt.Executor.Stats()
	if stats.Submitted != 3 || stats.Completed != 3 || stats.Pending != 0 {
		t.Errorf("Stats() = %+v", stats)
	}
	if recent := rt.Executor.RecentTasks(1); len(recent) != 1 || recent[0].Queue != QueueWorker {
		t.Errorf("last completed task = %+v, want the 200ms worker task", recent)
	}
}

// TestRuntime_StopRejectsWork verifies queues refuse work after Stop
func TestRuntime_StopRejectsWork(t *testing.T) {
	rt := NewRuntime(1)
	rt.Start(context.Background())
	rt.Stop()

	if !rt.MainLoop.IsClosed() || rt.Pool.IsRunning() {
		t.Fatal("Stop did not close the main loop and the pool")
	}

	rt.Queues.SubmitNow(QueuePrimary, func(ctx context.Context) { t.Error("primary work ran after Stop") })
	rt.Queues.SubmitNow(QueueWorker, func(ctx context.Context) { t.Error("worker work ran after Stop") })

	if n := rt.MainLoop.RunOneIteration(context.Background(), time.Now().Add(20*time.Millisecond)); n != 0 {
		t.Errorf("RunOneIteration after Stop = %d, want 0", n)
	}
	if rejected := rt.MainLoop.Stats().Rejected; rejected != 1 {
		t.Errorf("MainLoop rejected %d items, want 1", rejected)
	}
}
