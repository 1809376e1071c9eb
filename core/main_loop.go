package core

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// MainLoop is the primary queue: work items run in submission order on
// whichever goroutine drives RunOneIteration, and never overlap.
//
// MainLoop owns no goroutine. The run loop driver (Executor.Run) calls
// RunOneIteration repeatedly, which makes the driving goroutine the loop's
// "main thread".
//
// Use cases:
// 1. State that must only be touched from one goroutine
// 2. Ordering-sensitive continuations
// 3. Simulating Main Thread / UI Thread behavior
type MainLoop struct {
	queue  *FIFOTaskQueue
	signal chan struct{}

	closed  atomic.Bool
	driving atomic.Int32 // concurrency assertion

	processed  atomic.Int64
	rejected   atomic.Int64
	iterations atomic.Int64

	panicHandler        PanicHandler
	metrics             Metrics
	rejectedTaskHandler RejectedTaskHandler
	logger              Logger

	name string
	mu   sync.Mutex

	timersMu sync.Mutex
	timers   map[*time.Timer]struct{}
}

// NewMainLoop creates a MainLoop with default handlers.
func NewMainLoop(name string) *MainLoop {
	return NewMainLoopWithConfig(name, DefaultTaskSchedulerConfig())
}

// NewMainLoopWithConfig creates a MainLoop using the handlers in config.
func NewMainLoopWithConfig(name string, config *TaskSchedulerConfig) *MainLoop {
	cfg := config.withDefaults()
	if name == "" {
		name = "main-loop"
	}
	return &MainLoop{
		queue:               NewFIFOTaskQueue(),
		signal:              make(chan struct{}, 1),
		panicHandler:        cfg.PanicHandler,
		metrics:             cfg.Metrics,
		rejectedTaskHandler: cfg.RejectedTaskHandler,
		logger:              cfg.Logger,
		name:                name,
		timers:              make(map[*time.Timer]struct{}),
	}
}

// Name returns the name of the main loop
func (r *MainLoop) Name() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.name
}

// SetName sets the name of the main loop
func (r *MainLoop) SetName(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.name = name
}

// PostTask queues task for the next iteration. Safe from any goroutine.
func (r *MainLoop) PostTask(task WorkItem) {
	if r.closed.Load() {
		r.reject("closed")
		return
	}

	r.queue.Push(task)
	r.metrics.RecordQueueDepth(r.Name(), r.queue.Len())

	select {
	case r.signal <- struct{}{}:
	default:
	}
}

// PostDelayedTask queues task once delay has elapsed.
// Uses time.AfterFunc, so main loop timers do not depend on the worker pool.
// Timers still armed when the loop is closed are stopped.
func (r *MainLoop) PostDelayedTask(task WorkItem, delay time.Duration) {
	if r.closed.Load() {
		r.reject("closed")
		return
	}

	r.timersMu.Lock()
	defer r.timersMu.Unlock()
	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		r.timersMu.Lock()
		delete(r.timers, t)
		r.timersMu.Unlock()
		r.PostTask(task)
	})
	r.timers[t] = struct{}{}
}

// DelayedTaskCount returns the number of delayed posts not yet queued.
func (r *MainLoop) DelayedTaskCount() int {
	r.timersMu.Lock()
	defer r.timersMu.Unlock()
	return len(r.timers)
}

func (r *MainLoop) reject(reason string) {
	name := r.Name()
	r.rejected.Add(1)
	r.logger.Warn("work item rejected", F("runner", name), F("reason", reason))
	r.rejectedTaskHandler.HandleRejectedTask(name, reason)
	r.metrics.RecordTaskRejected(name, reason)
}

// RunOneIteration runs the batch of work queued when it is called. If the
// queue is empty it first waits for a post, the deadline, or ctx, whichever
// comes first. It returns the number of work items run.
//
// Items posted while the batch runs are left for the next iteration. Calling
// RunOneIteration from two goroutines at once panics.
func (r *MainLoop) RunOneIteration(ctx context.Context, deadline time.Time) int {
	if n := r.driving.Add(1); n > 1 {
		r.driving.Add(-1)
		panic(fmt.Sprintf("MainLoop: concurrent RunOneIteration detected (count=%d)", n))
	}
	defer r.driving.Add(-1)

	r.iterations.Add(1)

	batch := r.queue.PopUpTo(r.queue.Len())
	if len(batch) == 0 {
		if !r.wait(ctx, deadline) {
			return 0
		}
		batch = r.queue.PopUpTo(r.queue.Len())
	}

	runCtx := WithQueue(ctx, QueuePrimary)
	for _, item := range batch {
		r.runItem(runCtx, item.Task)
	}
	return len(batch)
}

// RunUntilIdle runs iterations without blocking until the queue is empty or
// ctx is done. It returns the total number of work items run.
func (r *MainLoop) RunUntilIdle(ctx context.Context) int {
	total := 0
	for ctx.Err() == nil && !r.queue.IsEmpty() {
		total += r.RunOneIteration(ctx, time.Time{})
	}
	return total
}

// wait blocks until something is posted, deadline passes or ctx is done.
// It reports whether a post was observed.
func (r *MainLoop) wait(ctx context.Context, deadline time.Time) bool {
	d := time.Until(deadline)
	if d <= 0 {
		return false
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-r.signal:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

func (r *MainLoop) runItem(ctx context.Context, task WorkItem) {
	defer func() {
		r.processed.Add(1)
		if rec := recover(); rec != nil {
			name := r.Name()
			stack := debug.Stack()
			r.logger.Error("work item panicked", F("runner", name), F("panic", rec))
			r.panicHandler.HandlePanic(ctx, name, -1, rec, stack)
			r.metrics.RecordTaskPanic(name, rec)
		}
	}()
	task(ctx)
}

// Close rejects further posts and drops queued work.
func (r *MainLoop) Close() {
	if r.closed.Swap(true) {
		return
	}
	r.queue.Clear()

	r.timersMu.Lock()
	for t := range r.timers {
		t.Stop()
	}
	clear(r.timers)
	r.timersMu.Unlock()

	select {
	case r.signal <- struct{}{}:
	default:
	}
}

// IsClosed returns true once Close has been called
func (r *MainLoop) IsClosed() bool {
	return r.closed.Load()
}

// Len returns the number of queued work items.
func (r *MainLoop) Len() int {
	return r.queue.Len()
}

// Stats returns current observability data for this main loop.
func (r *MainLoop) Stats() MainLoopStats {
	return MainLoopStats{
		Name:       r.Name(),
		Queued:     r.queue.Len(),
		Processed:  r.processed.Load(),
		Rejected:   r.rejected.Load(),
		Iterations: r.iterations.Load(),
		Delayed:    r.DelayedTaskCount(),
		Closed:     r.closed.Load(),
	}
}
