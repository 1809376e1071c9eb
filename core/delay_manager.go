package core

import (
	"container/heap"
	"context"
	"sync"
	"time"
)

// DelayedTask is a work item waiting for its RunAt instant.
type DelayedTask struct {
	RunAt  time.Time
	Task   WorkItem
	Target TaskRunner
	seq    uint64 // ties broken in insertion order
	index  int    // for heap interface
}

// DelayedTaskHeap implements heap.Interface
type DelayedTaskHeap []*DelayedTask

func (h DelayedTaskHeap) Len() int           { return len(h) }
func (h DelayedTaskHeap) Less(i, j int) bool {
	if h[i].RunAt.Equal(h[j].RunAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].RunAt.Before(h[j].RunAt)
}
func (h DelayedTaskHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *DelayedTaskHeap) Push(x any) {
	n := len(*h)
	item := x.(*DelayedTask)
	item.index = n
	*h = append(*h, item)
}

func (h *DelayedTaskHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid memory leak
	item.index = -1
	*h = old[0 : n-1]
	return item
}

func (h *DelayedTaskHeap) Peek() *DelayedTask {
	if len(*h) == 0 {
		return nil
	}
	return (*h)[0]
}

// DelayManager owns one goroutine that sleeps until the earliest deadline and
// then hands every expired work item to its target runner.
type DelayManager struct {
	pq      DelayedTaskHeap
	mu      sync.Mutex
	nextSeq uint64
	wakeup  chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewDelayManager() *DelayManager {
	ctx, cancel := context.WithCancel(context.Background())
	dm := &DelayManager{
		pq:     make(DelayedTaskHeap, 0),
		wakeup: make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
	}
	heap.Init(&dm.pq)
	go dm.loop()
	return dm
}

// AddDelayedTask schedules task to be posted to target no earlier than delay from now.
func (dm *DelayManager) AddDelayedTask(task WorkItem, delay time.Duration, target TaskRunner) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	if dm.ctx.Err() != nil {
		return
	}

	item := &DelayedTask{
		RunAt:  time.Now().Add(delay),
		Task:   task,
		Target: target,
		seq:    dm.nextSeq,
	}
	dm.nextSeq++
	heap.Push(&dm.pq, item)

	if item.index == 0 {
		select {
		case dm.wakeup <- struct{}{}:
		default:
		}
	}
}

func (dm *DelayManager) loop() {
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	for {
		// Calculate next run time
		nextRun := dm.calculateNextRun()
		switch {
		case nextRun < 0:
			dm.processExpiredTasks()
			continue
		case nextRun == 0:
			// No tasks, wait indefinitely
			nextRun = 1000 * time.Hour
		}

		timer.Reset(nextRun)

		select {
		case <-dm.ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			// Timer fired, process all expired tasks in one go
			dm.processExpiredTasks()
		case <-dm.wakeup:
			// New task added, need to recalculate
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}
	}
}

// calculateNextRun determines how long to wait until the next task.
// Returns 0 when there are no tasks and a negative value when the head has expired.
func (dm *DelayManager) calculateNextRun() time.Duration {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	item := dm.pq.Peek()
	if item == nil {
		return 0 // No tasks
	}

	now := time.Now()
	if !item.RunAt.After(now) {
		return -1 // Already expired
	}
	return item.RunAt.Sub(now)
}

// processExpiredTasks posts every expired item, in deadline order.
func (dm *DelayManager) processExpiredTasks() {
	dm.mu.Lock()

	now := time.Now()
	// Collect all expired tasks to avoid holding lock while posting
	var expired []*DelayedTask

	for dm.pq.Len() > 0 {
		item := dm.pq.Peek()
		if item.RunAt.After(now) {
			break // No more expired tasks
		}
		// Task has expired
		heap.Pop(&dm.pq)
		expired = append(expired, item)
	}

	dm.mu.Unlock()

	// Post outside the lock; targets may add delayed tasks re-entrantly
	for _, item := range expired {
		item.Target.PostTask(item.Task)
	}
}

func (dm *DelayManager) Stop() {
	dm.cancel()

	// Clear pq to release all TaskRunner references
	dm.mu.Lock()
	dm.pq = make(DelayedTaskHeap, 0)
	heap.Init(&dm.pq)
	dm.mu.Unlock()
}

func (dm *DelayManager) TaskCount() int {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	return len(dm.pq)
}
