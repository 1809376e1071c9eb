package core

import (
	"context"
	"sync/atomic"
	"time"
)

// QueueService is the queue abstraction the executor consumes.
// Both methods are fire-and-forget.
type QueueService interface {
	// SubmitNow enqueues item for asynchronous execution on queue q.
	SubmitNow(q QueueID, item WorkItem)

	// SubmitAfter enqueues item on queue q no earlier than d from now.
	SubmitAfter(q QueueID, d time.Duration, item WorkItem)
}

// WorkTracker is implemented by queue services that can report how many
// submitted work items have not finished yet.
type WorkTracker interface {
	Outstanding() int
}

// Queues dispatches to a primary TaskRunner and a worker TaskRunner and
// counts outstanding work items across both.
type Queues struct {
	primary TaskRunner
	worker  TaskRunner

	outstanding atomic.Int64
}

var (
	_ QueueService = (*Queues)(nil)
	_ WorkTracker  = (*Queues)(nil)
)

// NewQueues panics if either runner is nil.
func NewQueues(primary, worker TaskRunner) *Queues {
	if primary == nil {
		panic("Queues: primary runner must not be nil")
	}
	if worker == nil {
		panic("Queues: worker runner must not be nil")
	}
	return &Queues{primary: primary, worker: worker}
}

func (q *Queues) SubmitNow(id QueueID, item WorkItem) {
	q.runner(id).PostTask(q.track(id, item))
}

func (q *Queues) SubmitAfter(id QueueID, d time.Duration, item WorkItem) {
	q.runner(id).PostDelayedTask(q.track(id, item), d)
}

// Outstanding returns the number of submitted items that have not finished.
// Items dropped by a closed runner stay counted.
func (q *Queues) Outstanding() int {
	return int(q.outstanding.Load())
}

func (q *Queues) runner(id QueueID) TaskRunner {
	if id == QueuePrimary {
		return q.primary
	}
	return q.worker
}

func (q *Queues) track(id QueueID, item WorkItem) WorkItem {
	q.outstanding.Add(1)
	return func(ctx context.Context) {
		defer q.outstanding.Add(-1)
		if _, ok := CurrentQueue(ctx); !ok {
			ctx = WithQueue(ctx, id)
		}
		item(ctx)
	}
}
