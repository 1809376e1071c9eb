package core

import (
	"sync"
	"sync/atomic"
	"time"
)

// Task binds one Future to the executor that drives it and to the queue it
// is rescheduled on when woken. A Task is its own Waker.
type Task struct {
	id          TaskID
	name        string
	queue       QueueID
	exec        *Executor
	submittedAt time.Time

	// mu serializes poll steps; future is nil once the task completed
	mu     sync.Mutex
	future Future
	polls  int

	completed atomic.Bool
}

var _ Waker = (*Task)(nil)

func (t *Task) ID() TaskID { return t.id }

func (t *Task) Name() string { return t.name }

// Queue returns the queue the task is rescheduled on. It never changes.
func (t *Task) Queue() QueueID { return t.queue }

// Completed reports whether the task's Future has returned Ready.
func (t *Task) Completed() bool { return t.completed.Load() }

// Wake submits one poll step of this task to its queue.
//
// Safe from any goroutine, any number of times, including from inside the
// task's own poll. Wakes are not coalesced: each one costs a poll attempt,
// which is a no-op once the task has completed.
func (t *Task) Wake() {
	t.exec.wake(t)
}
