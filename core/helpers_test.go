package core

import (
	"context"
	"sync"
	"time"
)

// recordingRunner is a TaskRunner that keeps posted work items for the test
// to run by hand.
type recordingRunner struct {
	mu    sync.Mutex
	items []WorkItem
	posts chan struct{}
}

func newRecordingRunner() *recordingRunner {
	return &recordingRunner{posts: make(chan struct{}, 128)}
}

func (r *recordingRunner) PostTask(task WorkItem) {
	r.mu.Lock()
	r.items = append(r.items, task)
	r.mu.Unlock()
	select {
	case r.posts <- struct{}{}:
	default:
	}
}

func (r *recordingRunner) PostDelayedTask(task WorkItem, delay time.Duration) {
	time.AfterFunc(delay, func() { r.PostTask(task) })
}

func (r *recordingRunner) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// RunAll runs queued items, including ones posted while running, until the
// runner is empty. It returns how many ran.
func (r *recordingRunner) RunAll(ctx context.Context) int {
	n := 0
	for {
		r.mu.Lock()
		if len(r.items) == 0 {
			r.mu.Unlock()
			return n
		}
		item := r.items[0]
		r.items = r.items[1:]
		r.mu.Unlock()

		item(ctx)
		n++
	}
}

// manualQueues is a QueueService backed by two recording runners.
type manualQueues struct {
	primary *recordingRunner
	worker  *recordingRunner
}

func newManualQueues() *manualQueues {
	return &manualQueues{primary: newRecordingRunner(), worker: newRecordingRunner()}
}

func (m *manualQueues) runner(q QueueID) *recordingRunner {
	if q == QueuePrimary {
		return m.primary
	}
	return m.worker
}

func (m *manualQueues) SubmitNow(q QueueID, item WorkItem) {
	m.runner(q).PostTask(item)
}

func (m *manualQueues) SubmitAfter(q QueueID, d time.Duration, item WorkItem) {
	m.runner(q).PostDelayedTask(item, d)
}

// countingFuture returns Pending until it has been polled readyAfter times.
type countingFuture struct {
	mu         sync.Mutex
	polls      int
	readyAfter int
	wakeOnPoll bool
}

func (f *countingFuture) Poll(cx *PollContext) PollResult {
	f.mu.Lock()
	f.polls++
	n := f.polls
	f.mu.Unlock()

	if n >= f.readyAfter {
		return Ready(n)
	}
	if f.wakeOnPoll {
		cx.Waker().Wake()
	}
	return Pending()
}

func (f *countingFuture) Polls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.polls
}
