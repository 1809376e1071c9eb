package core

import (
	"context"
	"sync/atomic"
	"time"
)

// Executor drives Futures to completion on two queues.
//
// Tasks submitted with SubmitToPrimary are rescheduled on the primary queue
// (the main loop), tasks submitted with SubmitToWorker on the worker pool.
// The executor owns no goroutines; it only counts tasks that have not
// completed yet, which Run uses to decide when to stop.
//
// The QueueService must run submitted items asynchronously: a poll step holds
// the task's lock, and a waker invoked during the poll submits the next step.
type Executor struct {
	name   string
	queues QueueService
	loop   EventLoop

	pending   atomic.Int64
	submitted atomic.Int64
	completed atomic.Int64
	polls     atomic.Int64
	wakes     atomic.Int64

	logger  Logger
	metrics Metrics
	timer   Timer

	iterationTimeout  time.Duration
	waitForQueuedWork bool

	history *taskHistory
}

// NewExecutor creates an executor with the default configuration.
func NewExecutor(queues QueueService, loop EventLoop) *Executor {
	return NewExecutorWithConfig(queues, loop, DefaultExecutorConfig())
}

// NewExecutorWithConfig creates an executor. queues must not be nil; loop may
// be nil when Run is never called.
func NewExecutorWithConfig(queues QueueService, loop EventLoop, config *ExecutorConfig) *Executor {
	if queues == nil {
		panic("Executor: queues must not be nil")
	}
	if config == nil {
		config = DefaultExecutorConfig()
	}

	e := &Executor{
		name:              config.Name,
		queues:            queues,
		loop:              loop,
		logger:            config.Logger,
		metrics:           config.Metrics,
		timer:             config.Timer,
		iterationTimeout:  config.IterationTimeout,
		waitForQueuedWork: config.WaitForQueuedWork,
		history:           newTaskHistory(config.HistoryCapacity),
	}

	if e.name == "" {
		e.name = "executor"
	}
	if e.logger == nil {
		e.logger = NewNoOpLogger()
	}
	if e.metrics == nil {
		e.metrics = &NilMetrics{}
	}
	if e.timer == nil {
		e.timer = QueueTimer{Queues: queues, Queue: QueueWorker}
	}
	if e.iterationTimeout <= 0 {
		e.iterationTimeout = defaultIterationTimeout
	}
	return e
}

// SubmitToPrimary registers f as a primary-queue task and polls it once,
// inline, before returning.
func (e *Executor) SubmitToPrimary(f Future) TaskID {
	t := e.newTask(f, QueuePrimary)
	e.PollStep(t)
	return t.id
}

// SubmitToWorker registers f as a worker-queue task and dispatches its first
// poll to the worker queue. It never polls on the calling goroutine.
func (e *Executor) SubmitToWorker(f Future) TaskID {
	t := e.newTask(f, QueueWorker)
	e.queues.SubmitNow(QueueWorker, e.pollItem(t))
	return t.id
}

func (e *Executor) newTask(f Future, queue QueueID) *Task {
	if f == nil {
		panic("Executor: future must not be nil")
	}

	t := &Task{
		id:          GenerateTaskID(),
		name:        resolveFutureName(f),
		queue:       queue,
		exec:        e,
		submittedAt: time.Now(),
		future:      f,
	}

	pending := e.pending.Add(1)
	e.submitted.Add(1)
	e.metrics.RecordTaskSubmitted(queue)
	e.metrics.RecordPending(int(pending))
	e.logger.Debug("task submitted",
		F("executor", e.name), F("task", t.id.String()), F("name", t.name),
		F("queue", queue.String()), F("pending", pending))
	return t
}

// PollStep advances t by one poll, if its Future is still there.
//
// The take/poll/put-back sequence holds the task lock, so poll steps of the
// same task never overlap; a concurrent attempt waits and then sees either an
// empty slot (completed, nothing to do) or the Future put back (poll again).
// Panics from Future.Poll are not recovered here: the Future is dropped, the
// task stays pending and the panic reaches whoever called PollStep.
func (e *Executor) PollStep(t *Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	f := t.future
	if f == nil {
		return
	}
	t.future = nil
	t.polls++

	start := time.Now()
	res := f.Poll(&PollContext{waker: t})
	e.polls.Add(1)
	e.metrics.RecordPoll(t.queue, res.IsReady(), time.Since(start))

	if !res.IsReady() {
		t.future = f
		return
	}

	t.completed.Store(true)
	e.complete(t)
}

func (e *Executor) complete(t *Task) {
	remaining := e.pending.Add(-1)
	e.completed.Add(1)

	now := time.Now()
	lifetime := now.Sub(t.submittedAt)
	e.history.Add(TaskRecord{
		TaskID:      t.id,
		Name:        t.name,
		Queue:       t.queue,
		SubmittedAt: t.submittedAt,
		CompletedAt: now,
		Lifetime:    lifetime,
		Polls:       t.polls,
	})
	e.metrics.RecordTaskCompleted(t.queue, lifetime)
	e.metrics.RecordPending(int(remaining))
	e.logger.Debug("task completed",
		F("executor", e.name), F("task", t.id.String()), F("name", t.name),
		F("queue", t.queue.String()), F("polls", t.polls), F("pending", remaining))

	if remaining == 0 {
		// unblock a run loop waiting inside RunOneIteration
		e.queues.SubmitNow(QueuePrimary, func(ctx context.Context) {})
	}
}

func (e *Executor) wake(t *Task) {
	e.wakes.Add(1)
	e.metrics.RecordWake(t.queue)
	e.logger.Debug("woke",
		F("executor", e.name), F("task", t.id.String()), F("queue", t.queue.String()))
	e.queues.SubmitNow(t.queue, e.pollItem(t))
}

func (e *Executor) pollItem(t *Task) WorkItem {
	return func(ctx context.Context) {
		e.PollStep(t)
	}
}

// Delay returns a DelayFuture armed by the executor's timer.
func (e *Executor) Delay(d time.Duration) *DelayFuture {
	return NewDelayFuture(d, e.timer)
}

// Pending returns the number of submitted tasks that have not completed.
func (e *Executor) Pending() int {
	return int(e.pending.Load())
}

func (e *Executor) Name() string { return e.name }

// Stats returns current observability data for this executor.
func (e *Executor) Stats() ExecutorStats {
	stats := ExecutorStats{
		Name:      e.name,
		Pending:   e.Pending(),
		Submitted: e.submitted.Load(),
		Completed: e.completed.Load(),
		Polls:     e.polls.Load(),
		Wakes:     e.wakes.Load(),
	}
	if last, ok := e.history.Last(); ok {
		stats.LastTaskName = last.Name
		stats.LastTaskAt = last.CompletedAt
	}
	return stats
}

// RecentTasks returns completed task records in newest-first order.
func (e *Executor) RecentTasks(limit int) []TaskRecord {
	return e.history.Recent(limit)
}
