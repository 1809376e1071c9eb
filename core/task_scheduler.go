package core

import (
	"fmt"
	"sync/atomic"
	"time"
)

// TaskScheduler is the work source behind the worker pool: a FIFO ready
// queue, a delay manager, and the counters the pool exports.
type TaskScheduler struct {
	name        string
	queue       TaskQueue
	signal      chan struct{}
	workerCount int

	delayManager *DelayManager

	metricQueued int32 // Waiting in ReadyQueue
	metricActive int32 // Executing in Worker

	// Handlers and Metrics
	panicHandler        PanicHandler
	metrics             Metrics
	rejectedTaskHandler RejectedTaskHandler
	logger              Logger

	// Lifecycle
	shuttingDown int32 // atomic flag
}

func NewTaskScheduler(name string, workerCount int) *TaskScheduler {
	return NewTaskSchedulerWithConfig(name, workerCount, DefaultTaskSchedulerConfig())
}

func NewTaskSchedulerWithConfig(name string, workerCount int, config *TaskSchedulerConfig) *TaskScheduler {
	cfg := config.withDefaults()
	return &TaskScheduler{
		name:                name,
		queue:               NewFIFOTaskQueue(),
		signal:              make(chan struct{}, max(workerCount*2, 1)),
		workerCount:         workerCount,
		delayManager:        NewDelayManager(),
		panicHandler:        cfg.PanicHandler,
		metrics:             cfg.Metrics,
		rejectedTaskHandler: cfg.RejectedTaskHandler,
		logger:              cfg.Logger,
	}
}

// PostInternal enqueues task for the next free worker.
func (s *TaskScheduler) PostInternal(task WorkItem) {
	if atomic.LoadInt32(&s.shuttingDown) == 1 {
		s.reject("shutting down")
		return
	}

	s.queue.Push(task)
	queued := atomic.AddInt32(&s.metricQueued, 1) // Metric++
	s.metrics.RecordQueueDepth(s.name, int(queued))

	select {
	case s.signal <- struct{}{}:
	default:
		// Signal channel full, but task is already queued
	}
}

// PostDelayedInternal hands task to the delay manager, which posts it to
// target once delay has elapsed.
func (s *TaskScheduler) PostDelayedInternal(task WorkItem, delay time.Duration, target TaskRunner) {
	if atomic.LoadInt32(&s.shuttingDown) == 1 {
		s.reject("shutting down")
		return
	}
	s.delayManager.AddDelayedTask(task, delay, target)
}

func (s *TaskScheduler) reject(reason string) {
	s.logger.Warn("work item rejected", F("runner", s.name), F("reason", reason))
	s.rejectedTaskHandler.HandleRejectedTask(s.name, reason)
	s.metrics.RecordTaskRejected(s.name, reason)
}

// GetWork (Called by Worker)
func (s *TaskScheduler) GetWork(stopCh <-chan struct{}) (WorkItem, bool) {
	for {
		if item, ok := s.queue.Pop(); ok {
			atomic.AddInt32(&s.metricQueued, -1) // Metric-- (Left Queue)
			return item.Task, true
		}

		select {
		case <-s.signal:
			continue
		case <-stopCh:
			return nil, false
		}
	}
}

func (s *TaskScheduler) Shutdown() {
	// 1. Mark as shutting down to stop accepting new tasks
	atomic.StoreInt32(&s.shuttingDown, 1)

	// 2. Stop DelayManager (no more new tasks generated)
	s.delayManager.Stop()

	// 3. Clear queue to release all task references
	s.queue.Clear()
	atomic.StoreInt32(&s.metricQueued, 0)
}

// ShutdownGraceful waits for all queued and active tasks to complete
// Returns error if timeout is exceeded before tasks complete
func (s *TaskScheduler) ShutdownGraceful(timeout time.Duration) error {
	atomic.StoreInt32(&s.shuttingDown, 1)
	s.delayManager.Stop()

	deadline := time.After(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			s.queue.Clear()
			atomic.StoreInt32(&s.metricQueued, 0)
			return fmt.Errorf("shutdown graceful timeout after %v, forced clearing", timeout)
		case <-ticker.C:
			if s.QueuedTaskCount() == 0 && s.ActiveTaskCount() == 0 {
				return nil
			}
		}
	}
}

// Metrics
func (s *TaskScheduler) WorkerCount() int     { return s.workerCount }
func (s *TaskScheduler) QueuedTaskCount() int { return int(atomic.LoadInt32(&s.metricQueued)) }
func (s *TaskScheduler) ActiveTaskCount() int { return int(atomic.LoadInt32(&s.metricActive)) }
func (s *TaskScheduler) DelayedTaskCount() int {
	return s.delayManager.TaskCount()
}

func (s *TaskScheduler) OnTaskStart() {
	atomic.AddInt32(&s.metricActive, 1)
}

func (s *TaskScheduler) OnTaskEnd() {
	atomic.AddInt32(&s.metricActive, -1)
}

// GetPanicHandler returns the panic handler for this scheduler
func (s *TaskScheduler) GetPanicHandler() PanicHandler {
	return s.panicHandler
}

// GetMetrics returns the metrics collector for this scheduler
func (s *TaskScheduler) GetMetrics() Metrics {
	return s.metrics
}

// GetLogger returns the logger for this scheduler
func (s *TaskScheduler) GetLogger() Logger {
	return s.logger
}

func (s *TaskScheduler) Name() string { return s.name }
