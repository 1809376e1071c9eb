package core

import (
	"context"
	"fmt"
	"time"
)

// =============================================================================
// TaskRunner / ThreadPool: The queues work items are posted to
// =============================================================================

// TaskRunner accepts work items for asynchronous execution.
type TaskRunner interface {
	PostTask(task WorkItem)
	PostDelayedTask(task WorkItem, delay time.Duration)
}

// ThreadPool is a TaskRunner backed by a set of worker goroutines.
type ThreadPool interface {
	TaskRunner

	Start(ctx context.Context)
	Stop()

	ID() string
	IsRunning() bool

	WorkerCount() int
	QueuedTaskCount() int  // In queue
	ActiveTaskCount() int  // Executing
	DelayedTaskCount() int // Delayed
}

// =============================================================================
// PanicHandler: Interface for handling work item panics
// =============================================================================

// PanicHandler is called when a work item panics on a queue.
// The executor never recovers panics raised by Future.Poll; the queue that
// ran the poll reports them here.
//
// Implementations should be thread-safe as they may be called concurrently.
type PanicHandler interface {
	// HandlePanic is called when a work item panics.
	//
	// Parameters:
	// - ctx: The context of the panicked work item
	// - runnerName: The name of the queue where the panic occurred
	// - workerID: The ID of the worker (-1 for the main loop)
	// - panicInfo: The panic value recovered from the work item
	// - stackTrace: The stack trace at the time of panic
	HandlePanic(ctx context.Context, runnerName string, workerID int, panicInfo any, stackTrace []byte)
}

// DefaultPanicHandler provides a basic panic handler that logs to stdout.
type DefaultPanicHandler struct{}

// HandlePanic prints panic information to stdout.
func (h *DefaultPanicHandler) HandlePanic(ctx context.Context, runnerName string, workerID int, panicInfo any, stackTrace []byte) {
	if workerID >= 0 {
		fmt.Printf("[Worker %d @ %s] Panic: %v\nStack trace:\n%s",
			workerID, runnerName, panicInfo, stackTrace)
	} else {
		fmt.Printf("[Runner %s] Panic: %v\nStack trace:\n%s",
			runnerName, panicInfo, stackTrace)
	}
}

// =============================================================================
// Metrics: Interface for observability and monitoring
// =============================================================================

// Metrics defines the interface for collecting executor and queue metrics.
// Implementations can send metrics to monitoring systems (Prometheus, StatsD, etc.).
//
// Methods should be non-blocking and fast; they are called on the poll path.
type Metrics interface {
	// RecordTaskSubmitted records a new task entering the executor.
	RecordTaskSubmitted(queue QueueID)

	// RecordTaskCompleted records a task whose Future reported Ready.
	// lifetime is measured from submission.
	RecordTaskCompleted(queue QueueID, lifetime time.Duration)

	// RecordPoll records one poll step that actually polled a Future.
	RecordPoll(queue QueueID, ready bool, duration time.Duration)

	// RecordWake records a waker invocation.
	RecordWake(queue QueueID)

	// RecordPending records the executor's pending task count.
	RecordPending(pending int)

	// RecordTaskPanic records that a work item panicked on a queue.
	RecordTaskPanic(runnerName string, panicInfo any)

	// RecordQueueDepth records the current queue depth.
	RecordQueueDepth(runnerName string, depth int)

	// RecordTaskRejected records that a work item was rejected (e.g., during shutdown).
	RecordTaskRejected(runnerName string, reason string)
}

// NilMetrics provides a no-op metrics implementation that does nothing.
// This is the default when no metrics interface is provided.
type NilMetrics struct{}

func (m *NilMetrics) RecordTaskSubmitted(queue QueueID)                         {}
func (m *NilMetrics) RecordTaskCompleted(queue QueueID, lifetime time.Duration) {}
func (m *NilMetrics) RecordPoll(queue QueueID, ready bool, duration time.Duration) {
}
func (m *NilMetrics) RecordWake(queue QueueID)                            {}
func (m *NilMetrics) RecordPending(pending int)                           {}
func (m *NilMetrics) RecordTaskPanic(runnerName string, panicInfo any)    {}
func (m *NilMetrics) RecordQueueDepth(runnerName string, depth int)       {}
func (m *NilMetrics) RecordTaskRejected(runnerName string, reason string) {}

// =============================================================================
// RejectedTaskHandler: Interface for handling rejected work items
// =============================================================================

// RejectedTaskHandler is called when a queue rejects a work item.
// This happens when the main loop is closed or the pool is shutting down.
//
// Implementations should be thread-safe as they may be called concurrently.
type RejectedTaskHandler interface {
	HandleRejectedTask(runnerName string, reason string)
}

// DefaultRejectedTaskHandler provides a basic handler that logs rejected tasks.
type DefaultRejectedTaskHandler struct{}

// HandleRejectedTask logs the rejected task.
func (h *DefaultRejectedTaskHandler) HandleRejectedTask(runnerName string, reason string) {
	fmt.Printf("[Runner %s] Task rejected: %s\n", runnerName, reason)
}

// =============================================================================
// TaskSchedulerConfig: Configuration for the worker pool scheduler and main loop
// =============================================================================

// TaskSchedulerConfig holds configuration options for TaskScheduler and MainLoop.
// All handlers are optional; if not provided, default implementations will be used.
type TaskSchedulerConfig struct {
	// PanicHandler is called when a work item panics. Defaults to DefaultPanicHandler.
	PanicHandler PanicHandler

	// Metrics is called to record queue metrics. Defaults to NilMetrics.
	Metrics Metrics

	// RejectedTaskHandler is called when a work item is rejected. Defaults to DefaultRejectedTaskHandler.
	RejectedTaskHandler RejectedTaskHandler

	// Logger receives queue lifecycle events. Defaults to NoOpLogger.
	Logger Logger
}

// DefaultTaskSchedulerConfig returns a config with default handlers.
func DefaultTaskSchedulerConfig() *TaskSchedulerConfig {
	return &TaskSchedulerConfig{
		PanicHandler:        &DefaultPanicHandler{},
		Metrics:             &NilMetrics{},
		RejectedTaskHandler: &DefaultRejectedTaskHandler{},
		Logger:              NewNoOpLogger(),
	}
}

func (c *TaskSchedulerConfig) withDefaults() TaskSchedulerConfig {
	var out TaskSchedulerConfig
	if c != nil {
		out = *c
	}
	if out.PanicHandler == nil {
		out.PanicHandler = &DefaultPanicHandler{}
	}
	if out.Metrics == nil {
		out.Metrics = &NilMetrics{}
	}
	if out.RejectedTaskHandler == nil {
		out.RejectedTaskHandler = &DefaultRejectedTaskHandler{}
	}
	if out.Logger == nil {
		out.Logger = NewNoOpLogger()
	}
	return out
}

// =============================================================================
// ExecutorConfig: Configuration for Executor
// =============================================================================

const (
	defaultIterationTimeout = 100 * time.Millisecond
)

// ExecutorConfig holds configuration options for Executor.
type ExecutorConfig struct {
	// Name identifies the executor in logs and snapshots.
	Name string

	// Logger receives task lifecycle events. Defaults to NoOpLogger.
	Logger Logger

	// Metrics records executor metrics. Defaults to NilMetrics.
	Metrics Metrics

	// Timer arms DelayFutures created by Executor.Delay.
	// Defaults to a QueueTimer on the worker queue.
	Timer Timer

	// IterationTimeout bounds a single RunOneIteration call made by Run.
	IterationTimeout time.Duration

	// WaitForQueuedWork makes Run also wait until the queue service reports no
	// outstanding work items. Without it Run returns as soon as the pending
	// task count is zero, and untracked queue work may never run.
	WaitForQueuedWork bool

	// HistoryCapacity is the number of completed tasks kept for RecentTasks.
	HistoryCapacity int
}

// DefaultExecutorConfig returns a config with default settings.
func DefaultExecutorConfig() *ExecutorConfig {
	return &ExecutorConfig{
		Logger:           NewNoOpLogger(),
		Metrics:          &NilMetrics{},
		IterationTimeout: defaultIterationTimeout,
		HistoryCapacity:  defaultTaskHistoryCapacity,
	}
}
