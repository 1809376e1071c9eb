package asyncrunner

import "github.com/Swind/go-async-runner/core"

// Re-export commonly used types from core package for convenience.
// This allows users to import only the asyncrunner package for most use cases.

// Future is a unit of asynchronous work polled to completion
type Future = core.Future

// FutureFunc adapts a poll function to Future
type FutureFunc = core.FutureFunc

// PollResult is the outcome of one poll
type PollResult = core.PollResult

// PollContext is what a Future sees while it is polled
type PollContext = core.PollContext

// Waker reschedules the task that owns it
type Waker = core.Waker

// Executor drives Futures on the primary and worker queues
type Executor = core.Executor

// ExecutorConfig configures an Executor
type ExecutorConfig = core.ExecutorConfig

// DelayFuture completes once its deadline has passed
type DelayFuture = core.DelayFuture

// TaskID identifies a submitted task
type TaskID = core.TaskID

// WorkItem is a closure run by a queue
type WorkItem = core.WorkItem

// QueueID selects the primary or worker queue
type QueueID = core.QueueID

// MainLoop is the primary queue
type MainLoop = core.MainLoop

// ThreadPool is re-exported for type compatibility
type ThreadPool = core.ThreadPool

// Queue constants
const (
	QueuePrimary QueueID = core.QueuePrimary
	QueueWorker  QueueID = core.QueueWorker
)

// Poll result constructors and combinators
var (
	Ready    = core.Ready
	Pending  = core.Pending
	Lazy     = core.Lazy
	Sequence = core.Sequence
	Named    = core.Named
)

// CurrentQueue reports which queue runs the work item owning ctx
var CurrentQueue = core.CurrentQueue
