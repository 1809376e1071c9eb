package core

import (
	"context"

	"github.com/google/uuid"
)

// WorkItem is the unit of work submitted to a queue (Closure)
type WorkItem func(ctx context.Context)

// =============================================================================
// QueueID: The two execution queues a task can be routed to
// =============================================================================

type QueueID int

const (
	// QueuePrimary: single goroutine, ordering-sensitive.
	// Work runs on the goroutine driving the run loop.
	QueuePrimary QueueID = iota

	// QueueWorker: multi-goroutine pool, no ordering guarantee.
	QueueWorker
)

func (q QueueID) String() string {
	switch q {
	case QueuePrimary:
		return "primary"
	case QueueWorker:
		return "worker"
	default:
		return "unknown"
	}
}

// =============================================================================
// TaskID
// =============================================================================

// TaskID identifies a task for logs, history and metrics.
type TaskID uuid.UUID

// GenerateTaskID returns a new random TaskID.
func GenerateTaskID() TaskID {
	return TaskID(uuid.New())
}

func (id TaskID) String() string {
	return uuid.UUID(id).String()
}

func (id TaskID) IsZero() bool {
	return uuid.UUID(id) == uuid.Nil
}

// =============================================================================
// Context Helper
// =============================================================================
type queueKeyType struct{}

var queueKey queueKeyType

// CurrentQueue reports which queue is running the work item that owns ctx.
func CurrentQueue(ctx context.Context) (QueueID, bool) {
	if v := ctx.Value(queueKey); v != nil {
		return v.(QueueID), true
	}
	return 0, false
}

// WithQueue tags ctx with the queue running the current work item.
func WithQueue(ctx context.Context, q QueueID) context.Context {
	return context.WithValue(ctx, queueKey, q)
}
