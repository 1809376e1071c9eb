package core

import (
	"context"
	"errors"
	"time"
)

// ErrNoEventLoop is returned by Run when the executor has no event loop.
var ErrNoEventLoop = errors.New("executor: no event loop to run")

// EventLoop is the native event processing primitive the run loop yields to.
type EventLoop interface {
	// RunOneIteration processes one batch of primary queue work, blocking no
	// later than deadline when there is none. It returns the number of work
	// items run.
	RunOneIteration(ctx context.Context, deadline time.Time) int
}

var _ EventLoop = (*MainLoop)(nil)

// Run blocks, driving the event loop, until no submitted task is pending.
// With zero pending tasks it returns immediately. If ctx ends first it
// returns ctx.Err().
//
// Work that was submitted to the queues without a task (a bare SubmitAfter,
// for instance) is not counted, so Run may return before it executes; set
// ExecutorConfig.WaitForQueuedWork to also wait for the queue service's
// outstanding work.
func (e *Executor) Run(ctx context.Context) error {
	if e.loop == nil {
		return ErrNoEventLoop
	}

	e.logger.Debug("run loop started", F("executor", e.name), F("pending", e.Pending()))
	for e.shouldContinue() {
		if err := ctx.Err(); err != nil {
			e.logger.Warn("run loop abandoned",
				F("executor", e.name), F("pending", e.Pending()), F("error", err))
			return err
		}
		e.logger.Debug("loop counter", F("executor", e.name), F("pending", e.Pending()))
		e.loop.RunOneIteration(ctx, time.Now().Add(e.iterationTimeout))
	}
	e.logger.Debug("run loop finished", F("executor", e.name))
	return nil
}

func (e *Executor) shouldContinue() bool {
	if e.pending.Load() > 0 {
		return true
	}
	if !e.waitForQueuedWork {
		return false
	}
	tracker, ok := e.queues.(WorkTracker)
	return ok && tracker.Outstanding() > 0
}
