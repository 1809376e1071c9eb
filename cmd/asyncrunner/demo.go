package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fatih/color"

	asyncrunner "github.com/Swind/go-async-runner"
	"github.com/Swind/go-async-runner/config"
	"github.com/Swind/go-async-runner/core"
)

var (
	primaryColor  = color.New(color.FgCyan)
	workerColor   = color.New(color.FgYellow)
	deferredColor = color.New(color.FgMagenta)
	summaryColor  = color.New(color.FgGreen, color.Bold)
	warnColor     = color.New(color.FgRed, color.Bold)
)

// demoOutput serializes lines printed from the main loop and worker goroutines.
type demoOutput struct {
	mu sync.Mutex
	w  io.Writer
}

func (o *demoOutput) say(c *color.Color, format string, args ...any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	c.Fprintf(o.w, format+"\n", args...)
}

// runDemo submits the demo workload to rt and drives it until the executor
// has no pending task.
//
// The workload mixes tasks, which the run loop waits for, with bare work
// items, which it only waits for when the executor is configured with
// WaitForQueuedWork.
func runDemo(ctx context.Context, rt *asyncrunner.Runtime, demo config.Demo, out *demoOutput) error {
	exec := rt.Executor
	var deferredRan atomic.Int64

	rt.Queues.SubmitNow(core.QueuePrimary, func(ctx context.Context) {
		out.say(primaryColor, "hello from primary work item")
		rt.Queues.SubmitNow(core.QueueWorker, func(ctx context.Context) {
			out.say(workerColor, "hello from worker work item")
			for _, d := range demo.Deferred {
				d := d
				rt.Queues.SubmitAfter(core.QueuePrimary, d, func(ctx context.Context) {
					deferredRan.Add(1)
					out.say(deferredColor, "hello from deferred primary work item after %v", d)
				})
			}
		})
	})

	exec.SubmitToWorker(core.Named("spawn-primary", core.Lazy(func() any {
		exec.SubmitToPrimary(core.Named("spawned-primary", core.Lazy(func() any {
			out.say(primaryColor, "hello from primary task spawned by a worker")
			return nil
		})))
		return nil
	})))

	exec.SubmitToWorker(core.Named("worker-hello", core.Lazy(func() any {
		out.say(workerColor, "hello from worker task")
		return nil
	})))

	for i, d := range demo.Delays {
		i, d := i, d
		exec.SubmitToPrimary(core.Named(fmt.Sprintf("delayed-%d", i), core.Sequence(
			exec.Delay(d),
			core.Lazy(func() any {
				out.say(primaryColor, "hello from primary task after %v", d)
				return nil
			}),
		)))
	}

	start := time.Now()
	if err := rt.Run(ctx); err != nil {
		return fmt.Errorf("run loop: %w", err)
	}

	stats := exec.Stats()
	out.say(summaryColor, "run finished in %v: %d tasks completed, %d polls, %d wakes",
		time.Since(start).Round(time.Millisecond), stats.Completed, stats.Polls, stats.Wakes)

	scheduled := len(demo.Deferred)
	if lost := scheduled - int(deferredRan.Load()); lost > 0 {
		out.say(warnColor, "%d of %d deferred work items never ran (see --wait-queued-work)", lost, scheduled)
	} else if scheduled > 0 {
		out.say(summaryColor, "all %d deferred work items ran", scheduled)
	}
	return nil
}
