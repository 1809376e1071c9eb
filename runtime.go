package asyncrunner

import (
	"context"
	"time"

	"github.com/Swind/go-async-runner/core"
)

// RuntimeConfig holds configuration options for NewRuntimeWithConfig.
type RuntimeConfig struct {
	// Name prefixes the main loop, pool and executor names. Defaults to "runtime".
	Name string

	// Workers is the worker pool size. Defaults to 1.
	Workers int

	// Scheduler configures the handlers shared by the main loop and the pool.
	Scheduler *core.TaskSchedulerConfig

	// Executor configures the executor. Its Name is overwritten when empty.
	Executor *core.ExecutorConfig
}

// Runtime wires a MainLoop, a GoroutineThreadPool and an Executor together.
//
// The main loop is the primary queue and is driven by whoever calls Run; the
// pool is the worker queue and runs on its own goroutines after Start.
type Runtime struct {
	MainLoop *core.MainLoop
	Pool     *GoroutineThreadPool
	Queues   *core.Queues
	Executor *core.Executor
}

// NewRuntime creates a Runtime with a pool of the given size and default handlers.
func NewRuntime(workers int) *Runtime {
	return NewRuntimeWithConfig(RuntimeConfig{Workers: workers})
}

// NewRuntimeWithConfig creates a Runtime. The pool is not started.
func NewRuntimeWithConfig(cfg RuntimeConfig) *Runtime {
	if cfg.Name == "" {
		cfg.Name = "runtime"
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	execCfg := core.DefaultExecutorConfig()
	if cfg.Executor != nil {
		c := *cfg.Executor
		execCfg = &c
	}
	if execCfg.Name == "" {
		execCfg.Name = cfg.Name + "-executor"
	}

	mainLoop := core.NewMainLoopWithConfig(cfg.Name+"-main", cfg.Scheduler)
	pool := NewGoroutineThreadPoolWithConfig(cfg.Name+"-pool", cfg.Workers, cfg.Scheduler)
	queues := core.NewQueues(mainLoop, pool)

	return &Runtime{
		MainLoop: mainLoop,
		Pool:     pool,
		Queues:   queues,
		Executor: core.NewExecutorWithConfig(queues, mainLoop, execCfg),
	}
}

// Start starts the worker pool.
func (r *Runtime) Start(ctx context.Context) {
	r.Pool.Start(ctx)
}

// Run drives the main loop on the calling goroutine until the executor has
// no pending tasks.
func (r *Runtime) Run(ctx context.Context) error {
	return r.Executor.Run(ctx)
}

// SubmitToPrimary is a shortcut for r.Executor.SubmitToPrimary.
func (r *Runtime) SubmitToPrimary(f core.Future) core.TaskID {
	return r.Executor.SubmitToPrimary(f)
}

// SubmitToWorker is a shortcut for r.Executor.SubmitToWorker.
func (r *Runtime) SubmitToWorker(f core.Future) core.TaskID {
	return r.Executor.SubmitToWorker(f)
}

// Delay is a shortcut for r.Executor.Delay.
func (r *Runtime) Delay(d time.Duration) *core.DelayFuture {
	return r.Executor.Delay(d)
}

// Stop stops the pool and closes the main loop. Queued work is dropped.
func (r *Runtime) Stop() {
	r.Pool.Stop()
	r.MainLoop.Close()
}
