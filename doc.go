// Package asyncrunner provides a small cooperative task scheduler for Go.
//
// Units of asynchronous work are Futures. An Executor polls them on one of two
// queues: the primary queue (a MainLoop driven by the caller's goroutine) or
// the worker queue (a GoroutineThreadPool). A Future that cannot finish yet
// returns Pending and arranges for its Waker to be called; the wake
// resubmits the task to the queue it was submitted to.
//
// # Quick Start
//
//	rt := asyncrunner.NewRuntime(4)
//	rt.Start(context.Background())
//	defer rt.Stop()
//
//	delay := rt.Executor.Delay(time.Second)
//	rt.Executor.SubmitToPrimary(asyncrunner.Sequence(delay, asyncrunner.Lazy(func() any {
//		fmt.Println("one second later")
//		return nil
//	})))
//
//	// Blocks until every submitted task has completed
//	_ = rt.Run(context.Background())
//
// # Key Concepts
//
// Future: Poll returns Ready(value) or Pending. A Future returning Pending
// must make sure the waker from its PollContext is eventually invoked.
//
// Task: the executor's record binding a Future to its queue. A task is never
// polled by two goroutines at once, and polls after completion are no-ops.
//
// Run: yields to MainLoop.RunOneIteration until the executor's pending task
// count reaches zero. Work items submitted to the queues outside of any task
// are not counted; see ExecutorConfig.WaitForQueuedWork.
//
// For more details, see https://github.com/Swind/go-async-runner
package asyncrunner
