package core

import "fmt"

// Future is an asynchronous computation, driven by repeated calls to Poll.
//
// Poll must never block. When the value is not available yet, the Future
// stores cx.Waker() with whatever it is waiting on and returns Pending; the
// waker is invoked once progress is possible and the owning task polls again.
// Only the waker passed to the most recent Poll needs to be notified.
//
// A Future is one-shot and must never be polled by two callers at once. Once
// it has returned a Ready result it must not be polled again.
type Future interface {
	Poll(cx *PollContext) PollResult
}

// FutureFunc adapts a closure state machine to the Future interface.
type FutureFunc func(cx *PollContext) PollResult

func (f FutureFunc) Poll(cx *PollContext) PollResult {
	return f(cx)
}

// PollResult is either Ready (with a value) or Pending.
type PollResult struct {
	value any
	ready bool
}

// Ready reports completion with value.
func Ready(value any) PollResult {
	return PollResult{value: value, ready: true}
}

// Pending reports that the Future registered a waker and is not done yet.
func Pending() PollResult {
	return PollResult{}
}

func (r PollResult) IsReady() bool { return r.ready }

func (r PollResult) Value() any { return r.value }

func (r PollResult) String() string {
	if r.ready {
		return fmt.Sprintf("Ready(%v)", r.value)
	}
	return "Pending"
}

// PollContext is handed to Future.Poll.
type PollContext struct {
	waker Waker
}

// NewPollContext builds a PollContext around w. Executors create these; it is
// exported for driving Futures by hand (tests, adapters).
func NewPollContext(w Waker) *PollContext {
	return &PollContext{waker: w}
}

// Waker returns the waker of the task being polled.
func (cx *PollContext) Waker() Waker {
	return cx.waker
}

// =============================================================================
// Building blocks
// =============================================================================

// Lazy returns a Future that runs fn on its first poll and is immediately
// Ready with its result.
func Lazy(fn func() any) Future {
	return FutureFunc(func(cx *PollContext) PollResult {
		return Ready(fn())
	})
}

// Sequence awaits each Future in order and is Ready with the value of the
// last one. A nil or empty sequence is Ready(nil) on first poll.
func Sequence(futures ...Future) Future {
	return &sequenceFuture{steps: futures}
}

type sequenceFuture struct {
	steps []Future
	next  int
	last  any
}

func (s *sequenceFuture) Poll(cx *PollContext) PollResult {
	for s.next < len(s.steps) {
		res := s.steps[s.next].Poll(cx)
		if !res.IsReady() {
			return res
		}
		s.last = res.Value()
		s.steps[s.next] = nil
		s.next++
	}
	return Ready(s.last)
}

// Named attaches a name to f, used in logs, history and metrics.
func Named(name string, f Future) Future {
	return &namedFuture{Future: f, name: name}
}

type namedFuture struct {
	Future
	name string
}

func (n *namedFuture) Name() string { return n.name }

func resolveFutureName(f Future) string {
	if n, ok := f.(interface{ Name() string }); ok && n.Name() != "" {
		return n.Name()
	}
	if f == nil {
		return "anonymous"
	}
	return fmt.Sprintf("%T", f)
}
