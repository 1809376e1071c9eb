package core

import (
	"context"
	"sync/atomic"
	"time"
)

// Timer runs fn exactly once, no earlier than d from now.
type Timer interface {
	AfterFunc(d time.Duration, fn func())
}

// TimerFunc adapts a function to the Timer interface.
type TimerFunc func(d time.Duration, fn func())

func (f TimerFunc) AfterFunc(d time.Duration, fn func()) { f(d, fn) }

// SystemTimer fires on the Go runtime timer goroutine (time.AfterFunc).
type SystemTimer struct{}

func (SystemTimer) AfterFunc(d time.Duration, fn func()) {
	time.AfterFunc(d, fn)
}

// QueueTimer fires by submitting fn to a queue with SubmitAfter.
type QueueTimer struct {
	Queues QueueService
	Queue  QueueID
}

func (t QueueTimer) AfterFunc(d time.Duration, fn func()) {
	t.Queues.SubmitAfter(t.Queue, d, func(ctx context.Context) {
		fn()
	})
}

// =============================================================================
// DelayFuture
// =============================================================================

// DelayFuture becomes Ready once its deadline has passed.
//
// The first Pending poll arms a one-shot timer; when it fires the future is
// marked done and the most recently registered waker is invoked once.
// Ready is a one-way transition.
type DelayFuture struct {
	deadline time.Time
	timer    Timer
	state    *delayState
}

// delayState is shared with the timer callback.
type delayState struct {
	done  atomic.Bool
	armed atomic.Bool
	slot  wakerSlot
}

// NewDelayFuture creates a future that is Ready d after now.
func NewDelayFuture(d time.Duration, timer Timer) *DelayFuture {
	if timer == nil {
		timer = SystemTimer{}
	}
	return &DelayFuture{
		deadline: time.Now().Add(d),
		timer:    timer,
		state:    &delayState{},
	}
}

// Deadline returns the instant at which the future becomes Ready.
func (f *DelayFuture) Deadline() time.Time {
	return f.deadline
}

// Done reports whether the future has completed.
func (f *DelayFuture) Done() bool {
	return f.state.done.Load()
}

func (f *DelayFuture) Poll(cx *PollContext) PollResult {
	s := f.state
	if s.done.Load() {
		return Ready(nil)
	}

	remaining := time.Until(f.deadline)
	if remaining <= 0 {
		s.done.Store(true)
		return Ready(nil)
	}

	s.slot.Store(cx.Waker())
	// fire may have run between the done check and Store
	if s.done.Load() {
		s.slot.Take()
		return Ready(nil)
	}

	if s.armed.CompareAndSwap(false, true) {
		f.timer.AfterFunc(remaining, s.fire)
	}
	return Pending()
}

func (s *delayState) fire() {
	s.done.Store(true)
	if w := s.slot.Take(); w != nil {
		w.Wake()
	}
}
