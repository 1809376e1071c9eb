package core

import "sync"

// Waker reschedules the task that registered it.
//
// Wake is safe to call from any goroutine, at any time, any number of times.
// Duplicate calls are tolerated: they cause redundant poll attempts, never
// concurrent ones.
type Waker interface {
	Wake()
}

// WakerFunc adapts a function to the Waker interface.
type WakerFunc func()

func (f WakerFunc) Wake() { f() }

// wakerSlot holds at most one waker. Store overwrites.
type wakerSlot struct {
	mu    sync.Mutex
	waker Waker
}

func (s *wakerSlot) Store(w Waker) {
	s.mu.Lock()
	s.waker = w
	s.mu.Unlock()
}

// Take empties the slot and returns what it held.
func (s *wakerSlot) Take() Waker {
	s.mu.Lock()
	w := s.waker
	s.waker = nil
	s.mu.Unlock()
	return w
}
