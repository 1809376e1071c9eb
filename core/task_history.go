package core

import "sync"

const defaultTaskHistoryCapacity = 100

// taskHistory is a fixed-size ring of completed task records.
type taskHistory struct {
	mu    sync.Mutex
	items []TaskRecord
	head  int
	count int
}

func newTaskHistory(capacity int) *taskHistory {
	if capacity < 1 {
		capacity = defaultTaskHistoryCapacity
	}
	return &taskHistory{items: make([]TaskRecord, capacity)}
}

func (h *taskHistory) Add(record TaskRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.items[h.head] = record
	h.head = (h.head + 1) % len(h.items)
	if h.count < len(h.items) {
		h.count++
	}
}

// Recent returns up to limit records, newest first. limit <= 0 means all.
func (h *taskHistory) Recent(limit int) []TaskRecord {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return nil
	}
	if limit <= 0 || limit > h.count {
		limit = h.count
	}

	out := make([]TaskRecord, 0, limit)
	for i := 0; i < limit; i++ {
		idx := (h.head - 1 - i + len(h.items)) % len(h.items)
		out = append(out, h.items[idx])
	}
	return out
}

func (h *taskHistory) Last() (TaskRecord, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.count == 0 {
		return TaskRecord{}, false
	}
	idx := (h.head - 1 + len(h.items)) % len(h.items)
	return h.items[idx], true
}
