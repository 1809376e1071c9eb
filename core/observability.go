package core

import "time"

// TaskRecord captures a task whose Future completed.
type TaskRecord struct {
	TaskID      TaskID
	Name        string
	Queue       QueueID
	SubmittedAt time.Time
	CompletedAt time.Time
	Lifetime    time.Duration
	Polls       int
}

// ExecutorStats represents runtime observability state for an executor.
type ExecutorStats struct {
	Name         string
	Pending      int
	Submitted    int64
	Completed    int64
	Polls        int64
	Wakes        int64
	LastTaskName string
	LastTaskAt   time.Time
}

// MainLoopStats represents runtime observability state for a main loop.
type MainLoopStats struct {
	Name       string
	Queued     int
	Processed  int64
	Rejected   int64
	Iterations int64
	Delayed    int
	Closed     bool
}

// PoolStats represents runtime observability state for a thread pool.
type PoolStats struct {
	ID      string
	Workers int
	Queued  int
	Active  int
	Delayed int
	Running bool
}
