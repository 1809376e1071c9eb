package prometheus

import (
	"context"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/Swind/go-async-runner/core"
)

// ExecutorSnapshotProvider provides current executor stats snapshots.
type ExecutorSnapshotProvider interface {
	Stats() core.ExecutorStats
}

// MainLoopSnapshotProvider provides current main loop stats snapshots.
type MainLoopSnapshotProvider interface {
	Stats() core.MainLoopStats
}

// PoolSnapshotProvider provides current pool stats snapshots.
type PoolSnapshotProvider interface {
	Stats() core.PoolStats
}

// SnapshotPoller periodically exports executor, main loop and pool Stats()
// snapshots into Prometheus gauges.
type SnapshotPoller struct {
	interval time.Duration

	mu        sync.RWMutex
	executors map[string]ExecutorSnapshotProvider
	loops     map[string]MainLoopSnapshotProvider
	pools     map[string]PoolSnapshotProvider

	executorPending   *prom.GaugeVec
	executorSubmitted *prom.GaugeVec
	executorCompleted *prom.GaugeVec
	executorPolls     *prom.GaugeVec
	executorWakes     *prom.GaugeVec

	loopQueued     *prom.GaugeVec
	loopProcessed  *prom.GaugeVec
	loopRejected   *prom.GaugeVec
	loopIterations *prom.GaugeVec
	loopDelayed    *prom.GaugeVec
	loopClosed     *prom.GaugeVec

	poolQueued  *prom.GaugeVec
	poolActive  *prom.GaugeVec
	poolDelayed *prom.GaugeVec
	poolWorkers *prom.GaugeVec
	poolRunning *prom.GaugeVec

	stateMu sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewSnapshotPoller creates a snapshot poller and registers its collectors.
func NewSnapshotPoller(reg prom.Registerer, interval time.Duration) (*SnapshotPoller, error) {
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	if interval <= 0 {
		interval = time.Second
	}

	p := &SnapshotPoller{
		interval:  interval,
		executors: make(map[string]ExecutorSnapshotProvider),
		loops:     make(map[string]MainLoopSnapshotProvider),
		pools:     make(map[string]PoolSnapshotProvider),
	}

	gauges := []struct {
		dst   **prom.GaugeVec
		name  string
		help  string
		label string
	}{
		{&p.executorPending, "executor_pending", "Pending tasks per executor.", "executor"},
		{&p.executorSubmitted, "executor_submitted", "Tasks submitted per executor, snapshot.", "executor"},
		{&p.executorCompleted, "executor_completed", "Tasks completed per executor, snapshot.", "executor"},
		{&p.executorPolls, "executor_polls", "Future polls per executor, snapshot.", "executor"},
		{&p.executorWakes, "executor_wakes", "Task wakes per executor, snapshot.", "executor"},
		{&p.loopQueued, "main_loop_queued", "Queued work items per main loop.", "loop"},
		{&p.loopProcessed, "main_loop_processed", "Work items run per main loop, snapshot.", "loop"},
		{&p.loopRejected, "main_loop_rejected", "Work items rejected per main loop, snapshot.", "loop"},
		{&p.loopIterations, "main_loop_iterations", "Iterations per main loop, snapshot.", "loop"},
		{&p.loopDelayed, "main_loop_delayed", "Delayed posts not yet queued per main loop.", "loop"},
		{&p.loopClosed, "main_loop_closed", "Main loop closed state (1=closed, 0=open).", "loop"},
		{&p.poolQueued, "pool_queued", "Queued tasks per pool.", "pool"},
		{&p.poolActive, "pool_active", "Active tasks per pool.", "pool"},
		{&p.poolDelayed, "pool_delayed", "Delayed tasks per pool.", "pool"},
		{&p.poolWorkers, "pool_workers", "Worker count per pool.", "pool"},
		{&p.poolRunning, "pool_running", "Pool running state (1=running, 0=stopped).", "pool"},
	}
	for _, g := range gauges {
		vec := prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "asyncrunner",
			Name:      g.name,
			Help:      g.help,
		}, []string{g.label})
		registered, err := registerCollector(reg, vec)
		if err != nil {
			return nil, err
		}
		*g.dst = registered
	}

	return p, nil
}

// AddExecutor adds or replaces an executor snapshot provider by name.
func (p *SnapshotPoller) AddExecutor(name string, provider ExecutorSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	p.mu.Lock()
	p.executors[normalizeLabel(name, "executor")] = provider
	p.mu.Unlock()
}

// AddMainLoop adds or replaces a main loop snapshot provider by name.
func (p *SnapshotPoller) AddMainLoop(name string, provider MainLoopSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	p.mu.Lock()
	p.loops[normalizeLabel(name, "loop")] = provider
	p.mu.Unlock()
}

// AddPool adds or replaces a pool snapshot provider by name.
func (p *SnapshotPoller) AddPool(name string, provider PoolSnapshotProvider) {
	if p == nil || provider == nil {
		return
	}
	p.mu.Lock()
	p.pools[normalizeLabel(name, "pool")] = provider
	p.mu.Unlock()
}

// Start begins periodic polling; repeated calls are no-ops.
func (p *SnapshotPoller) Start(ctx context.Context) {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if p.running {
		p.stateMu.Unlock()
		return
	}
	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})
	p.running = true
	p.stateMu.Unlock()

	go p.loop(pollCtx, p.done)
}

// Stop stops periodic polling after a final collection; repeated calls are safe.
func (p *SnapshotPoller) Stop() {
	if p == nil {
		return
	}

	p.stateMu.Lock()
	if !p.running {
		p.stateMu.Unlock()
		return
	}
	cancel := p.cancel
	done := p.done
	p.stateMu.Unlock()

	cancel()
	<-done

	p.stateMu.Lock()
	p.running = false
	p.cancel = nil
	p.done = nil
	p.stateMu.Unlock()

	p.Collect()
}

func (p *SnapshotPoller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Collect()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Collect()
		}
	}
}

// Collect takes one snapshot of every provider.
func (p *SnapshotPoller) Collect() {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for name, provider := range p.executors {
		stats := provider.Stats()
		p.executorPending.WithLabelValues(name).Set(float64(stats.Pending))
		p.executorSubmitted.WithLabelValues(name).Set(float64(stats.Submitted))
		p.executorCompleted.WithLabelValues(name).Set(float64(stats.Completed))
		p.executorPolls.WithLabelValues(name).Set(float64(stats.Polls))
		p.executorWakes.WithLabelValues(name).Set(float64(stats.Wakes))
	}

	for name, provider := range p.loops {
		stats := provider.Stats()
		p.loopQueued.WithLabelValues(name).Set(float64(stats.Queued))
		p.loopProcessed.WithLabelValues(name).Set(float64(stats.Processed))
		p.loopRejected.WithLabelValues(name).Set(float64(stats.Rejected))
		p.loopIterations.WithLabelValues(name).Set(float64(stats.Iterations))
		p.loopDelayed.WithLabelValues(name).Set(float64(stats.Delayed))
		p.loopClosed.WithLabelValues(name).Set(boolGauge(stats.Closed))
	}

	for name, provider := range p.pools {
		stats := provider.Stats()
		p.poolQueued.WithLabelValues(name).Set(float64(stats.Queued))
		p.poolActive.WithLabelValues(name).Set(float64(stats.Active))
		p.poolDelayed.WithLabelValues(name).Set(float64(stats.Delayed))
		p.poolWorkers.WithLabelValues(name).Set(float64(stats.Workers))
		p.poolRunning.WithLabelValues(name).Set(boolGauge(stats.Running))
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
