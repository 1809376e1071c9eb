package prometheus

import (
	"errors"
	"fmt"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"

	"github.com/Swind/go-async-runner/core"
)

// ExporterOptions controls collector configuration.
type ExporterOptions struct {
	// LifetimeBuckets are the histogram buckets of task lifetimes.
	LifetimeBuckets []float64

	// PollBuckets are the histogram buckets of single poll durations.
	PollBuckets []float64
}

// MetricsExporter adapts core.Metrics to Prometheus collectors.
type MetricsExporter struct {
	tasksSubmitted      *prom.CounterVec
	tasksCompleted      *prom.CounterVec
	taskLifetimeSeconds *prom.HistogramVec
	polls               *prom.CounterVec
	pollSeconds         *prom.HistogramVec
	wakes               *prom.CounterVec
	pending             prom.Gauge
	taskPanicTotal      *prom.CounterVec
	taskRejectedTotal   *prom.CounterVec
	queueDepth          *prom.GaugeVec
}

var _ core.Metrics = (*MetricsExporter)(nil)

// NewMetricsExporter creates and registers Prometheus collectors for core.Metrics.
// Collectors already registered with reg by an earlier exporter are shared.
func NewMetricsExporter(namespace string, reg prom.Registerer, opts ExporterOptions) (*MetricsExporter, error) {
	if namespace == "" {
		namespace = "asyncrunner"
	}
	if reg == nil {
		reg = prom.DefaultRegisterer
	}
	lifetimeBuckets := opts.LifetimeBuckets
	if len(lifetimeBuckets) == 0 {
		lifetimeBuckets = prom.DefBuckets
	}
	pollBuckets := opts.PollBuckets
	if len(pollBuckets) == 0 {
		pollBuckets = prom.ExponentialBuckets(0.00001, 10, 7)
	}

	submittedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_submitted_total",
		Help:      "Total number of tasks submitted to the executor.",
	}, []string{"queue"})
	completedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "tasks_completed_total",
		Help:      "Total number of tasks whose future became ready.",
	}, []string{"queue"})
	lifetimeVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "task_lifetime_seconds",
		Help:      "Time from task submission to completion in seconds.",
		Buckets:   lifetimeBuckets,
	}, []string{"queue"})
	pollsVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "polls_total",
		Help:      "Total number of future polls.",
	}, []string{"queue", "result"})
	pollSecondsVec := prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: namespace,
		Name:      "poll_duration_seconds",
		Help:      "Duration of a single future poll in seconds.",
		Buckets:   pollBuckets,
	}, []string{"queue"})
	wakesVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "wakes_total",
		Help:      "Total number of task wakes.",
	}, []string{"queue"})
	pendingGauge := prom.NewGauge(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "tasks_pending",
		Help:      "Number of submitted tasks that have not completed.",
	})
	panicVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_panic_total",
		Help:      "Total number of work item panics.",
	}, []string{"runner"})
	rejectedVec := prom.NewCounterVec(prom.CounterOpts{
		Namespace: namespace,
		Name:      "task_rejected_total",
		Help:      "Total number of rejected work items.",
	}, []string{"runner", "reason"})
	queueDepthVec := prom.NewGaugeVec(prom.GaugeOpts{
		Namespace: namespace,
		Name:      "queue_depth",
		Help:      "Current queue depth.",
	}, []string{"runner"})

	var err error
	if submittedVec, err = registerCollector(reg, submittedVec); err != nil {
		return nil, err
	}
	if completedVec, err = registerCollector(reg, completedVec); err != nil {
		return nil, err
	}
	if lifetimeVec, err = registerCollector(reg, lifetimeVec); err != nil {
		return nil, err
	}
	if pollsVec, err = registerCollector(reg, pollsVec); err != nil {
		return nil, err
	}
	if pollSecondsVec, err = registerCollector(reg, pollSecondsVec); err != nil {
		return nil, err
	}
	if wakesVec, err = registerCollector(reg, wakesVec); err != nil {
		return nil, err
	}
	if pendingGauge, err = registerCollector(reg, pendingGauge); err != nil {
		return nil, err
	}
	if panicVec, err = registerCollector(reg, panicVec); err != nil {
		return nil, err
	}
	if rejectedVec, err = registerCollector(reg, rejectedVec); err != nil {
		return nil, err
	}
	if queueDepthVec, err = registerCollector(reg, queueDepthVec); err != nil {
		return nil, err
	}

	return &MetricsExporter{
		tasksSubmitted:      submittedVec,
		tasksCompleted:      completedVec,
		taskLifetimeSeconds: lifetimeVec,
		polls:               pollsVec,
		pollSeconds:         pollSecondsVec,
		wakes:               wakesVec,
		pending:             pendingGauge,
		taskPanicTotal:      panicVec,
		taskRejectedTotal:   rejectedVec,
		queueDepth:          queueDepthVec,
	}, nil
}

// RecordTaskSubmitted counts a task entering the executor.
func (m *MetricsExporter) RecordTaskSubmitted(queue core.QueueID) {
	if m == nil {
		return
	}
	m.tasksSubmitted.WithLabelValues(queue.String()).Inc()
}

// RecordTaskCompleted counts a completed task and observes its lifetime.
func (m *MetricsExporter) RecordTaskCompleted(queue core.QueueID, lifetime time.Duration) {
	if m == nil {
		return
	}
	m.tasksCompleted.WithLabelValues(queue.String()).Inc()
	m.taskLifetimeSeconds.WithLabelValues(queue.String()).Observe(lifetime.Seconds())
}

// RecordPoll counts a poll by result and observes its duration.
func (m *MetricsExporter) RecordPoll(queue core.QueueID, ready bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(queue.String(), pollResultLabel(ready)).Inc()
	m.pollSeconds.WithLabelValues(queue.String()).Observe(duration.Seconds())
}

// RecordWake counts a waker invocation.
func (m *MetricsExporter) RecordWake(queue core.QueueID) {
	if m == nil {
		return
	}
	m.wakes.WithLabelValues(queue.String()).Inc()
}

// RecordPending sets the pending task gauge.
func (m *MetricsExporter) RecordPending(pending int) {
	if m == nil {
		return
	}
	m.pending.Set(float64(pending))
}

// RecordTaskPanic records task panic events.
func (m *MetricsExporter) RecordTaskPanic(runnerName string, panicInfo any) {
	if m == nil {
		return
	}
	m.taskPanicTotal.WithLabelValues(normalizeLabel(runnerName, "unknown")).Inc()
}

// RecordQueueDepth records queue depth.
func (m *MetricsExporter) RecordQueueDepth(runnerName string, depth int) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(normalizeLabel(runnerName, "unknown")).Set(float64(depth))
}

// RecordTaskRejected records task rejection events.
func (m *MetricsExporter) RecordTaskRejected(runnerName string, reason string) {
	if m == nil {
		return
	}
	m.taskRejectedTotal.WithLabelValues(normalizeLabel(runnerName, "unknown"), normalizeLabel(reason, "unknown")).Inc()
}

func normalizeLabel(v string, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func pollResultLabel(ready bool) string {
	if ready {
		return "ready"
	}
	return "pending"
}

func registerCollector[T prom.Collector](reg prom.Registerer, collector T) (T, error) {
	err := reg.Register(collector)
	if err == nil {
		return collector, nil
	}

	var alreadyRegisteredErr prom.AlreadyRegisteredError
	if errors.As(err, &alreadyRegisteredErr) {
		existing, ok := alreadyRegisteredErr.ExistingCollector.(T)
		if !ok {
			return collector, fmt.Errorf("collector type mismatch for %T", collector)
		}
		return existing, nil
	}

	return collector, err
}
