// Package metrics provides Prometheus instrumentation for logpipe components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds all metric instances for logpipe components.
type Registry struct {
	// Queue Metrics
	QueueDepth       *prometheus.GaugeVec
	QueuePuts        *prometheus.CounterVec
	QueuePolls       *prometheus.CounterVec
	QueuePutFailures *prometheus.CounterVec

	// Exclusion Metrics
	ExclusionAcquired     *prometheus.CounterVec
	ExclusionWaiting      *prometheus.GaugeVec
	ExclusionWaitDuration *prometheus.HistogramVec
	ExclusionHoldDuration *prometheus.HistogramVec

	// Executor Metrics
	ExecutorPending       *prometheus.GaugeVec
	TasksScheduled        *prometheus.CounterVec
	TasksExecuted         *prometheus.CounterVec
	TasksFailed           *prometheus.CounterVec
	TaskExecutionDuration *prometheus.HistogramVec

	// Pipeline Metrics
	WorkerTicks         *prometheus.CounterVec
	WorkerCancellations *prometheus.CounterVec
	RunsStarted         *prometheus.CounterVec
	RunDuration         *prometheus.HistogramVec
	RunActive           prometheus.Gauge
}

// DefaultRegistry is the default metrics registry used by logpipe components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// holdBuckets cover the 5ms write step up to multi-second drains.
var holdBuckets = []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)

	return &Registry{
		QueueDepth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "logpipe",
				Subsystem: "queue",
				Name:      "depth",
				Help:      "Number of work items waiting in the queue",
			},
			[]string{"queue_name"},
		),

		QueuePuts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logpipe",
				Subsystem: "queue",
				Name:      "puts_total",
				Help:      "Total number of work items enqueued",
			},
			[]string{"queue_name"},
		),

		QueuePolls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logpipe",
				Subsystem: "queue",
				Name:      "polls_total",
				Help:      "Total number of poll attempts by result",
			},
			[]string{"queue_name", "result"},
		),

		QueuePutFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logpipe",
				Subsystem: "queue",
				Name:      "put_failures_total",
				Help:      "Total number of puts aborted by cancellation or close",
			},
			[]string{"queue_name"},
		),

		ExclusionAcquired: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logpipe",
				Subsystem: "exclusion",
				Name:      "acquired_total",
				Help:      "Total number of exclusion cycles started",
			},
			[]string{"resource_name"},
		),

		ExclusionWaiting: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "logpipe",
				Subsystem: "exclusion",
				Name:      "waiting",
				Help:      "Number of callers blocked waiting for the resource",
			},
			[]string{"resource_name"},
		),

		ExclusionWaitDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "logpipe",
				Subsystem: "exclusion",
				Name:      "wait_duration_seconds",
				Help:      "Time spent waiting to acquire the resource",
				Buckets:   holdBuckets,
			},
			[]string{"resource_name"},
		),

		ExclusionHoldDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "logpipe",
				Subsystem: "exclusion",
				Name:      "hold_duration_seconds",
				Help:      "Time the resource was held per exclusion cycle",
				Buckets:   holdBuckets,
			},
			[]string{"resource_name"},
		),

		ExecutorPending: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "logpipe",
				Subsystem: "executor",
				Name:      "pending_tasks",
				Help:      "Number of delayed tasks waiting to run",
			},
			[]string{"executor_name"},
		),

		TasksScheduled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logpipe",
				Subsystem: "executor",
				Name:      "tasks_scheduled_total",
				Help:      "Total number of tasks scheduled",
			},
			[]string{"executor_name"},
		),

		TasksExecuted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logpipe",
				Subsystem: "executor",
				Name:      "tasks_executed_total",
				Help:      "Total number of tasks executed",
			},
			[]string{"executor_name"},
		),

		TasksFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logpipe",
				Subsystem: "executor",
				Name:      "tasks_failed_total",
				Help:      "Total number of tasks that returned an error or panicked",
			},
			[]string{"executor_name"},
		),

		TaskExecutionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "logpipe",
				Subsystem: "executor",
				Name:      "task_duration_seconds",
				Help:      "Time spent executing tasks",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"executor_name"},
		),

		WorkerTicks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logpipe",
				Subsystem: "pipeline",
				Name:      "ticks_total",
				Help:      "Total number of ticks executed per worker",
			},
			[]string{"worker"},
		),

		WorkerCancellations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logpipe",
				Subsystem: "pipeline",
				Name:      "cancellations_total",
				Help:      "Total number of ticks ended by cancellation per worker",
			},
			[]string{"worker"},
		),

		RunsStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "logpipe",
				Subsystem: "pipeline",
				Name:      "runs_started_total",
				Help:      "Total number of pipeline runs started",
			},
			[]string{"mode"},
		),

		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "logpipe",
				Subsystem: "pipeline",
				Name:      "run_duration_seconds",
				Help:      "Wall time of completed pipeline runs",
				Buckets:   []float64{.05, .1, .5, 1, 5, 10, 30, 60, 120},
			},
			[]string{"mode"},
		),

		RunActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "logpipe",
				Subsystem: "pipeline",
				Name:      "run_active",
				Help:      "1 while a pipeline run is in progress",
			},
		),
	}
}
