package executor

import (
	"time"

	"github.com/vnykmshr/logpipe/pkg/metrics"
)

// MetricsExecutor wraps an Executor with Prometheus metrics collection.
type MetricsExecutor struct {
	executor Executor
	name     string
	registry *metrics.Registry
}

// NewWithMetrics creates an executor that reports to registry.
// Completion hooks already present in config are kept and run first.
// A nil registry returns a plain executor.
func NewWithMetrics(config Config, registry *metrics.Registry) (Executor, error) {
	if registry == nil {
		return NewWithConfig(config)
	}

	mx := &MetricsExecutor{
		name:     config.Name,
		registry: registry,
	}

	userComplete := config.OnTaskComplete
	config.OnTaskComplete = func(result Result) {
		if userComplete != nil {
			userComplete(result)
		}
		mx.recordResult(result)
	}

	base, err := NewWithConfig(config)
	if err != nil {
		return nil, err
	}
	mx.executor = base
	mx.updatePending()
	return mx, nil
}

func (mx *MetricsExecutor) recordResult(result Result) {
	mx.registry.TasksExecuted.WithLabelValues(mx.name).Inc()
	mx.registry.TaskExecutionDuration.WithLabelValues(mx.name).Observe(result.Duration.Seconds())
	if result.Error != nil {
		mx.registry.TasksFailed.WithLabelValues(mx.name).Inc()
	}
	if mx.executor != nil {
		mx.updatePending()
	}
}

func (mx *MetricsExecutor) updatePending() {
	mx.registry.ExecutorPending.WithLabelValues(mx.name).Set(float64(mx.executor.Pending()))
}

// Schedule implements Executor.Schedule.
func (mx *MetricsExecutor) Schedule(task Task, delay time.Duration) error {
	if err := mx.executor.Schedule(task, delay); err != nil {
		return err
	}
	mx.registry.TasksScheduled.WithLabelValues(mx.name).Inc()
	mx.updatePending()
	return nil
}

// Pending implements Executor.Pending.
func (mx *MetricsExecutor) Pending() int {
	return mx.executor.Pending()
}

// IsShutdown implements Executor.IsShutdown.
func (mx *MetricsExecutor) IsShutdown() bool {
	return mx.executor.IsShutdown()
}

// ShutdownNow implements Executor.ShutdownNow.
func (mx *MetricsExecutor) ShutdownNow() <-chan struct{} {
	done := mx.executor.ShutdownNow()
	mx.registry.ExecutorPending.WithLabelValues(mx.name).Set(0)
	return done
}

// Done implements Executor.Done.
func (mx *MetricsExecutor) Done() <-chan struct{} {
	return mx.executor.Done()
}

// Name implements Executor.Name.
func (mx *MetricsExecutor) Name() string {
	return mx.executor.Name()
}
