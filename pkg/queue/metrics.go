package queue

import (
	"context"

	"github.com/vnykmshr/logpipe/pkg/metrics"
)

// MetricsQueue wraps a Queue with Prometheus metrics collection.
type MetricsQueue[T any] struct {
	queue    Queue[T]
	name     string
	registry *metrics.Registry
}

// NewWithMetrics creates a queue that reports to registry under name.
// A nil registry returns a plain queue.
func NewWithMetrics[T any](name string, registry *metrics.Registry) Queue[T] {
	base := New[T]()
	if registry == nil {
		return base
	}
	mq := &MetricsQueue[T]{
		queue:    base,
		name:     name,
		registry: registry,
	}
	mq.updateDepth()
	return mq
}

func (mq *MetricsQueue[T]) updateDepth() {
	mq.registry.QueueDepth.WithLabelValues(mq.name).Set(float64(mq.queue.Len()))
}

// Put implements Queue.Put.
func (mq *MetricsQueue[T]) Put(ctx context.Context, value T) error {
	err := mq.queue.Put(ctx, value)
	if err != nil {
		mq.registry.QueuePutFailures.WithLabelValues(mq.name).Inc()
		return err
	}
	mq.registry.QueuePuts.WithLabelValues(mq.name).Inc()
	mq.updateDepth()
	return nil
}

// Poll implements Queue.Poll.
func (mq *MetricsQueue[T]) Poll() (T, bool) {
	value, ok := mq.queue.Poll()
	if !ok {
		mq.registry.QueuePolls.WithLabelValues(mq.name, "empty").Inc()
		return value, false
	}
	mq.registry.QueuePolls.WithLabelValues(mq.name, "item").Inc()
	mq.updateDepth()
	return value, true
}

// Len implements Queue.Len.
func (mq *MetricsQueue[T]) Len() int {
	return mq.queue.Len()
}

// Close implements Queue.Close.
func (mq *MetricsQueue[T]) Close() error {
	return mq.queue.Close()
}

// Stats implements Queue.Stats.
func (mq *MetricsQueue[T]) Stats() Stats {
	return mq.queue.Stats()
}
