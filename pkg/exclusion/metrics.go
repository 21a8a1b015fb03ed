package exclusion

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/vnykmshr/logpipe/pkg/metrics"
)

// MetricsResource wraps a Resource with Prometheus metrics collection.
type MetricsResource struct {
	resource   Resource
	name       string
	registry   *metrics.Registry
	acquiredAt atomic.Int64 // unix nanos, written only by the holder
}

// NewWithMetrics creates a Resource that reports to registry under name.
// A nil registry returns a plain Resource.
func NewWithMetrics(name string, registry *metrics.Registry) Resource {
	if registry == nil {
		return New()
	}
	return &MetricsResource{
		resource: New(),
		name:     name,
		registry: registry,
	}
}

// Acquire implements Resource.Acquire.
func (mr *MetricsResource) Acquire(ctx context.Context) error {
	start := time.Now()
	mr.registry.ExclusionWaiting.WithLabelValues(mr.name).Inc()

	err := mr.resource.Acquire(ctx)

	mr.registry.ExclusionWaiting.WithLabelValues(mr.name).Dec()
	mr.registry.ExclusionWaitDuration.WithLabelValues(mr.name).Observe(time.Since(start).Seconds())
	if err != nil {
		return err
	}
	mr.markAcquired()
	return nil
}

// TryAcquire implements Resource.TryAcquire.
func (mr *MetricsResource) TryAcquire() bool {
	if !mr.resource.TryAcquire() {
		return false
	}
	mr.markAcquired()
	return true
}

func (mr *MetricsResource) markAcquired() {
	mr.acquiredAt.Store(time.Now().UnixNano())
	mr.registry.ExclusionAcquired.WithLabelValues(mr.name).Inc()
}

// Release implements Resource.Release.
func (mr *MetricsResource) Release() {
	held := time.Duration(time.Now().UnixNano() - mr.acquiredAt.Load())
	mr.registry.ExclusionHoldDuration.WithLabelValues(mr.name).Observe(held.Seconds())
	mr.resource.Release()
}

// Do implements Resource.Do.
func (mr *MetricsResource) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := mr.Acquire(ctx); err != nil {
		return err
	}
	defer mr.Release()
	return fn(ctx)
}

// Held implements Resource.Held.
func (mr *MetricsResource) Held() bool {
	return mr.resource.Held()
}

// Waiting implements Resource.Waiting.
func (mr *MetricsResource) Waiting() int {
	return mr.resource.Waiting()
}
