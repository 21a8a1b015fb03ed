package pipeline

import (
	"time"

	"github.com/vnykmshr/logpipe/pkg/metrics"
)

// Worker names used in metric labels and log fields.
const (
	workerProducer = "producer"
	workerConsumer = "consumer"
	workerRotator  = "rotator"
)

// workerMetrics records per-worker counters. A nil registry records nothing.
type workerMetrics struct {
	worker   string
	registry *metrics.Registry
}

func (m workerMetrics) tick() {
	if m.registry != nil {
		m.registry.WorkerTicks.WithLabelValues(m.worker).Inc()
	}
}

func (m workerMetrics) canceled() {
	if m.registry != nil {
		m.registry.WorkerCancellations.WithLabelValues(m.worker).Inc()
	}
}

func recordRunStarted(registry *metrics.Registry, mode Mode) {
	if registry == nil {
		return
	}
	registry.RunsStarted.WithLabelValues(mode.String()).Inc()
	registry.RunActive.Set(1)
}

func recordRunStopped(registry *metrics.Registry, mode Mode, elapsed time.Duration) {
	if registry == nil {
		return
	}
	registry.RunDuration.WithLabelValues(mode.String()).Observe(elapsed.Seconds())
	registry.RunActive.Set(0)
}
