package pipeline

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	lperrors "github.com/vnykmshr/logpipe/pkg/common/errors"
	"github.com/vnykmshr/logpipe/pkg/common/validation"
	"github.com/vnykmshr/logpipe/pkg/exclusion"
	"github.com/vnykmshr/logpipe/pkg/metrics"
	"github.com/vnykmshr/logpipe/pkg/queue"
)

const (
	// DefaultPutDelay is the delay between producer ticks.
	DefaultPutDelay = time.Millisecond

	// DefaultWriteDelay is the delay between consumer ticks.
	DefaultWriteDelay = 100 * time.Millisecond

	// DefaultRotateDelay is the delay between rotator ticks.
	DefaultRotateDelay = time.Second

	// DefaultPutLatency is the simulated cost of producing one item.
	DefaultPutLatency = 5 * time.Millisecond

	// DefaultWriteLatency is how long the consumer holds the resource per item.
	DefaultWriteLatency = 5 * time.Millisecond

	// DefaultRotateDuration is how long the rotator holds the resource.
	DefaultRotateDuration = 50 * time.Millisecond

	// DefaultLimit is the number of items a run produces before stopping.
	DefaultLimit = 5000
)

// Clock reports the current time. It is used to measure run duration.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Config holds configuration options for an Orchestrator.
type Config struct {
	// PutDelay is the delay before each producer tick.
	PutDelay time.Duration

	// WriteDelay is the delay before each consumer tick.
	WriteDelay time.Duration

	// RotateDelay is the delay before each rotator tick.
	// Ignored when RotateSchedule is set.
	RotateDelay time.Duration

	// PutLatency is slept by the producer before each item.
	PutLatency time.Duration

	// WriteLatency is slept by the consumer while holding the resource, per item.
	WriteLatency time.Duration

	// RotateDuration is slept by the rotator while holding the resource.
	RotateDuration time.Duration

	// Limit is the number of items produced before the run stops itself.
	Limit int

	// RotateSchedule is an optional cron spec for rotation, such as "@every 1s"
	// or "*/5 * * * * *" (with seconds). Empty means every RotateDelay.
	RotateSchedule string

	// Logger receives pipeline events. Zero value disables logging.
	Logger zerolog.Logger

	// Metrics configures Prometheus instrumentation.
	Metrics metrics.Config

	// Clock measures elapsed run time. If nil, the system clock is used.
	Clock Clock

	// Queue carries items from producer to consumer.
	// If nil, a new queue is created.
	Queue queue.Queue[WorkItem]

	// Resource is shared by consumer and rotator.
	// If nil, a new resource is created.
	Resource exclusion.Resource
}

// DefaultConfig returns the standard pipeline timings.
func DefaultConfig() Config {
	return Config{
		PutDelay:       DefaultPutDelay,
		WriteDelay:     DefaultWriteDelay,
		RotateDelay:    DefaultRotateDelay,
		PutLatency:     DefaultPutLatency,
		WriteLatency:   DefaultWriteLatency,
		RotateDuration: DefaultRotateDuration,
		Limit:          DefaultLimit,
		Metrics:        metrics.DefaultConfig(),
	}
}

// Validate checks the configuration and returns the first problem found.
func (c Config) Validate() error {
	checks := []error{
		validation.ValidatePositiveDuration("pipeline", "put_delay", c.PutDelay),
		validation.ValidatePositiveDuration("pipeline", "write_delay", c.WriteDelay),
		validation.ValidatePositiveDuration("pipeline", "rotate_delay", c.RotateDelay),
		validation.ValidateNonNegativeDuration("pipeline", "put_latency", c.PutLatency),
		validation.ValidateNonNegativeDuration("pipeline", "write_latency", c.WriteLatency),
		validation.ValidateNonNegativeDuration("pipeline", "rotate_duration", c.RotateDuration),
		validation.ValidatePositive("pipeline", "limit", c.Limit),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	if _, err := ParseRotateSchedule(c.RotateSchedule); err != nil {
		return err
	}
	return nil
}

var scheduleParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ParseRotateSchedule parses a rotation cron spec. It accepts six-field
// specs with seconds and descriptors such as "@every 1s" or "@hourly".
// An empty spec returns a nil schedule.
func ParseRotateSchedule(spec string) (cron.Schedule, error) {
	if spec == "" {
		return nil, nil
	}
	schedule, err := scheduleParser.Parse(spec)
	if err != nil {
		return nil, lperrors.NewValidationError("pipeline", "rotate_schedule", spec, err.Error()).
			WithHint(`use "@every 1s" or a six-field spec such as "*/5 * * * * *"`)
	}
	if schedule.Next(time.Now()).IsZero() {
		return nil, lperrors.NewValidationError("pipeline", "rotate_schedule", spec, "never activates").
			WithHint("check day-of-month and month fields")
	}
	return schedule, nil
}
