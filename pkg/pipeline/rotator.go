package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	lpctx "github.com/vnykmshr/logpipe/pkg/common/context"
	lperrors "github.com/vnykmshr/logpipe/pkg/common/errors"
	"github.com/vnykmshr/logpipe/pkg/exclusion"
	"github.com/vnykmshr/logpipe/pkg/scheduling/executor"
)

// rotator is the RotateLog task. Each tick holds the resource for
// RotateDuration and schedules the next tick before releasing it.
type rotator struct {
	resource exclusion.Resource
	delay    time.Duration
	duration time.Duration
	schedule cron.Schedule
	clock    Clock
	logger   zerolog.Logger
	metrics  workerMetrics
}

// nextDelay returns the wait until the next rotation. It returns false
// when the schedule has no further activation.
func (rt *rotator) nextDelay() (time.Duration, bool) {
	if rt.schedule == nil {
		return rt.delay, true
	}
	now := rt.clock.Now()
	next := rt.schedule.Next(now)
	if next.IsZero() {
		return 0, false
	}
	return next.Sub(now), true
}

func (rt *rotator) tick(r *run) executor.Task {
	return executor.TaskFunc(func(ctx context.Context) error {
		rt.metrics.tick()

		if err := rt.resource.Acquire(ctx); err != nil {
			rt.metrics.canceled()
			return nil
		}
		defer rt.resource.Release()

		rt.logger.Debug().Msg("Rotating")
		if err := lpctx.Sleep(ctx, rt.duration); err != nil {
			rt.metrics.canceled()
			return nil
		}

		delay, ok := rt.nextDelay()
		if !ok {
			rt.logger.Info().Msg("rotation schedule has no further activations")
			return nil
		}

		// The next tick is queued before the deferred Release.
		if err := r.rotatorExec.Schedule(rt.tick(r), delay); err != nil {
			if lperrors.IsCancellation(err) {
				return nil
			}
			return fmt.Errorf("rotator reschedule: %w", err)
		}
		return nil
	})
}
