package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	lpctx "github.com/vnykmshr/logpipe/pkg/common/context"
	lperrors "github.com/vnykmshr/logpipe/pkg/common/errors"
	"github.com/vnykmshr/logpipe/pkg/exclusion"
	"github.com/vnykmshr/logpipe/pkg/queue"
	"github.com/vnykmshr/logpipe/pkg/scheduling/executor"
)

// consumer is the WriteLog task. Each tick drains the queue, holding the
// resource for WriteLatency per item, then reschedules itself.
type consumer struct {
	queue    queue.Queue[WorkItem]
	resource exclusion.Resource
	delay    time.Duration
	latency  time.Duration
	logger   zerolog.Logger
	metrics  workerMetrics
}

func (c *consumer) tick(r *run) executor.Task {
	return executor.TaskFunc(func(ctx context.Context) error {
		c.metrics.tick()

		for {
			// Leave items queued once the run is canceled.
			if lpctx.IsCanceled(ctx) {
				c.metrics.canceled()
				return nil
			}
			item, ok := c.queue.Poll()
			if !ok {
				break
			}
			c.logger.Debug().Uint64("seq", item.Seq).Msg("Polling from task queue")

			err := c.resource.Do(ctx, func(ctx context.Context) error {
				return lpctx.Sleep(ctx, c.latency)
			})
			if err != nil {
				if lperrors.IsCancellation(err) {
					c.metrics.canceled()
					return nil
				}
				return err
			}
		}

		if err := r.consumerExec.Schedule(c.tick(r), c.delay); err != nil {
			if lperrors.IsCancellation(err) {
				return nil
			}
			return fmt.Errorf("consumer reschedule: %w", err)
		}
		return nil
	})
}
