package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	lpctx "github.com/vnykmshr/logpipe/pkg/common/context"
	lperrors "github.com/vnykmshr/logpipe/pkg/common/errors"
	"github.com/vnykmshr/logpipe/pkg/queue"
	"github.com/vnykmshr/logpipe/pkg/scheduling/looper"
)

// producer is the PutLog task. Each tick publishes the counter, enqueues
// one item and posts the next tick on the looper.
type producer struct {
	looper  *looper.Looper
	queue   queue.Queue[WorkItem]
	delay   time.Duration
	latency time.Duration
	limit   int64
	stop    func(r *run)
	logger  zerolog.Logger
	metrics workerMetrics
}

// tick returns the callback for the next producer tick of r.
func (p *producer) tick(r *run) looper.Callback {
	return func(ctx context.Context) {
		p.metrics.tick()

		if r.stopped.Load() || r.counter.Load() >= p.limit {
			p.stop(r)
			return
		}

		if err := lpctx.Sleep(ctx, p.latency); err != nil {
			p.metrics.canceled()
			return
		}

		n := r.counter.Load()
		r.display.Publish(fmt.Sprintf("Hello World! %d", n))
		r.counter.Add(1)

		p.logger.Debug().Int64("seq", n).Msg("Putting in task queue")
		if err := p.queue.Put(ctx, WorkItem{Seq: uint64(n)}); err != nil {
			switch {
			case errors.Is(err, lperrors.ErrClosed):
				p.logger.Debug().Msg("task queue closed, stopping run")
				p.stop(r)
			case lperrors.IsCancellation(err):
				p.metrics.canceled()
			default:
				p.logger.Warn().Err(err).Msg("put failed")
			}
			return
		}

		if err := p.looper.PostDelayed(p.tick(r), p.delay); err != nil {
			p.logger.Debug().Err(err).Msg("looper gone, stopping run")
			p.stop(r)
		}
	}
}
