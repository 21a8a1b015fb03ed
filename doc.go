/*
Package logpipe runs a small periodic log pipeline: a producer that enqueues
work items, a consumer that drains them while holding a shared lock, and a
rotator that takes the same lock on its own schedule.

Building blocks (pkg):
  - queue: Unbounded FIFO shared by producer and consumer
  - exclusion: FIFO mutual exclusion token with scoped Do
  - scheduling/executor: Single-goroutine delayed task executor
  - scheduling/looper: Foreground event loop for producer and display updates
  - scheduling/naming: Worker name factory
  - pipeline: Producer, consumer, rotator and the run orchestrator
  - metrics: Prometheus instrumentation

Example usage:

	import (
		"github.com/vnykmshr/logpipe/pkg/pipeline"
		"github.com/vnykmshr/logpipe/pkg/scheduling/looper"
	)

	lp, _ := looper.New(looper.Config{})
	orch, _ := pipeline.New(lp, pipeline.Surface{}, pipeline.DefaultConfig())

	orch.StartWithTwoExecutors()
	result, _ := orch.Wait(ctx)
*/
package logpipe
