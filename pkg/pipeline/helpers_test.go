package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vnykmshr/logpipe/internal/testutil"
	"github.com/vnykmshr/logpipe/pkg/exclusion"
	"github.com/vnykmshr/logpipe/pkg/metrics"
	"github.com/vnykmshr/logpipe/pkg/queue"
	"github.com/vnykmshr/logpipe/pkg/scheduling/executor"
	"github.com/vnykmshr/logpipe/pkg/scheduling/looper"
)

// fastConfig shrinks every interval so a full run takes milliseconds.
func fastConfig() Config {
	return Config{
		PutDelay:       time.Millisecond,
		WriteDelay:     5 * time.Millisecond,
		RotateDelay:    10 * time.Millisecond,
		PutLatency:     0,
		WriteLatency:   200 * time.Microsecond,
		RotateDuration: 2 * time.Millisecond,
		Limit:          20,
		Metrics:        metrics.Config{Enabled: false},
	}
}

type harness struct {
	looper   *looper.Looper
	orch     *Orchestrator
	counter  *testutil.RecordingDisplay
	result   *testutil.RecordingDisplay
	controls *testutil.RecordingControls
}

func newHarness(t *testing.T, config Config) *harness {
	t.Helper()

	lp, err := looper.New(looper.Config{})
	testutil.AssertNoError(t, err)
	t.Cleanup(func() { <-lp.Quit() })

	h := &harness{
		looper:   lp,
		counter:  testutil.NewRecordingDisplay(),
		result:   testutil.NewRecordingDisplay(),
		controls: testutil.NewRecordingControls(),
	}
	h.orch, err = New(lp, Surface{
		Counter:  h.counter,
		Result:   h.result,
		Controls: h.controls,
	}, config)
	testutil.AssertNoError(t, err)

	t.Cleanup(func() {
		h.orch.Stop()
		ctx, cancel := testutil.WithTimeout(t)
		defer cancel()
		_, _ = h.orch.Wait(ctx)
	})
	return h
}

func (h *harness) wait(t *testing.T) Result {
	t.Helper()
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()
	res, err := h.orch.Wait(ctx)
	testutil.AssertNoError(t, err)
	return res
}

// trackingResource counts concurrent holders of the wrapped resource.
type trackingResource struct {
	exclusion.Resource

	holders    atomic.Int32
	maxHolders atomic.Int32
	doCalls    atomic.Int32
	acquires   atomic.Int32
}

func newTrackingResource() *trackingResource {
	return &trackingResource{Resource: exclusion.New()}
}

func (r *trackingResource) acquire(ctx context.Context) error {
	if err := r.Resource.Acquire(ctx); err != nil {
		return err
	}
	n := r.holders.Add(1)
	for {
		cur := r.maxHolders.Load()
		if n <= cur || r.maxHolders.CompareAndSwap(cur, n) {
			break
		}
	}
	return nil
}

func (r *trackingResource) Acquire(ctx context.Context) error {
	r.acquires.Add(1)
	return r.acquire(ctx)
}

func (r *trackingResource) Release() {
	r.holders.Add(-1)
	r.Resource.Release()
}

func (r *trackingResource) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	r.doCalls.Add(1)
	if err := r.acquire(ctx); err != nil {
		return err
	}
	defer r.Release()
	return fn(ctx)
}

// recordingExecutor calls onSchedule before forwarding each Schedule call.
type recordingExecutor struct {
	executor.Executor

	mu         sync.Mutex
	delays     []time.Duration
	onSchedule func()
}

func newRecordingExecutor(t *testing.T, name string, onSchedule func()) *recordingExecutor {
	t.Helper()
	e, err := executor.New(name)
	testutil.AssertNoError(t, err)
	t.Cleanup(func() { <-e.ShutdownNow() })
	return &recordingExecutor{Executor: e, onSchedule: onSchedule}
}

func (e *recordingExecutor) Schedule(task executor.Task, delay time.Duration) error {
	if e.onSchedule != nil {
		e.onSchedule()
	}
	e.mu.Lock()
	e.delays = append(e.delays, delay)
	e.mu.Unlock()
	return e.Executor.Schedule(task, delay)
}

func (e *recordingExecutor) Delays() []time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]time.Duration, len(e.delays))
	copy(out, e.delays)
	return out
}

// orderQueue records the sequence numbers returned by Poll.
type orderQueue struct {
	queue.Queue[WorkItem]

	mu   sync.Mutex
	seqs []uint64
}

func (q *orderQueue) Poll() (WorkItem, bool) {
	item, ok := q.Queue.Poll()
	if ok {
		q.mu.Lock()
		q.seqs = append(q.seqs, item.Seq)
		q.mu.Unlock()
	}
	return item, ok
}

func (q *orderQueue) polled() []uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]uint64, len(q.seqs))
	copy(out, q.seqs)
	return out
}
