package queue

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/vnykmshr/logpipe/internal/testutil"
	lperrors "github.com/vnykmshr/logpipe/pkg/common/errors"
	"github.com/vnykmshr/logpipe/pkg/metrics"
)

func TestPutThenPoll(t *testing.T) {
	q := New[string]()
	ctx := context.Background()

	testutil.AssertNoError(t, q.Put(ctx, "first"))
	testutil.AssertNoError(t, q.Put(ctx, "second"))
	testutil.AssertEqual(t, q.Len(), 2)

	v, ok := q.Poll()
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, v, "first")

	v, ok = q.Poll()
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, v, "second")

	v, ok = q.Poll()
	testutil.AssertEqual(t, ok, false)
	testutil.AssertEqual(t, v, "")
	testutil.AssertEqual(t, q.Len(), 0)
}

func TestFIFOAcrossGrowth(t *testing.T) {
	q := New[int]()
	ctx := context.Background()

	// Interleave puts and polls so the ring wraps before it grows.
	next := 0
	for i := 0; i < initialCapacity/2; i++ {
		testutil.AssertNoError(t, q.Put(ctx, i))
	}
	for i := 0; i < initialCapacity/4; i++ {
		v, ok := q.Poll()
		testutil.AssertEqual(t, ok, true)
		testutil.AssertEqual(t, v, next)
		next++
	}
	for i := initialCapacity / 2; i < initialCapacity*5; i++ {
		testutil.AssertNoError(t, q.Put(ctx, i))
	}

	for {
		v, ok := q.Poll()
		if !ok {
			break
		}
		if v != next {
			t.Fatalf("polled %d, want %d", v, next)
		}
		next++
	}
	testutil.AssertEqual(t, next, initialCapacity*5)
}

func TestPutCanceled(t *testing.T) {
	q := New[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := q.Put(ctx, 1)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	testutil.AssertEqual(t, q.Len(), 0)
	testutil.AssertEqual(t, q.Stats().FailedPuts, int64(1))
}

func TestClose(t *testing.T) {
	q := New[int]()
	ctx := context.Background()

	testutil.AssertNoError(t, q.Put(ctx, 7))
	testutil.AssertNoError(t, q.Close())

	if err := q.Put(ctx, 8); !errors.Is(err, lperrors.ErrClosed) {
		t.Fatalf("got %v, want ErrClosed", err)
	}

	// Items queued before Close remain available.
	v, ok := q.Poll()
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, v, 7)
}

func TestSingleProducerSingleConsumer(t *testing.T) {
	const items = 5000
	q := New[int]()
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < items; i++ {
			if err := q.Put(ctx, i); err != nil {
				t.Errorf("put %d: %v", i, err)
				return
			}
		}
	}()

	seen := make([]bool, items)
	next := 0
	for next < items {
		v, ok := q.Poll()
		if !ok {
			continue
		}
		if seen[v] {
			t.Fatalf("item %d polled twice", v)
		}
		seen[v] = true
		if v != next {
			t.Fatalf("polled %d, want %d", v, next)
		}
		next++
	}
	wg.Wait()

	stats := q.Stats()
	testutil.AssertEqual(t, stats.PutCount, int64(items))
	testutil.AssertEqual(t, stats.PollCount, int64(items))
	if stats.MaxDepth < 1 {
		t.Errorf("MaxDepth = %d, want >= 1", stats.MaxDepth)
	}
}

func TestMetricsQueue(t *testing.T) {
	registry := metrics.NewRegistry(prometheus.NewRegistry())
	q := NewWithMetrics[int]("tasks", registry)
	ctx := context.Background()

	testutil.AssertNoError(t, q.Put(ctx, 1))
	testutil.AssertNoError(t, q.Put(ctx, 2))
	testutil.AssertEqual(t, promtest.ToFloat64(registry.QueueDepth.WithLabelValues("tasks")), 2.0)

	q.Poll()
	q.Poll()
	q.Poll()

	testutil.AssertEqual(t, promtest.ToFloat64(registry.QueuePuts.WithLabelValues("tasks")), 2.0)
	testutil.AssertEqual(t, promtest.ToFloat64(registry.QueuePolls.WithLabelValues("tasks", "item")), 2.0)
	testutil.AssertEqual(t, promtest.ToFloat64(registry.QueuePolls.WithLabelValues("tasks", "empty")), 1.0)
	testutil.AssertEqual(t, promtest.ToFloat64(registry.QueueDepth.WithLabelValues("tasks")), 0.0)

	_ = q.Close()
	_ = q.Put(ctx, 3)
	testutil.AssertEqual(t, promtest.ToFloat64(registry.QueuePutFailures.WithLabelValues("tasks")), 1.0)
}

func TestNewWithMetricsNilRegistry(t *testing.T) {
	q := NewWithMetrics[int]("plain", nil)
	if _, ok := q.(*MetricsQueue[int]); ok {
		t.Error("nil registry should return an unwrapped queue")
	}
}
