package queue

import (
	"context"
	"sync"
	"time"

	lperrors "github.com/vnykmshr/logpipe/pkg/common/errors"
)

// initialCapacity is the starting size of the ring buffer; it doubles as needed.
const initialCapacity = 64

// Queue is an unbounded FIFO of items of type T.
type Queue[T any] interface {
	// Put appends value to the tail of the queue.
	// It returns ctx.Err() if ctx is already done and ErrClosed after Close.
	Put(ctx context.Context, value T) error

	// Poll removes and returns the head of the queue without blocking.
	// The boolean is false when the queue is empty.
	Poll() (T, bool)

	// Len returns the current number of queued items.
	Len() int

	// Close stops further puts. Items already queued can still be polled.
	Close() error

	// Stats returns queue statistics.
	Stats() Stats
}

// Stats holds statistics about queue usage.
type Stats struct {
	// PutCount is the total number of successful puts.
	PutCount int64

	// PollCount is the total number of polls that returned an item.
	PollCount int64

	// EmptyPolls is the total number of polls that found the queue empty.
	EmptyPolls int64

	// FailedPuts is the number of puts rejected by cancellation or close.
	FailedPuts int64

	// MaxDepth is the largest length the queue has reached.
	MaxDepth int

	// LastPutTime is the timestamp of the last successful put.
	LastPutTime time.Time

	// LastPollTime is the timestamp of the last poll that returned an item.
	LastPollTime time.Time
}

// taskQueue implements Queue with a growable ring buffer.
type taskQueue[T any] struct {
	mu     sync.Mutex
	buffer []T
	head   int
	tail   int
	count  int
	closed bool
	stats  Stats
}

// New creates an empty unbounded queue.
func New[T any]() Queue[T] {
	return &taskQueue[T]{
		buffer: make([]T, initialCapacity),
	}
}

// Put implements Queue.Put.
func (q *taskQueue[T]) Put(ctx context.Context, value T) error {
	select {
	case <-ctx.Done():
		q.recordFailedPut()
		return ctx.Err()
	default:
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		q.stats.FailedPuts++
		return lperrors.ErrClosed
	}

	if q.count == len(q.buffer) {
		q.growLocked()
	}
	q.buffer[q.tail] = value
	q.tail = (q.tail + 1) % len(q.buffer)
	q.count++

	q.stats.PutCount++
	q.stats.LastPutTime = time.Now()
	if q.count > q.stats.MaxDepth {
		q.stats.MaxDepth = q.count
	}
	return nil
}

// Poll implements Queue.Poll.
func (q *taskQueue[T]) Poll() (T, bool) {
	var zero T

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.count == 0 {
		q.stats.EmptyPolls++
		return zero, false
	}

	value := q.buffer[q.head]
	q.buffer[q.head] = zero // Clear reference
	q.head = (q.head + 1) % len(q.buffer)
	q.count--

	q.stats.PollCount++
	q.stats.LastPollTime = time.Now()
	return value, true
}

// Len implements Queue.Len.
func (q *taskQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// Close implements Queue.Close.
func (q *taskQueue[T]) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	return nil
}

// Stats implements Queue.Stats.
func (q *taskQueue[T]) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stats
}

func (q *taskQueue[T]) recordFailedPut() {
	q.mu.Lock()
	q.stats.FailedPuts++
	q.mu.Unlock()
}

// growLocked doubles the buffer, unrolling the ring so head is at 0 (must hold lock).
func (q *taskQueue[T]) growLocked() {
	grown := make([]T, len(q.buffer)*2)
	n := copy(grown, q.buffer[q.head:])
	copy(grown[n:], q.buffer[:q.head])
	q.buffer = grown
	q.head = 0
	q.tail = q.count
}
