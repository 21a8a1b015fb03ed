/*
Package queue provides an unbounded, goroutine-safe FIFO used to hand work
items from one producer to one draining consumer.

Put appends and only fails when its context is done or the queue has been
closed. Poll never blocks: it returns the oldest item, or false when the
queue is empty. Items come out in exactly the order they went in and each
item is returned by Poll at most once.

	q := queue.New[pipeline.WorkItem]()
	if err := q.Put(ctx, item); err != nil {
		// canceled or closed
	}
	for {
		item, ok := q.Poll()
		if !ok {
			break
		}
		process(item)
	}

NewWithMetrics wraps a queue so that depth, puts and polls are reported to
a metrics.Registry.
*/
package queue
