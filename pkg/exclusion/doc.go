/*
Package exclusion provides a single exclusive-access token shared by
goroutines that must never run a critical section at the same time, even
when they are driven by different executors.

Acquire blocks until the token is granted or the context is done. Waiters are
granted in arrival order. Release hands the token to the next waiter. The
token is not reentrant: a holder that calls Acquire again blocks forever.

Do is the scoped form and is the recommended way to use a Resource because
the token is released on every exit path, including panics and cancellation
observed inside fn:

	res := exclusion.New()
	err := res.Do(ctx, func(ctx context.Context) error {
		return rotate(ctx)
	})
*/
package exclusion
