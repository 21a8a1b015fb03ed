package exclusion

import (
	"context"
	"sync"
)

// Resource is a mutual exclusion token with context-aware acquisition.
type Resource interface {
	// Acquire blocks until the token is held by the caller.
	// It returns ctx.Err() if the context is done first; the token is then not held.
	Acquire(ctx context.Context) error

	// TryAcquire takes the token if it is free, without blocking.
	TryAcquire() bool

	// Release gives the token back. It panics if the token is not held.
	Release()

	// Do runs fn while holding the token and always releases it afterwards.
	Do(ctx context.Context, fn func(ctx context.Context) error) error

	// Held returns true if some caller currently holds the token.
	Held() bool

	// Waiting returns the number of callers blocked in Acquire.
	Waiting() int
}

// resource implements Resource with a FIFO waiter list.
type resource struct {
	mu      sync.Mutex
	held    bool
	waiters []waiter
}

// waiter represents a goroutine waiting for the token
type waiter struct {
	ready chan struct{} // closed when the token is handed to this waiter
}

// New creates a free Resource.
func New() Resource {
	return &resource{}
}

// Acquire implements Resource.Acquire.
func (r *resource) Acquire(ctx context.Context) error {
	// Check if context is already canceled
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	r.mu.Lock()

	// Fast path: token is free and nobody is queued ahead of us
	if !r.held && len(r.waiters) == 0 {
		r.held = true
		r.mu.Unlock()
		return nil
	}

	// Slow path: queue up behind current waiters
	w := waiter{ready: make(chan struct{})}
	r.waiters = append(r.waiters, w)
	r.mu.Unlock()

	select {
	case <-w.ready:
		return nil
	case <-ctx.Done():
		if r.removeWaiter(w.ready) {
			return ctx.Err()
		}
		// Release handed us the token while we were giving up; pass it on.
		r.Release()
		return ctx.Err()
	}
}

// TryAcquire implements Resource.TryAcquire.
func (r *resource) TryAcquire() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.held || len(r.waiters) > 0 {
		return false
	}
	r.held = true
	return true
}

// Release implements Resource.Release.
func (r *resource) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.held {
		panic("exclusion: release of a token that is not held")
	}

	if len(r.waiters) == 0 {
		r.held = false
		return
	}

	// Hand off directly; the token stays held.
	next := r.waiters[0]
	r.waiters[0] = waiter{}
	r.waiters = r.waiters[1:]
	close(next.ready)
}

// Do implements Resource.Do.
func (r *resource) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := r.Acquire(ctx); err != nil {
		return err
	}
	defer r.Release()
	return fn(ctx)
}

// Held implements Resource.Held.
func (r *resource) Held() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.held
}

// Waiting implements Resource.Waiting.
func (r *resource) Waiting() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.waiters)
}

// removeWaiter drops the waiter owning ready. It returns false if the waiter
// was already granted the token.
func (r *resource) removeWaiter(ready chan struct{}) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, w := range r.waiters {
		if w.ready == ready {
			r.waiters = append(r.waiters[:i], r.waiters[i+1:]...)
			return true
		}
	}
	return false
}
