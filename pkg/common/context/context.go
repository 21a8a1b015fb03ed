package context

import (
	"context"
	"time"
)

// Sleep pauses for d or until ctx is done, whichever comes first.
// It returns ctx.Err() when the sleep was cut short.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsCanceled returns true if the context has been canceled or has expired.
func IsCanceled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
