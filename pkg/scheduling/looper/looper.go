// Package looper provides a foreground event loop: a single goroutine that
// runs posted callbacks one at a time, optionally after a delay.
//
// Everything that touches a display or start controls is posted to the
// looper so those collaborators only ever see one caller.
package looper

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	lperrors "github.com/vnykmshr/logpipe/pkg/common/errors"
	"github.com/vnykmshr/logpipe/pkg/metrics"
	"github.com/vnykmshr/logpipe/pkg/scheduling/executor"
)

// Callback is a unit of work posted to the looper.
type Callback func(ctx context.Context)

// Config holds configuration options for creating a looper.
type Config struct {
	// Name identifies the looper goroutine. Defaults to "main".
	Name string

	// Logger receives lifecycle events. Zero value disables logging.
	Logger zerolog.Logger

	// Metrics is the registry callbacks are reported to. Nil disables metrics.
	Metrics *metrics.Registry
}

// Looper runs callbacks serially on its own goroutine.
type Looper struct {
	exec   executor.Executor
	logger zerolog.Logger
}

// New creates and starts a looper.
func New(config Config) (*Looper, error) {
	if config.Name == "" {
		config.Name = "main"
	}
	exec, err := executor.NewWithMetrics(executor.Config{
		Name:   config.Name,
		Logger: config.Logger,
	}, config.Metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create looper: %w", err)
	}
	return &Looper{
		exec:   exec,
		logger: config.Logger.With().Str("looper", config.Name).Logger(),
	}, nil
}

// Post queues cb to run as soon as the looper is free.
func (l *Looper) Post(cb Callback) error {
	return l.PostDelayed(cb, 0)
}

// PostDelayed queues cb to run after delay.
// It returns an error wrapping errors.ErrClosed once the looper has quit.
func (l *Looper) PostDelayed(cb Callback, delay time.Duration) error {
	if cb == nil {
		return fmt.Errorf("callback cannot be nil")
	}
	return l.exec.Schedule(executor.TaskFunc(func(ctx context.Context) error {
		cb(ctx)
		return nil
	}), delay)
}

// Invoke posts cb and blocks until it has run. It must not be called from
// a callback running on the same looper.
func (l *Looper) Invoke(cb Callback) error {
	done := make(chan struct{})
	if err := l.Post(func(ctx context.Context) {
		defer close(done)
		cb(ctx)
	}); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-l.exec.Done():
		// The callback may have been the last one to run.
		select {
		case <-done:
			return nil
		default:
			return fmt.Errorf("looper %s quit before callback ran: %w", l.exec.Name(), lperrors.ErrClosed)
		}
	}
}

// Name returns the looper's name.
func (l *Looper) Name() string {
	return l.exec.Name()
}

// Pending returns the number of callbacks waiting to run.
func (l *Looper) Pending() int {
	return l.exec.Pending()
}

// IsQuit returns true once Quit has been called.
func (l *Looper) IsQuit() bool {
	return l.exec.IsShutdown()
}

// Quit stops the looper, dropping callbacks that have not started.
// The returned channel closes when the looper goroutine has exited.
func (l *Looper) Quit() <-chan struct{} {
	if !l.exec.IsShutdown() {
		l.logger.Debug().Int("dropped", l.exec.Pending()).Msg("looper quitting")
	}
	return l.exec.ShutdownNow()
}
