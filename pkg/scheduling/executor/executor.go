package executor

import (
	"container/heap"
	"context"
	"fmt"
	"runtime/debug"
	"runtime/pprof"
	"sync"
	"time"

	"github.com/rs/zerolog"

	lperrors "github.com/vnykmshr/logpipe/pkg/common/errors"
	"github.com/vnykmshr/logpipe/pkg/common/validation"
)

// Task represents a unit of work run by an executor.
type Task interface {
	// Execute runs the task. ctx is canceled when the executor shuts down.
	Execute(ctx context.Context) error
}

// TaskFunc is a function type that implements the Task interface.
type TaskFunc func(ctx context.Context) error

// Execute implements the Task interface for TaskFunc.
func (f TaskFunc) Execute(ctx context.Context) error {
	return f(ctx)
}

// Result describes one task execution.
type Result struct {
	// Task is the task that was executed
	Task Task

	// Error is any error returned by the task, or a wrapped panic
	Error error

	// Duration is how long the task took to execute
	Duration time.Duration

	// Lateness is how long after its due time the task started
	Lateness time.Duration
}

// Executor runs delayed tasks one at a time on a dedicated goroutine.
type Executor interface {
	// Schedule arranges for task to run once after delay.
	// It returns an error wrapping errors.ErrClosed after shutdown.
	Schedule(task Task, delay time.Duration) error

	// Pending returns the number of scheduled tasks that have not started.
	Pending() int

	// IsShutdown returns true once ShutdownNow has been called.
	IsShutdown() bool

	// ShutdownNow drops pending tasks and cancels the running one.
	// The returned channel closes when the worker goroutine has exited.
	// It is safe to call more than once.
	ShutdownNow() <-chan struct{}

	// Done returns a channel that closes when the worker goroutine has exited.
	Done() <-chan struct{}

	// Name returns the executor's diagnostic name.
	Name() string
}

// Config holds configuration options for creating an executor.
type Config struct {
	// Name identifies the executor in logs, metrics and pprof labels.
	// Must not be empty.
	Name string

	// Logger receives lifecycle and failure events. Zero value disables logging.
	Logger zerolog.Logger

	// PanicHandler is called when a task panics.
	// If nil, panics are recovered and reported as task errors.
	PanicHandler func(task Task, recovered interface{})

	// OnTaskComplete is called after a task completes (success or failure).
	OnTaskComplete func(result Result)
}

// scheduledTask is an entry in the delay heap.
type scheduledTask struct {
	task  Task
	runAt time.Time
	seq   uint64
	index int
}

// delayHeap orders tasks by due time, then by submission order.
type delayHeap []*scheduledTask

func (h delayHeap) Len() int { return len(h) }
func (h delayHeap) Less(i, j int) bool {
	if h[i].runAt.Equal(h[j].runAt) {
		return h[i].seq < h[j].seq
	}
	return h[i].runAt.Before(h[j].runAt)
}
func (h delayHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *delayHeap) Push(x any) {
	item := x.(*scheduledTask)
	item.index = len(*h)
	*h = append(*h, item)
}

func (h *delayHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid memory leak
	item.index = -1
	*h = old[:n-1]
	return item
}

// executor implements the Executor interface.
type executor struct {
	config Config
	logger zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	pq         delayHeap
	seq        uint64
	isShutdown bool

	wakeup       chan struct{}
	stopped      chan struct{}
	shutdownOnce sync.Once
}

// New creates and starts an executor with the given name.
func New(name string) (Executor, error) {
	return NewWithConfig(Config{Name: name})
}

// NewWithConfig creates and starts an executor with the specified configuration.
func NewWithConfig(config Config) (Executor, error) {
	if err := validation.ValidateNotEmpty("executor", "name", config.Name); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &executor{
		config:  config,
		logger:  config.Logger.With().Str("executor", config.Name).Logger(),
		ctx:     ctx,
		cancel:  cancel,
		wakeup:  make(chan struct{}, 1),
		stopped: make(chan struct{}),
	}
	heap.Init(&e.pq)

	go pprof.Do(ctx, pprof.Labels("executor", config.Name), func(context.Context) {
		e.run()
	})

	return e, nil
}

// Name implements Executor.Name.
func (e *executor) Name() string {
	return e.config.Name
}

// Schedule implements Executor.Schedule.
func (e *executor) Schedule(task Task, delay time.Duration) error {
	if task == nil {
		return fmt.Errorf("task cannot be nil")
	}
	if delay < 0 {
		delay = 0
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.isShutdown {
		return fmt.Errorf("cannot schedule task on %s: %w", e.config.Name, lperrors.ErrClosed)
	}

	e.seq++
	item := &scheduledTask{
		task:  task,
		runAt: time.Now().Add(delay),
		seq:   e.seq,
	}
	heap.Push(&e.pq, item)

	if item.index == 0 {
		select {
		case e.wakeup <- struct{}{}:
		default:
		}
	}
	return nil
}

// Pending implements Executor.Pending.
func (e *executor) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pq)
}

// IsShutdown implements Executor.IsShutdown.
func (e *executor) IsShutdown() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isShutdown
}

// ShutdownNow implements Executor.ShutdownNow.
func (e *executor) ShutdownNow() <-chan struct{} {
	e.shutdownOnce.Do(func() {
		e.mu.Lock()
		e.isShutdown = true
		dropped := len(e.pq)
		e.pq = nil
		e.mu.Unlock()

		// Interrupt the running task, if any
		e.cancel()

		e.logger.Debug().Int("dropped", dropped).Msg("executor shut down")
	})
	return e.stopped
}

// Done implements Executor.Done.
func (e *executor) Done() <-chan struct{} {
	return e.stopped
}

// run is the worker loop. It owns the only goroutine that executes tasks.
func (e *executor) run() {
	defer close(e.stopped)

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		e.mu.Lock()
		if e.isShutdown {
			e.mu.Unlock()
			return
		}

		wait := time.Duration(-1)
		if len(e.pq) > 0 {
			next := e.pq[0]
			now := time.Now()
			if !next.runAt.After(now) {
				heap.Pop(&e.pq)
				e.mu.Unlock()
				e.execute(next, now)
				continue
			}
			wait = next.runAt.Sub(now)
		}
		e.mu.Unlock()

		var fire <-chan time.Time
		if wait >= 0 {
			timer.Reset(wait)
			fire = timer.C
		}

		select {
		case <-e.ctx.Done():
			return
		case <-fire:
		case <-e.wakeup:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}
	}
}

// execute runs a single task, recovering panics so the loop survives.
func (e *executor) execute(st *scheduledTask, now time.Time) {
	start := time.Now()
	var err error

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v\nStack trace:\n%s", r, debug.Stack())
			if e.config.PanicHandler != nil {
				e.config.PanicHandler(st.task, r)
			}
			e.logger.Error().Interface("panic", r).Msg("task panicked")
		}

		if e.config.OnTaskComplete != nil {
			e.config.OnTaskComplete(Result{
				Task:     st.task,
				Error:    err,
				Duration: time.Since(start),
				Lateness: now.Sub(st.runAt),
			})
		}
	}()

	err = st.task.Execute(e.ctx)
	if err != nil && !lperrors.IsCancellation(err) {
		e.logger.Warn().Err(err).Msg("task failed")
	}
}
