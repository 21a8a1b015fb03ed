package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	lperrors "github.com/vnykmshr/logpipe/pkg/common/errors"
	"github.com/vnykmshr/logpipe/pkg/common/validation"
	"github.com/vnykmshr/logpipe/pkg/exclusion"
	"github.com/vnykmshr/logpipe/pkg/metrics"
	"github.com/vnykmshr/logpipe/pkg/queue"
	"github.com/vnykmshr/logpipe/pkg/scheduling/executor"
	"github.com/vnykmshr/logpipe/pkg/scheduling/looper"
	"github.com/vnykmshr/logpipe/pkg/scheduling/naming"
)

// RunInfo describes a started run.
type RunInfo struct {
	ID               uuid.UUID `json:"id"`
	Mode             Mode      `json:"mode"`
	StartedAt        time.Time `json:"started_at"`
	ConsumerExecutor string    `json:"consumer_executor"`
	RotatorExecutor  string    `json:"rotator_executor"`
}

// Result describes a stopped run.
type Result struct {
	ID        uuid.UUID     `json:"id"`
	Mode      Mode          `json:"mode"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed_ns"`

	// Items is the number of items the producer enqueued.
	Items int64 `json:"items"`
}

// Status is a snapshot of the orchestrator.
type Status struct {
	Active  bool     `json:"active"`
	Run     *RunInfo `json:"run,omitempty"`
	Counter int64    `json:"counter"`
	Last    *Result  `json:"last,omitempty"`
}

// run is the state of one pipeline run. It is handed to every tick
// scheduled for the run.
type run struct {
	info         RunInfo
	started      time.Time
	display      Display
	consumerExec executor.Executor
	rotatorExec  executor.Executor

	counter atomic.Int64
	stopped atomic.Bool

	// result is written before finished is closed.
	result   Result
	finished chan struct{}
}

// Orchestrator owns the run lifecycle: it creates executors, schedules the
// first ticks and tears everything down on Stop.
//
// Start and Stop run their bodies on the looper, so they must not be
// called from a looper callback.
type Orchestrator struct {
	config   Config
	logger   zerolog.Logger
	looper   *looper.Looper
	surface  Surface
	registry *metrics.Registry

	producer *producer
	consumer *consumer
	rotator  *rotator

	mu      sync.Mutex
	current *run
	latest  *run
	last    *Result
}

// New creates an Orchestrator that drives its producer on lp.
func New(lp *looper.Looper, surface Surface, config Config) (*Orchestrator, error) {
	if lp == nil {
		return nil, validation.ValidateNotNil("pipeline", "looper", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	schedule, err := ParseRotateSchedule(config.RotateSchedule)
	if err != nil {
		return nil, err
	}
	if config.Clock == nil {
		config.Clock = systemClock{}
	}

	registry := config.Metrics.Resolve()
	if config.Queue == nil {
		config.Queue = queue.NewWithMetrics[WorkItem]("tasks", registry)
	}
	if config.Resource == nil {
		config.Resource = exclusion.NewWithMetrics("log", registry)
	}

	logger := config.Logger.With().Str("component", "pipeline").Logger()
	o := &Orchestrator{
		config:   config,
		logger:   logger,
		looper:   lp,
		surface:  surface.withDefaults(),
		registry: registry,
	}

	o.producer = &producer{
		looper:  lp,
		queue:   config.Queue,
		delay:   config.PutDelay,
		latency: config.PutLatency,
		limit:   int64(config.Limit),
		stop:    func(r *run) { o.stopRun(r) },
		logger:  logger.With().Str("worker", workerProducer).Logger(),
		metrics: workerMetrics{worker: workerProducer, registry: registry},
	}
	o.consumer = &consumer{
		queue:    config.Queue,
		resource: config.Resource,
		delay:    config.WriteDelay,
		latency:  config.WriteLatency,
		logger:   logger.With().Str("worker", workerConsumer).Logger(),
		metrics:  workerMetrics{worker: workerConsumer, registry: registry},
	}
	o.rotator = &rotator{
		resource: config.Resource,
		delay:    config.RotateDelay,
		duration: config.RotateDuration,
		schedule: schedule,
		clock:    config.Clock,
		logger:   logger.With().Str("worker", workerRotator).Logger(),
		metrics:  workerMetrics{worker: workerRotator, registry: registry},
	}

	return o, nil
}

// StartWithOneExecutor starts a run where consumer and rotator share a
// single executor named WriteLogExecutor-<n>.
func (o *Orchestrator) StartWithOneExecutor() (RunInfo, error) {
	return o.StartMode(ModeOneExecutor)
}

// StartWithTwoExecutors starts a run where the consumer runs on
// WriteLogExecutor-<n> and the rotator on RotateLogExecutor-<n>.
func (o *Orchestrator) StartWithTwoExecutors() (RunInfo, error) {
	return o.StartMode(ModeTwoExecutors)
}

// StartMode starts a run in the given mode, publishing the counter to
// Surface.Counter.
func (o *Orchestrator) StartMode(mode Mode) (RunInfo, error) {
	if mode != ModeOneExecutor && mode != ModeTwoExecutors {
		return RunInfo{}, lperrors.NewValidationError("pipeline", "mode", mode, "unknown executor mode")
	}

	var info RunInfo
	var startErr error
	err := o.looper.Invoke(func(context.Context) {
		if o.Status().Active {
			startErr = lperrors.ErrRunActive
			return
		}
		consumerExec, rotatorExec, err := o.newExecutors(mode)
		if err != nil {
			startErr = err
			return
		}
		info, startErr = o.start(o.surface.Counter, consumerExec, rotatorExec)
		if startErr != nil {
			consumerExec.ShutdownNow()
			rotatorExec.ShutdownNow()
		}
	})
	if err != nil {
		return RunInfo{}, err
	}
	return info, startErr
}

// Start begins a run that publishes its counter to display and schedules
// consumer and rotator on the given executors. Passing the same executor
// twice selects ModeOneExecutor. The executors are shut down by Stop.
// It returns errors.ErrRunActive if a run is already in progress.
func (o *Orchestrator) Start(display Display, consumerExec, rotatorExec executor.Executor) (RunInfo, error) {
	if err := validateStartArgs(display, consumerExec, rotatorExec); err != nil {
		return RunInfo{}, err
	}

	var info RunInfo
	var startErr error
	err := o.looper.Invoke(func(context.Context) {
		info, startErr = o.start(display, consumerExec, rotatorExec)
	})
	if err != nil {
		return RunInfo{}, err
	}
	return info, startErr
}

func validateStartArgs(display Display, consumerExec, rotatorExec executor.Executor) error {
	checks := []error{
		validation.ValidateNotNil("pipeline", "display", display),
		validation.ValidateNotNil("pipeline", "consumer_executor", consumerExec),
		validation.ValidateNotNil("pipeline", "rotator_executor", rotatorExec),
	}
	for _, err := range checks {
		if err != nil {
			return err
		}
	}
	return nil
}

// newExecutors builds the executors for one run. Name factories are per
// run, so every run gets WriteLogExecutor-0 and RotateLogExecutor-0.
func (o *Orchestrator) newExecutors(mode Mode) (executor.Executor, executor.Executor, error) {
	writeNames, err := naming.NewFactory("WriteLogExecutor")
	if err != nil {
		return nil, nil, err
	}
	consumerExec, err := executor.NewWithMetrics(executor.Config{
		Name:   writeNames.Next(),
		Logger: o.config.Logger,
	}, o.registry)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create consumer executor: %w", err)
	}
	if mode == ModeOneExecutor {
		return consumerExec, consumerExec, nil
	}

	rotateNames, err := naming.NewFactory("RotateLogExecutor")
	if err != nil {
		consumerExec.ShutdownNow()
		return nil, nil, err
	}
	rotatorExec, err := executor.NewWithMetrics(executor.Config{
		Name:   rotateNames.Next(),
		Logger: o.config.Logger,
	}, o.registry)
	if err != nil {
		consumerExec.ShutdownNow()
		return nil, nil, fmt.Errorf("failed to create rotator executor: %w", err)
	}
	return consumerExec, rotatorExec, nil
}

// start runs on the looper.
func (o *Orchestrator) start(display Display, consumerExec, rotatorExec executor.Executor) (RunInfo, error) {
	mode := ModeTwoExecutors
	if consumerExec == rotatorExec {
		mode = ModeOneExecutor
	}

	o.mu.Lock()
	if o.current != nil {
		o.mu.Unlock()
		return RunInfo{}, lperrors.ErrRunActive
	}

	started := o.config.Clock.Now()
	r := &run{
		info: RunInfo{
			ID:               uuid.New(),
			Mode:             mode,
			StartedAt:        started,
			ConsumerExecutor: consumerExec.Name(),
			RotatorExecutor:  rotatorExec.Name(),
		},
		started:      started,
		display:      display,
		consumerExec: consumerExec,
		rotatorExec:  rotatorExec,
		finished:     make(chan struct{}),
	}
	o.current = r
	o.latest = r
	o.mu.Unlock()

	o.surface.Controls.SetEnabled(false)
	o.surface.Result.Publish("Total time: ")
	recordRunStarted(o.registry, mode)

	if err := o.scheduleFirstTicks(r); err != nil {
		o.stopRun(r)
		return RunInfo{}, err
	}

	o.logger.Info().
		Str("run_id", r.info.ID.String()).
		Str("mode", mode.String()).
		Str("consumer_executor", r.info.ConsumerExecutor).
		Str("rotator_executor", r.info.RotatorExecutor).
		Msg("run started")
	return r.info, nil
}

func (o *Orchestrator) scheduleFirstTicks(r *run) error {
	if err := o.looper.PostDelayed(o.producer.tick(r), o.config.PutDelay); err != nil {
		return fmt.Errorf("failed to schedule producer: %w", err)
	}
	if err := r.consumerExec.Schedule(o.consumer.tick(r), o.config.WriteDelay); err != nil {
		return fmt.Errorf("failed to schedule consumer: %w", err)
	}
	delay, ok := o.rotator.nextDelay()
	if !ok {
		o.logger.Warn().Msg("rotation schedule has no activations, rotator not started")
		return nil
	}
	if err := r.rotatorExec.Schedule(o.rotator.tick(r), delay); err != nil {
		return fmt.Errorf("failed to schedule rotator: %w", err)
	}
	return nil
}

// Stop ends the active run: it shuts down its executors, publishes the
// elapsed time and re-enables the start controls. Calling Stop again, or
// without an active run, has no effect and returns the last result.
func (o *Orchestrator) Stop() Result {
	res, _ := o.StopActive()
	return res
}

// StopActive is like Stop but returns errors.ErrNoRun when no run was active.
func (o *Orchestrator) StopActive() (Result, error) {
	var res Result
	var stopped bool
	body := func(context.Context) {
		res, stopped = o.stopRun(o.activeRun())
	}
	if err := o.looper.Invoke(body); err != nil {
		// The looper is gone; nothing else can be touching the surface.
		body(context.Background())
	}
	if !stopped {
		return res, lperrors.ErrNoRun
	}
	return res, nil
}

func (o *Orchestrator) activeRun() *run {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// stopRun stops r if it is still the active run. It reports whether it
// did; otherwise it returns the last result unchanged.
func (o *Orchestrator) stopRun(r *run) (Result, bool) {
	o.mu.Lock()
	if r == nil || o.current != r {
		var last Result
		if o.last != nil {
			last = *o.last
		}
		o.mu.Unlock()
		return last, false
	}

	r.stopped.Store(true)
	elapsed := o.config.Clock.Now().Sub(r.started)
	r.result = Result{
		ID:        r.info.ID,
		Mode:      r.info.Mode,
		StartedAt: r.info.StartedAt,
		Elapsed:   elapsed,
		Items:     r.counter.Swap(0),
	}
	res := r.result
	o.current = nil
	o.last = &res
	o.mu.Unlock()

	consumerDone := shutdown(r.consumerExec)
	rotatorDone := shutdown(r.rotatorExec)
	go func() {
		<-consumerDone
		<-rotatorDone
		close(r.finished)
	}()

	o.surface.Result.Publish(fmt.Sprintf("Total time: %d", elapsed.Milliseconds()))
	o.surface.Controls.SetEnabled(true)
	recordRunStopped(o.registry, r.info.Mode, elapsed)

	o.logger.Info().
		Str("run_id", res.ID.String()).
		Int64("items", res.Items).
		Int64("elapsed_ms", elapsed.Milliseconds()).
		Msg("Total time")
	return res, true
}

func shutdown(e executor.Executor) <-chan struct{} {
	if e.IsShutdown() {
		return e.Done()
	}
	return e.ShutdownNow()
}

// Wait blocks until the most recent run has stopped and its executors
// have exited, or ctx is done. It returns errors.ErrNoRun if no run was
// ever started.
func (o *Orchestrator) Wait(ctx context.Context) (Result, error) {
	o.mu.Lock()
	r := o.latest
	o.mu.Unlock()
	if r == nil {
		return Result{}, lperrors.ErrNoRun
	}

	select {
	case <-r.finished:
		return r.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Status returns a snapshot of the orchestrator state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	var s Status
	if o.current != nil {
		info := o.current.info
		s.Active = true
		s.Run = &info
		s.Counter = o.current.counter.Load()
	}
	if o.last != nil {
		last := *o.last
		s.Last = &last
	}
	return s
}
