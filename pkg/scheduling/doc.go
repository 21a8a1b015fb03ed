/*
Package scheduling provides the execution primitives the pipeline runs on.

  - executor: One worker goroutine running delayed tasks in due order
  - looper: A foreground event loop built on an executor
  - naming: Sequential "<prefix>-<n>" names for executors

Executor:

	exec, _ := executor.New("WriteLogExecutor-0")
	defer func() { <-exec.ShutdownNow() }()

	exec.Schedule(executor.TaskFunc(func(ctx context.Context) error {
		// Do work; ctx is canceled by ShutdownNow
		return nil
	}), 100*time.Millisecond)

Looper:

	lp, _ := looper.New(looper.Config{})
	defer func() { <-lp.Quit() }()

	lp.PostDelayed(func(ctx context.Context) {
		display.Publish("tick")
	}, time.Millisecond)

ShutdownNow drops pending tasks and cancels the running one. Tasks treat
cancellation as the end of their tick.
*/
package scheduling
