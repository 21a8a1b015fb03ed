/*
Package executor provides single-goroutine delayed task executors.

An Executor owns exactly one worker goroutine. Tasks are scheduled with a
delay and run one at a time, in due-time order (ties in submission order),
on that goroutine. Two tasks scheduled on the same Executor therefore never
overlap, which is what makes an Executor useful as a serialization domain.

	exec, err := executor.New("WriteLogExecutor-0")
	if err != nil {
		return err
	}
	exec.Schedule(executor.TaskFunc(func(ctx context.Context) error {
		return drain(ctx)
	}), 100*time.Millisecond)

	<-exec.ShutdownNow()

ShutdownNow is immediate: pending tasks are dropped, the context handed to
the running task is canceled, and later Schedule calls fail with
errors.ErrClosed. The returned channel closes once the worker goroutine has
exited. Tasks are expected to watch their context at every blocking point.

The worker goroutine carries a pprof label executor=<name> so profiles and
goroutine dumps can be attributed to the executor that owns it.
*/
package executor
