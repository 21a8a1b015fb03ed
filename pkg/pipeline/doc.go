/*
Package pipeline runs the three-stage log pipeline: a producer that enqueues
work items on the foreground looper, a consumer that drains them on a
background executor, and a rotator that periodically takes the shared
exclusion resource for itself.

Basic usage:

	lp, _ := looper.New(looper.Config{})
	defer func() { <-lp.Quit() }()

	view := &pipeline.TextView{}
	orch, err := pipeline.New(lp, pipeline.Surface{Counter: view}, pipeline.DefaultConfig())
	if err != nil {
		return err
	}

	if _, err := orch.StartWithTwoExecutors(); err != nil {
		return err
	}
	result, err := orch.Wait(ctx)

The producer stops the run by itself after Config.Limit items. Stop may be
called at any time and is idempotent.

Consumer and rotator never hold the exclusion resource at the same time,
whether they share one executor (ModeOneExecutor) or run on separate ones
(ModeTwoExecutors).
*/
package pipeline
