// Package metrics provides Prometheus instrumentation for logpipe components.
//
// # Overview
//
// The metrics package instruments:
//   - the task queue (depth, puts, polls by result, aborted puts)
//   - the exclusion resource (acquisitions, waiters, wait and hold time)
//   - background executors (pending tasks, scheduled, executed, failed, duration)
//   - the pipeline itself (ticks and cancellations per worker, runs per mode)
//
// # Quick Start
//
// Components expose metrics-enabled constructors that take a *Registry:
//
//	reg := metrics.Config{Enabled: true, Registry: prometheus.NewRegistry()}.Resolve()
//	q := queue.NewWithMetrics("tasks", reg)
//	res := exclusion.NewWithMetrics("log", reg)
//
// Config.Resolve hands out one Registry per Prometheus registerer, so all
// components of a pipeline can share it.
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{}))
//
// # Available Metrics
//
//   - logpipe_queue_depth, logpipe_queue_puts_total, logpipe_queue_polls_total,
//     logpipe_queue_put_failures_total
//   - logpipe_exclusion_acquired_total, logpipe_exclusion_waiting,
//     logpipe_exclusion_wait_duration_seconds, logpipe_exclusion_hold_duration_seconds
//   - logpipe_executor_pending_tasks, logpipe_executor_tasks_scheduled_total,
//     logpipe_executor_tasks_executed_total, logpipe_executor_tasks_failed_total,
//     logpipe_executor_task_duration_seconds
//   - logpipe_pipeline_ticks_total, logpipe_pipeline_cancellations_total,
//     logpipe_pipeline_runs_started_total, logpipe_pipeline_run_duration_seconds,
//     logpipe_pipeline_run_active
package metrics
