package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vnykmshr/logpipe/internal/api"
	"github.com/vnykmshr/logpipe/pkg/metrics"
	"github.com/vnykmshr/logpipe/pkg/pipeline"
	"github.com/vnykmshr/logpipe/pkg/queue"
	"github.com/vnykmshr/logpipe/pkg/scheduling/looper"
)

func main() {
	defaults := pipeline.DefaultConfig()
	var (
		mode      = flag.String("mode", "two", "executor mode: one or two")
		serve     = flag.String("serve", "", "HTTP bind address; when set, runs are started through the API")
		limit     = flag.Int("limit", defaults.Limit, "items produced before a run stops itself")
		putDelay  = flag.Duration("put-delay", defaults.PutDelay, "delay between producer ticks")
		writeDly  = flag.Duration("write-delay", defaults.WriteDelay, "delay between consumer ticks")
		rotateDly = flag.Duration("rotate-delay", defaults.RotateDelay, "delay between rotator ticks")
		putLat    = flag.Duration("put-latency", defaults.PutLatency, "simulated cost of producing one item")
		writeLat  = flag.Duration("write-latency", defaults.WriteLatency, "time the consumer holds the lock per item")
		rotateDur = flag.Duration("rotate-duration", defaults.RotateDuration, "time the rotator holds the lock")
		schedule  = flag.String("rotate-schedule", "", `cron spec for rotation, e.g. "@every 1s"`)
		level     = flag.String("log-level", "info", "log level")
	)
	flag.Parse()

	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	if lvl, err := zerolog.ParseLevel(*level); err == nil {
		zerolog.SetGlobalLevel(lvl)
	} else {
		log.Fatal().Err(err).Msg("parse log level")
	}

	reg := prometheus.NewRegistry()
	config := defaults
	config.Limit = *limit
	config.PutDelay = *putDelay
	config.WriteDelay = *writeDly
	config.RotateDelay = *rotateDly
	config.PutLatency = *putLat
	config.WriteLatency = *writeLat
	config.RotateDuration = *rotateDur
	config.RotateSchedule = *schedule
	config.Logger = log.Logger
	config.Metrics = metrics.Config{Enabled: true, Registry: reg}
	tasks := queue.NewWithMetrics[pipeline.WorkItem]("tasks", config.Metrics.Resolve())
	config.Queue = tasks

	lp, err := looper.New(looper.Config{Logger: log.Logger, Metrics: config.Metrics.Resolve()})
	if err != nil {
		log.Fatal().Err(err).Msg("create looper")
	}
	defer func() { <-lp.Quit() }()

	counter, result := &pipeline.TextView{}, &pipeline.TextView{}
	buttons := pipeline.Buttons{
		&pipeline.Button{Label: "One executor"},
		&pipeline.Button{Label: "Two executors"},
	}
	orch, err := pipeline.New(lp, pipeline.Surface{Counter: counter, Result: result, Controls: buttons}, config)
	if err != nil {
		log.Fatal().Err(err).Msg("create pipeline")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *serve != "" {
		if err := runServer(ctx, *serve, orch, tasks, reg, counter, result); err != nil {
			log.Error().Err(err).Msg("http server")
		}
		return
	}

	m, err := pipeline.ParseMode(*mode)
	if err != nil {
		log.Fatal().Err(err).Msg("parse mode")
	}
	if err := runOnce(ctx, orch, tasks, m); err != nil {
		log.Error().Err(err).Msg("run")
		return
	}
	fmt.Println(result.Text())
}

// runOnce starts a single run and waits for it to finish or for ctx to be
// canceled, in which case the task queue is closed and the run is stopped
// early.
func runOnce(ctx context.Context, orch *pipeline.Orchestrator, tasks queue.Queue[pipeline.WorkItem], mode pipeline.Mode) error {
	if _, err := orch.StartMode(mode); err != nil {
		return err
	}

	_, err := orch.Wait(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info().Msg("interrupted, stopping run")
		_ = tasks.Close()
		orch.Stop()
		waitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err = orch.Wait(waitCtx)
	}
	return err
}

func runServer(ctx context.Context, addr string, orch *pipeline.Orchestrator, tasks queue.Queue[pipeline.WorkItem], reg *prometheus.Registry, counter, result *pipeline.TextView) error {
	srv := &http.Server{
		Addr: addr,
		Handler: api.NewServer(orch, api.Options{
			Gatherer: reg,
			Logger:   log.Logger,
			Counter:  counter,
			Result:   result,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server starting")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	_ = tasks.Close()
	orch.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
