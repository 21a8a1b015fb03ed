// Package api exposes the pipeline control surface over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	lperrors "github.com/vnykmshr/logpipe/pkg/common/errors"
	"github.com/vnykmshr/logpipe/pkg/pipeline"
)

// Pipeline is the part of *pipeline.Orchestrator the server drives.
type Pipeline interface {
	StartMode(mode pipeline.Mode) (pipeline.RunInfo, error)
	StopActive() (pipeline.Result, error)
	Status() pipeline.Status
}

// Options configures the server.
type Options struct {
	// Gatherer is served at /metrics. If nil, prometheus.DefaultGatherer is used.
	Gatherer prometheus.Gatherer

	// Logger receives one line per request. Zero value disables logging.
	Logger zerolog.Logger

	// Counter and Result, when set, are included in status responses.
	Counter *pipeline.TextView
	Result  *pipeline.TextView
}

// server routes the run control API onto a Pipeline.
type server struct {
	r        *chi.Mux
	pipeline Pipeline
	opts     Options
}

// NewServer returns the HTTP handler for p.
func NewServer(p Pipeline, opts Options) http.Handler {
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger(opts.Logger), middleware.Recoverer)

	s := &server{r: r, pipeline: p, opts: opts}

	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	r.Post("/api/runs", s.startRun)
	r.Get("/api/runs/current", s.currentRun)
	r.Delete("/api/runs/current", s.stopRun)

	return r
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type startReq struct {
	Mode string `json:"mode"`
}

func (s *server) startRun(w http.ResponseWriter, r *http.Request) {
	var req startReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Mode == "" {
		http.Error(w, "mode is required", http.StatusBadRequest)
		return
	}
	mode, err := pipeline.ParseMode(req.Mode)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	info, err := s.pipeline.StartMode(mode)
	switch {
	case errors.Is(err, lperrors.ErrRunActive):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusAccepted, info)
}

type statusResp struct {
	pipeline.Status
	Display string `json:"display,omitempty"`
	Total   string `json:"total,omitempty"`
}

func (s *server) currentRun(w http.ResponseWriter, r *http.Request) {
	resp := statusResp{Status: s.pipeline.Status()}
	if s.opts.Counter != nil {
		resp.Display = s.opts.Counter.Text()
	}
	if s.opts.Result != nil {
		resp.Total = s.opts.Result.Text()
	}
	writeJSON(w, http.StatusOK, resp)
}

type stopResp struct {
	pipeline.Result
	ElapsedMS int64 `json:"elapsed_ms"`
}

func (s *server) stopRun(w http.ResponseWriter, r *http.Request) {
	res, err := s.pipeline.StopActive()
	if errors.Is(err, lperrors.ErrNoRun) {
		http.Error(w, "no active run", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stopResp{Result: res, ElapsedMS: res.Elapsed.Milliseconds()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// requestLogger logs each request at Debug with status and latency.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Debug().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Dur("latency", time.Since(start)).
					Msg("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
