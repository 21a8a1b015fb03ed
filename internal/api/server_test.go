package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vnykmshr/logpipe/internal/testutil"
	"github.com/vnykmshr/logpipe/pkg/metrics"
	"github.com/vnykmshr/logpipe/pkg/pipeline"
	"github.com/vnykmshr/logpipe/pkg/scheduling/looper"
)

func newTestServer(t *testing.T) (*httptest.Server, *pipeline.Orchestrator) {
	t.Helper()

	lp, err := looper.New(looper.Config{})
	testutil.AssertNoError(t, err)
	t.Cleanup(func() { <-lp.Quit() })

	reg := prometheus.NewRegistry()
	config := pipeline.DefaultConfig()
	config.PutLatency = 0
	config.WriteLatency = 0
	config.Limit = 1_000_000
	config.Metrics = metrics.Config{Enabled: true, Registry: reg}

	counter, result := &pipeline.TextView{}, &pipeline.TextView{}
	orch, err := pipeline.New(lp, pipeline.Surface{Counter: counter, Result: result}, config)
	testutil.AssertNoError(t, err)
	t.Cleanup(func() {
		orch.Stop()
		ctx, cancel := testutil.WithTimeout(t)
		defer cancel()
		_, _ = orch.Wait(ctx)
	})

	srv := httptest.NewServer(NewServer(orch, Options{Gatherer: reg, Counter: counter, Result: result}))
	t.Cleanup(srv.Close)
	return srv, orch
}

func do(t *testing.T, srv *httptest.Server, method, path, body string) (int, string) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, srv.URL+path, reader)
	testutil.AssertNoError(t, err)
	resp, err := srv.Client().Do(req)
	testutil.AssertNoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	testutil.AssertNoError(t, err)
	return resp.StatusCode, string(data)
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	code, body := do(t, srv, http.MethodGet, "/health", "")
	testutil.AssertEqual(t, code, http.StatusOK)
	testutil.AssertEqual(t, body, "ok")
}

func TestRunLifecycle(t *testing.T) {
	srv, orch := newTestServer(t)

	code, body := do(t, srv, http.MethodPost, "/api/runs", `{"mode":"two"}`)
	testutil.AssertEqual(t, code, http.StatusAccepted)
	var info pipeline.RunInfo
	testutil.AssertNoError(t, json.Unmarshal([]byte(body), &info))
	testutil.AssertEqual(t, info.Mode, pipeline.ModeTwoExecutors)
	testutil.AssertEqual(t, info.RotatorExecutor, "RotateLogExecutor-0")

	code, _ = do(t, srv, http.MethodPost, "/api/runs", `{"mode":"one"}`)
	testutil.AssertEqual(t, code, http.StatusConflict)

	testutil.Eventually(t, func() bool { return orch.Status().Counter > 0 }, time.Second, time.Millisecond)

	code, body = do(t, srv, http.MethodGet, "/api/runs/current", "")
	testutil.AssertEqual(t, code, http.StatusOK)
	var status statusResp
	testutil.AssertNoError(t, json.Unmarshal([]byte(body), &status))
	testutil.AssertEqual(t, status.Active, true)
	testutil.AssertEqual(t, status.Run.ID, info.ID)
	testutil.AssertEqual(t, strings.HasPrefix(status.Display, "Hello World! "), true)
	testutil.AssertEqual(t, status.Total, "Total time: ")

	code, body = do(t, srv, http.MethodDelete, "/api/runs/current", "")
	testutil.AssertEqual(t, code, http.StatusOK)
	var stopped stopResp
	testutil.AssertNoError(t, json.Unmarshal([]byte(body), &stopped))
	testutil.AssertEqual(t, stopped.ID, info.ID)
	if stopped.Items <= 0 {
		t.Errorf("items = %d, want > 0", stopped.Items)
	}

	code, _ = do(t, srv, http.MethodDelete, "/api/runs/current", "")
	testutil.AssertEqual(t, code, http.StatusNotFound)

	code, body = do(t, srv, http.MethodGet, "/api/runs/current", "")
	testutil.AssertEqual(t, code, http.StatusOK)
	status = statusResp{}
	testutil.AssertNoError(t, json.Unmarshal([]byte(body), &status))
	testutil.AssertEqual(t, status.Active, false)
	testutil.AssertEqual(t, status.Counter, int64(0))
	testutil.AssertEqual(t, strings.HasPrefix(status.Total, "Total time: "), true)
	if status.Last == nil || status.Last.ID != info.ID {
		t.Fatalf("last = %+v, want run %s", status.Last, info.ID)
	}
}

func TestStartRunBadRequest(t *testing.T) {
	srv, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{"mode":`},
		{name: "missing mode", body: `{}`},
		{name: "unknown mode", body: `{"mode":"three"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := do(t, srv, http.MethodPost, "/api/runs", tt.body)
			testutil.AssertEqual(t, code, http.StatusBadRequest)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	code, _ := do(t, srv, http.MethodPost, "/api/runs", `{"mode":"one"}`)
	testutil.AssertEqual(t, code, http.StatusAccepted)

	code, body := do(t, srv, http.MethodGet, "/metrics", "")
	testutil.AssertEqual(t, code, http.StatusOK)
	if !strings.Contains(body, `logpipe_pipeline_runs_started_total{mode="one"} 1`) {
		t.Errorf("metrics output missing run counter:\n%s", body)
	}
}
