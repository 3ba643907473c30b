/*
handlers_test.go - HTTP tests for the run API

Tests drive the chi router end to end over the memory store. Submitted
runs execute on a fake runner, and Stop drains the queue so results are
in place before they are read.
*/
package api_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/lifetime-engine/api"
	"github.com/warp/lifetime-engine/lifetime"
	"github.com/warp/lifetime-engine/population"
	"github.com/warp/lifetime-engine/store/memory"
)

type testServer struct {
	store  *memory.Memory
	queue  *api.RunQueue
	router http.Handler
}

func newTestServer(t *testing.T, runner api.Runner) *testServer {
	t.Helper()
	store := memory.New()
	queue := api.NewRunQueue(store, runner)
	queue.Start()
	t.Cleanup(queue.Stop)

	h := api.NewHandler(store, queue)
	return &testServer{
		store:  store,
		queue:  queue,
		router: api.NewRouter(h, api.RouterConfig{Gatherer: prometheus.NewRegistry()}),
	}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

// submit posts a full-mode run and waits for the queue to finish it.
func (s *testServer) submit(t *testing.T) api.RunDTO {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/runs",
		`{"lives": 10, "mode": "full", "seed": 3, "weights": {"ConsumptionAvgLifetime": 1}}`)
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var run api.RunDTO
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &run))
	assert.Equal(t, "/api/runs/"+run.ID, rec.Header().Get("Location"))
	assert.Equal(t, "queued", run.Status)

	s.queue.Stop()
	return run
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// =============================================================================
// RUNS
// =============================================================================

func TestCreateRun_SucceedsAndReportsFitness(t *testing.T) {
	// GIVEN: a server whose runner yields consumption 100 and 300
	s := newTestServer(t, fakeRunner{})

	// WHEN: a run is submitted and executed
	run := s.submit(t)

	// THEN: the run reports the mean consumption as its fitness
	rec := s.do(t, http.MethodGet, "/api/runs/"+run.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[api.RunDTO](t, rec)
	assert.Equal(t, "succeeded", got.Status)
	require.NotNil(t, got.Fitness)
	assert.Equal(t, 200.0, *got.Fitness)
	assert.Equal(t, 10, got.Request.Lives)
	assert.Equal(t, lifetime.ModeFull, got.Request.Mode)
	assert.Equal(t, "default", got.Request.Strategy.Name)
	assert.NotNil(t, got.StartedAt)
	assert.NotNil(t, got.FinishedAt)
}

func TestCreateRun_InvalidRequest(t *testing.T) {
	s := newTestServer(t, fakeRunner{})

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"unknown field", `{"lives": 10, "colour": "red"}`},
		{"no lives", `{}`},
		{"bad gender", `{"lives": 10, "gender": "x"}`},
		{"unknown preset", `{"lives": 10, "preset": "yolo"}`},
		{"unknown weight", `{"lives": 10, "weights": {"Happiness": 1}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/api/runs", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			resp := decode[api.ErrorResponse](t, rec)
			assert.Equal(t, "Invalid run request", resp.Error)
			assert.NotEmpty(t, resp.Details)
		})
	}

	runs, err := s.store.ListRuns(context.Background())
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestCreateRun_QueueStopped(t *testing.T) {
	s := newTestServer(t, fakeRunner{})
	s.queue.Stop()

	rec := s.do(t, http.MethodPost, "/api/runs", `{"lives": 10}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListRuns_NewestFirst(t *testing.T) {
	s := newTestServer(t, fakeRunner{})
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	older := population.RunRecord{ID: uuid.New(), Status: population.StatusQueued, Request: testRequest(), CreatedAt: base}
	newer := population.RunRecord{ID: uuid.New(), Status: population.StatusQueued, Request: testRequest(), CreatedAt: base.Add(time.Hour)}
	require.NoError(t, s.store.SaveRun(ctx, older))
	require.NoError(t, s.store.SaveRun(ctx, newer))

	rec := s.do(t, http.MethodGet, "/api/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)

	runs := decode[[]api.RunDTO](t, rec)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID.String(), runs[0].ID)
	assert.Equal(t, older.ID.String(), runs[1].ID)
	assert.Nil(t, runs[0].Fitness)
	assert.Equal(t, "2024-01-01T01:00:00Z", runs[0].CreatedAt)
}

func TestGetRun_Errors(t *testing.T) {
	s := newTestServer(t, fakeRunner{})

	rec := s.do(t, http.MethodGet, "/api/runs/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/runs/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Run not found", decode[api.ErrorResponse](t, rec).Error)
}

func TestFailedRun_ReportsError(t *testing.T) {
	s := newTestServer(t, failingRunner{})
	run := s.submit(t)

	rec := s.do(t, http.MethodGet, "/api/runs/"+run.ID, "")
	got := decode[api.RunDTO](t, rec)
	assert.Equal(t, "failed", got.Status)
	assert.Equal(t, "worker 0: boom", got.Error)
	assert.Nil(t, got.Fitness)

	rec = s.do(t, http.MethodGet, "/api/runs/"+run.ID+"/fitness", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

// =============================================================================
// RESULTS
// =============================================================================

func TestGetFitness_JSON(t *testing.T) {
	s := newTestServer(t, fakeRunner{})
	run := s.submit(t)

	rec := s.do(t, http.MethodGet, "/api/runs/"+run.ID+"/fitness", "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[api.FitnessDTO](t, rec)
	assert.Equal(t, run.ID, got.RunID)
	require.NotNil(t, got.Fitness)
	assert.Equal(t, 200.0, *got.Fitness)
	require.Len(t, got.Rows, len(population.Components()))

	first := got.Rows[0]
	assert.Equal(t, "ConsumptionAvgLifetime", first.Name)
	assert.Equal(t, 1.0, first.Weight)
	require.NotNil(t, first.StdErr)
	assert.Equal(t, 100.0, *first.StdErr)
	require.NotNil(t, first.Contribution)
	assert.Equal(t, 200.0, *first.Contribution)
}

func TestGetFitness_CSV(t *testing.T) {
	s := newTestServer(t, fakeRunner{})
	run := s.submit(t)

	rec := s.do(t, http.MethodGet, "/api/runs/"+run.ID+"/fitness?format=csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	records, err := csv.NewReader(bytes.NewReader(rec.Body.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, len(population.Components())+1)
	assert.Equal(t, []string{"name", "value", "stderr", "weight", "contribution"}, records[0])
	assert.Equal(t, []string{"ConsumptionAvgLifetime", "200", "100", "1", "200"}, records[1])
}

func TestGetFitness_QueuedRun(t *testing.T) {
	s := newTestServer(t, fakeRunner{})
	run := population.RunRecord{ID: uuid.New(), Status: population.StatusQueued, Request: testRequest(), CreatedAt: time.Now()}
	require.NoError(t, s.store.SaveRun(context.Background(), run))

	rec := s.do(t, http.MethodGet, "/api/runs/"+run.ID.String()+"/fitness", "")

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, decode[api.ErrorResponse](t, rec).Details, "queued")
}

func TestGetMetrics(t *testing.T) {
	s := newTestServer(t, fakeRunner{})
	run := s.submit(t)

	rec := s.do(t, http.MethodGet, "/api/runs/"+run.ID+"/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)

	metrics := decode[[]api.MetricDTO](t, rec)
	require.Len(t, metrics, len(lifetime.Fields(lifetime.ModeFull)))

	byName := map[string]api.MetricDTO{}
	for _, m := range metrics {
		byName[m.Name] = m
	}

	summary := byName[lifetime.LifetimeConsumptionSummary]
	assert.Equal(t, "summary", summary.Kind)
	assert.Equal(t, int64(2), summary.Count)
	require.NotNil(t, summary.Mean)
	assert.Equal(t, 200.0, *summary.Mean)

	hist := byName[lifetime.LifetimeConsumptionHist]
	assert.Equal(t, "quantile", hist.Kind)
	assert.Equal(t, 2, hist.Bins)

	byPeriod := byName[lifetime.ConsumptionByPeriod]
	assert.Equal(t, "keyed", byPeriod.Kind)
	assert.Equal(t, []string{"Employed", "Retired"}, byPeriod.Keys)

	// Never observed, so the mean is null rather than NaN.
	empty := byName[lifetime.EarningsLateWorkingSummary]
	assert.Equal(t, int64(0), empty.Count)
	assert.Nil(t, empty.Mean)
}

func TestGetQuantiles(t *testing.T) {
	s := newTestServer(t, fakeRunner{})
	run := s.submit(t)
	base := "/api/runs/" + run.ID + "/metrics/"

	t.Run("histogram", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, base+lifetime.LifetimeConsumptionHist+"/quantiles?q=0,0.5&q=1", "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		got := decode[api.QuantilesDTO](t, rec)
		assert.Equal(t, int64(2), got.Count)
		require.Len(t, got.Quantiles, 3)
		assert.Equal(t, 100.0, *got.Quantiles[0].Value)
		assert.Equal(t, 200.0, *got.Quantiles[1].Value)
		assert.Equal(t, 300.0, *got.Quantiles[2].Value)
	})

	t.Run("default is the median", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, base+lifetime.LifetimeConsumptionHist+"/quantiles", "")
		got := decode[api.QuantilesDTO](t, rec)
		require.Len(t, got.Quantiles, 1)
		assert.Equal(t, 0.5, got.Quantiles[0].Q)
	})

	t.Run("keyed merges every key", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, base+lifetime.ConsumptionByPeriod+"/quantiles?q=0.5", "")
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[api.QuantilesDTO](t, rec)
		assert.Equal(t, int64(2), got.Count)
		assert.Equal(t, 200.0, *got.Quantiles[0].Value)
	})

	t.Run("keyed selects keys", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, base+lifetime.ConsumptionByPeriod+"/quantiles?q=0.5&key=Retired", "")
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[api.QuantilesDTO](t, rec)
		assert.Equal(t, []string{"Retired"}, got.Keys)
		assert.Equal(t, int64(1), got.Count)
		assert.Equal(t, 300.0, *got.Quantiles[0].Value)
	})

	t.Run("unobserved key has no value", func(t *testing.T) {
		rec := s.do(t, http.MethodGet, base+lifetime.ConsumptionByPeriod+"/quantiles?key=Unemployed", "")
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[api.QuantilesDTO](t, rec)
		assert.Equal(t, int64(0), got.Count)
		assert.Nil(t, got.Quantiles[0].Value)
	})

	errorCases := []struct {
		name   string
		path   string
		status int
	}{
		{"not a number", lifetime.LifetimeConsumptionHist + "/quantiles?q=abc", http.StatusBadRequest},
		{"out of range", lifetime.LifetimeConsumptionHist + "/quantiles?q=1.5", http.StatusBadRequest},
		{"summary field", lifetime.LifetimeConsumptionSummary + "/quantiles", http.StatusBadRequest},
		{"keyed summary field", lifetime.ConsumptionByAge + "/quantiles", http.StatusBadRequest},
		{"keys on a leaf", lifetime.LifetimeConsumptionHist + "/quantiles?key=Retired", http.StatusBadRequest},
		{"unknown field", "happiness/quantiles", http.StatusNotFound},
	}
	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, base+tt.path, "")
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

// =============================================================================
// REFERENCE
// =============================================================================

func TestListStrategies(t *testing.T) {
	s := newTestServer(t, fakeRunner{})

	rec := s.do(t, http.MethodGet, "/api/strategies", "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[[]api.StrategyDTO](t, rec)
	require.Len(t, got, len(lifetime.PresetNames()))
	for i, name := range lifetime.PresetNames() {
		assert.Equal(t, name, got[i].Name)
		assert.Equal(t, name, got[i].Strategy.Name)
	}
}

func TestListComponents(t *testing.T) {
	s := newTestServer(t, fakeRunner{})

	rec := s.do(t, http.MethodGet, "/api/components", "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[[]api.ComponentDTO](t, rec)
	require.Len(t, got, len(population.Components()))
	assert.Equal(t, "ConsumptionAvgLifetime", got[0].Name)
	assert.Equal(t, "mean", got[0].Stat)
	assert.Nil(t, got[0].Q)
}

func TestMetricsEndpoint(t *testing.T) {
	// GIVEN: driver metrics registered on a private registry
	reg := prometheus.NewRegistry()
	metrics := population.NewMetrics(reg)
	metrics.LivesSimulated.Add(7)

	store := memory.New()
	h := api.NewHandler(store, api.NewRunQueue(store, fakeRunner{}))
	router := api.NewRouter(h, api.RouterConfig{Gatherer: reg})

	// WHEN: /metrics is scraped
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	// THEN: the counter is exposed
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "lifesim_lives_simulated_total 7")
}
