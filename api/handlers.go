/*
handlers.go - HTTP API handlers for the lifetime simulator

PURPOSE:
  Exposes population runs via REST API. Handles HTTP request/response and
  JSON serialization, and delegates to the run queue and the run store.

ENDPOINTS:
  Runs:
    GET    /api/runs                          List runs, newest first
    POST   /api/runs                          Submit a run (202 Accepted)
    GET    /api/runs/{id}                     Run status
    GET    /api/runs/{id}/fitness             Composition table (?format=csv)
    GET    /api/runs/{id}/metrics             Headline statistics per field
    GET    /api/runs/{id}/metrics/{name}/quantiles?q=0.1,0.5&key=Retired

  Reference:
    GET    /api/strategies                    Strategy presets
    GET    /api/components                    Fitness components

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Run persistence
  - Queue: Background execution of submitted runs
  - Factory: JSON to RunRequest conversion

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid request body, bad quantile, wrong metric kind
  - 404: Unknown run or metric
  - 409: Run has no result yet
  - 503: Queue full or stopped
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - queue.go: Background execution
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/lifetime-engine/factory"
	"github.com/warp/lifetime-engine/generic"
	"github.com/warp/lifetime-engine/lifetime"
	"github.com/warp/lifetime-engine/population"
)

// maxBodyBytes bounds a run request body.
const maxBodyBytes = 1 << 20

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store   population.RunStore
	Queue   *RunQueue
	Factory *factory.Factory

	logger *zap.Logger
}

// Option configures a Handler.
type Option func(h *Handler)

// WithLogger sets the handler logger.
func WithLogger(logger *zap.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler creates a new handler.
func NewHandler(store population.RunStore, queue *RunQueue, opts ...Option) *Handler {
	h := &Handler{
		Store:   store,
		Queue:   queue,
		Factory: factory.New(),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// =============================================================================
// RUN HANDLERS
// =============================================================================

// ListRuns returns all runs.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs", err)
		return
	}

	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRun parses a run request and queues it.
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read request body", err)
		return
	}

	req, err := h.Factory.ParseRunRequest(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid run request", err)
		return
	}

	run, err := h.Queue.Submit(r.Context(), req)
	switch {
	case errors.Is(err, ErrQueueFull), errors.Is(err, ErrQueueStopped):
		writeError(w, http.StatusServiceUnavailable, "Run queue unavailable", err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to queue run", err)
		return
	}

	w.Header().Set("Location", "/api/runs/"+run.ID.String())
	writeJSON(w, http.StatusAccepted, toRunDTO(run))
}

// GetRun returns one run.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(*run))
}

// GetFitness returns the composition table as JSON or, with
// ?format=csv, as CSV.
func (h *Handler) GetFitness(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadSucceededRun(w, r)
	if !ok {
		return
	}

	rows, err := h.Store.GetFitness(r.Context(), run.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load fitness", err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.WriteHeader(http.StatusOK)
		if err := rows.WriteCSV(w); err != nil {
			h.logger.Warn("failed to write fitness csv", zap.Error(err))
		}
		return
	}
	writeJSON(w, http.StatusOK, toFitnessDTO(run.ID.String(), rows))
}

// GetMetrics returns headline statistics for every bundle field.
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadSucceededRun(w, r)
	if !ok {
		return
	}

	metrics, err := h.Store.GetMetrics(r.Context(), run.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load metrics", err)
		return
	}

	dtos := make([]MetricDTO, 0, len(metrics))
	for _, m := range metrics {
		dto, err := toMetricDTO(m)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Corrupt metric snapshot", err)
			return
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetQuantiles answers quantile queries against a histogram field. For
// keyed fields, ?key= selects the keys to merge (repeatable or comma
// separated); no key merges them all.
func (h *Handler) GetQuantiles(w http.ResponseWriter, r *http.Request) {
	run, ok := h.loadSucceededRun(w, r)
	if !ok {
		return
	}

	qs, err := parseQuantiles(r.URL.Query()["q"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid quantile", err)
		return
	}

	name := chi.URLParam(r, "name")
	metrics, err := h.Store.GetMetrics(r.Context(), run.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load metrics", err)
		return
	}
	var snap *generic.Snapshot
	for i := range metrics {
		if metrics[i].Name == name {
			snap = &metrics[i].Snapshot
			break
		}
	}
	if snap == nil {
		writeError(w, http.StatusNotFound, "Metric not found", fmt.Errorf("run has no metric %q", name))
		return
	}

	keys := splitList(r.URL.Query()["key"])
	leaf, err := selectLeaf(*snap, keys)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Metric cannot answer quantiles", err)
		return
	}
	hist, isHist := leaf.(*generic.Quantile)
	if !isHist {
		writeError(w, http.StatusBadRequest, "Metric cannot answer quantiles",
			fmt.Errorf("%s is a %s accumulator", name, leaf.Kind()))
		return
	}

	dto := QuantilesDTO{RunID: run.ID.String(), Name: name, Keys: keys, Count: hist.Count()}
	for _, q := range qs {
		v, err := hist.Quantile(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid quantile", err)
			return
		}
		dto.Quantiles = append(dto.Quantiles, QuantileDTO{Q: q, Value: finite(v)})
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// REFERENCE HANDLERS
// =============================================================================

// ListStrategies returns the strategy presets.
func (h *Handler) ListStrategies(w http.ResponseWriter, r *http.Request) {
	presets := lifetime.Presets()
	dtos := make([]StrategyDTO, 0, len(presets))
	for _, name := range lifetime.PresetNames() {
		dtos = append(dtos, StrategyDTO{Name: name, Strategy: presets[name]})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListComponents returns the fitness components.
func (h *Handler) ListComponents(w http.ResponseWriter, r *http.Request) {
	components := population.Components()
	dtos := make([]ComponentDTO, len(components))
	for i, c := range components {
		dtos[i] = toComponentDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) loadRun(w http.ResponseWriter, r *http.Request) (*population.RunRecord, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid run id", err)
		return nil, false
	}

	run, err := h.Store.GetRun(r.Context(), id)
	if errors.Is(err, population.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "Run not found", nil)
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load run", err)
		return nil, false
	}
	return run, true
}

func (h *Handler) loadSucceededRun(w http.ResponseWriter, r *http.Request) (*population.RunRecord, bool) {
	run, ok := h.loadRun(w, r)
	if !ok {
		return nil, false
	}
	if run.Status != population.StatusSucceeded {
		writeError(w, http.StatusConflict, "Run has no result", fmt.Errorf("run is %s", run.Status))
		return nil, false
	}
	return run, true
}

// selectLeaf restores a leaf snapshot, or merges the selected keys of a
// keyed snapshot.
func selectLeaf(s generic.Snapshot, keys []string) (generic.Leaf, error) {
	if s.Kind != generic.KindKeyed {
		if len(keys) > 0 {
			return nil, fmt.Errorf("%s accumulator has no keys", s.Kind)
		}
		return generic.Restore(s)
	}

	keyed, err := generic.RestoreKeyed(s)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		keys = keyed.Keys()
	}
	return keyed.Query(keys...)
}

// parseQuantiles reads ?q= values. The default is the median.
func parseQuantiles(values []string) ([]float64, error) {
	items := splitList(values)
	if len(items) == 0 {
		return []float64{0.5}, nil
	}
	out := make([]float64, 0, len(items))
	for _, item := range items {
		q, err := strconv.ParseFloat(item, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", generic.ErrInvalidQuantile, item)
		}
		if q < 0 || q > 1 {
			return nil, &generic.QuantileRangeError{Q: q}
		}
		out = append(out, q)
	}
	return out, nil
}

func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, item := range strings.Split(v, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
