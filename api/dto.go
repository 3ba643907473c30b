/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Response: Complex response wrappers

TYPES:
  Runs:       RunDTO (request body is factory.RunRequestJSON)
  Fitness:    FitnessRowDTO, FitnessDTO
  Metrics:    MetricDTO, QuantilesDTO
  Strategies: StrategyDTO, ComponentDTO

UNDEFINED VALUES:
  Empty statistics are NaN, which JSON cannot carry. Every statistic is a
  *float64 and NaN is sent as null.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/factory.go: RunRequestJSON
*/
package api

import (
	"math"
	"time"

	"github.com/warp/lifetime-engine/generic"
	"github.com/warp/lifetime-engine/lifetime"
	"github.com/warp/lifetime-engine/population"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// RunDTO represents a run in API responses.
type RunDTO struct {
	ID         string                `json:"id"`
	Status     string                `json:"status"`
	Request    population.RunRequest `json:"request"`
	Error      string                `json:"error,omitempty"`
	Fitness    *float64              `json:"fitness,omitempty"`
	CreatedAt  string                `json:"created_at"`
	StartedAt  *string               `json:"started_at,omitempty"`
	FinishedAt *string               `json:"finished_at,omitempty"`
}

// FitnessRowDTO is one composition row.
type FitnessRowDTO struct {
	Name         string   `json:"name"`
	Value        *float64 `json:"value"`
	StdErr       *float64 `json:"stderr"`
	Weight       float64  `json:"weight"`
	Contribution *float64 `json:"contribution"`
}

// FitnessDTO is the full composition table.
type FitnessDTO struct {
	RunID   string          `json:"run_id"`
	Fitness *float64        `json:"fitness"`
	Rows    []FitnessRowDTO `json:"rows"`
}

// MetricDTO summarizes one bundle field.
type MetricDTO struct {
	Name   string   `json:"name"`
	Kind   string   `json:"kind"`
	Count  int64    `json:"count"`
	Mean   *float64 `json:"mean,omitempty"`
	StdDev *float64 `json:"stddev,omitempty"`
	StdErr *float64 `json:"stderr,omitempty"`
	Bins   int      `json:"bins,omitempty"`
	Keys   []string `json:"keys,omitempty"`
}

// QuantileDTO is one requested quantile.
type QuantileDTO struct {
	Q     float64  `json:"q"`
	Value *float64 `json:"value"`
}

// QuantilesDTO answers a quantile query.
type QuantilesDTO struct {
	RunID     string        `json:"run_id"`
	Name      string        `json:"name"`
	Keys      []string      `json:"keys,omitempty"`
	Count     int64         `json:"count"`
	Quantiles []QuantileDTO `json:"quantiles"`
}

// StrategyDTO is a named strategy preset.
type StrategyDTO struct {
	Name     string            `json:"name"`
	Strategy lifetime.Strategy `json:"strategy"`
}

// ComponentDTO describes one fitness component.
type ComponentDTO struct {
	Name  string   `json:"name"`
	Flag  string   `json:"flag"`
	Field string   `json:"field"`
	Stat  string   `json:"stat"`
	Q     *float64 `json:"q,omitempty"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

// finite returns nil for NaN and infinities.
func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func toRunDTO(run population.RunRecord) RunDTO {
	dto := RunDTO{
		ID:         run.ID.String(),
		Status:     string(run.Status),
		Request:    run.Request,
		Error:      run.Error,
		CreatedAt:  formatTime(run.CreatedAt),
		StartedAt:  formatTimePtr(run.StartedAt),
		FinishedAt: formatTimePtr(run.FinishedAt),
	}
	if run.Status == population.StatusSucceeded {
		dto.Fitness = finite(run.Fitness)
	}
	return dto
}

func toFitnessDTO(runID string, rows population.Composition) FitnessDTO {
	dto := FitnessDTO{RunID: runID, Fitness: finite(rows.Fitness()), Rows: make([]FitnessRowDTO, len(rows))}
	for i, r := range rows {
		row := FitnessRowDTO{
			Name:         r.Name,
			Value:        finite(r.Value),
			Weight:       r.Weight,
			Contribution: finite(r.Contribution),
		}
		if r.HasStdErr {
			row.StdErr = finite(r.StdErr)
		}
		dto.Rows[i] = row
	}
	return dto
}

// toMetricDTO restores a snapshot far enough to report its headline
// statistics.
func toMetricDTO(m population.MetricSnapshot) (MetricDTO, error) {
	dto := MetricDTO{Name: m.Name, Kind: string(m.Snapshot.Kind)}

	if m.Snapshot.Kind == generic.KindKeyed {
		keyed, err := generic.RestoreKeyed(m.Snapshot)
		if err != nil {
			return dto, err
		}
		dto.Count = keyed.Count()
		dto.Keys = keyed.Keys()
		return dto, nil
	}

	leaf, err := generic.Restore(m.Snapshot)
	if err != nil {
		return dto, err
	}
	dto.Count = leaf.Count()
	switch acc := leaf.(type) {
	case *generic.SummaryStats:
		dto.Mean = finite(acc.Mean())
		dto.StdDev = finite(acc.StdDev())
		dto.StdErr = finite(acc.StdErr())
	case *generic.Quantile:
		dto.Bins = len(acc.Bins())
	}
	return dto, nil
}

func toComponentDTO(c population.Component) ComponentDTO {
	dto := ComponentDTO{Name: c.Name, Flag: c.Flag, Field: c.Field, Stat: string(c.Stat)}
	if c.Stat == population.StatQuantile {
		q := c.Q
		dto.Q = &q
	}
	return dto
}
