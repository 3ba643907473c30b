package population

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the population driver.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	LivesSimulated prometheus.Counter
	RunsTotal      *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	WorkerDuration prometheus.Histogram
	LastFitness    prometheus.Gauge
}

// NewMetrics registers the collectors with reg. A nil reg uses the
// default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		LivesSimulated: f.NewCounter(prometheus.CounterOpts{
			Name: "lifesim_lives_simulated_total",
			Help: "Number of simulated lives",
		}),
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "lifesim_runs_total",
			Help: "Number of population runs by outcome",
		}, []string{"status"}),
		RunDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "lifesim_run_duration_seconds",
			Help:    "Wall time of a population run",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
		WorkerDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "lifesim_worker_duration_seconds",
			Help:    "Wall time of one worker's batch",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}),
		LastFitness: f.NewGauge(prometheus.GaugeOpts{
			Name: "lifesim_last_fitness",
			Help: "Fitness of the most recent succeeded run",
		}),
	}
}

func (m *Metrics) observeLives(n int) {
	if m != nil {
		m.LivesSimulated.Add(float64(n))
	}
}

func (m *Metrics) observeWorker(d time.Duration) {
	if m != nil {
		m.WorkerDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) observeRun(status RunStatus, d time.Duration) {
	if m != nil {
		m.RunsTotal.WithLabelValues(string(status)).Inc()
		m.RunDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) observeFitness(v float64) {
	if m != nil {
		m.LastFitness.Set(v)
	}
}
