package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the LVQ server
type Metrics struct {
	registry *prometheus.Registry

	// Request metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec

	// Engine metrics
	CodebooksActive  prometheus.Gauge
	StatsActive      prometheus.Gauge
	Classifications  prometheus.Counter
	TrainingRuns     *prometheus.CounterVec
	TrainingDuration prometheus.Histogram
	TrainingSamples  prometheus.Histogram

	// Persistence metrics
	BlobsStored prometheus.Counter
	BlobsLoaded prometheus.Counter
}

// NewMetrics creates all metrics on a fresh registry
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lvq_requests_total",
				Help: "Total number of requests by method and status",
			},
			[]string{"method", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lvq_request_duration_seconds",
				Help:    "Request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),
		RequestErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lvq_request_errors_total",
				Help: "Total number of request errors by method and error kind",
			},
			[]string{"method", "kind"},
		),

		CodebooksActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "lvq_codebooks_active",
				Help: "Number of codebook handles currently held",
			},
		),
		StatsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "lvq_stats_active",
				Help: "Number of statistics handles currently held",
			},
		),
		Classifications: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "lvq_classifications_total",
				Help: "Total number of classify and best lookups",
			},
		),
		TrainingRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lvq_training_runs_total",
				Help: "Total number of training runs by mode",
			},
			[]string{"mode"},
		),
		TrainingDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lvq_training_duration_seconds",
				Help:    "Training run duration in seconds",
				Buckets: []float64{.001, .01, .1, .5, 1, 5, 10, 30, 60},
			},
		),
		TrainingSamples: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "lvq_training_samples",
				Help:    "Number of samples per training run",
				Buckets: []float64{1, 10, 100, 1000, 10000, 100000},
			},
		),

		BlobsStored: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "lvq_blobs_stored_total",
				Help: "Total number of codebooks persisted to disk",
			},
		),
		BlobsLoaded: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "lvq_blobs_loaded_total",
				Help: "Total number of codebooks restored from disk",
			},
		),
	}
}

// Registry exposes the backing registry for the /metrics handler
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRequest records one finished request
func (m *Metrics) ObserveRequest(method, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, status).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// ObserveTraining records one finished training run
func (m *Metrics) ObserveTraining(mode string, samples int, duration time.Duration) {
	m.TrainingRuns.WithLabelValues(mode).Inc()
	m.TrainingDuration.Observe(duration.Seconds())
	m.TrainingSamples.Observe(float64(samples))
}
