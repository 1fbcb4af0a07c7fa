package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	observations   *prometheus.CounterVec
	lastValue      *prometheus.GaugeVec
	forecastPoints *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	latency        *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		observations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forepull_observations_total",
				Help: "Total number of observations ingested",
			},
			[]string{"segment"},
		),
		lastValue: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "forepull_last_value",
				Help: "Last recorded value for a segment",
			},
			[]string{"segment"},
		),
		forecastPoints: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forepull_forecast_points_total",
				Help: "Total number of forecast points produced",
			},
			[]string{"segment"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "forepull_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "forepull_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordObservation records an ingested observation.
func (r *Recorder) RecordObservation(segment string, value float64) {
	r.observations.WithLabelValues(segment).Inc()
	r.lastValue.WithLabelValues(segment).Set(value)
}

// RecordForecastPoints records how many points a forecast produced for a segment.
func (r *Recorder) RecordForecastPoints(segment string, n int) {
	r.forecastPoints.WithLabelValues(segment).Add(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
