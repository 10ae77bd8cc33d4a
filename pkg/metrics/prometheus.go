package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"WattCast/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	readings        *prometheus.CounterVec
	lastReading     prometheus.Gauge
	forecasts       *prometheus.CounterVec
	lastForecast    prometheus.Gauge
	recommendations *prometheus.CounterVec
	historySize     prometheus.Gauge
	errorsTotal     *prometheus.CounterVec
	sinkErrors      *prometheus.CounterVec
	latency         *prometheus.HistogramVec
}

// New creates a recorder registered with the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer registers the collectors with reg. Tests pass a fresh
// prometheus.NewRegistry() so recorders do not collide.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		readings: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wattcast_readings_total",
				Help: "Sensor readings by ingestion outcome",
			},
			[]string{"status"},
		),
		lastReading: f.NewGauge(prometheus.GaugeOpts{
			Name: "wattcast_last_reading_kw",
			Help: "Most recent accepted power reading in kW",
		}),
		forecasts: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wattcast_forecasts_total",
				Help: "Forecast outcomes per cycle",
			},
			[]string{"outcome"},
		),
		lastForecast: f.NewGauge(prometheus.GaugeOpts{
			Name: "wattcast_last_forecast_kw",
			Help: "Most recent predicted power usage in kW",
		}),
		recommendations: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wattcast_recommendations_total",
				Help: "Recommendations emitted by kind",
			},
			[]string{"kind"},
		),
		historySize: f.NewGauge(prometheus.GaugeOpts{
			Name: "wattcast_history_size",
			Help: "Readings currently retained in history",
		}),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wattcast_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		sinkErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wattcast_sink_errors_total",
				Help: "Failed report emits by sink",
			},
			[]string{"sink"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wattcast_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordReading(value float64, accepted bool) {
	if !accepted {
		r.readings.WithLabelValues("rejected").Inc()
		return
	}
	r.readings.WithLabelValues("accepted").Inc()
	r.lastReading.Set(value)
}

// RecordForecast counts present forecasts as "present" and absent ones by reason.
func (r *Recorder) RecordForecast(f models.Forecast) {
	if !f.Present() {
		r.forecasts.WithLabelValues(string(f.Reason())).Inc()
		return
	}
	r.forecasts.WithLabelValues("present").Inc()
	r.lastForecast.Set(f.Value)
}

func (r *Recorder) RecordRecommendation(rec models.Recommendation) {
	r.recommendations.WithLabelValues(string(rec)).Inc()
}

func (r *Recorder) RecordHistorySize(n int) {
	r.historySize.Set(float64(n))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordSinkError records a failed emit on the named sink.
func (r *Recorder) RecordSinkError(sink string) {
	r.sinkErrors.WithLabelValues(sink).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
