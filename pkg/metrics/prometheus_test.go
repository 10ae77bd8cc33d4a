package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"WattCast/internal/domain/models"
)

func TestRecorder(t *testing.T) {
	r := NewWithRegisterer(prometheus.NewRegistry())

	r.RecordReading(1.2, true)
	r.RecordReading(-1, false)
	r.RecordReading(0.8, true)
	if got := testutil.ToFloat64(r.readings.WithLabelValues("accepted")); got != 2 {
		t.Fatalf("accepted=%v want 2", got)
	}
	if got := testutil.ToFloat64(r.readings.WithLabelValues("rejected")); got != 1 {
		t.Fatalf("rejected=%v want 1", got)
	}
	if got := testutil.ToFloat64(r.lastReading); got != 0.8 {
		t.Fatalf("last reading=%v", got)
	}

	r.RecordForecast(models.NoForecast(models.ReasonInsufficientData, 3))
	r.RecordForecast(models.NewForecast(time.Now(), 1.7, 10))
	if got := testutil.ToFloat64(r.forecasts.WithLabelValues("insufficient_data")); got != 1 {
		t.Fatalf("insufficient=%v", got)
	}
	if got := testutil.ToFloat64(r.lastForecast); got != 1.7 {
		t.Fatalf("last forecast=%v", got)
	}

	r.RecordRecommendation(models.RecommendReduce)
	r.RecordHistorySize(42)
	r.RecordError("invalid_reading")
	r.RecordSinkError("kafka")
	if testutil.ToFloat64(r.recommendations.WithLabelValues("REDUCE")) != 1 ||
		testutil.ToFloat64(r.historySize) != 42 ||
		testutil.ToFloat64(r.errorsTotal.WithLabelValues("invalid_reading")) != 1 ||
		testutil.ToFloat64(r.sinkErrors.WithLabelValues("kafka")) != 1 {
		t.Fatalf("unexpected counter values")
	}
}

func TestRecorder_SeparateRegistries(t *testing.T) {
	// registering twice on distinct registries must not panic
	NewWithRegisterer(prometheus.NewRegistry())
	NewWithRegisterer(prometheus.NewRegistry())
}
