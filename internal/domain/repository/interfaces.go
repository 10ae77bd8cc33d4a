package repository

import (
	"context"

	"WattCast/internal/domain/models"
)

// SensorSource delivers one reading on demand. An error means the sensor
// is unavailable and the loop cannot make progress.
type SensorSource interface {
	Read(ctx context.Context) (models.Reading, error)
	Close() error
}

// OutputSink receives every cycle report. Emit failures are non-fatal.
type OutputSink interface {
	Name() string
	Emit(ctx context.Context, report models.CycleReport) error
	Close() error
}

// ReportStore keeps the most recently emitted report for the HTTP API.
type ReportStore interface {
	SaveLatest(ctx context.Context, report models.CycleReport) error
	Latest(ctx context.Context) (models.CycleReport, bool, error)
}

type Metrics interface {
	RecordReading(value float64, accepted bool)
	RecordForecast(f models.Forecast)
	RecordRecommendation(r models.Recommendation)
	RecordHistorySize(n int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordSinkError(sink string)
}
