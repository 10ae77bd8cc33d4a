package repository

import (
	"time"

	"WattCast/internal/domain/models"
)

// reportRow is the flattened relational shape of a CycleReport shared by
// the SQL sinks.
type reportRow struct {
	ID               string     `db:"id"`
	RunID            string     `db:"run_id"`
	Cycle            int64      `db:"cycle"`
	Timestamp        time.Time  `db:"ts"`
	ReadingTimestamp time.Time  `db:"reading_ts"`
	ReadingKW        float64    `db:"reading_kw"`
	Accepted         bool       `db:"accepted"`
	HistorySize      int        `db:"history_size"`
	ForecastPresent  bool       `db:"forecast_present"`
	ForecastKW       *float64   `db:"forecast_kw"`
	ForecastTarget   *time.Time `db:"forecast_target"`
	NoForecastReason string     `db:"no_forecast_reason"`
	Recommendation   string     `db:"recommendation"`
	AdvisedKW        float64    `db:"advised_kw"`
	ThresholdKW      float64    `db:"threshold_kw"`
}

func newReportRow(r models.CycleReport) reportRow {
	row := reportRow{
		ID:               r.ID,
		RunID:            r.RunID,
		Cycle:            int64(r.Cycle),
		Timestamp:        r.Timestamp.UTC(),
		ReadingTimestamp: r.Reading.Timestamp.UTC(),
		ReadingKW:        r.Reading.Value,
		Accepted:         r.Accepted,
		HistorySize:      r.HistorySize,
		ForecastPresent:  r.Forecast.Present(),
		NoForecastReason: string(r.Forecast.Reason()),
		Recommendation:   string(r.Recommendation),
		AdvisedKW:        r.Advised.Value,
		ThresholdKW:      r.Threshold,
	}
	if r.Forecast.Present() {
		v, ts := r.Forecast.Value, r.Forecast.TargetTime.UTC()
		row.ForecastKW, row.ForecastTarget = &v, &ts
	}
	return row
}
