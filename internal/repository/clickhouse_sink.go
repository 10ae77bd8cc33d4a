package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"WattCast/internal/domain/models"
	domrepo "WattCast/internal/domain/repository"
	pkgch "WattCast/pkg/clickhouse"
	applogger "WattCast/pkg/logger"
)

const chReportsTable = "cycle_reports"

// ClickHouseSchema creates the report table.
var ClickHouseSchema = []string{
	`CREATE TABLE IF NOT EXISTS cycle_reports (
        id                 String,
        run_id             String,
        cycle              UInt64,
        ts                 DateTime64(3, 'UTC'),
        reading_ts         DateTime64(3, 'UTC'),
        reading_kw         Float64,
        accepted           UInt8,
        history_size       UInt32,
        forecast_present   UInt8,
        forecast_kw        Nullable(Float64),
        forecast_target    Nullable(DateTime64(3, 'UTC')),
        no_forecast_reason LowCardinality(String),
        recommendation     LowCardinality(String),
        advised_kw         Float64,
        threshold_kw       Float64
    ) ENGINE = ReplacingMergeTree
    ORDER BY (run_id, cycle, id)`,
}

// ClickHouseReportSink appends reports to ClickHouse for long-term analysis.
// ReplacingMergeTree on id absorbs duplicates from retried emits.
type ClickHouseReportSink struct {
	db *sql.DB
	l  *applogger.Logger
}

func NewClickHouseReportSink(ch *pkgch.Client, l *applogger.Logger) *ClickHouseReportSink {
	if l == nil {
		l = applogger.NewNop()
	}
	return &ClickHouseReportSink{db: ch.DB(), l: l}
}

func (s *ClickHouseReportSink) Name() string { return "clickhouse" }

func (s *ClickHouseReportSink) Emit(ctx context.Context, r models.CycleReport) error {
	start := time.Now()
	row := newReportRow(r)
	q := fmt.Sprintf(`INSERT INTO %s (id, run_id, cycle, ts, reading_ts, reading_kw, accepted, history_size,
        forecast_present, forecast_kw, forecast_target, no_forecast_reason, recommendation, advised_kw, threshold_kw)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, chReportsTable)
	_, err := s.db.ExecContext(ctx, q,
		row.ID,
		row.RunID,
		uint64(row.Cycle),
		row.Timestamp,
		row.ReadingTimestamp,
		row.ReadingKW,
		boolToUInt8(row.Accepted),
		uint32(row.HistorySize),
		boolToUInt8(row.ForecastPresent),
		row.ForecastKW,
		row.ForecastTarget,
		row.NoForecastReason,
		row.Recommendation,
		row.AdvisedKW,
		row.ThresholdKW,
	)
	if err != nil {
		s.l.Error("clickhouse insert report error",
			applogger.String("table", chReportsTable),
			applogger.Uint64("cycle", r.Cycle),
			applogger.Error(err),
		)
		return fmt.Errorf("insert report: %w", err)
	}
	s.l.Debug("clickhouse insert report ok",
		applogger.Uint64("cycle", r.Cycle),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// Close is a no-op; the pool is owned by pkg/clickhouse.Client.
func (s *ClickHouseReportSink) Close() error { return nil }

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

var _ domrepo.OutputSink = (*ClickHouseReportSink)(nil)
