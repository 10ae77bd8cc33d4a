package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"WattCast/internal/domain/models"
	domrepo "WattCast/internal/domain/repository"
)

const postgresSchema = `
	CREATE TABLE IF NOT EXISTS cycle_reports (
		id                 UUID PRIMARY KEY,
		run_id             UUID NOT NULL,
		cycle              BIGINT NOT NULL,
		ts                 TIMESTAMPTZ NOT NULL,
		reading_ts         TIMESTAMPTZ NOT NULL,
		reading_kw         DOUBLE PRECISION NOT NULL,
		accepted           BOOLEAN NOT NULL,
		history_size       INTEGER NOT NULL,
		forecast_present   BOOLEAN NOT NULL,
		forecast_kw        DOUBLE PRECISION,
		forecast_target    TIMESTAMPTZ,
		no_forecast_reason TEXT NOT NULL DEFAULT '',
		recommendation     TEXT NOT NULL,
		advised_kw         DOUBLE PRECISION NOT NULL,
		threshold_kw       DOUBLE PRECISION NOT NULL
	);
	CREATE INDEX IF NOT EXISTS cycle_reports_run_cycle_idx ON cycle_reports (run_id, cycle)`

const insertReportQuery = `
	INSERT INTO cycle_reports (
		id, run_id, cycle, ts, reading_ts, reading_kw, accepted, history_size,
		forecast_present, forecast_kw, forecast_target, no_forecast_reason,
		recommendation, advised_kw, threshold_kw
	) VALUES (
		:id, :run_id, :cycle, :ts, :reading_ts, :reading_kw, :accepted, :history_size,
		:forecast_present, :forecast_kw, :forecast_target, :no_forecast_reason,
		:recommendation, :advised_kw, :threshold_kw
	) ON CONFLICT (id) DO NOTHING`

// PostgresReportSink stores reports in PostgreSQL.
type PostgresReportSink struct {
	db *sqlx.DB
}

// NewPostgresReportSink connects and ensures the schema exists.
func NewPostgresReportSink(ctx context.Context, dsn string, maxOpenConns int) (*PostgresReportSink, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if _, err := db.ExecContext(ctx, postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return &PostgresReportSink{db: db}, nil
}

func (s *PostgresReportSink) Name() string { return "postgres" }

func (s *PostgresReportSink) Emit(ctx context.Context, r models.CycleReport) error {
	if _, err := s.db.NamedExecContext(ctx, insertReportQuery, newReportRow(r)); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (s *PostgresReportSink) Close() error { return s.db.Close() }

var _ domrepo.OutputSink = (*PostgresReportSink)(nil)
