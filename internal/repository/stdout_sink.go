package repository

import (
	"context"
	"fmt"
	"io"
	"sync"

	"WattCast/internal/domain/models"
	domrepo "WattCast/internal/domain/repository"
)

// StdoutSink prints the operator-facing lines for each cycle.
type StdoutSink struct {
	mu      sync.Mutex
	w       io.Writer
	horizon float64
}

func NewStdoutSink(w io.Writer, horizonHours float64) *StdoutSink {
	return &StdoutSink{w: w, horizon: horizonHours}
}

func (s *StdoutSink) Name() string { return "stdout" }

func (s *StdoutSink) Emit(_ context.Context, r models.CycleReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	switch {
	case r.Forecast.Present():
		_, err = fmt.Fprintf(s.w, "Predicted power usage for the %s: %.2f kW\n", s.horizonLabel(), r.Forecast.Value)
	case r.Forecast.Reason() == models.ReasonInsufficientData:
		_, err = fmt.Fprintln(s.w, "Not enough data to make predictions.")
	default:
		_, err = fmt.Fprintf(s.w, "Prediction unavailable (%s).\n", r.Forecast.Reason())
	}
	if err != nil {
		return fmt.Errorf("stdout write: %w", err)
	}
	if _, err := fmt.Fprintln(s.w, r.Recommendation.Message()); err != nil {
		return fmt.Errorf("stdout write: %w", err)
	}
	return nil
}

func (s *StdoutSink) horizonLabel() string {
	if s.horizon == 1 {
		return "next hour"
	}
	return fmt.Sprintf("next %g hours", s.horizon)
}

func (s *StdoutSink) Close() error { return nil }

var _ domrepo.OutputSink = (*StdoutSink)(nil)
