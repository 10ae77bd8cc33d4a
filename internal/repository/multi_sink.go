package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"WattCast/internal/domain/models"
	domrepo "WattCast/internal/domain/repository"
)

// MultiSink fans a report out to every sink in order. One sink failing does
// not stop the others; failures are counted per sink and joined.
type MultiSink struct {
	sinks   []domrepo.OutputSink
	metrics domrepo.Metrics
}

func NewMultiSink(metrics domrepo.Metrics, sinks ...domrepo.OutputSink) *MultiSink {
	return &MultiSink{sinks: sinks, metrics: metrics}
}

// Name lists the member sinks, e.g. "multi(stdout,kafka)".
func (m *MultiSink) Name() string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name()
	}
	return "multi(" + strings.Join(names, ",") + ")"
}

func (m *MultiSink) Emit(ctx context.Context, r models.CycleReport) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Emit(ctx, r); err != nil {
			if m.metrics != nil {
				m.metrics.RecordSinkError(s.Name())
			}
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

var _ domrepo.OutputSink = (*MultiSink)(nil)
