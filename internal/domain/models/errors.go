package models

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidReading rejects a reading at ingestion; history is untouched.
	ErrInvalidReading = errors.New("invalid reading")
	// ErrInsufficientData means fewer than the minimum samples were supplied.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrDegenerateFit means the regression has no unique solution.
	ErrDegenerateFit = errors.New("degenerate fit")
	// ErrEmptyHistory means advice was requested before any reading was stored.
	ErrEmptyHistory = errors.New("empty history")
	// ErrSensorUnavailable is fatal to the loop.
	ErrSensorUnavailable = errors.New("sensor unavailable")
)

// NewInvalidReading wraps ErrInvalidReading with the offending reading.
func NewInvalidReading(r Reading, reason string) error {
	return fmt.Errorf("%w: %s (ts=%s value=%g)", ErrInvalidReading, reason, r.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"), r.Value)
}

// ErrorKind maps an error to a short label for logs and metrics.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidReading):
		return "invalid_reading"
	case errors.Is(err, ErrInsufficientData):
		return "insufficient_data"
	case errors.Is(err, ErrDegenerateFit):
		return "degenerate_fit"
	case errors.Is(err, ErrEmptyHistory):
		return "empty_history"
	case errors.Is(err, ErrSensorUnavailable):
		return "sensor_unavailable"
	default:
		return "unknown"
	}
}

// CycleError attaches the cycle number and error kind to a failure that
// escapes a cycle.
type CycleError struct {
	Cycle uint64
	Kind  string
	Err   error
}

func NewCycleError(cycle uint64, err error) *CycleError {
	return &CycleError{Cycle: cycle, Kind: ErrorKind(err), Err: err}
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cycle %d: %s: %v", e.Cycle, e.Kind, e.Err)
}

func (e *CycleError) Unwrap() error { return e.Err }
