package models

import (
	"math"
	"time"
)

// Reading is one timestamped power measurement in kW.
type Reading struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Validate checks the reading on its own, without regard to history order.
func (r Reading) Validate() error {
	if r.Timestamp.IsZero() {
		return NewInvalidReading(r, "timestamp is zero")
	}
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return NewInvalidReading(r, "value is not finite")
	}
	if r.Value < 0 {
		return NewInvalidReading(r, "value is negative")
	}
	return nil
}
