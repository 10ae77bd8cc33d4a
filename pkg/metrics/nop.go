package metrics

import "WattCast/internal/domain/models"

// Nop discards everything. Used when metrics are disabled and in tests.
type Nop struct{}

func (Nop) RecordReading(float64, bool)               {}
func (Nop) RecordForecast(models.Forecast)             {}
func (Nop) RecordRecommendation(models.Recommendation) {}
func (Nop) RecordHistorySize(int)                      {}
func (Nop) RecordError(string)                         {}
func (Nop) RecordLatency(string, float64)              {}
func (Nop) RecordSinkError(string)                     {}
