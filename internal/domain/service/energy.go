package service

import "WattCast/internal/domain/models"

// Forecaster fits a model over elapsed-hour features and predicts ahead.
type Forecaster interface {
	FitAndPredict(features, values []float64, horizonHours float64) (float64, error)
}

// LatestReading is anything that can report its newest stored reading.
type LatestReading interface {
	Latest() (models.Reading, bool)
}

// Advisor maps the latest reading to a recommendation.
type Advisor interface {
	Advise(latestValue float64) models.Recommendation
	AdviseLatest(src LatestReading) (models.Recommendation, error)
}
