package advisor

import (
	"WattCast/internal/domain/models"
	domsvc "WattCast/internal/domain/service"
)

// DefaultThreshold is the usage in kW above which REDUCE is advised.
const DefaultThreshold = 1.5

// Threshold advises REDUCE strictly above the threshold, OPTIMAL otherwise.
type Threshold struct {
	limit float64
}

func NewThreshold(limit float64) *Threshold {
	if limit <= 0 {
		limit = DefaultThreshold
	}
	return &Threshold{limit: limit}
}

// Limit returns the configured threshold.
func (t *Threshold) Limit() float64 { return t.limit }

func (t *Threshold) Advise(latestValue float64) models.Recommendation {
	if latestValue > t.limit {
		return models.RecommendReduce
	}
	return models.RecommendOptimal
}

// AdviseLatest advises on the newest reading of src.
func (t *Threshold) AdviseLatest(src domsvc.LatestReading) (models.Recommendation, error) {
	if src == nil {
		return "", models.ErrEmptyHistory
	}
	r, ok := src.Latest()
	if !ok {
		return "", models.ErrEmptyHistory
	}
	return t.Advise(r.Value), nil
}

var _ domsvc.Advisor = (*Threshold)(nil)
