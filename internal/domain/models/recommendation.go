package models

import "time"

// Recommendation is the discrete advisory output.
type Recommendation string

const (
	RecommendReduce  Recommendation = "REDUCE"
	RecommendOptimal Recommendation = "OPTIMAL"
)

// Message is the operator-facing advice text.
func (r Recommendation) Message() string {
	switch r {
	case RecommendReduce:
		return "Consider turning off non-essential appliances to save energy."
	case RecommendOptimal:
		return "Energy usage is optimal."
	default:
		return string(r)
	}
}

// CycleReport is what one loop cycle emits to the output sinks. Advised is
// the stored reading Recommendation was derived from; it differs from
// Reading when Reading was rejected.
type CycleReport struct {
	ID             string         `json:"id"`
	RunID          string         `json:"run_id"`
	Cycle          uint64         `json:"cycle"`
	Timestamp      time.Time      `json:"timestamp"`
	Reading        Reading        `json:"reading"`
	Accepted       bool           `json:"accepted"`
	HistorySize    int            `json:"history_size"`
	Forecast       Forecast       `json:"forecast"`
	Recommendation Recommendation `json:"recommendation"`
	Advised        Reading        `json:"advised"`
	Threshold      float64        `json:"threshold"`
}
