package models

// AdviceRequest is the query of GET /api/v1/advice.
type AdviceRequest struct {
	Value     float64 `query:"value" json:"value" validate:"gte=0"`
	Threshold float64 `query:"threshold" json:"threshold" default:"1.5" validate:"gt=0"`
}

// AdviceResponse answers an advice query.
type AdviceResponse struct {
	Value          float64        `json:"value"`
	Threshold      float64        `json:"threshold"`
	Recommendation Recommendation `json:"recommendation"`
	Message        string         `json:"message"`
}

// HealthResponse is the liveness view of the loop.
type HealthResponse struct {
	RunID       string `json:"run_id"`
	State       string `json:"state"`
	Cycles      uint64 `json:"cycles"`
	HistorySize int    `json:"history_size"`
}
