package models

import (
	"encoding/json"
	"time"
)

// NoForecastReason explains why a cycle produced no forecast.
type NoForecastReason string

const (
	ReasonInsufficientData NoForecastReason = "insufficient_data"
	ReasonDegenerateFit    NoForecastReason = "degenerate_fit"
	ReasonFitError         NoForecastReason = "fit_error"
)

// Forecast is either a prediction or an explicit absence. The zero value is
// an absence with no reason; use NewForecast / NoForecast to build one.
type Forecast struct {
	present bool
	reason  NoForecastReason

	TargetTime time.Time
	Value      float64 // kW
	Samples    int
}

// NewForecast builds a present forecast.
func NewForecast(target time.Time, value float64, samples int) Forecast {
	return Forecast{present: true, TargetTime: target, Value: value, Samples: samples}
}

// NoForecast builds an absent forecast.
func NoForecast(reason NoForecastReason, samples int) Forecast {
	return Forecast{reason: reason, Samples: samples}
}

// Present reports whether the forecast carries a prediction.
func (f Forecast) Present() bool { return f.present }

// Reason is empty for present forecasts.
func (f Forecast) Reason() NoForecastReason { return f.reason }

// ReasonFor maps a forecaster error to the absence reason.
func ReasonFor(err error) NoForecastReason {
	switch ErrorKind(err) {
	case "insufficient_data":
		return ReasonInsufficientData
	case "degenerate_fit":
		return ReasonDegenerateFit
	default:
		return ReasonFitError
	}
}

type forecastJSON struct {
	Present    bool             `json:"present"`
	Reason     NoForecastReason `json:"reason,omitempty"`
	TargetTime *time.Time       `json:"target_time,omitempty"`
	Value      *float64         `json:"value,omitempty"`
	Samples    int              `json:"samples"`
}

func (f Forecast) MarshalJSON() ([]byte, error) {
	out := forecastJSON{Present: f.present, Reason: f.reason, Samples: f.Samples}
	if f.present {
		t, v := f.TargetTime, f.Value
		out.TargetTime, out.Value = &t, &v
	}
	return json.Marshal(out)
}

func (f *Forecast) UnmarshalJSON(b []byte) error {
	var in forecastJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*f = Forecast{present: in.Present, reason: in.Reason, Samples: in.Samples}
	if in.TargetTime != nil {
		f.TargetTime = *in.TargetTime
	}
	if in.Value != nil {
		f.Value = *in.Value
	}
	return nil
}
