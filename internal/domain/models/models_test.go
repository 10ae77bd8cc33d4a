package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestErrorKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{NewInvalidReading(Reading{Value: -1}, "value is negative"), "invalid_reading"},
		{fmt.Errorf("fit: %w", ErrInsufficientData), "insufficient_data"},
		{ErrDegenerateFit, "degenerate_fit"},
		{ErrEmptyHistory, "empty_history"},
		{fmt.Errorf("%w: timeout", ErrSensorUnavailable), "sensor_unavailable"},
		{errors.New("boom"), "unknown"},
	}
	for _, tc := range cases {
		if got := ErrorKind(tc.err); got != tc.want {
			t.Fatalf("ErrorKind(%v)=%q want %q", tc.err, got, tc.want)
		}
	}
}

func TestCycleError(t *testing.T) {
	err := NewCycleError(7, fmt.Errorf("%w: eof", ErrSensorUnavailable))
	if err.Kind != "sensor_unavailable" || err.Cycle != 7 {
		t.Fatalf("unexpected %+v", err)
	}
	if !errors.Is(err, ErrSensorUnavailable) {
		t.Fatalf("cycle error must unwrap to the cause")
	}
	if !strings.Contains(err.Error(), "cycle 7") {
		t.Fatalf("message %q lacks cycle number", err.Error())
	}
}

func TestReasonFor(t *testing.T) {
	if ReasonFor(ErrDegenerateFit) != ReasonDegenerateFit {
		t.Fatalf("degenerate")
	}
	if ReasonFor(ErrInsufficientData) != ReasonInsufficientData {
		t.Fatalf("insufficient")
	}
	if ReasonFor(errors.New("x")) != ReasonFitError {
		t.Fatalf("other")
	}
}

func TestForecastJSON(t *testing.T) {
	target := time.Date(2025, 3, 1, 13, 0, 0, 0, time.UTC)

	b, err := json.Marshal(NewForecast(target, 1.25, 12))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(b)
	if !strings.Contains(s, `"present":true`) || !strings.Contains(s, `"value":1.25`) || strings.Contains(s, "reason") {
		t.Fatalf("present forecast json %s", s)
	}
	var back Forecast
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Present() || back.Value != 1.25 || !back.TargetTime.Equal(target) {
		t.Fatalf("round trip %+v", back)
	}

	b, _ = json.Marshal(NoForecast(ReasonInsufficientData, 3))
	s = string(b)
	if !strings.Contains(s, `"present":false`) || !strings.Contains(s, `"reason":"insufficient_data"`) || strings.Contains(s, "value") {
		t.Fatalf("absent forecast json %s", s)
	}
}

func TestReadingValidate(t *testing.T) {
	ok := Reading{Timestamp: time.Now(), Value: 0}
	if err := ok.Validate(); err != nil {
		t.Fatalf("zero value must be valid: %v", err)
	}
	bad := Reading{Timestamp: time.Now(), Value: -0.1}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidReading) {
		t.Fatalf("err=%v", err)
	}
}

func TestRecommendationMessage(t *testing.T) {
	if RecommendReduce.Message() != "Consider turning off non-essential appliances to save energy." {
		t.Fatalf("reduce message %q", RecommendReduce.Message())
	}
	if RecommendOptimal.Message() != "Energy usage is optimal." {
		t.Fatalf("optimal message %q", RecommendOptimal.Message())
	}
}
