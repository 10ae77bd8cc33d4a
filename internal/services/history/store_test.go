package history

import (
	"errors"
	"math"
	"testing"
	"time"

	"WattCast/internal/domain/models"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func reading(offset time.Duration, v float64) models.Reading {
	return models.Reading{Timestamp: t0.Add(offset), Value: v}
}

func TestStore_AppendAndFeatures(t *testing.T) {
	s := New()
	for i, v := range []float64{1, 2, 3} {
		if err := s.Append(reading(time.Duration(i)*30*time.Minute, v)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if s.Size() != 3 {
		t.Fatalf("size=%d want 3", s.Size())
	}

	features := s.FeatureMatrix()
	want := []float64{0, 0.5, 1}
	for i := range want {
		if math.Abs(features[i]-want[i]) > 1e-12 {
			t.Fatalf("features=%v want %v", features, want)
		}
	}
	values := s.ValueVector()
	if len(values) != 3 || values[0] != 1 || values[2] != 3 {
		t.Fatalf("values=%v", values)
	}
	latest, ok := s.Latest()
	if !ok || latest.Value != 3 {
		t.Fatalf("latest=%+v ok=%v", latest, ok)
	}
}

func TestStore_RejectsInvalid(t *testing.T) {
	s := New()
	if err := s.Append(reading(time.Hour, 1)); err != nil {
		t.Fatalf("append: %v", err)
	}

	cases := []struct {
		name string
		r    models.Reading
	}{
		{"negative", reading(2*time.Hour, -1)},
		{"nan", reading(2*time.Hour, math.NaN())},
		{"inf", reading(2*time.Hour, math.Inf(1))},
		{"zero timestamp", models.Reading{Value: 1}},
		{"earlier than last", reading(0, 1)},
	}
	for _, tc := range cases {
		err := s.Append(tc.r)
		if !errors.Is(err, models.ErrInvalidReading) {
			t.Fatalf("%s: err=%v want ErrInvalidReading", tc.name, err)
		}
		if s.Size() != 1 {
			t.Fatalf("%s: size=%d want 1", tc.name, s.Size())
		}
	}

	// equal timestamps are allowed
	if err := s.Append(reading(time.Hour, 2)); err != nil {
		t.Fatalf("equal timestamp rejected: %v", err)
	}
}

func TestStore_ForecastReady(t *testing.T) {
	s := New()
	for i := 0; i < DefaultMinSamples; i++ {
		if s.IsForecastReady() {
			t.Fatalf("ready at size %d", s.Size())
		}
		_ = s.Append(reading(time.Duration(i)*time.Minute, 1))
	}
	if !s.IsForecastReady() {
		t.Fatalf("not ready at size %d", s.Size())
	}

	s = New(WithMinSamples(1)) // ignored, a line needs two points
	if s.MinSamples() != DefaultMinSamples {
		t.Fatalf("min=%d", s.MinSamples())
	}
}

func TestStore_MaxSamplesRing(t *testing.T) {
	s := New(WithMinSamples(2), WithMaxSamples(3))
	for i := 0; i < 5; i++ {
		_ = s.Append(reading(time.Duration(i)*time.Hour, float64(i)))
	}
	if s.Size() != 3 || s.Evicted() != 2 {
		t.Fatalf("size=%d evicted=%d", s.Size(), s.Evicted())
	}
	first, _ := s.Earliest()
	if first.Value != 2 {
		t.Fatalf("earliest=%v want 2", first.Value)
	}
	// features are relative to the earliest retained reading
	f := s.FeatureMatrix()
	if f[0] != 0 || f[2] != 2 {
		t.Fatalf("features=%v", f)
	}
	snap := s.Snapshot()
	if snap[0].Value != 2 || snap[2].Value != 4 {
		t.Fatalf("snapshot=%v", snap)
	}
}

func TestStore_MaxSamplesRaisedToReadinessGate(t *testing.T) {
	s := New(WithMinSamples(10), WithMaxSamples(5))
	for i := 0; i < 50; i++ {
		if err := s.Append(reading(time.Duration(i)*time.Minute, 1)); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if s.Size() != 10 || !s.IsForecastReady() {
		t.Fatalf("size=%d ready=%v, want 10 and ready", s.Size(), s.IsForecastReady())
	}
}

func TestStore_MaxWindow(t *testing.T) {
	s := New(WithMaxWindow(2 * time.Hour))
	for i := 0; i < 6; i++ {
		_ = s.Append(reading(time.Duration(i)*time.Hour, float64(i)))
	}
	// retained: hours 3, 4, 5
	if s.Size() != 3 {
		t.Fatalf("size=%d want 3", s.Size())
	}
	first, _ := s.Earliest()
	if !first.Timestamp.Equal(t0.Add(3 * time.Hour)) {
		t.Fatalf("earliest=%v", first.Timestamp)
	}
	if v := s.ValueVector(); v[0] != 3 || v[2] != 5 {
		t.Fatalf("values=%v", v)
	}
}

func TestStore_Empty(t *testing.T) {
	s := New()
	if _, ok := s.Latest(); ok {
		t.Fatalf("latest on empty store")
	}
	if len(s.FeatureMatrix()) != 0 || len(s.ValueVector()) != 0 {
		t.Fatalf("expected empty vectors")
	}
}
