package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"WattCast/internal/domain/models"
	"WattCast/pkg/cache"
)

var ts = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func report(rec models.Recommendation, f models.Forecast) models.CycleReport {
	return models.CycleReport{
		ID:             "id-1",
		RunID:          "run-1",
		Cycle:          10,
		Timestamp:      ts,
		Reading:        models.Reading{Timestamp: ts, Value: 1.8},
		Accepted:       true,
		HistorySize:    10,
		Forecast:       f,
		Recommendation: rec,
		Threshold:      1.5,
	}
}

func TestStdoutSink(t *testing.T) {
	cases := []struct {
		name     string
		horizon  float64
		forecast models.Forecast
		rec      models.Recommendation
		want     string
	}{
		{
			name:     "insufficient",
			horizon:  1,
			forecast: models.NoForecast(models.ReasonInsufficientData, 3),
			rec:      models.RecommendOptimal,
			want:     "Not enough data to make predictions.\nEnergy usage is optimal.\n",
		},
		{
			name:     "present",
			horizon:  1,
			forecast: models.NewForecast(ts.Add(time.Hour), 1.234, 10),
			rec:      models.RecommendReduce,
			want:     "Predicted power usage for the next hour: 1.23 kW\nConsider turning off non-essential appliances to save energy.\n",
		},
		{
			name:     "custom horizon",
			horizon:  2,
			forecast: models.NewForecast(ts.Add(2*time.Hour), 1, 10),
			rec:      models.RecommendOptimal,
			want:     "Predicted power usage for the next 2 hours: 1.00 kW\nEnergy usage is optimal.\n",
		},
		{
			name:     "degenerate",
			horizon:  1,
			forecast: models.NoForecast(models.ReasonDegenerateFit, 10),
			rec:      models.RecommendOptimal,
			want:     "Prediction unavailable (degenerate_fit).\nEnergy usage is optimal.\n",
		},
	}
	for _, tc := range cases {
		var buf bytes.Buffer
		s := NewStdoutSink(&buf, tc.horizon)
		if err := s.Emit(context.Background(), report(tc.rec, tc.forecast)); err != nil {
			t.Fatalf("%s: emit: %v", tc.name, err)
		}
		if buf.String() != tc.want {
			t.Fatalf("%s: got %q want %q", tc.name, buf.String(), tc.want)
		}
	}
}

type stubSink struct {
	name    string
	err     error
	emitted int
	closed  bool
}

func (s *stubSink) Name() string { return s.name }
func (s *stubSink) Emit(context.Context, models.CycleReport) error {
	s.emitted++
	return s.err
}
func (s *stubSink) Close() error {
	s.closed = true
	return nil
}

type sinkErrors struct {
	names []string
}

func (m *sinkErrors) RecordReading(float64, bool)               {}
func (m *sinkErrors) RecordForecast(models.Forecast)             {}
func (m *sinkErrors) RecordRecommendation(models.Recommendation) {}
func (m *sinkErrors) RecordHistorySize(int)                      {}
func (m *sinkErrors) RecordError(string)                         {}
func (m *sinkErrors) RecordLatency(string, float64)              {}
func (m *sinkErrors) RecordSinkError(name string)                { m.names = append(m.names, name) }

func TestMultiSink(t *testing.T) {
	boom := errors.New("boom")
	a := &stubSink{name: "a"}
	b := &stubSink{name: "b", err: boom}
	c := &stubSink{name: "c"}
	m := &sinkErrors{}
	multi := NewMultiSink(m, a, b, c)

	if multi.Name() != "multi(a,b,c)" {
		t.Fatalf("name=%q", multi.Name())
	}
	err := multi.Emit(context.Background(), report(models.RecommendOptimal, models.NoForecast(models.ReasonInsufficientData, 1)))
	if !errors.Is(err, boom) {
		t.Fatalf("err=%v want boom", err)
	}
	if a.emitted != 1 || b.emitted != 1 || c.emitted != 1 {
		t.Fatalf("every sink must receive the report")
	}
	if len(m.names) != 1 || m.names[0] != "b" {
		t.Fatalf("sink errors %v", m.names)
	}
	if err := multi.Close(); err != nil || !a.closed || !c.closed {
		t.Fatalf("close err=%v", err)
	}
}

func TestCacheReportStore(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	store := NewCacheReportStore(mc, time.Hour)
	ctx := context.Background()

	if _, ok, err := store.Latest(ctx); ok || err != nil {
		t.Fatalf("empty store ok=%v err=%v", ok, err)
	}

	first := report(models.RecommendOptimal, models.NoForecast(models.ReasonInsufficientData, 9))
	second := report(models.RecommendReduce, models.NewForecast(ts.Add(time.Hour), 2.1, 10))
	second.Cycle = 11
	for _, r := range []models.CycleReport{first, second} {
		if err := store.Emit(ctx, r); err != nil {
			t.Fatalf("emit: %v", err)
		}
	}

	got, ok, err := store.Latest(ctx)
	if err != nil || !ok {
		t.Fatalf("latest ok=%v err=%v", ok, err)
	}
	if got.Cycle != 11 || !got.Forecast.Present() || got.Forecast.Value != 2.1 {
		t.Fatalf("latest %+v", got)
	}
}

func TestNotifySink(t *testing.T) {
	now := ts
	mc := cache.NewMemoryCache(cache.WithMemoryClock(func() time.Time { return now }))
	defer mc.Close()

	var sent []string
	notifier := func(title, msg string) error {
		sent = append(sent, title+": "+msg)
		return nil
	}
	s := NewNotifySink(notifier, mc, "WattCast", 15*time.Minute)
	ctx := context.Background()

	_ = s.Emit(ctx, report(models.RecommendOptimal, models.Forecast{}))
	if len(sent) != 0 {
		t.Fatalf("OPTIMAL must not notify")
	}

	_ = s.Emit(ctx, report(models.RecommendReduce, models.Forecast{}))
	_ = s.Emit(ctx, report(models.RecommendReduce, models.Forecast{}))
	if len(sent) != 1 {
		t.Fatalf("sent %d notifications within cooldown", len(sent))
	}
	if !strings.Contains(sent[0], "1.80 kW") || !strings.HasPrefix(sent[0], "WattCast: ") {
		t.Fatalf("message %q", sent[0])
	}

	now = now.Add(16 * time.Minute)
	_ = s.Emit(ctx, report(models.RecommendReduce, models.Forecast{}))
	if len(sent) != 2 {
		t.Fatalf("expected a second notification after the cooldown")
	}
}

type fakePublisher struct {
	topic string
	key   []byte
	value interface{}
}

func (p *fakePublisher) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	p.topic, p.key, p.value = topic, key, value
	return nil
}

func TestKafkaReportSink(t *testing.T) {
	pub := &fakePublisher{}
	s := NewKafkaReportSink(pub, "wattcast.reports")
	r := report(models.RecommendReduce, models.NewForecast(ts.Add(time.Hour), 2, 10))
	if err := s.Emit(context.Background(), r); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if pub.topic != "wattcast.reports" || string(pub.key) != "run-1" {
		t.Fatalf("topic=%s key=%s", pub.topic, pub.key)
	}
	b, err := json.Marshal(pub.value)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"recommendation":"REDUCE"`) {
		t.Fatalf("payload %s", b)
	}
}

func TestNewReportRow(t *testing.T) {
	row := newReportRow(report(models.RecommendReduce, models.NewForecast(ts.Add(time.Hour), 2.5, 10)))
	if !row.ForecastPresent || row.ForecastKW == nil || *row.ForecastKW != 2.5 {
		t.Fatalf("forecast columns %+v", row)
	}
	if !row.ForecastTarget.Equal(ts.Add(time.Hour)) || row.NoForecastReason != "" {
		t.Fatalf("target=%v reason=%q", row.ForecastTarget, row.NoForecastReason)
	}

	row = newReportRow(report(models.RecommendOptimal, models.NoForecast(models.ReasonInsufficientData, 4)))
	if row.ForecastPresent || row.ForecastKW != nil || row.ForecastTarget != nil {
		t.Fatalf("absent forecast must leave nullable columns nil")
	}
	if row.NoForecastReason != "insufficient_data" || row.Recommendation != "OPTIMAL" || row.Cycle != 10 {
		t.Fatalf("row %+v", row)
	}

	rejected := report(models.RecommendReduce, models.NoForecast(models.ReasonInsufficientData, 4))
	rejected.Reading = models.Reading{Timestamp: ts, Value: -1}
	rejected.Advised = models.Reading{Timestamp: ts.Add(-time.Minute), Value: 1.8}
	if row := newReportRow(rejected); row.ReadingKW != -1 || row.AdvisedKW != 1.8 {
		t.Fatalf("reading_kw=%v advised_kw=%v", row.ReadingKW, row.AdvisedKW)
	}
}
