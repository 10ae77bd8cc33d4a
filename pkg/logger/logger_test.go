package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
)

type capturePublisher struct {
	mu      sync.Mutex
	batches []LogBatch
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if b, ok := payload.(LogBatch); ok {
		p.batches = append(p.batches, b)
	}
	return nil
}

func TestLogger_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "info").With(String("run_id", "r1"))
	l.Debug("hidden")
	l.Info("cycle complete", Int("cycle", 3), Float64("value", 1.5), Bool("accepted", true))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d lines, debug should be filtered: %q", len(lines), buf.String())
	}
	var ev map[string]interface{}
	if err := json.Unmarshal([]byte(lines[0]), &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev["message"] != "cycle complete" || ev["run_id"] != "r1" || ev["cycle"] != float64(3) || ev["accepted"] != true {
		t.Fatalf("event %v", ev)
	}
}

func TestLogger_CollectorSeesChildLoggers(t *testing.T) {
	pub := &capturePublisher{}
	root := NewWriter(&bytes.Buffer{}, "debug")
	child := root.With(String("sink", "kafka"))

	// attached after the child was derived
	root.AddCollector(&CollectionConfig{
		TimeInterval:   time.Hour,
		CountThreshold: 100,
		Topic:          "wattcast.logs",
		Source:         "run-1",
		Publisher:      pub,
	})

	for i := 0; i < 3; i++ {
		child.Warn("emit failed", String("sink", "kafka"), Int("cycle", i))
	}
	child.Info("not collected")
	root.RemoveCollector()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if len(pub.batches) != 1 {
		t.Fatalf("batches=%d want 1", len(pub.batches))
	}
	b := pub.batches[0]
	if b.Source != "run-1" || len(b.Entries) != 1 {
		t.Fatalf("batch %+v", b)
	}
	if e := b.Entries[0]; e.Count != 3 || e.Level != "warn" || e.Message != "emit failed" {
		t.Fatalf("entry %+v", e)
	}
}

func TestNew_InvalidLevel(t *testing.T) {
	if _, err := New(&Config{Level: "loud"}); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}
