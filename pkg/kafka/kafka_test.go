package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"WattCast/pkg/logger"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, comp: "snappy"}

	type payload struct {
		Cycle int `json:"cycle"`
	}
	if err := p.Publish(context.Background(), "reports", []byte("run-1"), payload{Cycle: 3}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := p.PublishMessage(context.Background(), "logs", []byte("raw")); err != nil {
		t.Fatalf("publish message: %v", err)
	}

	if len(w.msgs) != 2 {
		t.Fatalf("wrote %d messages", len(w.msgs))
	}
	var got payload
	if err := json.Unmarshal(w.msgs[0].Value, &got); err != nil || got.Cycle != 3 {
		t.Fatalf("value=%s err=%v", w.msgs[0].Value, err)
	}
	if string(w.msgs[0].Key) != "run-1" || w.msgs[0].Topic != "reports" {
		t.Fatalf("key=%s topic=%s", w.msgs[0].Key, w.msgs[0].Topic)
	}
	if string(w.msgs[1].Value) != "raw" || w.msgs[1].Key != nil {
		t.Fatalf("raw payload %q key %q", w.msgs[1].Value, w.msgs[1].Key)
	}
}

func TestProducer_PublishError(t *testing.T) {
	cause := errors.New("leader not available")
	p := &Producer{writer: &fakeWriter{err: cause}, comp: "none"}
	if err := p.Publish(context.Background(), "reports", nil, "x"); !errors.Is(err, cause) {
		t.Fatalf("err=%v want wrapped cause", err)
	}
}

func TestNewProducer_RequiresBrokers(t *testing.T) {
	if _, err := NewProducer(); err == nil {
		t.Fatalf("expected error without brokers")
	}
}

func TestParseCompression(t *testing.T) {
	if parseCompression("gzip") != kafka.Gzip || parseCompression("zstd") != kafka.Zstd || parseCompression("lz4") != kafka.Lz4 {
		t.Fatalf("unexpected codec mapping")
	}
}

type fakeReader struct {
	mu      sync.Mutex
	queue   chan kafka.Message
	commits []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.queue:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.commits = append(r.commits, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func (r *fakeReader) committed() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.commits...)
}

func TestConsumer_HandlesRetriesAndCommits(t *testing.T) {
	reader := &fakeReader{queue: make(chan kafka.Message, 3)}
	reader.queue <- kafka.Message{Offset: 1, Value: []byte("ok")}
	reader.queue <- kafka.Message{Offset: 2, Value: []byte("bad")}
	reader.queue <- kafka.Message{Offset: 3, Value: []byte("flaky")}

	var mu sync.Mutex
	calls := map[string]int{}
	handler := HandlerFunc(func(_ context.Context, b []byte) error {
		mu.Lock()
		defer mu.Unlock()
		calls[string(b)]++
		switch string(b) {
		case "bad":
			return ErrSkip
		case "flaky":
			if calls["flaky"] == 1 {
				return errors.New("transient")
			}
		}
		return nil
	})

	cfg := &ConsumerConfig{
		Topic:      "readings",
		RetryMax:   3,
		BackoffMin: time.Millisecond,
		BackoffMax: 2 * time.Millisecond,
		Logger:     logger.NewNop(),
	}
	c := newConsumer(cfg, reader, handler)
	c.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for len(reader.committed()) < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("committed %v, want 3 offsets", reader.committed())
		}
		time.Sleep(5 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if calls["bad"] != 1 {
		t.Fatalf("skipped message retried %d times", calls["bad"])
	}
	if calls["flaky"] != 2 {
		t.Fatalf("flaky handled %d times want 2", calls["flaky"])
	}
	if got := reader.committed(); got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("commit order %v", got)
	}
}

func TestBackoffWithJitter(t *testing.T) {
	for attempt := 1; attempt < 10; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 100*time.Millisecond, attempt)
		if d <= 0 || d > 100*time.Millisecond {
			t.Fatalf("attempt %d: backoff %v out of range", attempt, d)
		}
	}
}
