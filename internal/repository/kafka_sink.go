package repository

import (
	"context"

	"WattCast/internal/domain/models"
	domrepo "WattCast/internal/domain/repository"
)

// Publisher is the subset of pkg/kafka.Producer the sink needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaReportSink publishes each report as JSON, keyed by run id so one
// run's reports stay ordered on a partition.
type KafkaReportSink struct {
	pub   Publisher
	topic string
}

func NewKafkaReportSink(pub Publisher, topic string) *KafkaReportSink {
	return &KafkaReportSink{pub: pub, topic: topic}
}

func (s *KafkaReportSink) Name() string { return "kafka" }

func (s *KafkaReportSink) Emit(ctx context.Context, r models.CycleReport) error {
	return s.pub.Publish(ctx, s.topic, []byte(r.RunID), r)
}

// Close is a no-op; the producer is shared and closed by its owner.
func (s *KafkaReportSink) Close() error { return nil }

var _ domrepo.OutputSink = (*KafkaReportSink)(nil)
