package sensor

import (
	"context"
	"fmt"
	"time"

	"WattCast/internal/domain/models"
	domrepo "WattCast/internal/domain/repository"
	"WattCast/pkg/kafka"
	"WattCast/pkg/logger"
)

// Kafka consumes meter readings published to a topic.
type Kafka struct {
	consumer *kafka.Consumer
	stream   *stream
	log      *logger.Logger
}

// NewKafka starts a consumer; opts should at least carry brokers and topic.
func NewKafka(bufferSize int, log *logger.Logger, opts ...kafka.ConsumerOption) (*Kafka, error) {
	if log == nil {
		log = logger.NewNop()
	}
	k := &Kafka{
		stream: newStream(bufferSize),
		log:    log.With(logger.String("sensor", "kafka")),
	}

	opts = append(opts, kafka.WithConsumerLogger(k.log))
	c, err := kafka.NewConsumer(kafka.HandlerFunc(k.handle), opts...)
	if err != nil {
		return nil, fmt.Errorf("kafka sensor: %w", err)
	}
	k.consumer = c
	k.consumer.Start(context.Background())
	return k, nil
}

func (k *Kafka) handle(_ context.Context, b []byte) error {
	r, err := decodeReading(b, time.Now())
	if err != nil {
		return fmt.Errorf("%w: %v", kafka.ErrSkip, err)
	}
	k.stream.push(r)
	return nil
}

// Read returns the next consumed reading.
func (k *Kafka) Read(ctx context.Context) (models.Reading, error) {
	return k.stream.next(ctx)
}

func (k *Kafka) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return k.consumer.Stop(ctx)
}

var _ domrepo.SensorSource = (*Kafka)(nil)
