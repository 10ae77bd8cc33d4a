package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"

	"WattCast/pkg/logger"
)

// MessageHandler handles messages from the consumer's topic.
type MessageHandler interface {
	Handle(context.Context, []byte) error
}

// HandlerFunc adapts a function to MessageHandler.
type HandlerFunc func(context.Context, []byte) error

func (f HandlerFunc) Handle(ctx context.Context, b []byte) error { return f(ctx, b) }

// messageReader is the part of *kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads one topic in order and hands each message to a handler.
// Failed messages are retried with backoff and committed once handled or
// given up on, so a poison message cannot stall the partition.
type Consumer struct {
	cfg     *ConsumerConfig
	reader  messageReader
	handler MessageHandler
	log     *logger.Logger

	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(handler MessageHandler, opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:    "wattcast",
		MinBytes:   1,
		MaxBytes:   1 << 20,
		MaxWait:    500 * time.Millisecond,
		RetryMax:   3,
		BackoffMin: 50 * time.Millisecond,
		BackoffMax: 2 * time.Second,
		Logger:     logger.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
		MaxWait:  cfg.MaxWait,
	})

	initConsumerMetricsOnce()
	return newConsumer(cfg, reader, handler), nil
}

func newConsumer(cfg *ConsumerConfig, reader messageReader, handler MessageHandler) *Consumer {
	return &Consumer{
		cfg:     cfg,
		reader:  reader,
		handler: handler,
		log:     cfg.Logger.With(logger.String("topic", cfg.Topic)),
		done:    make(chan struct{}),
	}
}

// Start launches the fetch loop. It runs until Stop or ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	go c.run(ctx)
	c.log.Info("kafka consumer started", logger.String("group_id", c.cfg.GroupID))
}

func (c *Consumer) run(ctx context.Context) {
	defer close(c.done)
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("kafka fetch failed", logger.Error(err))
			if !sleepCtx(ctx, c.cfg.BackoffMax) {
				return
			}
			continue
		}

		start := time.Now()
		if err := c.handle(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Error("kafka message dropped",
				logger.Int64("offset", msg.Offset),
				logger.Int("partition", msg.Partition),
				logger.Error(err))
		}
		if consumerHandleLatency != nil {
			consumerHandleLatency.WithLabelValues(c.cfg.Topic).Observe(time.Since(start).Seconds())
		}
		if err := c.commitWithRetry(ctx, msg, 3); err != nil && ctx.Err() == nil {
			c.log.Warn("kafka commit failed", logger.Int64("offset", msg.Offset), logger.Error(err))
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = c.handler.Handle(ctx, msg.Value)
		if err == nil || attempt > c.cfg.RetryMax || errors.Is(err, ErrSkip) {
			return err
		}
		if !sleepCtx(ctx, backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)) {
			return ctx.Err()
		}
	}
}

// ErrSkip tells the consumer not to retry a message, e.g. one that cannot be decoded.
var ErrSkip = errors.New("skip message")

func (c *Consumer) commitWithRetry(ctx context.Context, msg kafka.Message, max int) error {
	var err error
	for attempt := 1; attempt <= max; attempt++ {
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err = c.reader.CommitMessages(cctx, msg)
		cancel()
		if err == nil {
			return nil
		}
		if !sleepCtx(ctx, backoffWithJitter(50*time.Millisecond, 500*time.Millisecond, attempt)) {
			return ctx.Err()
		}
	}
	return err
}

// Stop cancels the fetch loop and closes the reader.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
			select {
			case <-c.done:
			case <-ctx.Done():
				stopErr = fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
			}
		}
		if err := c.reader.Close(); err != nil && stopErr == nil {
			stopErr = fmt.Errorf("close reader: %w", err)
		}
		c.log.Info("kafka consumer stopped")
	})
	return stopErr
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	exp := min * time.Duration(1<<uint(attempt-1))
	if exp > max || exp <= 0 {
		exp = max
	}
	// jitter up to 50%
	jitter := time.Duration(rand.Int63n(int64(exp)/2 + 1))
	return exp - jitter
}

var (
	consumerHandleLatency *prometheus.HistogramVec
	consumerOnce          = make(chan struct{}, 1)
)

func initConsumerMetricsOnce() {
	select {
	case consumerOnce <- struct{}{}:
		consumerHandleLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "wattcast_kafka_consumer_handle_seconds", Help: "Handling time per message"},
			[]string{"topic"},
		)
	default:
		// already initialized
	}
}
