package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"WattCast/internal/domain/models"
	domrepo "WattCast/internal/domain/repository"
)

const (
	minBackoff = 50 * time.Millisecond
	maxBackoff = 2 * time.Second
)

// BufferedSink sits between the loop and a remote sink. Reports that fail
// to emit are buffered and retried in the background with exponential
// backoff; once anything is buffered, new reports queue behind it so the
// downstream sees them in order.
type BufferedSink struct {
	next    domrepo.OutputSink
	metrics domrepo.Metrics
	bufCh   chan models.CycleReport
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	started bool
	// buffered plus the one being retried
	pending atomic.Int64
	// report the retry loop held when it stopped; read by Close after doneCh
	inflight *models.CycleReport
	// flush timeout per retry attempt and on Close
	flushTimeout time.Duration
}

type BufferOption func(*BufferedSink)

// WithBufferSize sets how many failed reports are kept for retry.
func WithBufferSize(n int) BufferOption {
	return func(b *BufferedSink) {
		if n > 0 {
			b.bufCh = make(chan models.CycleReport, n)
		}
	}
}

func WithFlushTimeout(d time.Duration) BufferOption {
	return func(b *BufferedSink) {
		if d > 0 {
			b.flushTimeout = d
		}
	}
}

func NewBufferedSink(next domrepo.OutputSink, metrics domrepo.Metrics, opts ...BufferOption) *BufferedSink {
	b := &BufferedSink{
		next:         next,
		metrics:      metrics,
		bufCh:        make(chan models.CycleReport, 256),
		stopCh:       make(chan struct{}),
		doneCh:       make(chan struct{}),
		flushTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *BufferedSink) Name() string { return b.next.Name() }

// Start launches the retry loop.
func (b *BufferedSink) Start() {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	go b.retryLoop()
}

func (b *BufferedSink) retryLoop() {
	defer close(b.doneCh)
	backoff := minBackoff
	for {
		select {
		case <-b.stopCh:
			return
		case r := <-b.bufCh:
			for {
				ctx, cancel := context.WithTimeout(context.Background(), b.flushTimeout)
				err := b.next.Emit(ctx, r)
				cancel()
				if err == nil {
					backoff = minBackoff
					b.pending.Add(-1)
					break
				}
				b.metrics.RecordError("buffer_retry_" + b.Name())
				select {
				case <-b.stopCh:
					// older than anything in bufCh; Close flushes it first
					held := r
					b.inflight = &held
					return
				case <-time.After(backoff):
				}
				if backoff < maxBackoff {
					backoff *= 2
				}
			}
		}
	}
}

// Emit forwards r downstream. On failure r is buffered for retry and the
// error is still returned so the caller can log it.
func (b *BufferedSink) Emit(ctx context.Context, r models.CycleReport) error {
	if err := validateReport(r); err != nil {
		b.metrics.RecordError("buffer_validate")
		return err
	}

	start := time.Now()
	if b.pending.Load() > 0 {
		return b.enqueue(r)
	}
	if err := b.next.Emit(ctx, r); err != nil {
		if qerr := b.enqueue(r); qerr != nil {
			return fmt.Errorf("%s downstream: %w; %v", b.Name(), err, qerr)
		}
		return fmt.Errorf("%s downstream (buffered for retry): %w", b.Name(), err)
	}
	b.metrics.RecordLatency("emit_"+b.Name(), time.Since(start).Seconds())
	return nil
}

// ErrBufferFull is returned when a report is dropped because the retry
// buffer has no room.
var ErrBufferFull = errors.New("retry buffer full")

func (b *BufferedSink) enqueue(r models.CycleReport) error {
	select {
	case b.bufCh <- r:
		b.pending.Add(1)
		return nil
	default:
		b.metrics.RecordError("buffer_full_" + b.Name())
		return fmt.Errorf("%s: cycle %d dropped: %w", b.Name(), r.Cycle, ErrBufferFull)
	}
}

// Pending returns the number of reports not yet delivered downstream.
func (b *BufferedSink) Pending() int { return int(b.pending.Load()) }

// Close stops retrying, makes one last attempt at everything still
// buffered and closes the downstream sink.
func (b *BufferedSink) Close() error {
	b.mu.Lock()
	started := b.started
	b.started = false
	b.mu.Unlock()
	if started {
		close(b.stopCh)
		<-b.doneCh
	}

	if b.inflight != nil {
		r := *b.inflight
		b.inflight = nil
		if err := b.flushOne(r); err != nil {
			return b.dropRest(err)
		}
	}
	for {
		select {
		case r := <-b.bufCh:
			if err := b.flushOne(r); err != nil {
				return b.dropRest(err)
			}
		default:
			return b.closeNext(nil)
		}
	}
}

func (b *BufferedSink) flushOne(r models.CycleReport) error {
	ctx, cancel := context.WithTimeout(context.Background(), b.flushTimeout)
	defer cancel()
	err := b.next.Emit(ctx, r)
	b.pending.Add(-1)
	return err
}

// dropRest discards everything still buffered after a failed final flush.
func (b *BufferedSink) dropRest(err error) error {
	b.metrics.RecordError("buffer_drop_" + b.Name())
	dropped := len(b.bufCh)
	for i := 0; i < dropped; i++ {
		<-b.bufCh
	}
	b.pending.Store(0)
	return b.closeNext(fmt.Errorf("%s: dropped %d buffered reports: %w", b.Name(), dropped+1, err))
}

func (b *BufferedSink) closeNext(flushErr error) error {
	if err := b.next.Close(); err != nil {
		if flushErr != nil {
			return fmt.Errorf("%w; close: %v", flushErr, err)
		}
		return err
	}
	return flushErr
}

func validateReport(r models.CycleReport) error {
	if r.ID == "" {
		return fmt.Errorf("report id empty")
	}
	if r.Cycle == 0 {
		return fmt.Errorf("report cycle is zero")
	}
	if r.Recommendation == "" {
		return fmt.Errorf("report has no recommendation")
	}
	return nil
}

var _ domrepo.OutputSink = (*BufferedSink)(nil)
