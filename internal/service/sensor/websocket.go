package sensor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"WattCast/internal/domain/models"
	domrepo "WattCast/internal/domain/repository"
	"WattCast/pkg/logger"
)

// maxReconnects is how many consecutive reconnects are tried before the
// stream is declared unavailable.
const maxReconnects = 3

// WebSocket subscribes to a meter that pushes readings over a websocket.
type WebSocket struct {
	url            string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *logger.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	stream *stream
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWebSocket dials url and starts the read loop.
func NewWebSocket(ctx context.Context, url string, reconnectDelay, pingInterval time.Duration, bufferSize int, log *logger.Logger) (*WebSocket, error) {
	if log == nil {
		log = logger.NewNop()
	}
	w := &WebSocket{
		url:            url,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log.With(logger.String("sensor", "websocket")),
		stream:         newStream(bufferSize),
	}
	if err := w.connect(ctx); err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.wg.Add(2)
	go w.readLoop(runCtx)
	go w.pingLoop(runCtx)
	return w, nil
}

func (w *WebSocket) connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, w.url, nil)
	if err != nil {
		return fmt.Errorf("websocket connect: %w", err)
	}
	w.mu.Lock()
	w.conn = conn
	w.mu.Unlock()
	w.log.Info("websocket connected", logger.String("url", w.url))
	return nil
}

func (w *WebSocket) pingLoop(ctx context.Context) {
	defer w.wg.Done()
	if w.pingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(w.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.mu.Lock()
			if w.conn != nil {
				_ = w.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			}
			w.mu.Unlock()
		}
	}
}

func (w *WebSocket) readLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		w.mu.Lock()
		conn := w.conn
		w.mu.Unlock()

		_, b, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.log.Warn("websocket read failed", logger.Error(err))
			if !w.reconnect(ctx) {
				w.stream.fail(fmt.Errorf("websocket read: %w", err))
				return
			}
			continue
		}

		r, err := decodeReading(b, time.Now())
		if err != nil {
			// ignore frames that are not readings
			w.log.Debug("websocket frame skipped", logger.Error(err))
			continue
		}
		w.stream.push(r)
	}
}

// reconnect closes the current connection and redials up to maxReconnects times.
func (w *WebSocket) reconnect(ctx context.Context) bool {
	w.mu.Lock()
	if w.conn != nil {
		_ = w.conn.Close()
	}
	w.mu.Unlock()

	for attempt := 1; attempt <= maxReconnects; attempt++ {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(w.reconnectDelay):
		}
		err := w.connect(ctx)
		if err == nil {
			return true
		}
		w.log.Warn("websocket reconnect failed", logger.Int("attempt", attempt), logger.Error(err))
	}
	return false
}

// Read returns the next pushed reading.
func (w *WebSocket) Read(ctx context.Context) (models.Reading, error) {
	return w.stream.next(ctx)
}

// Close stops the background loops and closes the connection.
func (w *WebSocket) Close() error {
	if w.cancel != nil {
		w.cancel()
	}
	w.mu.Lock()
	var err error
	if w.conn != nil {
		err = w.conn.Close()
	}
	w.mu.Unlock()
	w.wg.Wait()
	return err
}

var _ domrepo.SensorSource = (*WebSocket)(nil)
