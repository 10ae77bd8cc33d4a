package sensor

import (
	"context"
	"fmt"

	"WattCast/internal/domain/models"
)

// stream buffers pushed readings for the pull-based SensorSource API. When
// full the oldest reading is dropped so Read always sees recent data.
type stream struct {
	readings chan models.Reading
	failed   chan error
	dropped  func()
}

func newStream(size int) *stream {
	if size <= 0 {
		size = 64
	}
	return &stream{
		readings: make(chan models.Reading, size),
		failed:   make(chan error, 1),
	}
}

func (s *stream) push(r models.Reading) {
	for {
		select {
		case s.readings <- r:
			return
		default:
		}
		select {
		case <-s.readings:
			if s.dropped != nil {
				s.dropped()
			}
		default:
		}
	}
}

// fail marks the stream as permanently broken.
func (s *stream) fail(err error) {
	select {
	case s.failed <- err:
	default:
	}
}

// next blocks until a reading arrives, the stream fails or ctx is done.
// Buffered readings are still delivered after a failure.
func (s *stream) next(ctx context.Context) (models.Reading, error) {
	select {
	case r := <-s.readings:
		return r, nil
	default:
	}
	select {
	case r := <-s.readings:
		return r, nil
	case err := <-s.failed:
		s.fail(err)
		return models.Reading{}, fmt.Errorf("%w: %v", models.ErrSensorUnavailable, err)
	case <-ctx.Done():
		return models.Reading{}, ctx.Err()
	}
}
