package sensor

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"WattCast/internal/domain/models"
	domrepo "WattCast/internal/domain/repository"
)

const (
	DefaultSimulatedMin = 0.5
	DefaultSimulatedMax = 2.0
)

// Simulated draws readings uniformly from [min, max) kW, stamped with the
// current time.
type Simulated struct {
	mu  sync.Mutex
	rng *rand.Rand
	min float64
	max float64
	now func() time.Time
}

// NewSimulated returns a simulated meter. seed 0 seeds from the clock.
func NewSimulated(min, max float64, seed int64) *Simulated {
	if max <= min {
		min, max = DefaultSimulatedMin, DefaultSimulatedMax
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulated{
		rng: rand.New(rand.NewSource(seed)),
		min: min,
		max: max,
		now: time.Now,
	}
}

func (s *Simulated) Read(ctx context.Context) (models.Reading, error) {
	if err := ctx.Err(); err != nil {
		return models.Reading{}, err
	}
	s.mu.Lock()
	v := s.min + s.rng.Float64()*(s.max-s.min)
	s.mu.Unlock()
	return models.Reading{Timestamp: s.now(), Value: v}, nil
}

func (s *Simulated) Close() error { return nil }

var _ domrepo.SensorSource = (*Simulated)(nil)
