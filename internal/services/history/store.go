package history

import (
	"time"

	"WattCast/internal/domain/models"
)

// DefaultMinSamples is the history size required before forecasting.
const DefaultMinSamples = 10

// Option configures Store.
type Option func(*Store)

// WithMinSamples sets the forecast readiness gate. Values below 2 are ignored
// since a line needs two points.
func WithMinSamples(n int) Option {
	return func(s *Store) {
		if n >= 2 {
			s.minSamples = n
		}
	}
}

// WithMaxSamples bounds the store to the newest n readings (0 = unbounded).
// A bound below the readiness gate is raised to it.
func WithMaxSamples(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxSamples = n
		}
	}
}

// WithMaxWindow retains only readings within d of the newest (0 = unbounded).
// The store cannot see the sampling interval, so the caller must keep d at
// least (minSamples-1) intervals wide or forecasting never becomes ready.
func WithMaxWindow(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.maxWindow = d
		}
	}
}

// Store is the ordered reading history of a single stream. It is owned by
// one loop and is not safe for concurrent use.
type Store struct {
	minSamples int
	maxSamples int
	maxWindow  time.Duration

	// buf is a ring of capacity maxSamples when bounded; otherwise a growing
	// slice whose live region starts at head.
	buf     []models.Reading
	head    int
	size    int
	evicted uint64
}

func New(opts ...Option) *Store {
	s := &Store{minSamples: DefaultMinSamples}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxSamples > 0 && s.maxSamples < s.minSamples {
		s.maxSamples = s.minSamples
	}
	if s.maxSamples > 0 {
		s.buf = make([]models.Reading, s.maxSamples)
	}
	return s
}

// Append stores r at the end. Negative or non-finite values, zero timestamps
// and timestamps earlier than the last stored one are rejected with
// models.ErrInvalidReading and leave the store unchanged.
func (s *Store) Append(r models.Reading) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if last, ok := s.Latest(); ok && r.Timestamp.Before(last.Timestamp) {
		return models.NewInvalidReading(r, "timestamp earlier than last stored "+last.Timestamp.Format(time.RFC3339Nano))
	}

	if s.maxSamples > 0 {
		if s.size == s.maxSamples {
			s.buf[s.head] = r
			s.head = (s.head + 1) % s.maxSamples
			s.evicted++
		} else {
			s.buf[(s.head+s.size)%s.maxSamples] = r
			s.size++
		}
	} else {
		s.buf = append(s.buf, r)
		s.size++
	}

	s.evictOutsideWindow(r.Timestamp)
	return nil
}

func (s *Store) evictOutsideWindow(newest time.Time) {
	if s.maxWindow <= 0 {
		return
	}
	for s.size > 1 && newest.Sub(s.at(0).Timestamp) > s.maxWindow {
		s.dropOldest()
	}
}

func (s *Store) dropOldest() {
	if s.maxSamples > 0 {
		s.buf[s.head] = models.Reading{}
		s.head = (s.head + 1) % s.maxSamples
	} else {
		s.head++
		// compact once the dead prefix dominates
		if s.head > len(s.buf)/2 {
			s.buf = append(s.buf[:0:0], s.buf[s.head:]...)
			s.head = 0
		}
	}
	s.size--
	s.evicted++
}

func (s *Store) at(i int) models.Reading {
	if s.maxSamples > 0 {
		return s.buf[(s.head+i)%s.maxSamples]
	}
	return s.buf[s.head+i]
}

// Size returns the number of retained readings.
func (s *Store) Size() int { return s.size }

// MinSamples returns the readiness gate.
func (s *Store) MinSamples() int { return s.minSamples }

// Evicted returns how many readings the bounds have discarded so far.
func (s *Store) Evicted() uint64 { return s.evicted }

// IsForecastReady reports whether Size() >= MinSamples().
func (s *Store) IsForecastReady() bool { return s.size >= s.minSamples }

// Latest returns the newest stored reading.
func (s *Store) Latest() (models.Reading, bool) {
	if s.size == 0 {
		return models.Reading{}, false
	}
	return s.at(s.size - 1), true
}

// Earliest returns the oldest retained reading, the origin of the features.
func (s *Store) Earliest() (models.Reading, bool) {
	if s.size == 0 {
		return models.Reading{}, false
	}
	return s.at(0), true
}

// FeatureMatrix returns elapsed hours since the earliest retained reading,
// aligned 1:1 with ValueVector.
func (s *Store) FeatureMatrix() []float64 {
	out := make([]float64, s.size)
	if s.size == 0 {
		return out
	}
	origin := s.at(0).Timestamp
	for i := 0; i < s.size; i++ {
		out[i] = s.at(i).Timestamp.Sub(origin).Hours()
	}
	return out
}

// ValueVector returns stored values in insertion order.
func (s *Store) ValueVector() []float64 {
	out := make([]float64, s.size)
	for i := 0; i < s.size; i++ {
		out[i] = s.at(i).Value
	}
	return out
}

// Snapshot returns a copy of the retained readings, oldest first.
func (s *Store) Snapshot() []models.Reading {
	out := make([]models.Reading, s.size)
	for i := 0; i < s.size; i++ {
		out[i] = s.at(i)
	}
	return out
}
