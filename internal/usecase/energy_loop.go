package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"WattCast/internal/domain/models"
	domrepo "WattCast/internal/domain/repository"
	domsvc "WattCast/internal/domain/service"
	"WattCast/internal/services/forecast"
	"WattCast/internal/services/history"
	"WattCast/pkg/logger"
)

// LoopState is the lifecycle state of EnergyLoop.
type LoopState int32

const (
	StateRunning LoopState = iota
	StateStopped
)

func (s LoopState) String() string {
	if s == StateStopped {
		return "STOPPED"
	}
	return "RUNNING"
}

// DefaultInterval is the pause between cycles.
const DefaultInterval = 5 * time.Second

// emitTimeout bounds a single sink emit; emits survive loop cancellation.
const emitTimeout = 10 * time.Second

type LoopOption func(*EnergyLoop)

func WithInterval(d time.Duration) LoopOption {
	return func(l *EnergyLoop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithHorizon sets how many hours past the newest reading to predict.
func WithHorizon(hours float64) LoopOption {
	return func(l *EnergyLoop) {
		if hours > 0 {
			l.horizon = hours
		}
	}
}

// WithThreshold records the advisor threshold on emitted reports.
func WithThreshold(kw float64) LoopOption {
	return func(l *EnergyLoop) { l.threshold = kw }
}

// WithClock overrides the report timestamp source.
func WithClock(now func() time.Time) LoopOption {
	return func(l *EnergyLoop) {
		if now != nil {
			l.now = now
		}
	}
}

// EnergyLoop drives acquire, append, forecast, advise, emit and pace for a
// single sensor stream. History is touched only from the goroutine running
// Run or RunCycle.
type EnergyLoop struct {
	sensor     domrepo.SensorSource
	history    *history.Store
	forecaster domsvc.Forecaster
	advisor    domsvc.Advisor
	sink       domrepo.OutputSink
	metrics    domrepo.Metrics
	log        *logger.Logger

	interval  time.Duration
	horizon   float64
	threshold float64
	now       func() time.Time
	runID     string

	state       atomic.Int32
	cycles      atomic.Uint64
	historySize atomic.Int64
}

func NewEnergyLoop(
	sensor domrepo.SensorSource,
	hist *history.Store,
	fc domsvc.Forecaster,
	adv domsvc.Advisor,
	sink domrepo.OutputSink,
	metrics domrepo.Metrics,
	log *logger.Logger,
	opts ...LoopOption,
) *EnergyLoop {
	if log == nil {
		log = logger.NewNop()
	}
	l := &EnergyLoop{
		sensor:     sensor,
		history:    hist,
		forecaster: fc,
		advisor:    adv,
		sink:       sink,
		metrics:    metrics,
		interval:   DefaultInterval,
		horizon:    forecast.DefaultHorizonHours,
		now:        time.Now,
		runID:      uuid.NewString(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.log = log.With(logger.String("run_id", l.runID))
	return l
}

// State returns RUNNING until Run has returned.
func (l *EnergyLoop) State() LoopState { return LoopState(l.state.Load()) }

// Cycles returns the number of cycles started so far.
func (l *EnergyLoop) Cycles() uint64 { return l.cycles.Load() }

// HistorySize is the size observed at the end of the last cycle. It is safe
// to call from other goroutines, unlike the history itself.
func (l *EnergyLoop) HistorySize() int { return int(l.historySize.Load()) }

func (l *EnergyLoop) RunID() string { return l.runID }

// Run executes cycles until ctx is cancelled (nil) or a cycle fails fatally.
// Cancellation is observed between cycles; a cycle in flight completes.
func (l *EnergyLoop) Run(ctx context.Context) error {
	defer l.state.Store(int32(StateStopped))

	l.log.Info("energy loop started",
		logger.Duration("interval", l.interval),
		logger.Float64("horizon_hours", l.horizon),
		logger.Int("min_samples", l.history.MinSamples()))

	for {
		if ctx.Err() != nil {
			l.log.Info("energy loop stopped", logger.Uint64("cycles", l.cycles.Load()))
			return nil
		}

		if _, err := l.RunCycle(ctx); err != nil {
			if isFatal(err) {
				l.log.Error("energy loop failed", logger.Error(err))
				return err
			}
			if ctx.Err() != nil {
				l.log.Info("energy loop stopped", logger.Uint64("cycles", l.cycles.Load()))
				return nil
			}
		}

		timer := time.NewTimer(l.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			l.log.Info("energy loop stopped", logger.Uint64("cycles", l.cycles.Load()))
			return nil
		case <-timer.C:
		}
	}
}

// isFatal reports whether err must stop the loop.
func isFatal(err error) bool {
	return errors.Is(err, models.ErrSensorUnavailable) || errors.Is(err, models.ErrEmptyHistory)
}

// RunCycle performs one cycle. A returned error wraps a *models.CycleError;
// sensor failures and empty-history advice are fatal, anything else only
// ended this cycle early.
func (l *EnergyLoop) RunCycle(ctx context.Context) (models.CycleReport, error) {
	cycle := l.cycles.Add(1)
	start := time.Now()
	log := l.log.With(logger.Uint64("cycle", cycle))
	defer func() { l.metrics.RecordLatency("cycle", time.Since(start).Seconds()) }()

	report := models.CycleReport{
		ID:        uuid.NewString(),
		RunID:     l.runID,
		Cycle:     cycle,
		Threshold: l.threshold,
	}

	reading, err := l.sensor.Read(ctx)
	if err != nil {
		if ctx.Err() != nil {
			// interrupted while waiting on the sensor
			return report, fmt.Errorf("cycle %d: %w", cycle, ctx.Err())
		}
		if !errors.Is(err, models.ErrSensorUnavailable) {
			err = fmt.Errorf("%w: %v", models.ErrSensorUnavailable, err)
		}
		cerr := models.NewCycleError(cycle, err)
		l.metrics.RecordError(cerr.Kind)
		log.Error("sensor read failed", logger.String("kind", cerr.Kind), logger.Error(err))
		return report, cerr
	}
	report.Reading = reading

	if err := l.history.Append(reading); err != nil {
		kind := models.ErrorKind(err)
		l.metrics.RecordReading(reading.Value, false)
		l.metrics.RecordError(kind)
		log.Warn("reading rejected", logger.String("kind", kind), logger.Error(err))
		if l.history.Size() == 0 {
			return report, models.NewCycleError(cycle, err)
		}
	} else {
		report.Accepted = true
		l.metrics.RecordReading(reading.Value, true)
	}

	size := l.history.Size()
	report.HistorySize = size
	l.historySize.Store(int64(size))
	l.metrics.RecordHistorySize(size)

	report.Forecast = l.forecast(log, size)
	l.metrics.RecordForecast(report.Forecast)

	rec, err := l.advisor.AdviseLatest(l.history)
	if err != nil {
		cerr := models.NewCycleError(cycle, err)
		l.metrics.RecordError(cerr.Kind)
		log.Error("advice failed", logger.String("kind", cerr.Kind), logger.Error(err))
		return report, cerr
	}
	report.Recommendation = rec
	report.Advised, _ = l.history.Latest()
	report.Timestamp = l.now()
	l.metrics.RecordRecommendation(rec)

	if l.sink != nil {
		emitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), emitTimeout)
		if err := l.sink.Emit(emitCtx, report); err != nil {
			l.metrics.RecordSinkError(l.sink.Name())
			log.Warn("emit failed", logger.String("sink", l.sink.Name()), logger.Error(err))
		}
		cancel()
	}

	log.Debug("cycle complete",
		logger.Float64("value", reading.Value),
		logger.Bool("accepted", report.Accepted),
		logger.Int("history_size", size),
		logger.Bool("forecast", report.Forecast.Present()),
		logger.String("recommendation", string(rec)),
		logger.Duration("took", time.Since(start)))
	return report, nil
}

func (l *EnergyLoop) forecast(log *logger.Logger, size int) models.Forecast {
	if !l.history.IsForecastReady() {
		return models.NoForecast(models.ReasonInsufficientData, size)
	}

	features := l.history.FeatureMatrix()
	values := l.history.ValueVector()
	start := time.Now()
	pred, err := l.forecaster.FitAndPredict(features, values, l.horizon)
	l.metrics.RecordLatency("forecast", time.Since(start).Seconds())
	if err != nil {
		kind := models.ErrorKind(err)
		l.metrics.RecordError(kind)
		if kind == "unknown" {
			log.Error("forecast failed", logger.Error(err))
		} else {
			log.Warn("forecast unavailable", logger.String("kind", kind), logger.Error(err))
		}
		return models.NoForecast(models.ReasonFor(err), size)
	}

	latest, _ := l.history.Latest()
	target := latest.Timestamp.Add(time.Duration(l.horizon * float64(time.Hour)))
	return models.NewForecast(target, pred, size)
}

// LoopStatus is a point-in-time view of the loop for the API.
type LoopStatus struct {
	RunID       string
	State       LoopState
	Cycles      uint64
	HistorySize int
}

// Status snapshots the loop counters.
func (l *EnergyLoop) Status() LoopStatus {
	return LoopStatus{
		RunID:       l.runID,
		State:       l.State(),
		Cycles:      l.Cycles(),
		HistorySize: l.HistorySize(),
	}
}
