// Package forecast fits ordinary least squares lines over elapsed-hour
// features. The model is refit from scratch on every call; at one feature
// and two parameters that is O(n) and needs no incremental state.
package forecast

import (
	"fmt"
	"math"

	"WattCast/internal/domain/models"
	domsvc "WattCast/internal/domain/service"
)

// DefaultHorizonHours predicts one hour past the newest sample.
const DefaultHorizonHours = 1.0

// Fit is a fitted line value = Slope*hours + Intercept.
type Fit struct {
	Slope     float64
	Intercept float64
	RSquared  float64
	Samples   int
}

// Predict evaluates the line at x elapsed hours.
func (f Fit) Predict(x float64) float64 {
	return f.Slope*x + f.Intercept
}

// Linear is a simple linear regression forecaster.
type Linear struct {
	minSamples int
}

func NewLinear(minSamples int) *Linear {
	if minSamples < 2 {
		minSamples = 2
	}
	return &Linear{minSamples: minSamples}
}

// MinSamples returns the precondition size.
func (l *Linear) MinSamples() int { return l.minSamples }

// Fit solves the least squares line over (features[i], values[i]).
func (l *Linear) Fit(features, values []float64) (Fit, error) {
	if len(features) != len(values) {
		return Fit{}, fmt.Errorf("%w: %d features vs %d values", models.ErrInsufficientData, len(features), len(values))
	}
	n := len(features)
	if n < l.minSamples {
		return Fit{}, fmt.Errorf("%w: have %d samples, need %d", models.ErrInsufficientData, n, l.minSamples)
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		if !finite(features[i]) || !finite(values[i]) {
			return Fit{}, fmt.Errorf("%w: non-finite sample at %d", models.ErrDegenerateFit, i)
		}
		sumX += features[i]
		sumY += values[i]
	}
	nf := float64(n)
	meanX, meanY := sumX/nf, sumY/nf

	// centered sums keep precision when features sit far from zero
	var sxx, sxy, syy float64
	for i := 0; i < n; i++ {
		dx := features[i] - meanX
		dy := values[i] - meanY
		sxx += dx * dx
		sxy += dx * dy
		syy += dy * dy
	}
	if sxx == 0 {
		return Fit{}, fmt.Errorf("%w: zero variance in %d features", models.ErrDegenerateFit, n)
	}

	slope := sxy / sxx
	intercept := meanY - slope*meanX
	if !finite(slope) || !finite(intercept) {
		return Fit{}, fmt.Errorf("%w: coefficients overflow", models.ErrDegenerateFit)
	}

	r2 := 1.0
	if syy > 0 {
		r2 = (sxy * sxy) / (sxx * syy)
	}
	return Fit{Slope: slope, Intercept: intercept, RSquared: r2, Samples: n}, nil
}

// FitAndPredict fits the line and predicts at features[last]+horizonHours.
func (l *Linear) FitAndPredict(features, values []float64, horizonHours float64) (float64, error) {
	fit, err := l.Fit(features, values)
	if err != nil {
		return 0, err
	}
	y := fit.Predict(features[len(features)-1] + horizonHours)
	if !finite(y) {
		return 0, fmt.Errorf("%w: prediction is not finite", models.ErrDegenerateFit)
	}
	return y, nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

var _ domsvc.Forecaster = (*Linear)(nil)
