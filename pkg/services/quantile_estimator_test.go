package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromInterval(t *testing.T) {
	estimator := NewQuantileEstimator(0, 1)

	// std = (119.6 - 80.4) / (2×1.96) = 10 → P90 = 100 + 1.28×10 = 112.8
	q := estimator.FromInterval(100, 80.4, 119.6)
	assert.InDelta(t, 100.0, q.P50, 1e-9)
	assert.InDelta(t, 80.4, q.P05, 1e-9)
	assert.InDelta(t, 119.6, q.P95, 1e-9)
	assert.InDelta(t, 112.8, q.P90, 1e-9)
}

func TestFromIntervalClampsNegatives(t *testing.T) {
	estimator := NewQuantileEstimator(0, 1)

	q := estimator.FromInterval(1, -5, 3)
	assert.Equal(t, 0.0, q.P05)
	assert.GreaterOrEqual(t, q.P90, q.P50)

	// 区間が反転していてもstdは0に丸められP90=P50
	q = estimator.FromInterval(10, 12, 8)
	assert.InDelta(t, 10.0, q.P90, 1e-9)
}

func TestBootstrapIntervalsDeterministicWithSeed(t *testing.T) {
	points := []float64{50, 52, 54, 56, 58}
	residuals := []float64{-5, -2, 0, 1, 3, 6}

	first := NewQuantileEstimator(200, 42)
	second := NewQuantileEstimator(200, 42)

	lower1, upper1 := first.BootstrapIntervals(points, residuals, 0.95)
	lower2, upper2 := second.BootstrapIntervals(points, residuals, 0.95)

	assert.Equal(t, lower1, lower2, "同一シードでは同一の区間になるはず")
	assert.Equal(t, upper1, upper2)

	for i := range points {
		assert.LessOrEqual(t, lower1[i], upper1[i])
	}
}

func TestBootstrapIntervalsEmptyResiduals(t *testing.T) {
	estimator := NewQuantileEstimator(100, 1)

	lower, upper := estimator.BootstrapIntervals([]float64{10, -3}, nil, 0.95)
	// 残差が無い場合は幅0の区間に退化し、負の点予測は0にクランプされる
	assert.Equal(t, []float64{10, 0}, lower)
	assert.Equal(t, []float64{10, 0}, upper)
}

func TestBootstrapIntervalsZeroVarianceResiduals(t *testing.T) {
	estimator := NewQuantileEstimator(100, 7)

	lower, upper := estimator.BootstrapIntervals([]float64{20}, []float64{3, 3, 3}, 0.95)
	assert.InDelta(t, 23.0, lower[0], 1e-9)
	assert.InDelta(t, 23.0, upper[0], 1e-9)
}

func TestBootstrapIntervalsInvalidConfidenceFallsBack(t *testing.T) {
	estimator := NewQuantileEstimator(100, 7)

	lower, upper := estimator.BootstrapIntervals([]float64{20}, []float64{-1, 0, 1}, 1.5)
	assert.LessOrEqual(t, lower[0], upper[0])
}
