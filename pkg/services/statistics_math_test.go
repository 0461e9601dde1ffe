package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalQuantile(t *testing.T) {
	// 標準正規分布の代表的な分位点と照合する
	assert.InDelta(t, 0.0, normalQuantile(0.5), 1e-12)
	assert.InDelta(t, 1.2816, normalQuantile(0.90), 1e-3)
	assert.InDelta(t, 1.6449, normalQuantile(0.95), 1e-3)
	assert.InDelta(t, 2.3263, normalQuantile(0.99), 1e-3)

	// 対称性: Phi^-1(1-p) = -Phi^-1(p)
	assert.InDelta(t, -normalQuantile(0.95), normalQuantile(0.05), 1e-12)
}

func TestNormalQuantileBoundaries(t *testing.T) {
	assert.True(t, math.IsInf(normalQuantile(0), -1))
	assert.True(t, math.IsInf(normalQuantile(1), 1))
}

func TestPercentileLinearInterpolation(t *testing.T) {
	values := []float64{1, 2, 3, 4}
	assert.InDelta(t, 2.5, percentile(values, 50), 1e-12)

	values = []float64{10, 20, 30, 40, 50}
	// rank = 0.9 × 4 = 3.6 → 40 + 0.6×10 = 46
	assert.InDelta(t, 46.0, percentile(values, 90), 1e-12)

	// 境界
	assert.Equal(t, 10.0, percentile(values, 0))
	assert.Equal(t, 50.0, percentile(values, 100))
	assert.Equal(t, 0.0, percentile(nil, 50))
}

func TestPercentileDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	percentile(values, 50)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestLinearRegression(t *testing.T) {
	x := []float64{0, 1, 2, 3}
	y := []float64{5, 7, 9, 11} // y = 2x + 5
	slope, intercept, err := linearRegression(x, y)
	assert.NoError(t, err)
	assert.InDelta(t, 2.0, slope, 1e-9)
	assert.InDelta(t, 5.0, intercept, 1e-9)
}

func TestLinearRegressionErrors(t *testing.T) {
	_, _, err := linearRegression([]float64{1}, []float64{2})
	assert.Error(t, err)

	// xの分散が0
	_, _, err = linearRegression([]float64{3, 3, 3}, []float64{1, 2, 3})
	assert.Error(t, err)
}

func TestStandardDeviations(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	assert.InDelta(t, 2.0, calculateStandardDeviation(values), 1e-9)
	assert.InDelta(t, math.Sqrt(32.0/7.0), calculateSampleStandardDeviation(values), 1e-9)

	// 要素数が1以下では0
	assert.Equal(t, 0.0, calculateSampleStandardDeviation([]float64{5}))
	assert.Equal(t, 0.0, calculateStandardDeviation(nil))
}

func TestCalculateMedian(t *testing.T) {
	assert.Equal(t, 3.0, calculateMedian([]float64{5, 1, 3}))
	assert.Equal(t, 2.5, calculateMedian([]float64{4, 1, 2, 3}))
	assert.Equal(t, 0.0, calculateMedian(nil))
}
