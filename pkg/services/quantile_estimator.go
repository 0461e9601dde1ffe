package services

import (
	"math"
	"math/rand"
	"sync"
)

const (
	// 95%両側区間のz値。区間幅から標準偏差を復元する際に使用する。
	zTwoSided95 = 1.96
	// 90パーセンタイルのz値（正規近似）
	zP90 = 1.28

	// DefaultBootstrapIterations ブートストラップの既定反復回数
	DefaultBootstrapIterations = 100

	// QuantileMethodIntervalApprox 区間幅からの正規近似による分位点導出。
	// 経験分位点ではない点に注意。
	QuantileMethodIntervalApprox = "interval_normal_approximation"
	// QuantileMethodBootstrap 残差リサンプリングによる経験分位点
	QuantileMethodBootstrap = "bootstrap_empirical"
)

// IntervalQuantiles 区間近似で導出した分位点の組
type IntervalQuantiles struct {
	P50 float64
	P05 float64
	P95 float64
	P90 float64
}

// QuantileEstimator モデル出力から信頼区間・分位点を導出する統計後処理サービス。
// ブートストラップはシード指定可能な乱数源を使うため、テストで再現可能。
type QuantileEstimator struct {
	iterations int
	rng        *rand.Rand
	mu         sync.Mutex // rngは並行安全でないため直列化する
}

// NewQuantileEstimator 新しいQuantileEstimatorを作成
func NewQuantileEstimator(iterations int, seed int64) *QuantileEstimator {
	if iterations <= 0 {
		iterations = DefaultBootstrapIterations
	}
	return &QuantileEstimator{
		iterations: iterations,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// FromInterval 点予測と対称な95%区間から分位点を正規近似で導出する。
// std ≈ (upper - lower) / (2×1.96)、P90 = P50 + 1.28×std。
// すべての値は0以上にクランプされる。
func (qe *QuantileEstimator) FromInterval(p50, lower95, upper95 float64) IntervalQuantiles {
	std := (upper95 - lower95) / (2 * zTwoSided95)
	if std < 0 {
		std = 0
	}
	return IntervalQuantiles{
		P50: math.Max(0, p50),
		P05: math.Max(0, lower95),
		P95: math.Max(0, upper95),
		P90: math.Max(0, p50+zP90*std),
	}
}

// BootstrapIntervals 残差リサンプリングにより予測区間を経験的に推定する。
// 各反復で点予測に残差をランダムに加算した予測ベクトルを生成し、
// アンサンブル行列の日次パーセンタイル (1−c)/2, (1+c)/2 を区間として返す。
// 残差が空または分散0の場合は幅0の区間に退化する（エラーにはしない）。
func (qe *QuantileEstimator) BootstrapIntervals(pointForecast, residuals []float64, confidence float64) (lower, upper []float64) {
	horizon := len(pointForecast)
	lower = make([]float64, horizon)
	upper = make([]float64, horizon)

	if confidence <= 0 || confidence >= 1 {
		confidence = 0.95
	}

	if len(residuals) == 0 {
		for i, p := range pointForecast {
			clamped := math.Max(0, p)
			lower[i] = clamped
			upper[i] = clamped
		}
		return lower, upper
	}

	// アンサンブル行列: ensemble[day][iteration]
	ensemble := make([][]float64, horizon)
	for d := range ensemble {
		ensemble[d] = make([]float64, qe.iterations)
	}

	qe.mu.Lock()
	for it := 0; it < qe.iterations; it++ {
		for d := 0; d < horizon; d++ {
			r := residuals[qe.rng.Intn(len(residuals))]
			ensemble[d][it] = pointForecast[d] + r
		}
	}
	qe.mu.Unlock()

	lowerQ := (1 - confidence) / 2 * 100
	upperQ := (1 + confidence) / 2 * 100
	for d := 0; d < horizon; d++ {
		lower[d] = math.Max(0, percentile(ensemble[d], lowerQ))
		upper[d] = math.Max(0, percentile(ensemble[d], upperQ))
	}
	return lower, upper
}
