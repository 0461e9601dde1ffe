package services

import (
	"log"
	"math"
	"sync"
	"time"

	"retail-inventory-api/pkg/models"
)

// MinTrainingDays 学習に必要な最低観測日数（重複排除後）
const MinTrainingDays = 30

// ModelKey モデルレジストリの構造化キー。文字列連結キーは識別子内の
// 区切り文字と衝突しうるため使わない。StoreIDが空の場合は店舗指定なし。
type ModelKey struct {
	ProductID string
	StoreID   string
}

// modelEntry 1キー分のモデル状態。muが同一キーのtrain/updateを直列化し、
// 学習済みモデル自体は不変なのでforecastはスナップショット参照で安全に読める。
type modelEntry struct {
	mu      sync.RWMutex
	model   *demandModel
	history []models.SalesObservation
	perf    models.ModelPerformance
}

// ForecastEngineOptions 予測エンジンの設定
type ForecastEngineOptions struct {
	MinTrainingDays     int
	ConfidenceLevel     float64
	QuantileMethod      string // QuantileMethodIntervalApprox または QuantileMethodBootstrap
	BootstrapIterations int
	BootstrapSeed       int64
}

// ForecastEngine 製品×店舗ごとの需要モデルを管理する予測エンジン
type ForecastEngine struct {
	mu        sync.RWMutex
	entries   map[ModelKey]*modelEntry
	estimator *QuantileEstimator
	opts      ForecastEngineOptions
}

// NewForecastEngine 新しい予測エンジンを作成
func NewForecastEngine(opts ForecastEngineOptions) *ForecastEngine {
	if opts.MinTrainingDays <= 0 {
		opts.MinTrainingDays = MinTrainingDays
	}
	if opts.ConfidenceLevel <= 0 || opts.ConfidenceLevel >= 1 {
		opts.ConfidenceLevel = 0.95
	}
	if opts.QuantileMethod == "" {
		opts.QuantileMethod = QuantileMethodIntervalApprox
	}
	return &ForecastEngine{
		entries:   make(map[ModelKey]*modelEntry),
		estimator: NewQuantileEstimator(opts.BootstrapIterations, opts.BootstrapSeed),
		opts:      opts,
	}
}

// Train 販売履歴からモデルを学習し、キーに紐付けて保存する。
// 重複日付の排除後に観測日数が最低日数を下回る場合はInsufficientDataErrorを返す。
func (fe *ForecastEngine) Train(history []models.SalesObservation, productID, storeID string) (*models.TrainingResult, error) {
	normalized := normalizeObservations(history)
	if len(normalized) < fe.opts.MinTrainingDays {
		return nil, &models.InsufficientDataError{
			ProductID:    productID,
			StoreID:      storeID,
			DistinctDays: len(normalized),
			RequiredDays: fe.opts.MinTrainingDays,
		}
	}

	model, err := fitDemandModel(normalized)
	if err != nil {
		return nil, err
	}
	perf := evaluateModel(normalized, fe.opts.ConfidenceLevel)

	entry := fe.getOrCreateEntry(ModelKey{ProductID: productID, StoreID: storeID})
	entry.mu.Lock()
	entry.model = model
	entry.history = normalized
	entry.perf = perf
	entry.mu.Unlock()

	log.Printf("✅ [予測エンジン] モデル学習完了: %s (店舗: %s, %d日分, MAE: %.2f)",
		productID, storeID, len(normalized), perf.MAE)

	return &models.TrainingResult{
		ProductID:       productID,
		StoreID:         storeID,
		TrainingSamples: len(normalized),
		DateRange: models.DateRange{
			Start: normalized[0].Date.Format("2006-01-02"),
			End:   normalized[len(normalized)-1].Date.Format("2006-01-02"),
		},
		Performance:  perf,
		ModelVersion: model.version,
		TrainedAt:    time.Now(),
	}, nil
}

// Forecast 指定ホライズンの分位点予測を生成する。
// モデルが存在しない場合はModelNotFoundErrorを返す。
func (fe *ForecastEngine) Forecast(productID, storeID string, horizonDays int, includeComponents bool) (*models.QuantileForecast, error) {
	if horizonDays < 1 {
		return nil, &models.InvalidConfigError{Field: "horizon_days", Reason: "1以上で指定してください"}
	}

	entry, ok := fe.lookup(ModelKey{ProductID: productID, StoreID: storeID})
	if !ok {
		return nil, &models.ModelNotFoundError{ProductID: productID, StoreID: storeID}
	}

	// 学習済みモデルは不変なのでスナップショット参照のみ取得して即座に解放する
	entry.mu.RLock()
	model := entry.model
	perf := entry.perf
	entry.mu.RUnlock()

	predictions := model.predict(horizonDays)
	points := make([]float64, horizonDays)
	for i, p := range predictions {
		points[i] = p.point
	}

	forecast := &models.QuantileForecast{
		ProductID:       productID,
		StoreID:         storeID,
		HorizonDays:     horizonDays,
		ConfidenceLevel: fe.opts.ConfidenceLevel,
		QuantileMethod:  fe.opts.QuantileMethod,
		ModelVersion:    model.version,
		GeneratedAt:     time.Now(),
		Performance:     &perf,
		Points:          make([]models.ForecastPoint, horizonDays),
	}

	switch fe.opts.QuantileMethod {
	case QuantileMethodBootstrap:
		lower, upper := fe.estimator.BootstrapIntervals(points, model.residuals, fe.opts.ConfidenceLevel)
		z := normalQuantile((1 + fe.opts.ConfidenceLevel) / 2)
		for i := range predictions {
			std := (upper[i] - lower[i]) / (2 * z)
			forecast.Points[i] = newForecastPoint(predictions[i].date, points[i], lower[i], upper[i],
				math.Max(0, points[i]+zP90*std))
		}
	default:
		margin := zTwoSided95 * model.residualStd
		for i := range predictions {
			q := fe.estimator.FromInterval(points[i], points[i]-margin, points[i]+margin)
			forecast.Points[i] = newForecastPoint(predictions[i].date, q.P50, q.P05, q.P95, q.P90)
		}
	}

	if includeComponents {
		components := &models.ForecastComponents{
			Trend:  make([]float64, horizonDays),
			Weekly: make([]float64, horizonDays),
		}
		for i, p := range predictions {
			components.Trend[i] = p.trend
			components.Weekly[i] = p.weekly
		}
		forecast.Components = components
	}

	return forecast, nil
}

// Update 新しい観測を既存履歴に日付マージ（後勝ち）して再学習する。
// モデルが存在しない場合はModelNotFoundErrorを返す。
func (fe *ForecastEngine) Update(productID, storeID string, observations []models.SalesObservation) (*models.UpdateResult, error) {
	entry, ok := fe.lookup(ModelKey{ProductID: productID, StoreID: storeID})
	if !ok {
		return nil, &models.ModelNotFoundError{ProductID: productID, StoreID: storeID}
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	merged := mergeObservations(entry.history, observations)
	model, err := fitDemandModel(merged)
	if err != nil {
		return nil, err
	}
	perf := evaluateModel(merged, fe.opts.ConfidenceLevel)

	// マージではなく置き換え
	entry.model = model
	entry.history = merged
	entry.perf = perf

	log.Printf("🔄 [予測エンジン] モデル更新完了: %s (店舗: %s, 合計%d日分)", productID, storeID, len(merged))

	return &models.UpdateResult{
		ProductID:     productID,
		StoreID:       storeID,
		UpdateSamples: len(normalizeObservations(observations)),
		TotalSamples:  len(merged),
		Performance:   perf,
		UpdatedAt:     time.Now(),
	}, nil
}

// GetPerformance 学習済みモデルの精度指標を返す
func (fe *ForecastEngine) GetPerformance(productID, storeID string) (*models.ModelPerformance, error) {
	entry, ok := fe.lookup(ModelKey{ProductID: productID, StoreID: storeID})
	if !ok {
		return nil, &models.ModelNotFoundError{ProductID: productID, StoreID: storeID}
	}
	entry.mu.RLock()
	perf := entry.perf
	entry.mu.RUnlock()
	return &perf, nil
}

// Delete モデルと精度指標を削除する。存在しないキーに対しては
// エラーにせずfalseを返す（冪等）。
func (fe *ForecastEngine) Delete(productID, storeID string) bool {
	key := ModelKey{ProductID: productID, StoreID: storeID}
	fe.mu.Lock()
	defer fe.mu.Unlock()
	if _, ok := fe.entries[key]; !ok {
		return false
	}
	delete(fe.entries, key)
	return true
}

func (fe *ForecastEngine) lookup(key ModelKey) (*modelEntry, bool) {
	fe.mu.RLock()
	defer fe.mu.RUnlock()
	entry, ok := fe.entries[key]
	return entry, ok
}

func (fe *ForecastEngine) getOrCreateEntry(key ModelKey) *modelEntry {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	if entry, ok := fe.entries[key]; ok {
		return entry
	}
	entry := &modelEntry{}
	fe.entries[key] = entry
	return entry
}

func newForecastPoint(date time.Time, p50, p05, p95, p90 float64) models.ForecastPoint {
	return models.ForecastPoint{
		Date:       date.Format("2006-01-02"),
		P50:        p50,
		P05:        p05,
		P95:        p95,
		P90:        p90,
		P50Rounded: int(math.Round(p50)),
		P05Rounded: int(math.Round(p05)),
		P95Rounded: int(math.Round(p95)),
		P90Rounded: int(math.Round(p90)),
	}
}
