package services

import (
	"testing"
	"time"

	"retail-inventory-api/pkg/models"

	"github.com/stretchr/testify/assert"
)

// testHistory 指定日数分の決定的な販売履歴を生成する（週末に需要が増えるパターン）
func testHistory(days int) []models.SalesObservation {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	observations := make([]models.SalesObservation, 0, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i)
		qty := 50.0 + 0.2*float64(i)
		if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			qty *= 1.5
		}
		observations = append(observations, models.SalesObservation{Date: date, Quantity: qty})
	}
	return observations
}

func TestTrainRequiresMinimumDistinctDays(t *testing.T) {
	engine := NewForecastEngine(ForecastEngineOptions{})

	_, err := engine.Train(testHistory(29), "SKU-1", "")
	assert.Error(t, err)

	var insufficient *models.InsufficientDataError
	assert.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 29, insufficient.DistinctDays)
	assert.Equal(t, 30, insufficient.RequiredDays)
}

func TestTrainDeduplicatesSameDates(t *testing.T) {
	engine := NewForecastEngine(ForecastEngineOptions{})

	// 29日分に同一日付の重複を足しても観測日数は29のまま
	history := testHistory(29)
	history = append(history, models.SalesObservation{Date: history[0].Date, Quantity: 99})

	_, err := engine.Train(history, "SKU-1", "")
	var insufficient *models.InsufficientDataError
	assert.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 29, insufficient.DistinctDays)
}

func TestTrainReturnsSummary(t *testing.T) {
	engine := NewForecastEngine(ForecastEngineOptions{})

	result, err := engine.Train(testHistory(120), "SKU-1", "STORE-1")
	assert.NoError(t, err)
	assert.Equal(t, "SKU-1", result.ProductID)
	assert.Equal(t, "STORE-1", result.StoreID)
	assert.Equal(t, 120, result.TrainingSamples)
	assert.Equal(t, "2026-01-01", result.DateRange.Start)
	assert.Equal(t, "2026-04-30", result.DateRange.End)
	assert.NotEmpty(t, result.ModelVersion)
	// 120日分あれば交差検証のフォールドが構成できる
	assert.False(t, result.Performance.InSample)
	assert.Greater(t, result.Performance.Folds, 0)
}

func TestTrainShortHistoryFallsBackToInSample(t *testing.T) {
	engine := NewForecastEngine(ForecastEngineOptions{})

	// 30日ではホールドアウトが構成できず学習データ内評価になる
	result, err := engine.Train(testHistory(30), "SKU-1", "")
	assert.NoError(t, err)
	assert.True(t, result.Performance.InSample)
	assert.Equal(t, 0, result.Performance.Folds)
}

func TestForecastUnknownModel(t *testing.T) {
	engine := NewForecastEngine(ForecastEngineOptions{})

	_, err := engine.Forecast("UNKNOWN", "", 7, false)
	var notFound *models.ModelNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestForecastInvalidHorizon(t *testing.T) {
	engine := NewForecastEngine(ForecastEngineOptions{})

	_, err := engine.Forecast("SKU-1", "", 0, false)
	var invalid *models.InvalidConfigError
	assert.ErrorAs(t, err, &invalid)
	assert.Equal(t, "horizon_days", invalid.Field)
}

func TestForecastQuantileOrdering(t *testing.T) {
	engine := NewForecastEngine(ForecastEngineOptions{})
	_, err := engine.Train(testHistory(120), "SKU-1", "")
	assert.NoError(t, err)

	forecast, err := engine.Forecast("SKU-1", "", 14, false)
	assert.NoError(t, err)
	assert.Len(t, forecast.Points, 14)
	assert.Equal(t, QuantileMethodIntervalApprox, forecast.QuantileMethod)

	for _, point := range forecast.Points {
		assert.GreaterOrEqual(t, point.P50, point.P05, "日付 %s", point.Date)
		assert.GreaterOrEqual(t, point.P90, point.P50, "日付 %s", point.Date)
		assert.GreaterOrEqual(t, point.P95, point.P90, "日付 %s", point.Date)
		assert.GreaterOrEqual(t, point.P05, 0.0)
	}

	// 予測は学習データの翌日から始まる
	assert.Equal(t, "2026-05-01", forecast.Points[0].Date)
	assert.Equal(t, "2026-05-14", forecast.Points[13].Date)
}

func TestForecastComponents(t *testing.T) {
	engine := NewForecastEngine(ForecastEngineOptions{})
	_, err := engine.Train(testHistory(120), "SKU-1", "")
	assert.NoError(t, err)

	forecast, err := engine.Forecast("SKU-1", "", 7, true)
	assert.NoError(t, err)
	assert.NotNil(t, forecast.Components)
	assert.Len(t, forecast.Components.Trend, 7)
	assert.Len(t, forecast.Components.Weekly, 7)

	// 成分なしの場合はペイロードを増やさない
	forecast, err = engine.Forecast("SKU-1", "", 7, false)
	assert.NoError(t, err)
	assert.Nil(t, forecast.Components)
}

func TestForecastBootstrapDeterministicWithSeed(t *testing.T) {
	makeEngine := func() *ForecastEngine {
		return NewForecastEngine(ForecastEngineOptions{
			QuantileMethod:      QuantileMethodBootstrap,
			BootstrapIterations: 100,
			BootstrapSeed:       42,
		})
	}

	first := makeEngine()
	second := makeEngine()
	_, err := first.Train(testHistory(120), "SKU-1", "")
	assert.NoError(t, err)
	_, err = second.Train(testHistory(120), "SKU-1", "")
	assert.NoError(t, err)

	f1, err := first.Forecast("SKU-1", "", 7, false)
	assert.NoError(t, err)
	f2, err := second.Forecast("SKU-1", "", 7, false)
	assert.NoError(t, err)

	assert.Equal(t, QuantileMethodBootstrap, f1.QuantileMethod)
	for i := range f1.Points {
		assert.Equal(t, f1.Points[i].P05, f2.Points[i].P05)
		assert.Equal(t, f1.Points[i].P95, f2.Points[i].P95)
	}
}

func TestUpdateMergesAndRefits(t *testing.T) {
	engine := NewForecastEngine(ForecastEngineOptions{})
	_, err := engine.Train(testHistory(60), "SKU-1", "")
	assert.NoError(t, err)

	// 続きの7日分＋既存日付の上書き1件
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	incoming := []models.SalesObservation{
		{Date: start.AddDate(0, 0, 10), Quantity: 500}, // 既存日の後勝ち上書き
	}
	for i := 60; i < 67; i++ {
		incoming = append(incoming, models.SalesObservation{Date: start.AddDate(0, 0, i), Quantity: 55})
	}

	result, err := engine.Update("SKU-1", "", incoming)
	assert.NoError(t, err)
	assert.Equal(t, 8, result.UpdateSamples)
	assert.Equal(t, 67, result.TotalSamples, "新規7日分のみ総数が増える")

	// 更新後は予測が新しい最終日の翌日から始まる
	forecast, err := engine.Forecast("SKU-1", "", 1, false)
	assert.NoError(t, err)
	assert.Equal(t, start.AddDate(0, 0, 67).Format("2006-01-02"), forecast.Points[0].Date)
}

func TestUpdateUnknownModel(t *testing.T) {
	engine := NewForecastEngine(ForecastEngineOptions{})

	_, err := engine.Update("UNKNOWN", "", testHistory(7))
	var notFound *models.ModelNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestGetPerformance(t *testing.T) {
	engine := NewForecastEngine(ForecastEngineOptions{})

	_, err := engine.GetPerformance("UNKNOWN", "")
	var notFound *models.ModelNotFoundError
	assert.ErrorAs(t, err, &notFound)

	result, err := engine.Train(testHistory(120), "SKU-1", "")
	assert.NoError(t, err)

	perf, err := engine.GetPerformance("SKU-1", "")
	assert.NoError(t, err)
	assert.Equal(t, result.Performance.MAE, perf.MAE)
	assert.Equal(t, result.Performance.Folds, perf.Folds)
}

func TestDeleteIsIdempotent(t *testing.T) {
	engine := NewForecastEngine(ForecastEngineOptions{})
	_, err := engine.Train(testHistory(60), "SKU-1", "STORE-1")
	assert.NoError(t, err)

	assert.True(t, engine.Delete("SKU-1", "STORE-1"))
	assert.False(t, engine.Delete("SKU-1", "STORE-1"), "2回目はfalse")

	_, err = engine.Forecast("SKU-1", "STORE-1", 7, false)
	var notFound *models.ModelNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestModelsAreIsolatedByKey(t *testing.T) {
	engine := NewForecastEngine(ForecastEngineOptions{})

	_, err := engine.Train(testHistory(60), "SKU-1", "STORE-1")
	assert.NoError(t, err)

	// 同じ製品でも店舗が違えば別モデル
	_, err = engine.Forecast("SKU-1", "STORE-2", 7, false)
	var notFound *models.ModelNotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestNormalizeObservationsClampsAndSorts(t *testing.T) {
	base := time.Date(2026, 3, 2, 15, 30, 0, 0, time.UTC)
	observations := []models.SalesObservation{
		{Date: base.AddDate(0, 0, 1), Quantity: -4},
		{Date: base, Quantity: 10},
		{Date: base.Add(2 * time.Hour), Quantity: 20}, // 同じ日の別時刻は後勝ち
	}

	normalized := normalizeObservations(observations)
	assert.Len(t, normalized, 2)
	assert.True(t, normalized[0].Date.Before(normalized[1].Date))
	assert.Equal(t, 20.0, normalized[0].Quantity)
	assert.Equal(t, 0.0, normalized[1].Quantity, "負の数量は0にクランプ")
}
