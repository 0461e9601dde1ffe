package main

import (
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"retail-inventory-api/pkg/models"
	"retail-inventory-api/pkg/services"
)

// syntheticHistory 曜日効果とゆるやかなトレンドを持つ疑似販売実績を生成
func syntheticHistory(days int, seed int64) []models.SalesObservation {
	rng := rand.New(rand.NewSource(seed))
	start := time.Now().AddDate(0, 0, -days)
	observations := make([]models.SalesObservation, 0, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i)
		base := 50.0 + 0.1*float64(i)
		weekday := 1.0
		switch date.Weekday() {
		case time.Saturday, time.Sunday:
			weekday = 1.4
		case time.Monday:
			weekday = 0.8
		}
		noise := rng.NormFloat64() * 5.0
		qty := math.Max(0, base*weekday+noise)
		observations = append(observations, models.SalesObservation{
			Date:     date,
			Quantity: qty,
		})
	}
	return observations
}

func main() {
	fmt.Println("=== 需要予測・発注推奨デモ ===")

	engine := services.NewForecastEngine(services.ForecastEngineOptions{})
	history := syntheticHistory(120, 42)

	// モデル学習
	result, err := engine.Train(history, "SKU-001", "STORE-01")
	if err != nil {
		log.Fatalf("学習エラー: %v", err)
	}
	fmt.Printf("\n学習完了: %d件 (%s 〜 %s)\n",
		result.TrainingSamples, result.DateRange.Start, result.DateRange.End)
	fmt.Printf("交差検証: MAE=%.2f MAPE=%.1f%% カバレッジ=%.2f (フォールド数=%d)\n",
		result.Performance.MAE, result.Performance.MAPE*100,
		result.Performance.Coverage, result.Performance.Folds)

	// 14日先までの分位点予測
	forecast, err := engine.Forecast("SKU-001", "STORE-01", 14, false)
	if err != nil {
		log.Fatalf("予測エラー: %v", err)
	}
	fmt.Println("\n日付         P05     P50     P90     P95")
	for _, point := range forecast.Points {
		fmt.Printf("%s  %6.1f  %6.1f  %6.1f  %6.1f\n",
			point.Date, point.P05, point.P50, point.P90, point.P95)
	}

	// 発注推奨
	reorderEngine, err := services.NewReorderPointEngine(nil)
	if err != nil {
		log.Fatalf("発注点エンジンエラー: %v", err)
	}
	snapshot := models.InventorySnapshot{
		ProductID:        "SKU-001",
		StoreID:          "STORE-01",
		CurrentInventory: 120,
		UnitCost:         2.5,
	}
	recommendation, err := reorderEngine.GenerateRecommendation(snapshot, forecast.P90Series(), nil)
	if err != nil {
		log.Fatalf("発注推奨エラー: %v", err)
	}
	fmt.Printf("\n発注点: %d  安全在庫: %d  推奨数量: %d  緊急度: %s\n",
		recommendation.ReorderPoint, recommendation.SafetyStock,
		recommendation.ReorderQuantity, recommendation.Urgency)
	fmt.Printf("理由: %s\n", recommendation.Reasoning)
}
