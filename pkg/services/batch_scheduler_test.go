package services

import (
	"context"
	"testing"

	"retail-inventory-api/pkg/models"

	"github.com/stretchr/testify/assert"
)

func newBatchTestScheduler(t *testing.T) *BatchScheduler {
	t.Helper()
	engine, err := NewReorderPointEngine(nil)
	assert.NoError(t, err)
	return NewBatchScheduler(engine, 4)
}

func TestBatchGenerateSeparatesOutcomes(t *testing.T) {
	scheduler := newBatchTestScheduler(t)

	snapshots := []models.InventorySnapshot{
		{ProductID: "SKU-1", StoreID: "S1", CurrentInventory: 5},
		{ProductID: "SKU-2", StoreID: "S1", CurrentInventory: 100}, // 予測なし → スキップ
		{ProductID: "SKU-3", StoreID: "S1", CurrentInventory: 5},   // 予測が短すぎる → 失敗
	}
	forecastsByKey := map[ModelKey][]float64{
		{ProductID: "SKU-1", StoreID: "S1"}: flatForecasts(10, 10),
		{ProductID: "SKU-3", StoreID: "S1"}: flatForecasts(10, 3),
	}

	report := scheduler.Generate(context.Background(), snapshots, forecastsByKey, nil)

	assert.Len(t, report.Recommendations, 1)
	assert.Equal(t, "SKU-1", report.Recommendations[0].ProductID)

	assert.Len(t, report.Skipped, 1)
	assert.Equal(t, "SKU-2", report.Skipped[0].ProductID)
	assert.NotEmpty(t, report.Skipped[0].Reason)

	assert.Len(t, report.Failed, 1)
	assert.Equal(t, "SKU-3", report.Failed[0].ProductID)
	assert.NotEmpty(t, report.Failed[0].Error)

	assert.NotEmpty(t, report.ID)
	assert.False(t, report.GeneratedAt.IsZero())
}

func TestBatchGenerateSortsByUrgency(t *testing.T) {
	scheduler := newBatchTestScheduler(t)

	// 在庫水準で緊急度を変える: 300 → low、5 → critical、40 → medium
	snapshots := []models.InventorySnapshot{
		{ProductID: "SKU-LOW", CurrentInventory: 300},
		{ProductID: "SKU-URGENT", CurrentInventory: 5},
		{ProductID: "SKU-MID", CurrentInventory: 40},
	}
	forecasts := flatForecasts(10, 10)
	forecastsByKey := map[ModelKey][]float64{
		{ProductID: "SKU-LOW"}:    forecasts,
		{ProductID: "SKU-URGENT"}: forecasts,
		{ProductID: "SKU-MID"}:    forecasts,
	}

	report := scheduler.Generate(context.Background(), snapshots, forecastsByKey, nil)
	assert.Len(t, report.Recommendations, 3)

	for i := 1; i < len(report.Recommendations); i++ {
		prev := models.UrgencyRank(report.Recommendations[i-1].Urgency)
		curr := models.UrgencyRank(report.Recommendations[i].Urgency)
		assert.LessOrEqual(t, prev, curr, "緊急度ランクは非減少のはず")
	}
	assert.Equal(t, "SKU-URGENT", report.Recommendations[0].ProductID)
}

func TestBatchGenerateStableWithinSameUrgency(t *testing.T) {
	scheduler := newBatchTestScheduler(t)

	// 同じ在庫・同じ予測 → 同じ緊急度。入力順が保たれること。
	snapshots := []models.InventorySnapshot{
		{ProductID: "SKU-A", CurrentInventory: 300},
		{ProductID: "SKU-B", CurrentInventory: 300},
		{ProductID: "SKU-C", CurrentInventory: 300},
	}
	forecasts := flatForecasts(10, 10)
	forecastsByKey := map[ModelKey][]float64{
		{ProductID: "SKU-A"}: forecasts,
		{ProductID: "SKU-B"}: forecasts,
		{ProductID: "SKU-C"}: forecasts,
	}

	report := scheduler.Generate(context.Background(), snapshots, forecastsByKey, nil)
	assert.Len(t, report.Recommendations, 3)
	assert.Equal(t, "SKU-A", report.Recommendations[0].ProductID)
	assert.Equal(t, "SKU-B", report.Recommendations[1].ProductID)
	assert.Equal(t, "SKU-C", report.Recommendations[2].ProductID)
}

func TestBatchGeneratePerItemConfigOverride(t *testing.T) {
	scheduler := newBatchTestScheduler(t)

	shortLeadTime := models.DefaultReorderConfig()
	shortLeadTime.LeadTimeDays = 3

	snapshots := []models.InventorySnapshot{
		{ProductID: "SKU-1", CurrentInventory: 5},
	}
	forecastsByKey := map[ModelKey][]float64{
		{ProductID: "SKU-1"}: flatForecasts(10, 10),
	}
	configsByKey := map[ModelKey]*models.ReorderConfig{
		{ProductID: "SKU-1"}: &shortLeadTime,
	}

	report := scheduler.Generate(context.Background(), snapshots, forecastsByKey, configsByKey)
	assert.Len(t, report.Recommendations, 1)
	assert.Equal(t, 3, report.Recommendations[0].LeadTimeDays)
}

func TestBatchGenerateCancelledContext(t *testing.T) {
	scheduler := newBatchTestScheduler(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	snapshots := []models.InventorySnapshot{
		{ProductID: "SKU-1", CurrentInventory: 5},
		{ProductID: "SKU-2", CurrentInventory: 5},
	}
	forecastsByKey := map[ModelKey][]float64{
		{ProductID: "SKU-1"}: flatForecasts(10, 10),
		{ProductID: "SKU-2"}: flatForecasts(10, 10),
	}

	report := scheduler.Generate(ctx, snapshots, forecastsByKey, nil)
	assert.Empty(t, report.Recommendations)
	assert.Len(t, report.Failed, 2, "キャンセル済みコンテキストでは全項目が失敗として記録される")
}

func TestBatchGenerateEmptyInput(t *testing.T) {
	scheduler := newBatchTestScheduler(t)

	report := scheduler.Generate(context.Background(), nil, nil, nil)
	assert.Empty(t, report.Recommendations)
	assert.Empty(t, report.Skipped)
	assert.Empty(t, report.Failed)
}
