package services

import (
	"context"
	"log"
	"runtime"
	"sort"
	"time"

	"retail-inventory-api/pkg/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// BatchScheduler 複数の在庫スナップショットを発注点エンジンにファンアウトする。
// 各項目は独立に処理され、1項目の失敗がバッチ全体を止めることはない。
type BatchScheduler struct {
	engine  *ReorderPointEngine
	workers int
}

// NewBatchScheduler 新しいバッチスケジューラを作成。workersが0以下の場合はCPU数を使う。
func NewBatchScheduler(engine *ReorderPointEngine, workers int) *BatchScheduler {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &BatchScheduler{engine: engine, workers: workers}
}

// batchOutcome 1項目の処理結果（成功・スキップ・失敗のいずれか1つ）
type batchOutcome struct {
	recommendation *models.ReorderRecommendation
	skipped        *models.SkippedItem
	failed         *models.FailedItem
}

// Generate 在庫スナップショットごとに発注推奨を生成し、緊急度順のレポートを返す。
// 予測が見つからない項目はスキップ、エンジンエラーは失敗として記録し、処理は継続する。
// 成功項目は緊急度ランク昇順に安定ソートされ、同ランク内は入力順を保つ。
func (bs *BatchScheduler) Generate(
	ctx context.Context,
	snapshots []models.InventorySnapshot,
	forecastsByKey map[ModelKey][]float64,
	configsByKey map[ModelKey]*models.ReorderConfig,
) *models.BatchReport {
	outcomes := make([]batchOutcome, len(snapshots))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bs.workers)

	for i, snapshot := range snapshots {
		i, snapshot := i, snapshot
		g.Go(func() error {
			select {
			case <-ctx.Done():
				outcomes[i] = batchOutcome{failed: &models.FailedItem{
					ProductID: snapshot.ProductID,
					StoreID:   snapshot.StoreID,
					Error:     ctx.Err().Error(),
				}}
				return nil
			default:
			}

			key := ModelKey{ProductID: snapshot.ProductID, StoreID: snapshot.StoreID}

			forecasts, ok := forecastsByKey[key]
			if !ok {
				outcomes[i] = batchOutcome{skipped: &models.SkippedItem{
					ProductID: snapshot.ProductID,
					StoreID:   snapshot.StoreID,
					Reason:    "予測データが見つかりません",
				}}
				return nil
			}

			recommendation, err := bs.engine.GenerateRecommendation(snapshot, forecasts, configsByKey[key])
			if err != nil {
				// 1項目の失敗はバッチを止めない
				outcomes[i] = batchOutcome{failed: &models.FailedItem{
					ProductID: snapshot.ProductID,
					StoreID:   snapshot.StoreID,
					Error:     err.Error(),
				}}
				return nil
			}

			outcomes[i] = batchOutcome{recommendation: recommendation}
			return nil
		})
	}
	_ = g.Wait() // 各項目はエラーを自分の結果に記録するため常にnil

	report := &models.BatchReport{
		ID:              uuid.NewString(),
		Recommendations: make([]models.ReorderRecommendation, 0, len(snapshots)),
		Skipped:         []models.SkippedItem{},
		Failed:          []models.FailedItem{},
		GeneratedAt:     time.Now(),
	}

	// 入力順に集約してから緊急度で安定ソートする
	for _, outcome := range outcomes {
		switch {
		case outcome.recommendation != nil:
			report.Recommendations = append(report.Recommendations, *outcome.recommendation)
		case outcome.skipped != nil:
			report.Skipped = append(report.Skipped, *outcome.skipped)
		case outcome.failed != nil:
			report.Failed = append(report.Failed, *outcome.failed)
		}
	}

	sort.SliceStable(report.Recommendations, func(i, j int) bool {
		return models.UrgencyRank(report.Recommendations[i].Urgency) < models.UrgencyRank(report.Recommendations[j].Urgency)
	})

	log.Printf("📦 [バッチ] 発注推奨を生成: 成功%d件 / スキップ%d件 / 失敗%d件",
		len(report.Recommendations), len(report.Skipped), len(report.Failed))

	return report
}
