package services

import (
	"fmt"
	"math"
	"strings"
	"time"

	"retail-inventory-api/pkg/models"

	"github.com/google/uuid"
)

// ReorderPointEngine P90予測とリードタイム分布から発注点を計算するエンジン。
// すべての計算は純粋関数であり、内部状態を持たない。
type ReorderPointEngine struct {
	config models.ReorderConfig
}

// NewReorderPointEngine 新しい発注点エンジンを作成。configがnilの場合は既定値を使う。
func NewReorderPointEngine(config *models.ReorderConfig) (*ReorderPointEngine, error) {
	cfg := models.DefaultReorderConfig()
	if config != nil {
		cfg = *config
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &ReorderPointEngine{config: cfg}, nil
}

// DefaultConfig エンジンの既定ポリシー設定を返す
func (e *ReorderPointEngine) DefaultConfig() models.ReorderConfig {
	return e.config
}

// CalculateDemandDuringLeadTime リードタイム中の需要統計を計算する。
// 予測系列がリードタイムより短い場合はInsufficientForecastHorizonErrorを返す。
func (e *ReorderPointEngine) CalculateDemandDuringLeadTime(dailyForecasts []float64, leadTimeDays int) (models.LeadTimeDemand, error) {
	if len(dailyForecasts) < leadTimeDays {
		return models.LeadTimeDemand{}, &models.InsufficientForecastHorizonError{
			AvailableDays: len(dailyForecasts),
			RequiredDays:  leadTimeDays,
		}
	}

	ltForecasts := dailyForecasts[:leadTimeDays]
	var total float64
	for _, v := range ltForecasts {
		total += v
	}

	return models.LeadTimeDemand{
		P50Demand:   calculateMean(ltForecasts),
		P90Demand:   percentile(ltForecasts, 90),
		StdDemand:   calculateSampleStandardDeviation(ltForecasts),
		TotalDemand: total,
	}, nil
}

// CalculateSafetyStock 需要変動とリードタイム変動から安全在庫を計算する。
// demandDuringLT には直前に計算したリードタイム中需要を明示的に渡すこと。
// 式: z × sqrt(leadTime × stdDemand² + demandDuringLT² × leadTimeStd²)
func (e *ReorderPointEngine) CalculateSafetyStock(stdDemand, leadTimeStdDays, serviceLevel, demandDuringLT float64, leadTimeDays int) float64 {
	z := zScoreForServiceLevel(serviceLevel)
	safetyStock := z * math.Sqrt(
		float64(leadTimeDays)*stdDemand*stdDemand+
			demandDuringLT*demandDuringLT*leadTimeStdDays*leadTimeStdDays)
	return math.Max(0, safetyStock)
}

// zScoreForServiceLevel サービスレベルに対応するz値を逆正規CDFで厳密に求める。
// 固定テーブル {0.90: 1.28, 0.95: 1.645, 0.99: 2.326} の置き換え。
func zScoreForServiceLevel(serviceLevel float64) float64 {
	return normalQuantile(serviceLevel)
}

// CalculateReorderPoint 発注点を計算する。
// 発注点 = リードタイム中需要 + 安全在庫 + 見直し周期分の需要
func (e *ReorderPointEngine) CalculateReorderPoint(demandDuringLT, safetyStock float64, reviewPeriodDays, leadTimeDays int) int {
	reviewDemand := demandDuringLT * (float64(reviewPeriodDays) / float64(leadTimeDays))
	reorderPoint := demandDuringLT + safetyStock + reviewDemand
	if reorderPoint < 0 {
		return 0
	}
	return int(math.Ceil(reorderPoint))
}

// CalculateReorderQuantity 発注数量を計算する。在庫が発注点以上なら0。
// ケース入数の倍数に切り上げ、最小発注数量を下回らないようにする。
func (e *ReorderPointEngine) CalculateReorderQuantity(reorderPoint, currentInventory, minOrderQty, casePackSize int) int {
	if currentInventory >= reorderPoint {
		return 0
	}

	needed := reorderPoint - currentInventory
	reorderQty := needed
	if casePackSize > 1 {
		reorderQty = int(math.Ceil(float64(needed)/float64(casePackSize))) * casePackSize
	}
	if reorderQty < minOrderQty {
		reorderQty = minOrderQty
	}
	return reorderQty
}

// DetermineUrgency 発注の緊急度を判定する
func (e *ReorderPointEngine) DetermineUrgency(currentInventory, reorderPoint int, safetyStock float64) models.Urgency {
	switch {
	case float64(currentInventory) <= safetyStock:
		return models.UrgencyCritical
	case float64(currentInventory) <= float64(reorderPoint)*0.5:
		return models.UrgencyHigh
	case currentInventory <= reorderPoint:
		return models.UrgencyMedium
	default:
		return models.UrgencyLow
	}
}

// GenerateRecommendation 発注推奨を生成する。
// dailyForecasts は呼び出し側が選択した日次予測系列（P50またはP90）。
// config がnilの場合はエンジンの既定ポリシーを使う。
func (e *ReorderPointEngine) GenerateRecommendation(
	snapshot models.InventorySnapshot,
	dailyForecasts []float64,
	config *models.ReorderConfig,
) (*models.ReorderRecommendation, error) {
	cfg := e.config
	if config != nil {
		cfg = *config
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	// (a) リードタイム中の需要
	ltDemand, err := e.CalculateDemandDuringLeadTime(dailyForecasts, cfg.LeadTimeDays)
	if err != nil {
		return nil, err
	}

	// (b) 安全在庫。直前に計算したリードタイム中需要を明示的に渡す。
	safetyStock := e.CalculateSafetyStock(
		ltDemand.StdDemand, cfg.LeadTimeStdDays, cfg.ServiceLevel,
		ltDemand.P90Demand, cfg.LeadTimeDays)

	// (c) 発注点。保守的にP90需要を使う。
	reorderPoint := e.CalculateReorderPoint(ltDemand.P90Demand, safetyStock, cfg.ReviewPeriodDays, cfg.LeadTimeDays)

	// (d) 発注数量
	reorderQty := e.CalculateReorderQuantity(reorderPoint, snapshot.CurrentInventory, cfg.MinOrderQuantity, cfg.CasePackSize)

	// (e) 緊急度
	urgency := e.DetermineUrgency(snapshot.CurrentInventory, reorderPoint, safetyStock)

	totalCost := float64(reorderQty) * snapshot.UnitCost

	// 予算制約によるクランプ。unit_cost==0 の場合はゼロ除算を避けてスキップする。
	if cfg.BudgetCap != nil && totalCost > *cfg.BudgetCap && snapshot.UnitCost > 0 {
		reorderQty = int(math.Floor(*cfg.BudgetCap / snapshot.UnitCost))
		totalCost = float64(reorderQty) * snapshot.UnitCost
		if urgency != models.UrgencyCritical {
			urgency = models.UrgencyHigh // 予算制約は緊急度を引き上げる（criticalは下げない）
		}
	}

	reasoning := e.buildReasoning(snapshot.CurrentInventory, reorderPoint, reorderQty, cfg.LeadTimeDays, safetyStock, ltDemand, urgency)

	return &models.ReorderRecommendation{
		ID:                   uuid.NewString(),
		ProductID:            snapshot.ProductID,
		StoreID:              snapshot.StoreID,
		CurrentInventory:     snapshot.CurrentInventory,
		ReorderPoint:         reorderPoint,
		ReorderQuantity:      reorderQty,
		SafetyStock:          int(safetyStock),
		DemandDuringLeadTime: int(ltDemand.P90Demand),
		LeadTimeDays:         cfg.LeadTimeDays,
		ServiceLevel:         cfg.ServiceLevel,
		TotalCost:            totalCost,
		Urgency:              urgency,
		Reasoning:            reasoning,
		RecommendedAt:        time.Now(),
	}, nil
}

// buildReasoning 推奨の根拠を人間可読な文字列として組み立てる（決定的）
func (e *ReorderPointEngine) buildReasoning(
	currentInventory, reorderPoint, reorderQty, leadTimeDays int,
	safetyStock float64,
	ltDemand models.LeadTimeDemand,
	urgency models.Urgency,
) string {
	var parts []string

	if float64(currentInventory) <= safetyStock {
		parts = append(parts, "危険: 在庫が安全在庫を下回っています")
	} else if currentInventory <= reorderPoint {
		parts = append(parts, fmt.Sprintf("発注が必要: 現在庫（%d）が発注点（%d）を下回っています", currentInventory, reorderPoint))
	}

	parts = append(parts, fmt.Sprintf("リードタイム%d日間のP90需要: %.1f", leadTimeDays, ltDemand.P90Demand))
	parts = append(parts, fmt.Sprintf("安全在庫: %.1f", safetyStock))

	if reorderQty > 0 {
		parts = append(parts, fmt.Sprintf("推奨発注数量: %d個", reorderQty))
		switch urgency {
		case models.UrgencyCritical:
			parts = append(parts, "緊急: 欠品を防ぐため直ちに発注してください")
		case models.UrgencyHigh:
			parts = append(parts, "サービスレベル維持のため早めに発注してください")
		}
	} else {
		parts = append(parts, "現時点で発注は不要です")
	}

	return strings.Join(parts, "。")
}
