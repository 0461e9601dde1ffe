package models

import "time"

// Urgency 発注推奨の緊急度
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyMedium   Urgency = "medium"
	UrgencyLow      Urgency = "low"
)

// UrgencyRank 緊急度のソート順を返す（criticalが最優先）
func UrgencyRank(u Urgency) int {
	switch u {
	case UrgencyCritical:
		return 0
	case UrgencyHigh:
		return 1
	case UrgencyMedium:
		return 2
	case UrgencyLow:
		return 3
	default:
		return 4
	}
}

// SalesObservation represents a single day of sales history.
type SalesObservation struct {
	Date     time.Time `json:"date"`
	Quantity float64   `json:"quantity"` // 販売数量（0以上）
}

// ForecastPoint represents a single day of a quantile forecast.
type ForecastPoint struct {
	Date       string  `json:"date"`
	P50        float64 `json:"p50"`
	P05        float64 `json:"p05"`
	P95        float64 `json:"p95"`
	P90        float64 `json:"p90"`
	P50Rounded int     `json:"p50_rounded"`
	P05Rounded int     `json:"p05_rounded"`
	P95Rounded int     `json:"p95_rounded"`
	P90Rounded int     `json:"p90_rounded"`
}

// ForecastComponents トレンド・季節性の分解結果（include_components指定時のみ）
type ForecastComponents struct {
	Trend  []float64 `json:"trend"`
	Weekly []float64 `json:"weekly_seasonality"`
}

// QuantileForecast 確率的需要予測の結果。生成後は不変として扱う。
type QuantileForecast struct {
	ProductID       string              `json:"product_id"`
	StoreID         string              `json:"store_id,omitempty"`
	HorizonDays     int                 `json:"forecast_horizon_days"`
	ConfidenceLevel float64             `json:"confidence_level"`
	Points          []ForecastPoint     `json:"points"`
	Components      *ForecastComponents `json:"components,omitempty"`
	// QuantileMethod は分位点の導出方法。"interval_normal_approximation" は
	// 経験分位点ではなく正規近似（std ≈ 区間幅 / (2×1.96)）であることを示す。
	QuantileMethod string            `json:"quantile_method"`
	ModelVersion   string            `json:"model_version"`
	GeneratedAt    time.Time         `json:"generated_at"`
	Performance    *ModelPerformance `json:"model_performance,omitempty"`
}

// P50Series P50の日次系列を返す
func (f *QuantileForecast) P50Series() []float64 {
	series := make([]float64, len(f.Points))
	for i, p := range f.Points {
		series[i] = p.P50
	}
	return series
}

// P90Series P90の日次系列を返す
func (f *QuantileForecast) P90Series() []float64 {
	series := make([]float64, len(f.Points))
	for i, p := range f.Points {
		series[i] = p.P90
	}
	return series
}

// ModelPerformance ローリングオリジン交差検証による精度指標
type ModelPerformance struct {
	MAE      float64 `json:"mae"`
	MAPE     float64 `json:"mape"`
	RMSE     float64 `json:"rmse"`
	MdAPE    float64 `json:"mdape"`
	SMAPE    float64 `json:"smape"`
	Coverage float64 `json:"coverage"` // 実績が[P05,P95]に収まった割合
	Folds    int     `json:"folds"`
	// InSample は交差検証のフォールドが1つも構成できず、
	// 学習データ内の残差で代替評価したことを示す。
	InSample bool `json:"in_sample"`
}

// DateRange 学習データの日付範囲
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// TrainingResult モデル学習の結果サマリー
type TrainingResult struct {
	ProductID       string           `json:"product_id"`
	StoreID         string           `json:"store_id,omitempty"`
	TrainingSamples int              `json:"training_samples"`
	DateRange       DateRange        `json:"date_range"`
	Performance     ModelPerformance `json:"performance_metrics"`
	ModelVersion    string           `json:"model_version"`
	TrainedAt       time.Time        `json:"trained_at"`
}

// UpdateResult モデル更新の結果サマリー
type UpdateResult struct {
	ProductID     string           `json:"product_id"`
	StoreID       string           `json:"store_id,omitempty"`
	UpdateSamples int              `json:"update_samples"`
	TotalSamples  int              `json:"total_samples"`
	Performance   ModelPerformance `json:"performance_metrics"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// ReorderConfig 発注点計算のポリシー設定
type ReorderConfig struct {
	ServiceLevel     float64  `json:"service_level"`      // 目標サービスレベル（0より大きく1未満）
	LeadTimeDays     int      `json:"lead_time_days"`     // リードタイム日数（1以上）
	LeadTimeStdDays  float64  `json:"lead_time_std_days"` // リードタイムの標準偏差（0以上）
	MinOrderQuantity int      `json:"min_order_quantity"` // 最小発注数量（1以上）
	CasePackSize     int      `json:"case_pack_size"`     // ケース入数（1以上）
	BudgetCap        *float64 `json:"budget_cap,omitempty"`
	ReviewPeriodDays int      `json:"review_period_days"` // 発注見直し周期（1以上）
}

// DefaultReorderConfig 既定のポリシー設定を返す
func DefaultReorderConfig() ReorderConfig {
	return ReorderConfig{
		ServiceLevel:     0.95,
		LeadTimeDays:     7,
		LeadTimeStdDays:  2.0,
		MinOrderQuantity: 1,
		CasePackSize:     1,
		ReviewPeriodDays: 1,
	}
}

// Validate 設定値の妥当性を検証する
func (c ReorderConfig) Validate() error {
	if c.ServiceLevel <= 0 || c.ServiceLevel >= 1 {
		return &InvalidConfigError{Field: "service_level", Reason: "0より大きく1未満で指定してください"}
	}
	if c.LeadTimeDays < 1 {
		return &InvalidConfigError{Field: "lead_time_days", Reason: "1以上で指定してください"}
	}
	if c.LeadTimeStdDays < 0 {
		return &InvalidConfigError{Field: "lead_time_std_days", Reason: "0以上で指定してください"}
	}
	if c.MinOrderQuantity < 1 {
		return &InvalidConfigError{Field: "min_order_quantity", Reason: "1以上で指定してください"}
	}
	if c.CasePackSize < 1 {
		return &InvalidConfigError{Field: "case_pack_size", Reason: "1以上で指定してください"}
	}
	if c.BudgetCap != nil && *c.BudgetCap <= 0 {
		return &InvalidConfigError{Field: "budget_cap", Reason: "指定する場合は0より大きい値にしてください"}
	}
	if c.ReviewPeriodDays < 1 {
		return &InvalidConfigError{Field: "review_period_days", Reason: "1以上で指定してください"}
	}
	return nil
}

// InventorySnapshot 在庫スナップショット（呼び出し側から供給される）
type InventorySnapshot struct {
	ProductID        string  `json:"product_id" binding:"required"`
	StoreID          string  `json:"store_id,omitempty"`
	CurrentInventory int     `json:"current_inventory"`
	UnitCost         float64 `json:"unit_cost"`
}

// LeadTimeDemand リードタイム中の需要統計
type LeadTimeDemand struct {
	P50Demand   float64 `json:"p50_demand"`
	P90Demand   float64 `json:"p90_demand"`
	StdDemand   float64 `json:"std_demand"`
	TotalDemand float64 `json:"total_demand"`
}

// ReorderRecommendation 発注推奨。生成後は変更しない。
type ReorderRecommendation struct {
	ID                   string    `json:"id"`
	ProductID            string    `json:"product_id"`
	StoreID              string    `json:"store_id"`
	CurrentInventory     int       `json:"current_inventory"`
	ReorderPoint         int       `json:"reorder_point"`
	ReorderQuantity      int       `json:"reorder_quantity"`
	SafetyStock          int       `json:"safety_stock"`
	DemandDuringLeadTime int       `json:"demand_during_lead_time"`
	LeadTimeDays         int       `json:"lead_time_days"`
	ServiceLevel         float64   `json:"service_level"`
	TotalCost            float64   `json:"total_cost"`
	Urgency              Urgency   `json:"urgency"`
	Reasoning            string    `json:"reasoning"`
	RecommendedAt        time.Time `json:"recommendation_date"`
}

// SkippedItem バッチ処理でスキップされた項目
type SkippedItem struct {
	ProductID string `json:"product_id"`
	StoreID   string `json:"store_id,omitempty"`
	Reason    string `json:"reason"`
}

// FailedItem バッチ処理で失敗した項目
type FailedItem struct {
	ProductID string `json:"product_id"`
	StoreID   string `json:"store_id,omitempty"`
	Error     string `json:"error"`
}

// BatchReport バッチ発注推奨の結果。成功・スキップ・失敗を混在させず分けて返す。
type BatchReport struct {
	ID              string                  `json:"id"`
	Recommendations []ReorderRecommendation `json:"recommendations"`
	Skipped         []SkippedItem           `json:"skipped"`
	Failed          []FailedItem            `json:"failed"`
	GeneratedAt     time.Time               `json:"generated_at"`
}
