package handlers

import (
	"errors"
	"net/http"

	"retail-inventory-api/pkg/models"
	"retail-inventory-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// mockDailyDemand 予測モデルが無い場合に呼び出し側の明示的な指定で使う平坦な日次需要。
// フォールバックはハンドラー層（呼び出し側）の方針であり、エンジンは関知しない。
const mockDailyDemand = 10.0

// ReorderHandler 発注推奨ハンドラー
type ReorderHandler struct {
	reorderEngine      *services.ReorderPointEngine
	forecastEngine     *services.ForecastEngine
	scheduler          *services.BatchScheduler
	defaultHorizonDays int
}

// NewReorderHandler 新しい発注推奨ハンドラーを作成
func NewReorderHandler(
	reorderEngine *services.ReorderPointEngine,
	forecastEngine *services.ForecastEngine,
	scheduler *services.BatchScheduler,
	defaultHorizonDays int,
) *ReorderHandler {
	if defaultHorizonDays <= 0 {
		defaultHorizonDays = 30
	}
	return &ReorderHandler{
		reorderEngine:      reorderEngine,
		forecastEngine:     forecastEngine,
		scheduler:          scheduler,
		defaultHorizonDays: defaultHorizonDays,
	}
}

// recommendRequest 発注推奨リクエスト
type recommendRequest struct {
	ProductID        string                `json:"product_id" binding:"required"`
	StoreID          string                `json:"store_id"`
	CurrentInventory int                   `json:"current_inventory"`
	UnitCost         float64               `json:"unit_cost"`
	DailyForecasts   []float64             `json:"daily_forecasts"`
	UseMockForecast  bool                  `json:"use_mock_forecast"`
	Config           *models.ReorderConfig `json:"config"`
}

// Recommend 1商品の発注推奨を生成する。
// daily_forecastsが未指定の場合は学習済みモデルのP90系列を使う。
func (rh *ReorderHandler) Recommend(c *gin.Context) {
	var request recommendRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストの解析に失敗しました: " + err.Error()})
		return
	}

	cfg := rh.reorderEngine.DefaultConfig()
	if request.Config != nil {
		cfg = *request.Config
		if err := cfg.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	forecasts := request.DailyForecasts
	if len(forecasts) == 0 {
		forecast, err := rh.forecastEngine.Forecast(request.ProductID, request.StoreID, cfg.LeadTimeDays, false)
		switch {
		case err == nil:
			forecasts = forecast.P90Series()
		case request.UseMockForecast:
			// 明示的に許可された場合のみ平坦なモック需要で代替する
			forecasts = make([]float64, cfg.LeadTimeDays)
			for i := range forecasts {
				forecasts[i] = mockDailyDemand
			}
		default:
			respondForecastError(c, err)
			return
		}
	}

	snapshot := models.InventorySnapshot{
		ProductID:        request.ProductID,
		StoreID:          request.StoreID,
		CurrentInventory: request.CurrentInventory,
		UnitCost:         request.UnitCost,
	}

	recommendation, err := rh.reorderEngine.GenerateRecommendation(snapshot, forecasts, &cfg)
	if err != nil {
		respondReorderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": recommendation})
}

// batchConfigOverride 項目別のポリシー上書き
type batchConfigOverride struct {
	ProductID string                `json:"product_id" binding:"required"`
	StoreID   string                `json:"store_id"`
	Config    models.ReorderConfig  `json:"config"`
}

// batchRequest バッチ発注推奨リクエスト
type batchRequest struct {
	Snapshots   []models.InventorySnapshot `json:"snapshots" binding:"required"`
	Configs     []batchConfigOverride      `json:"configs"`
	HorizonDays int                        `json:"horizon_days"`
}

// Batch 複数商品の発注推奨をまとめて生成する。
// 予測が無い商品はスキップ、個別のエラーは失敗として記録され、バッチは継続する。
func (rh *ReorderHandler) Batch(c *gin.Context) {
	var request batchRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストの解析に失敗しました: " + err.Error()})
		return
	}

	horizonDays := request.HorizonDays
	if horizonDays <= 0 {
		horizonDays = rh.defaultHorizonDays
	}

	configsByKey := make(map[services.ModelKey]*models.ReorderConfig, len(request.Configs))
	for i := range request.Configs {
		override := request.Configs[i]
		if err := override.Config.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "製品 " + override.ProductID + " の" + err.Error()})
			return
		}
		key := services.ModelKey{ProductID: override.ProductID, StoreID: override.StoreID}
		configsByKey[key] = &request.Configs[i].Config
	}

	// 各キーの学習済みモデルからP90系列を取得する。モデルが無いキーは
	// マップに載せず、スケジューラ側でスキップとして記録させる。
	forecastsByKey := make(map[services.ModelKey][]float64)
	for _, snapshot := range request.Snapshots {
		key := services.ModelKey{ProductID: snapshot.ProductID, StoreID: snapshot.StoreID}
		if _, ok := forecastsByKey[key]; ok {
			continue
		}
		forecast, err := rh.forecastEngine.Forecast(snapshot.ProductID, snapshot.StoreID, horizonDays, false)
		if err != nil {
			continue
		}
		forecastsByKey[key] = forecast.P90Series()
	}

	report := rh.scheduler.Generate(c.Request.Context(), request.Snapshots, forecastsByKey, configsByKey)
	c.JSON(http.StatusOK, gin.H{"success": true, "data": report})
}

// respondReorderError 発注エンジンのエラー型をHTTPステータスへ対応付ける
func respondReorderError(c *gin.Context, err error) {
	var horizon *models.InsufficientForecastHorizonError
	var invalidConfig *models.InvalidConfigError
	switch {
	case errors.As(err, &horizon):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &invalidConfig):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
