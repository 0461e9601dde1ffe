package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"retail-inventory-api/pkg/models"
	"retail-inventory-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// ForecastHandler 需要予測ハンドラー
type ForecastHandler struct {
	engine             *services.ForecastEngine
	defaultHorizonDays int
}

// NewForecastHandler 新しい需要予測ハンドラーを作成
func NewForecastHandler(engine *services.ForecastEngine, defaultHorizonDays int) *ForecastHandler {
	if defaultHorizonDays <= 0 {
		defaultHorizonDays = 30
	}
	return &ForecastHandler{
		engine:             engine,
		defaultHorizonDays: defaultHorizonDays,
	}
}

// GetEngine ハンドラーが持つ予測エンジンへの参照を返す
func (fh *ForecastHandler) GetEngine() *services.ForecastEngine {
	return fh.engine
}

// salesObservationRequest リクエスト中の1日分の販売実績
type salesObservationRequest struct {
	Date     string  `json:"date" binding:"required"`
	Quantity float64 `json:"quantity"`
}

// trainRequest モデル学習リクエスト
type trainRequest struct {
	ProductID string                    `json:"product_id" binding:"required"`
	StoreID   string                    `json:"store_id"`
	SalesData []salesObservationRequest `json:"sales_data" binding:"required"`
}

// Train 販売履歴からモデルを学習する
func (fh *ForecastHandler) Train(c *gin.Context) {
	var request trainRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストの解析に失敗しました: " + err.Error()})
		return
	}

	history, err := toObservations(request.SalesData)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := fh.engine.Train(history, request.ProductID, request.StoreID)
	if err != nil {
		var insufficient *models.InsufficientDataError
		if errors.As(err, &insufficient) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "モデル学習に失敗しました: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

// Forecast 指定ホライズンの分位点予測を返す
func (fh *ForecastHandler) Forecast(c *gin.Context) {
	productID := c.Param("productID")
	storeID := c.Query("store_id")

	horizonDays := fh.defaultHorizonDays
	if v := c.Query("horizon_days"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "horizon_daysは整数で指定してください"})
			return
		}
		horizonDays = parsed
	}
	includeComponents := c.DefaultQuery("include_components", "false") == "true"

	forecast, err := fh.engine.Forecast(productID, storeID, horizonDays, includeComponents)
	if err != nil {
		respondForecastError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": forecast})
}

// updateRequest モデル更新リクエスト
type updateRequest struct {
	ProductID string                    `json:"product_id" binding:"required"`
	StoreID   string                    `json:"store_id"`
	SalesData []salesObservationRequest `json:"sales_data" binding:"required"`
}

// Update 新しい観測でモデルを更新する
func (fh *ForecastHandler) Update(c *gin.Context) {
	var request updateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストの解析に失敗しました: " + err.Error()})
		return
	}

	observations, err := toObservations(request.SalesData)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := fh.engine.Update(request.ProductID, request.StoreID, observations)
	if err != nil {
		respondForecastError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": result})
}

// GetPerformance 学習済みモデルの精度指標を返す
func (fh *ForecastHandler) GetPerformance(c *gin.Context) {
	productID := c.Param("productID")
	storeID := c.Query("store_id")

	perf, err := fh.engine.GetPerformance(productID, storeID)
	if err != nil {
		respondForecastError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": perf})
}

// Delete モデルを削除する（存在しない場合もエラーにしない）
func (fh *ForecastHandler) Delete(c *gin.Context) {
	productID := c.Param("productID")
	storeID := c.Query("store_id")

	deleted := fh.engine.Delete(productID, storeID)
	c.JSON(http.StatusOK, gin.H{"success": true, "deleted": deleted})
}

// respondForecastError 予測エンジンのエラー型をHTTPステータスへ対応付ける
func respondForecastError(c *gin.Context, err error) {
	var notFound *models.ModelNotFoundError
	var invalidConfig *models.InvalidConfigError
	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &invalidConfig):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// toObservations リクエストの実績列をドメイン型に変換する
func toObservations(records []salesObservationRequest) ([]models.SalesObservation, error) {
	observations := make([]models.SalesObservation, 0, len(records))
	for _, record := range records {
		date, err := time.Parse("2006-01-02", record.Date)
		if err != nil {
			return nil, errors.New("日付はYYYY-MM-DD形式で指定してください: " + record.Date)
		}
		observations = append(observations, models.SalesObservation{
			Date:     date,
			Quantity: record.Quantity,
		})
	}
	return observations, nil
}
