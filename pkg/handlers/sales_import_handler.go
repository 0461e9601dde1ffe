package handlers

import (
	"errors"
	"net/http"

	"retail-inventory-api/pkg/models"
	"retail-inventory-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// SalesImportHandler 販売実績ファイル取り込みハンドラー
type SalesImportHandler struct {
	importService  *services.SalesImportService
	forecastEngine *services.ForecastEngine
}

// NewSalesImportHandler 新しい取り込みハンドラーを作成
func NewSalesImportHandler(importService *services.SalesImportService, forecastEngine *services.ForecastEngine) *SalesImportHandler {
	return &SalesImportHandler{
		importService:  importService,
		forecastEngine: forecastEngine,
	}
}

// importKeyResult 1キー分の取り込み・学習結果
type importKeyResult struct {
	ProductID string                 `json:"product_id"`
	StoreID   string                 `json:"store_id,omitempty"`
	Rows      int                    `json:"rows"`
	Trained   bool                   `json:"trained"`
	Training  *models.TrainingResult `json:"training_result,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

// Import アップロードされた.xlsx/.csvの販売実績を取り込む。
// train=true が指定された場合は取り込んだ各キーのモデルをその場で学習する。
// 学習日数が不足しているキーはエラーではなく結果に記録して続行する。
func (sh *SalesImportHandler) Import(c *gin.Context) {
	file, fileHeader, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ファイルの取得に失敗しました"})
		return
	}
	defer file.Close()

	result, err := sh.importService.ParseFile(file, fileHeader.Filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	train := c.DefaultPostForm("train", "false") == "true"

	keyResults := make([]importKeyResult, 0, len(result.Series))
	for key, observations := range result.Series {
		keyResult := importKeyResult{
			ProductID: key.ProductID,
			StoreID:   key.StoreID,
			Rows:      len(observations),
		}
		if train {
			trainingResult, trainErr := sh.forecastEngine.Train(observations, key.ProductID, key.StoreID)
			if trainErr != nil {
				var insufficient *models.InsufficientDataError
				if errors.As(trainErr, &insufficient) {
					keyResult.Error = trainErr.Error()
				} else {
					keyResult.Error = "モデル学習に失敗しました: " + trainErr.Error()
				}
			} else {
				keyResult.Trained = true
				keyResult.Training = trainingResult
			}
		}
		keyResults = append(keyResults, keyResult)
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"total_rows":   result.TotalRows,
		"parsed_rows":  result.ParsedRows,
		"skipped_rows": result.SkippedRows,
		"keys":         keyResults,
	})
}
