package main

import (
	"log"
	"net/http"

	config "retail-inventory-api/configs"
	"retail-inventory-api/pkg/handlers"
	"retail-inventory-api/pkg/models"
	"retail-inventory-api/pkg/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// .envファイルを読み込み
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found or could not be loaded: %v", err)
	}

	// 設定の読み込み
	cfg := config.LoadConfig()

	// Ginルーターの初期化
	r := gin.Default()

	// サービスの初期化
	monitoringService := services.NewMonitoringService()
	forecastEngine := services.NewForecastEngine(services.ForecastEngineOptions{
		MinTrainingDays:     cfg.MinTrainingDays,
		ConfidenceLevel:     cfg.ConfidenceLevel,
		QuantileMethod:      cfg.QuantileMethod,
		BootstrapIterations: cfg.BootstrapIterations,
		BootstrapSeed:       cfg.BootstrapSeed,
	})
	reorderConfig := models.ReorderConfig{
		ServiceLevel:     cfg.ServiceLevel,
		LeadTimeDays:     cfg.LeadTimeDays,
		LeadTimeStdDays:  cfg.LeadTimeStdDays,
		MinOrderQuantity: cfg.MinOrderQuantity,
		CasePackSize:     cfg.CasePackSize,
		ReviewPeriodDays: cfg.ReviewPeriodDays,
	}
	reorderEngine, err := services.NewReorderPointEngine(&reorderConfig)
	if err != nil {
		log.Fatalf("FATAL: 発注点エンジンの初期化に失敗しました: %v", err)
	}
	scheduler := services.NewBatchScheduler(reorderEngine, cfg.BatchWorkers)
	importService := services.NewSalesImportService()

	// ハンドラーの初期化
	forecastHandler := handlers.NewForecastHandler(forecastEngine, cfg.DefaultHorizonDays)
	reorderHandler := handlers.NewReorderHandler(reorderEngine, forecastEngine, scheduler, cfg.DefaultHorizonDays)
	salesImportHandler := handlers.NewSalesImportHandler(importService, forecastEngine)
	monitoringHandler := handlers.NewMonitoringHandler(monitoringService)

	// ミドルウェアの登録
	r.Use(monitoringService.LoggingMiddleware())
	r.Use(cors.Default())

	// 認証ミドルウェア
	authMiddleware := func(apiKey string) gin.HandlerFunc {
		return func(c *gin.Context) {
			if apiKey == "" {
				c.Next()
				return
			}
			providedKey := c.GetHeader("X-API-KEY")
			if providedKey != apiKey {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
				return
			}
			c.Next()
		}
	}

	// ヘルスチェックエンドポイント
	r.GET("/health", handlers.HealthCheck)

	// APIバージョン1のルートグループ
	v1 := r.Group("/api/v1")
	v1.Use(authMiddleware(cfg.APIKey))
	{
		// 需要予測API
		forecast := v1.Group("/forecast")
		{
			forecast.POST("/train", forecastHandler.Train)
			forecast.GET("/:productID", forecastHandler.Forecast)
			forecast.GET("/:productID/performance", forecastHandler.GetPerformance)
			forecast.POST("/update", forecastHandler.Update)
			forecast.DELETE("/:productID", forecastHandler.Delete)
		}

		// 発注推奨API
		reorder := v1.Group("/reorder")
		{
			reorder.POST("/recommendation", reorderHandler.Recommend)
			reorder.POST("/batch", reorderHandler.Batch)
		}

		// 販売実績取り込みAPI
		sales := v1.Group("/sales")
		{
			sales.POST("/import", salesImportHandler.Import)
		}

		// モニタリングAPI
		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/stats", monitoringHandler.GetStats)
		}
	}

	log.Printf("🚀 サーバーを起動します: ポート %s (環境: %s)", cfg.Port, cfg.Environment)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}
