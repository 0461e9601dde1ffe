package handlers

import (
	"net/http"
	"testing"

	"retail-inventory-api/pkg/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestHealthCheckEndpoint(t *testing.T) {
	r := gin.New()
	r.GET("/health", HealthCheck)

	w := doRequest(r, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}

func TestMonitoringStatsEndpoint(t *testing.T) {
	service := services.NewMonitoringService()
	handler := NewMonitoringHandler(service)

	r := gin.New()
	r.Use(service.LoggingMiddleware())
	r.GET("/health", HealthCheck)
	r.GET("/api/v1/monitoring/stats", handler.GetStats)

	// 統計対象のリクエストをいくつか流す
	doRequest(r, "GET", "/health", nil)
	doRequest(r, "GET", "/health", nil)
	doRequest(r, "GET", "/nonexistent", nil)

	w := doRequest(r, "GET", "/api/v1/monitoring/stats?period=1h", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "total_requests")
}
