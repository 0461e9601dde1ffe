package services

import (
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// LogEntry は単一のリクエストログを表します。
type LogEntry struct {
	Timestamp    time.Time     `json:"timestamp"`
	Path         string        `json:"path"`
	Method       string        `json:"method"`
	StatusCode   int           `json:"status_code"`
	ResponseTime time.Duration `json:"response_time"`
}

// MonitoringService はAPIのモニタリング機能を提供します。
type MonitoringService struct {
	logs []LogEntry
	mu   sync.RWMutex
}

// NewMonitoringService は新しいMonitoringServiceを生成します。
func NewMonitoringService() *MonitoringService {
	return &MonitoringService{
		logs: make([]LogEntry, 0),
	}
}

// LogRequest はリクエストを記録します。
func (s *MonitoringService) LogRequest(entry LogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, entry)
}

// LoggingMiddleware はリクエスト情報を記録するGinミドルウェアです。
func (s *MonitoringService) LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// モニタリング自身のエンドポイントは記録しない
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/v1/monitoring") {
			return
		}

		s.LogRequest(LogEntry{
			Timestamp:    start,
			Path:         path,
			Method:       c.Request.Method,
			StatusCode:   c.Writer.Status(),
			ResponseTime: time.Since(start),
		})
	}
}

// RequestStats 指定期間のリクエスト集計
type RequestStats struct {
	TotalRequests     int            `json:"total_requests"`
	Endpoints         map[string]int `json:"endpoints"`
	ClientErrors      int            `json:"client_errors"`
	ServerErrors      int            `json:"server_errors"`
	AvgResponseTimeMs int64          `json:"avg_response_time_ms"`
	RecentErrors      []LogEntry     `json:"recent_errors"`
}

// GetStats は指定された期間のログを集計して返します。
func (s *MonitoringService) GetStats(periodHours int) RequestStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	since := time.Now().Add(-time.Duration(periodHours) * time.Hour)

	stats := RequestStats{
		Endpoints:    make(map[string]int),
		RecentErrors: make([]LogEntry, 0),
	}

	var totalResponseTime time.Duration
	for _, entry := range s.logs {
		if !entry.Timestamp.After(since) {
			continue
		}
		stats.TotalRequests++
		stats.Endpoints[entry.Path]++
		totalResponseTime += entry.ResponseTime

		switch {
		case entry.StatusCode >= 500:
			stats.ServerErrors++
		case entry.StatusCode >= 400:
			stats.ClientErrors++
		}
	}

	if stats.TotalRequests > 0 {
		stats.AvgResponseTimeMs = totalResponseTime.Milliseconds() / int64(stats.TotalRequests)
	}

	// 直近のサーバーエラーを新しい順に最大10件
	for i := len(s.logs) - 1; i >= 0 && len(stats.RecentErrors) < 10; i-- {
		if s.logs[i].StatusCode >= 500 && s.logs[i].Timestamp.After(since) {
			stats.RecentErrors = append(stats.RecentErrors, s.logs[i])
		}
	}

	return stats
}
