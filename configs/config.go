package config

import (
	"os"
	"strconv"
)

// Config holds the application configuration
type Config struct {
	Port        string
	Environment string
	APIKey      string

	// Forecast engine settings
	MinTrainingDays     int
	ConfidenceLevel     float64
	QuantileMethod      string
	BootstrapIterations int
	BootstrapSeed       int64
	DefaultHorizonDays  int

	// Reorder policy defaults
	ServiceLevel     float64
	LeadTimeDays     int
	LeadTimeStdDays  float64
	MinOrderQuantity int
	CasePackSize     int
	ReviewPeriodDays int

	// Batch scheduler
	BatchWorkers int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		APIKey:      getEnv("API_KEY", ""),

		MinTrainingDays:     getEnvInt("FORECAST_MIN_TRAINING_DAYS", 30),
		ConfidenceLevel:     getEnvFloat("FORECAST_CONFIDENCE_LEVEL", 0.95),
		QuantileMethod:      getEnv("FORECAST_QUANTILE_METHOD", "interval_normal_approximation"),
		BootstrapIterations: getEnvInt("FORECAST_BOOTSTRAP_ITERATIONS", 100),
		BootstrapSeed:       int64(getEnvInt("FORECAST_BOOTSTRAP_SEED", 1)),
		DefaultHorizonDays:  getEnvInt("FORECAST_DEFAULT_HORIZON_DAYS", 30),

		ServiceLevel:     getEnvFloat("REORDER_SERVICE_LEVEL", 0.95),
		LeadTimeDays:     getEnvInt("REORDER_LEAD_TIME_DAYS", 7),
		LeadTimeStdDays:  getEnvFloat("REORDER_LEAD_TIME_STD_DAYS", 2.0),
		MinOrderQuantity: getEnvInt("REORDER_MIN_ORDER_QUANTITY", 1),
		CasePackSize:     getEnvInt("REORDER_CASE_PACK_SIZE", 1),
		ReviewPeriodDays: getEnvInt("REORDER_REVIEW_PERIOD_DAYS", 1),

		BatchWorkers: getEnvInt("BATCH_WORKERS", 0), // 0 = CPU数
	}
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
