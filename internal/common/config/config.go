package config

import (
	"os"
	"strconv"
)

// ============================================================
// Configuration
// ============================================================

type Config struct {
	Port         string
	Environment  string
	ReadTimeout  int
	WriteTimeout int

	// Планировщик
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAIModel    string
	MaxAttempts    int
	RetryBaseDelay int // секунды
	Temperature    float64
	MaxTokens      int
	PlanCacheSize  int
	PlanCacheTTL   int // секунды
	PlansDBPath    string

	// Экспортер
	CloudConvertAPIKey  string
	CloudConvertBaseURL string
	PollIntervalSec     int
	MaxPolls            int
	DefaultScale        float64
	ExportCacheSize     int
	ExportCacheTTL      int // секунды
	ExportStorageRoot   string
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "3000"),
		Environment:  getEnv("ENV", "development"),
		ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
		WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 120),

		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		MaxAttempts:    getEnvAsInt("GENERATION_MAX_ATTEMPTS", 3),
		RetryBaseDelay: getEnvAsInt("GENERATION_RETRY_DELAY", 1),
		Temperature:    getEnvAsFloat("GENERATION_TEMPERATURE", 0.7),
		MaxTokens:      getEnvAsInt("GENERATION_MAX_TOKENS", 4000),
		PlanCacheSize:  getEnvAsInt("PLAN_CACHE_SIZE", 100),
		PlanCacheTTL:   getEnvAsInt("PLAN_CACHE_TTL", 300),
		PlansDBPath:    getEnv("PLANS_DB_PATH", "data/db/plans.db"),

		CloudConvertAPIKey:  getEnv("CLOUDCONVERT_API_KEY", ""),
		CloudConvertBaseURL: getEnv("CLOUDCONVERT_BASE_URL", "https://api.cloudconvert.com/v2"),
		PollIntervalSec:     getEnvAsInt("CONVERT_POLL_INTERVAL", 2),
		MaxPolls:            getEnvAsInt("CONVERT_MAX_POLLS", 30),
		DefaultScale:        getEnvAsFloat("EXPORT_SCALE", 10),
		ExportCacheSize:     getEnvAsInt("EXPORT_CACHE_SIZE", 50),
		ExportCacheTTL:      getEnvAsInt("EXPORT_CACHE_TTL", 300),
		ExportStorageRoot:   getEnv("EXPORT_STORAGE_ROOT", "data/exports"),
	}
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultVal
}
