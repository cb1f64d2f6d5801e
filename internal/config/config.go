package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries everything the completion stack and the agents need.
// Values come from the environment here and may be overridden by CLI
// flags; no other package reads ambient environment state.
type Config struct {
	Provider    string
	Model       string
	Temperature float64
	MaxTokens   int

	MaxRetries  int
	BackoffBase time.Duration
	BackoffCap  time.Duration

	LogLevel    string
	RedisURL    string
	ArchivePath string
	CacheTTL    time.Duration
	BudgetUSD   float64

	Workspace string
	AWSRegion string
	SecretID  string
}

func Load() (*Config, error) {
	cfg := &Config{
		Provider:    getEnv("AGENTLAB_PROVIDER", "deepseek"),
		Model:       getEnv("AGENTLAB_MODEL", "deepseek-chat"),
		Temperature: getFloatEnv("AGENTLAB_TEMPERATURE", 0.7),
		MaxTokens:   getIntEnv("AGENTLAB_MAX_TOKENS", 4096),
		MaxRetries:  getIntEnv("AGENTLAB_MAX_RETRIES", 5),
		BackoffBase: getMillisEnv("AGENTLAB_BACKOFF_BASE_MS", time.Second),
		BackoffCap:  getMillisEnv("AGENTLAB_BACKOFF_CAP_MS", 30*time.Second),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		RedisURL:    getEnv("REDIS_URL", ""),
		ArchivePath: getEnv("AGENTLAB_ARCHIVE_PATH", ""),
		CacheTTL:    getMillisEnv("AGENTLAB_CACHE_TTL_MS", 5*60*1000*time.Millisecond),
		BudgetUSD:   getFloatEnv("AGENTLAB_BUDGET_USD", 0),
		Workspace:   getEnv("AGENTLAB_WORKSPACE", "."),
		AWSRegion:   getEnv("AWS_REGION", ""),
		SecretID:    getEnv("AGENTLAB_SECRET_ID", ""),
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getMillisEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.Atoi(value); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}
