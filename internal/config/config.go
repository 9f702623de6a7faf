package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds all environment-driven application configuration. Per-run
// inputs (symbols, cycles, strategy) live in the YAML training plan instead.
type Config struct {
	LogLevel string

	// Market data
	BinanceBaseURL string
	BinanceWSURL   string
	RequestTimeout int // seconds
	RequestsPerSec int

	// Postgres session store (optional, enabled when DBHost is set)
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Influx equity sink (optional, enabled when InfluxURL is set)
	InfluxURL      string
	InfluxUser     string
	InfluxPassword string
	InfluxDatabase string

	// Telegram notifications (optional, enabled when both are set)
	TelegramBotToken string
	TelegramChatID   int64
}

// Load initializes configuration from environment variables.
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")

	cfg.BinanceBaseURL = getEnvWithDefault("BINANCE_BASE_URL", "https://api.binance.com")
	cfg.BinanceWSURL = getEnvWithDefault("BINANCE_WS_URL", "wss://stream.binance.com:9443")
	cfg.RequestTimeout = getEnvIntWithDefault("REQUEST_TIMEOUT", 30)
	cfg.RequestsPerSec = getEnvIntWithDefault("REQUESTS_PER_SEC", 5)

	cfg.DBHost = os.Getenv("DB_HOST")
	cfg.DBPort = getEnvWithDefault("DB_PORT", "5432")
	cfg.DBUser = os.Getenv("DB_USER")
	cfg.DBPassword = os.Getenv("DB_PASSWORD")
	cfg.DBName = getEnvWithDefault("DB_NAME", "bottraining")
	cfg.DBSSLMode = getEnvWithDefault("DB_SSLMODE", "disable")

	cfg.InfluxURL = os.Getenv("INFLUX_URL")
	cfg.InfluxUser = os.Getenv("INFLUX_USER")
	cfg.InfluxPassword = os.Getenv("INFLUX_PASSWORD")
	cfg.InfluxDatabase = getEnvWithDefault("INFLUX_DATABASE", "training")

	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramChatID = getEnvInt64WithDefault("TELEGRAM_CHAT_ID", 0)

	return &cfg, nil
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}
