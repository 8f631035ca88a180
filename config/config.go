package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"retradeBot/internal/adapters/logger" // Import the logger package for LogLevel
)

// Config holds all application configuration.
type Config struct {
	// Binance API
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Trading cycle
	CycleInterval  time.Duration // Delay between full strategy passes
	DefaultFeeRate decimal.Decimal
	Timeframe      string // Candle timeframe used by the live trader

	// Retry policy for transport failures
	RetryAttempts int
	RetryDelay    time.Duration

	// Candle ingestion
	IngestBatchSize   int
	IngestParallelism int

	// Database
	DBPath string

	// Logging
	LogLevel logger.LogLevel // Use the LogLevel type from the logger adapter
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	cfg.IsTestnet = getEnvAsBool("IS_TESTNET", true) // Default to testnet for safety

	if cfg.APIKey == "" {
		errs = append(errs, "BINANCE_API_KEY must be set")
	}
	if cfg.SecretKey == "" {
		errs = append(errs, "BINANCE_API_SECRET must be set")
	}

	// Trading cycle
	cycleSeconds := getEnvAsInt("CYCLE_INTERVAL_SECONDS", 60)
	if cycleSeconds <= 0 {
		errs = append(errs, "CYCLE_INTERVAL_SECONDS must be positive")
	}
	cfg.CycleInterval = time.Duration(cycleSeconds) * time.Second

	feeRateStr := getEnv("DEFAULT_FEE_RATE", "0.1")
	cfg.DefaultFeeRate, err = decimal.NewFromString(feeRateStr)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid DEFAULT_FEE_RATE: %v", err))
	} else if cfg.DefaultFeeRate.IsNegative() {
		errs = append(errs, "DEFAULT_FEE_RATE cannot be negative")
	}

	cfg.Timeframe = getEnv("TIMEFRAME", "1m")
	if cfg.Timeframe == "" {
		errs = append(errs, "TIMEFRAME must be set")
	}

	// Retry policy
	cfg.RetryAttempts = getEnvAsInt("RETRY_ATTEMPTS", 5)
	if cfg.RetryAttempts <= 0 {
		errs = append(errs, "RETRY_ATTEMPTS must be positive")
	}
	retryDelaySeconds := getEnvAsInt("RETRY_DELAY_SECONDS", 30)
	if retryDelaySeconds <= 0 {
		errs = append(errs, "RETRY_DELAY_SECONDS must be positive")
	}
	cfg.RetryDelay = time.Duration(retryDelaySeconds) * time.Second

	// Candle ingestion
	cfg.IngestBatchSize = getEnvAsInt("INGEST_BATCH_SIZE", 500)
	if cfg.IngestBatchSize <= 0 {
		errs = append(errs, "INGEST_BATCH_SIZE must be positive")
	}
	cfg.IngestParallelism = getEnvAsInt("INGEST_PARALLELISM", 4)
	if cfg.IngestParallelism <= 0 {
		errs = append(errs, "INGEST_PARALLELISM must be positive")
	}

	// Database
	cfg.DBPath = getEnv("DB_PATH", "./data/retrade_bot.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr) // Use the parser from the logger package

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		// Log warning? For non-required fields, default is often acceptable.
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
