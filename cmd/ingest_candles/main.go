package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"retradeBot/config"
	"retradeBot/internal/adapters/binanceclient"
	"retradeBot/internal/adapters/logger"
	"retradeBot/internal/adapters/sqlite"
	"retradeBot/internal/domain"
	"retradeBot/internal/ingestion"
	"retradeBot/internal/retry"
)

func main() {
	timeframeFlag := flag.String("timeframe", "", "candle timeframe to ingest (defaults to TIMEFRAME from the environment)")
	flag.Parse()

	ctx := context.Background()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger, err := logger.NewZapLogger("info")
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	// 3. Initialize Repository (SQLite Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize database")
		os.Exit(1)
	}
	defer repo.Close()

	// 4. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
		os.Exit(1)
	}

	// 5. Run the ingestion pass over all active markets
	service, err := ingestion.New(ingestion.Config{
		BatchSize:   cfg.IngestBatchSize,
		Parallelism: cfg.IngestParallelism,
		Retry:       retry.Config{Attempts: cfg.RetryAttempts, Delay: cfg.RetryDelay},
	}, appLogger, binanceClient, repo)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize ingestion service")
		os.Exit(1)
	}

	markets, err := repo.FindActiveMarkets(ctx)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to load markets")
		os.Exit(1)
	}
	if len(markets) == 0 {
		appLogger.Error(ctx, fmt.Errorf("no active markets"), "FATAL: nothing to ingest")
		os.Exit(1)
	}

	timeframe := domain.Timeframe(cfg.Timeframe)
	if *timeframeFlag != "" {
		timeframe = domain.Timeframe(*timeframeFlag)
	}

	if err := service.UpdateAll(ctx, markets, timeframe); err != nil {
		appLogger.Error(ctx, err, "Candle ingestion finished with failures")
		os.Exit(1)
	}
	appLogger.Info(ctx, "Candle ingestion finished", map[string]interface{}{
		"markets": len(markets), "timeframe": string(timeframe),
	})
}
