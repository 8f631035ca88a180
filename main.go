package main

import (
	"context"
	"log"

	"retradeBot/config"
	"retradeBot/internal/adapters/binanceclient"
	"retradeBot/internal/adapters/logger"
	"retradeBot/internal/adapters/sqlite"
	"retradeBot/internal/app"
	"retradeBot/internal/retry"
	"retradeBot/internal/strategy/momentum"
	"retradeBot/internal/strategy/pingpong"
)

func main() {
	ctx := context.Background()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Repository (SQLite Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize database")
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	defer repo.Close()
	appLogger.Info(ctx, "Database initialized", map[string]interface{}{"path": cfg.DBPath})

	// 4. Initialize Exchange Client (Binance Adapter)
	// The symbol map lets the client key tickers by the slash form the core
	// uses everywhere else.
	markets, err := repo.FindActiveMarkets(ctx)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to load markets")
		log.Fatalf("FATAL: Failed to load markets: %v", err)
	}
	symbols := make(map[string]string, len(markets))
	for _, m := range markets {
		symbols[m.ExchangeSymbol()] = m.Symbol()
	}

	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
		Symbols:    symbols,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	appLogger.Info(ctx, "Binance client initialized")

	// 5. Initialize Strategies
	retryCfg := retry.Config{Attempts: cfg.RetryAttempts, Delay: cfg.RetryDelay}

	pingPong, err := pingpong.New(pingpong.Deps{
		Logger:   appLogger,
		Exchange: binanceClient,
		Orders:   repo,
		Bots:     repo,
		Markets:  repo,
		Savings:  repo,
		ErrLog:   repo,
		Retry:    retryCfg,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize ping-pong strategy")
		log.Fatalf("FATAL: Failed to initialize ping-pong strategy: %v", err)
	}

	rising, err := momentum.New(momentum.Deps{
		Logger:   appLogger,
		Exchange: binanceClient,
		Orders:   repo,
		Bots:     repo,
		Markets:  repo,
		Retry:    retryCfg,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize momentum strategy")
		log.Fatalf("FATAL: Failed to initialize momentum strategy: %v", err)
	}

	// 6. Initialize and start the application service
	service, err := app.NewTradingService(cfg, appLogger, binanceClient, repo, repo, pingPong, rising)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize trading service")
		log.Fatalf("FATAL: Failed to initialize trading service: %v", err)
	}

	if err := service.Start(ctx); err != nil {
		appLogger.Error(ctx, err, "Trading service exited with error")
		log.Fatalf("Trading service exited with error: %v", err)
	}
}
