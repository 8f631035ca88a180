package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"retradeBot/internal/adapters/logger"
	"retradeBot/internal/adapters/sqlite"
	"retradeBot/internal/domain"
	"retradeBot/internal/simulation"
	"retradeBot/internal/utils"
)

// sweepFile is the operator-supplied parameter grid.
type sweepFile struct {
	Symbols    []string `yaml:"symbols"` // slash form, e.g. "TRX/BNB"; empty means all active
	Timeframe  string   `yaml:"timeframe"`
	MinProfits []string `yaml:"min_profits"`
	WindowLens []int    `yaml:"window_lens"`
	SeedAmount string   `yaml:"seed_amount"`
	FeePercent string   `yaml:"fee_percent"`
	StartStep  int      `yaml:"start_step"`
	Workers    int      `yaml:"workers"`
}

func main() {
	sweepPath := flag.String("sweep", "sweep.yaml", "path to the sweep parameter file")
	dbPath := flag.String("db", "./data/retrade_bot.db", "path to the SQLite database")
	csvPath := flag.String("csv", "", "optional CSV export path for this run's results")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	ctx := context.Background()

	appLogger, err := logger.NewZapLogger(*logLevel)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	cfg, timeframe, symbols, err := loadSweep(*sweepPath)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to load sweep file")
		os.Exit(1)
	}

	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: *dbPath, Logger: appLogger})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize database")
		os.Exit(1)
	}
	defer repo.Close()

	markets, err := selectMarkets(ctx, repo, symbols)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to select markets")
		os.Exit(1)
	}
	if len(markets) == 0 {
		appLogger.Error(ctx, fmt.Errorf("no matching active markets"), "FATAL: nothing to simulate")
		os.Exit(1)
	}

	engine, err := simulation.NewEngine(cfg, appLogger, repo, repo)
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize simulation engine")
		os.Exit(1)
	}

	startedAt := time.Now().UTC()
	if err := engine.Run(ctx, markets, timeframe); err != nil {
		appLogger.Error(ctx, err, "Simulation sweep finished with failures")
	}

	if *csvPath != "" {
		if err := exportCSV(ctx, repo, markets, startedAt, *csvPath); err != nil {
			appLogger.Error(ctx, err, "Failed to export results")
			os.Exit(1)
		}
		appLogger.Info(ctx, "Results exported", map[string]interface{}{"path": *csvPath})
	}
}

// loadSweep parses and validates the YAML grid into an engine configuration.
func loadSweep(path string) (simulation.Config, domain.Timeframe, []string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return simulation.Config{}, "", nil, fmt.Errorf("failed to read sweep file: %w", err)
	}
	var sweep sweepFile
	if err := yaml.Unmarshal(raw, &sweep); err != nil {
		return simulation.Config{}, "", nil, fmt.Errorf("failed to parse sweep file: %w", err)
	}

	cfg := simulation.Config{
		WindowLens: sweep.WindowLens,
		StartStep:  sweep.StartStep,
		Workers:    sweep.Workers,
	}
	for _, mp := range sweep.MinProfits {
		v, err := decimal.NewFromString(mp)
		if err != nil {
			return simulation.Config{}, "", nil, fmt.Errorf("invalid min_profit %q: %w", mp, err)
		}
		cfg.MinProfits = append(cfg.MinProfits, v)
	}
	if sweep.SeedAmount != "" {
		if cfg.SeedAmount, err = decimal.NewFromString(sweep.SeedAmount); err != nil {
			return simulation.Config{}, "", nil, fmt.Errorf("invalid seed_amount %q: %w", sweep.SeedAmount, err)
		}
	}
	if sweep.FeePercent != "" {
		if cfg.FeePercent, err = decimal.NewFromString(sweep.FeePercent); err != nil {
			return simulation.Config{}, "", nil, fmt.Errorf("invalid fee_percent %q: %w", sweep.FeePercent, err)
		}
	}

	timeframe := domain.Timeframe(sweep.Timeframe)
	if timeframe == "" {
		timeframe = domain.Timeframe1m
	}
	return cfg, timeframe, sweep.Symbols, nil
}

// selectMarkets narrows the active markets to the sweep's symbol filter.
func selectMarkets(ctx context.Context, repo *sqlite.Repository, symbols []string) ([]*domain.Market, error) {
	active, err := repo.FindActiveMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active markets: %w", err)
	}
	if len(symbols) == 0 {
		return active, nil
	}

	wanted := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		wanted[s] = true
	}
	var selected []*domain.Market
	for _, m := range active {
		if wanted[m.Symbol()] {
			selected = append(selected, m)
		}
	}
	return selected, nil
}

func exportCSV(ctx context.Context, repo *sqlite.Repository, markets []*domain.Market, since time.Time, path string) error {
	results, err := repo.FindSimulationResultsSince(ctx, since)
	if err != nil {
		return fmt.Errorf("failed to load results: %w", err)
	}
	symbols := make(map[int64]string, len(markets))
	for _, m := range markets {
		symbols[m.ID] = m.Symbol()
	}
	return utils.WriteSimulationResultsToCSV(results, symbols, path)
}
