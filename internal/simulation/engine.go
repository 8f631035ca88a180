package simulation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"retradeBot/internal/domain"
	"retradeBot/internal/ports"
)

// Config holds the sweep parameters supplied by the operator.
type Config struct {
	MinProfits []decimal.Decimal // candidate minProfit percentages
	WindowLens []int             // candles per simulated window
	SeedAmount decimal.Decimal   // quote notional seeding each run
	FeePercent decimal.Decimal   // flat fee applied on every simulated fill
	StartStep  int               // sliding offset between window starts
	Workers    int               // bounded pool size
}

const (
	defaultWorkers   = 4
	defaultStartStep = 1000
	defaultFee       = "0.1"
)

// Engine drives the parameter sweep: one job per (market, minProfit,
// windowLen), distributed over a bounded worker pool. Jobs share only
// immutable candle slices and each writes exactly one result row, so no
// locking is needed beyond the job queue itself.
type Engine struct {
	logger  ports.Logger
	candles ports.CandleRepository
	results ports.SimulationRepository
	cfg     Config
}

// NewEngine validates the sweep configuration and creates the engine.
func NewEngine(cfg Config, logger ports.Logger, candles ports.CandleRepository, results ports.SimulationRepository) (*Engine, error) {
	if logger == nil || candles == nil || results == nil {
		return nil, fmt.Errorf("missing required dependencies for simulation engine")
	}
	if len(cfg.MinProfits) == 0 {
		return nil, fmt.Errorf("at least one minProfit value is required")
	}
	if len(cfg.WindowLens) == 0 {
		return nil, fmt.Errorf("at least one window length is required")
	}
	if !cfg.SeedAmount.IsPositive() {
		return nil, fmt.Errorf("seed amount must be positive")
	}
	if cfg.FeePercent.IsZero() {
		cfg.FeePercent = decimal.RequireFromString(defaultFee)
	}
	if cfg.StartStep <= 0 {
		cfg.StartStep = defaultStartStep
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}
	return &Engine{logger: logger, candles: candles, results: results, cfg: cfg}, nil
}

type job struct {
	market    *domain.Market
	candles   []*domain.Candle
	minProfit decimal.Decimal
	windowLen int
}

// Run sweeps every (market, minProfit, windowLen) combination and persists
// one SimulationResult per combination that produced at least one sample.
func (e *Engine) Run(ctx context.Context, markets []*domain.Market, timeframe domain.Timeframe) error {
	jobs := make(chan job)
	var wg sync.WaitGroup
	var failed int64
	var mu sync.Mutex

	for w := 0; w < e.cfg.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := e.runJob(ctx, j); err != nil {
					e.logger.Error(ctx, err, "simulation run failed", map[string]interface{}{
						"symbol": j.market.Symbol(), "minProfit": j.minProfit.String(), "windowLen": j.windowLen,
					})
					mu.Lock()
					failed++
					mu.Unlock()
				}
			}
		}()
	}

	total := 0
	for _, market := range markets {
		series, err := e.candles.FindCandles(ctx, market.ID, timeframe)
		if err != nil {
			close(jobs)
			wg.Wait()
			return fmt.Errorf("failed to load candles for %s: %w", market.Symbol(), err)
		}
		if len(series) == 0 {
			e.logger.Warn(ctx, "no candle history for market, skipping", map[string]interface{}{"symbol": market.Symbol()})
			continue
		}
		for _, minProfit := range e.cfg.MinProfits {
			for _, windowLen := range e.cfg.WindowLens {
				select {
				case jobs <- job{market: market, candles: series, minProfit: minProfit, windowLen: windowLen}:
					total++
				case <-ctx.Done():
					close(jobs)
					wg.Wait()
					return ctx.Err()
				}
			}
		}
	}
	close(jobs)
	wg.Wait()

	if failed > 0 {
		return fmt.Errorf("%d of %d simulation runs failed", failed, total)
	}
	e.logger.Info(ctx, "simulation sweep finished", map[string]interface{}{"runs": total})
	return nil
}

// runJob slides windows across the series, collects one ROI sample per
// window and reduces them to min/average/max. A combination whose window is
// longer than the available history yields no samples and is skipped, not
// recorded as zero.
func (e *Engine) runJob(ctx context.Context, j job) error {
	var samples []decimal.Decimal
	for start := 0; start+j.windowLen <= len(j.candles); start += e.cfg.StartStep {
		window := j.candles[start : start+j.windowLen]
		samples = append(samples, replayWindow(j.market, window, j.minProfit, e.cfg.SeedAmount, e.cfg.FeePercent))
	}
	if len(samples) == 0 {
		e.logger.Debug(ctx, "window longer than history, combination skipped", map[string]interface{}{
			"symbol": j.market.Symbol(), "windowLen": j.windowLen, "history": len(j.candles),
		})
		return nil
	}

	sort.Slice(samples, func(a, b int) bool { return samples[a].LessThan(samples[b]) })

	sum := decimal.Zero
	for _, s := range samples {
		sum = sum.Add(s)
	}
	avg := sum.DivRound(decimal.NewFromInt(int64(len(samples))), 28)

	result := &domain.SimulationResult{
		MarketID:  j.market.ID,
		MinProfit: j.minProfit,
		WindowLen: j.windowLen,
		Samples:   len(samples),
		ROIMin:    samples[0],
		ROIAvg:    avg,
		ROIMax:    samples[len(samples)-1],
		StartAt:   j.candles[0].Timestamp,
		EndAt:     j.candles[len(j.candles)-1].Timestamp,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := e.results.CreateSimulationResult(ctx, result); err != nil {
		return fmt.Errorf("failed to persist simulation result: %w", err)
	}
	return nil
}
