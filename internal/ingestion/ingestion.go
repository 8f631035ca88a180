// Package ingestion keeps the stored candle history current. Each market's
// series is disjoint state, so markets are refreshed with bounded parallelism;
// within one market, pages are fetched sequentially, written in batches and
// resumed strictly after the last persisted candle so a crash never loses the
// high-water mark.
package ingestion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"retradeBot/internal/domain"
	"retradeBot/internal/ports"
	"retradeBot/internal/retry"
)

// Config bounds the ingestion workload.
type Config struct {
	BatchSize   int // candles per fetch page and per write batch
	Parallelism int // concurrent markets
	Retry       retry.Config
}

const (
	defaultBatchSize   = 500
	defaultParallelism = 4
)

// Service refreshes candle series from the exchange into the repository.
type Service struct {
	logger   ports.Logger
	exchange ports.ExchangeClient
	candles  ports.CandleRepository
	cfg      Config
}

// New creates the ingestion service.
func New(cfg Config, logger ports.Logger, exchange ports.ExchangeClient, candles ports.CandleRepository) (*Service, error) {
	if logger == nil || exchange == nil || candles == nil {
		return nil, fmt.Errorf("missing required dependencies for ingestion service")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = defaultParallelism
	}
	if cfg.Retry.Attempts == 0 {
		cfg.Retry = retry.DefaultConfig
	}
	return &Service{logger: logger, exchange: exchange, candles: candles, cfg: cfg}, nil
}

// UpdateAll refreshes every given market over a bounded worker pool.
// A failure on one market is logged and does not stop the others.
func (s *Service) UpdateAll(ctx context.Context, markets []*domain.Market, timeframe domain.Timeframe) error {
	jobs := make(chan *domain.Market)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var failed int

	for w := 0; w < s.cfg.Parallelism; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for market := range jobs {
				if err := s.UpdateMarket(ctx, market, timeframe); err != nil {
					s.logger.Error(ctx, err, "candle update failed", map[string]interface{}{"symbol": market.Symbol()})
					mu.Lock()
					failed++
					mu.Unlock()
				}
			}
		}()
	}

	for _, market := range markets {
		select {
		case jobs <- market:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return ctx.Err()
		}
	}
	close(jobs)
	wg.Wait()

	if failed > 0 {
		return fmt.Errorf("candle update failed for %d of %d markets", failed, len(markets))
	}
	return nil
}

// UpdateMarket pages new candles for one market, resuming strictly after the
// last persisted candle's timestamp and writing each page in one batch.
func (s *Service) UpdateMarket(ctx context.Context, market *domain.Market, timeframe domain.Timeframe) error {
	last, err := s.candles.LastCandle(ctx, market.ID, timeframe)
	if err != nil {
		return fmt.Errorf("failed to read candle high-water mark: %w", err)
	}

	var since *time.Time
	highWater := time.Time{}
	if last != nil {
		highWater = last.Timestamp
		after := last.Timestamp.Add(time.Millisecond)
		since = &after
	}

	for {
		var page []*domain.Candle
		err := retry.Do(ctx, s.cfg.Retry, func(ctx context.Context) error {
			var ferr error
			page, ferr = s.exchange.FetchCandles(ctx, market, timeframe, since, s.cfg.BatchSize)
			return ferr
		})
		if err != nil {
			return fmt.Errorf("failed to fetch candles for %s: %w", market.Symbol(), err)
		}

		// Exchanges may echo the boundary candle back; keep strictly newer ones.
		fresh := page[:0]
		for _, c := range page {
			if c.Timestamp.After(highWater) {
				c.MarketID = market.ID
				c.Timeframe = timeframe
				fresh = append(fresh, c)
			}
		}
		if len(fresh) == 0 {
			return nil
		}

		if err := s.candles.InsertCandles(ctx, fresh); err != nil {
			return fmt.Errorf("failed to store candle batch for %s: %w", market.Symbol(), err)
		}

		highWater = fresh[len(fresh)-1].Timestamp
		after := highWater.Add(time.Millisecond)
		since = &after

		s.logger.Debug(ctx, "candle batch stored", map[string]interface{}{
			"symbol": market.Symbol(), "count": len(fresh), "upTo": highWater,
		})

		if len(page) < s.cfg.BatchSize {
			return nil
		}
	}
}
