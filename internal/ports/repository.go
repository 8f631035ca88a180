package ports

import (
	"context"
	"time"

	"retradeBot/internal/domain"
)

// MarketRepository defines storage access for market metadata.
type MarketRepository interface {
	// CreateMarket saves a new market and returns its assigned ID.
	CreateMarket(ctx context.Context, m *domain.Market) (int64, error)
	// FindMarketByID retrieves a market by ID. Returns nil, nil if not found.
	FindMarketByID(ctx context.Context, id int64) (*domain.Market, error)
	// FindMarketBySymbol retrieves a market by base/quote pair.
	// Returns nil, nil if not found.
	FindMarketBySymbol(ctx context.Context, base, quote string) (*domain.Market, error)
	// FindActiveMarkets retrieves all markets flagged active.
	FindActiveMarkets(ctx context.Context) ([]*domain.Market, error)
}

// OrderRepository defines storage access for orders and their retrade chain.
type OrderRepository interface {
	// CreateOrder saves a new order and returns its assigned ID.
	CreateOrder(ctx context.Context, o *domain.Order) (int64, error)
	// UpdateOrder modifies an existing order.
	UpdateOrder(ctx context.Context, o *domain.Order) error
	// FindOrderByID retrieves an order by ID. Returns nil, nil if not found.
	FindOrderByID(ctx context.Context, id int64) (*domain.Order, error)
	// FindRetradeCandidates retrieves closed orders without a successor,
	// belonging to active bots of the given mode.
	FindRetradeCandidates(ctx context.Context, mode domain.BotMode) ([]*domain.Order, error)
	// FindOpenPositions retrieves a bot's held positions: closed buy orders
	// without a successor.
	FindOpenPositions(ctx context.Context, botID int64) ([]*domain.Order, error)
	// FindOrdersByStatus retrieves all orders in the given status.
	FindOrdersByStatus(ctx context.Context, status domain.OrderStatus) ([]*domain.Order, error)
}

// BotRepository defines storage access for bot configuration.
type BotRepository interface {
	// CreateBot saves a new bot and returns its assigned ID.
	CreateBot(ctx context.Context, b *domain.Bot) (int64, error)
	// UpdateBot modifies an existing bot (e.g. deactivation).
	UpdateBot(ctx context.Context, b *domain.Bot) error
	// FindBotByID retrieves a bot by ID. Returns nil, nil if not found.
	FindBotByID(ctx context.Context, id int64) (*domain.Bot, error)
	// FindActiveBotsByMode retrieves active bots running the given strategy.
	FindActiveBotsByMode(ctx context.Context, mode domain.BotMode) ([]*domain.Bot, error)
}

// CandleRepository defines storage access for historical candles.
type CandleRepository interface {
	// InsertCandles writes a batch of candles in one transaction, skipping
	// duplicates on (market, timeframe, timestamp).
	InsertCandles(ctx context.Context, candles []*domain.Candle) error
	// LastCandle retrieves the most recent candle for a market and timeframe.
	// Returns nil, nil if no candle is stored yet.
	LastCandle(ctx context.Context, marketID int64, timeframe domain.Timeframe) (*domain.Candle, error)
	// FindCandles retrieves all candles for a market and timeframe, ordered
	// by timestamp ascending.
	FindCandles(ctx context.Context, marketID int64, timeframe domain.Timeframe) ([]*domain.Candle, error)
}

// SavingRepository records leftover amounts set aside by the strategies.
type SavingRepository interface {
	// CreateSaving appends a saving record; records are never mutated.
	CreateSaving(ctx context.Context, s *domain.SavingRecord) (int64, error)
}

// ErrorLogRepository records failed retrade attempts.
type ErrorLogRepository interface {
	// CreateErrorLog appends an error log row for a failed attempt.
	CreateErrorLog(ctx context.Context, e *domain.OrderErrorLog) (int64, error)
}

// SimulationRepository stores backtest output rows.
type SimulationRepository interface {
	// CreateSimulationResult appends one aggregated sweep result.
	CreateSimulationResult(ctx context.Context, r *domain.SimulationResult) (int64, error)
	// FindSimulationResultsSince retrieves results created at or after the
	// given time, ordered by market and parameters.
	FindSimulationResultsSince(ctx context.Context, since time.Time) ([]*domain.SimulationResult, error)
}
