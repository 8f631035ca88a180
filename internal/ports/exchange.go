package ports

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"retradeBot/internal/domain"
)

// Ticker is one entry of the exchange's 24h ticker snapshot.
type Ticker struct {
	Symbol     string          // market symbol, e.g. "TRX/BNB"
	Last       decimal.Decimal // last traded price
	Bid        decimal.Decimal
	Ask        decimal.Decimal
	Percentage decimal.Decimal // 24h change in percent
}

// ExchangeClient defines the interface for interacting with a spot exchange.
// Every call is a potential blocking point: implementations surface transport
// failures as ErrTimeout/ErrExchangeUnavailable so callers can apply the
// bounded retry policy, and business failures as ErrInsufficientFunds/
// ErrInvalidOrder which are terminal for the attempt.
type ExchangeClient interface {
	// SubmitOrder places an order and returns the exchange's view of it.
	// The returned order is not yet persisted and carries no ID.
	SubmitOrder(ctx context.Context, market *domain.Market, side domain.OrderSide, typ domain.OrderType, amount, price decimal.Decimal) (*domain.Order, error)

	// FetchOrder retrieves the current state of a previously placed order.
	FetchOrder(ctx context.Context, market *domain.Market, exchangeOrderID string) (*domain.Order, error)

	// FetchCandles retrieves historical candles for a market, oldest first.
	// A nil since means "most recent"; limit bounds the page size.
	FetchCandles(ctx context.Context, market *domain.Market, timeframe domain.Timeframe, since *time.Time, limit int) ([]*domain.Candle, error)

	// FetchTickers retrieves the 24h ticker snapshot for all markets,
	// keyed by symbol.
	FetchTickers(ctx context.Context) (map[string]Ticker, error)

	// FetchBalance retrieves the free balance for one currency.
	FetchBalance(ctx context.Context, currency string) (decimal.Decimal, error)
}
