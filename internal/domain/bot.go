package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BotMode selects which strategy a bot runs. Each mode carries its own
// parameter set; the strategies switch exhaustively on this value.
type BotMode string

const (
	// ModePingPong chains alternating buy/sell orders on one pinned market.
	ModePingPong BotMode = "ping-pong"
	// ModeMomentum opens positions on rising tickers and exits on a trailing stop.
	ModeMomentum BotMode = "momentum"
)

// Bot is one configured trading bot. Ping-pong bots are pinned to a market and
// timeframe with a MinProfit target; momentum bots float over every market
// quoted in QuoteCurrency, bounded by MaxAmount, MinRise and StopLoss.
type Bot struct {
	ID      int64
	Account string
	Mode    BotMode
	Active  bool
	Created time.Time

	// DefaultFeeRate is the fee percentage assumed when an order carries no
	// explicit fee rate of its own.
	DefaultFeeRate decimal.Decimal

	// Ping-pong parameters.
	MarketID  *int64
	Timeframe Timeframe
	MinProfit decimal.Decimal // percent target per retrade

	// Momentum parameters.
	QuoteCurrency string
	MaxAmount     decimal.Decimal  // cap on quote notional per position
	MinRise       *decimal.Decimal // percent 24h change entry threshold
	StopLoss      *decimal.Decimal // percent change vs. trailing tick, usually negative
}
