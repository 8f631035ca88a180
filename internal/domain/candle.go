package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Timeframe is a candle interval identifier as used by exchange APIs.
type Timeframe string

const (
	Timeframe1m Timeframe = "1m"
	Timeframe1h Timeframe = "1h"
	Timeframe1d Timeframe = "1d"
	Timeframe1M Timeframe = "1M"
)

// Candle is a single OHLCV data point. Candles are immutable once written and
// totally ordered by Timestamp within a (market, timeframe) partition.
type Candle struct {
	ID        int64
	MarketID  int64
	Timeframe Timeframe
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}
