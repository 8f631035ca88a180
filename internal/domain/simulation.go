package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SimulationResult aggregates the ROI samples of one (market, minProfit,
// window length) backtest sweep. Rows are output-only and never mutated.
type SimulationResult struct {
	ID        int64
	MarketID  int64
	MinProfit decimal.Decimal // percent per retrade
	WindowLen int             // candles per simulated window
	Samples   int             // number of windows that produced a ROI sample
	ROIMin    decimal.Decimal // percent
	ROIAvg    decimal.Decimal // percent
	ROIMax    decimal.Decimal // percent
	StartAt   time.Time       // first candle of the replayed series
	EndAt     time.Time       // last candle of the replayed series
	CreatedAt time.Time
}
