// Package simulation replays the ping-pong strategy over historical candle
// windows, entirely offline, and aggregates return-on-investment statistics
// per (market, minProfit, window length) combination. Every run reads only
// immutable candles and produces exactly one independent output row, which is
// what makes the sweep embarrassingly parallel.
package simulation

import (
	"github.com/shopspring/decimal"

	"retradeBot/internal/domain"
)

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// syntheticOrder is the single in-flight order of a simulated chain. A buy
// carries a quote-currency notional, a sell carries a base-currency amount,
// mirroring what each side would lock on a real exchange.
type syntheticOrder struct {
	side   domain.OrderSide
	price  decimal.Decimal
	amount decimal.Decimal
}

// replayWindow simulates one ping-pong chain over the given candles and
// returns the ROI percentage of the terminal position against the seed.
// The seed is quote-currency notional; the starting state is a synthetic buy
// at the first candle's low.
func replayWindow(market *domain.Market, candles []*domain.Candle, minProfit, seed, feePercent decimal.Decimal) decimal.Decimal {
	order := syntheticOrder{
		side:   domain.SideBuy,
		price:  candles[0].Low,
		amount: seed,
	}

	profitUp := one.Add(minProfit.DivRound(hundred, 28))
	profitDown := one.Sub(minProfit.DivRound(hundred, 28))
	feeFrac := feePercent.DivRound(hundred, 28)

	for _, tick := range candles {
		switch order.side {
		case domain.SideBuy:
			if order.price.LessThanOrEqual(tick.Low) {
				base := order.amount.DivRound(order.price, 28)
				base = base.Sub(base.Mul(feeFrac))
				sellPrice := order.price.Mul(profitUp)
				if sellPrice.GreaterThan(market.LimitsPriceMax) {
					sellPrice = market.LimitsPriceMax
				}
				order = syntheticOrder{side: domain.SideSell, price: sellPrice, amount: base}
			}
		case domain.SideSell:
			if order.price.GreaterThanOrEqual(tick.High) {
				quote := order.amount.Mul(order.price)
				quote = quote.Sub(quote.Mul(feeFrac))
				buyPrice := order.price.Mul(profitDown)
				if buyPrice.LessThan(market.LimitsPriceMin) {
					buyPrice = market.LimitsPriceMin
				}
				order = syntheticOrder{side: domain.SideBuy, price: buyPrice, amount: quote}
			}
		}
	}

	// Convert the terminal position back to the seed currency at the final
	// close to obtain one ROI sample.
	finalValue := order.amount
	if order.side == domain.SideSell {
		finalValue = order.amount.Mul(candles[len(candles)-1].Close)
	}
	return finalValue.Sub(seed).DivRound(seed, 28).Mul(hundred)
}
