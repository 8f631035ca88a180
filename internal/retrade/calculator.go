// Package retrade computes the successor order generated when a prior order
// fills. The amount that can be re-traded is the filled amount net of fees,
// converted to the counter side where needed, snapped to the market's lot
// size and quantized into the tradable band. All rounding is toward zero:
// the calculator never invents amount the exchange does not hold.
package retrade

import (
	"github.com/shopspring/decimal"

	"retradeBot/internal/domain"
	"retradeBot/internal/ports"
)

var hundred = decimal.NewFromInt(100)

// workingPrecision is the number of fractional digits carried through the
// sell-side conversion before the final truncation. Keeping it well above
// the 8 digits exchanges use avoids double-rounding artifacts.
const workingPrecision = 28

// FeeRate resolves the fee percentage for an order: the order's own rate when
// the exchange reported one, otherwise the owning bot's default.
func FeeRate(order *domain.Order, botDefault decimal.Decimal) decimal.Decimal {
	if order.FeeRate != nil {
		return *order.FeeRate
	}
	return botDefault
}

// Amount computes the quantized amount for the counter order of a filled
// order, given the strategy-supplied reference price. A zero result signals
// that the chain terminates: the remainder is below the market minimum.
//
// Reference prices outside the market's price band are rejected with
// ports.ErrPriceBelowMinimum or ports.ErrPriceAboveMaximum and are never
// retried; the band check also guarantees the division below is by a
// strictly positive price.
func Amount(market *domain.Market, order *domain.Order, referencePrice, botDefaultFeeRate decimal.Decimal) (decimal.Decimal, error) {
	if referencePrice.LessThan(market.LimitsPriceMin) {
		return decimal.Zero, ports.ErrPriceBelowMinimum
	}
	if referencePrice.GreaterThan(market.LimitsPriceMax) {
		return decimal.Zero, ports.ErrPriceAboveMaximum
	}

	feeRate := FeeRate(order, botDefaultFeeRate)

	// Fee is deducted in the order's own amount unit, which is always base
	// currency regardless of side.
	net := order.Amount.Sub(order.Amount.Mul(feeRate).DivRound(hundred, workingPrecision))

	// A filled sell leaves quote-currency proceeds; convert them into the
	// counter buy amount at the new price.
	if order.Side == domain.SideSell {
		net = net.Mul(order.Price).DivRound(referencePrice, workingPrecision)
	}

	// Lot-size snapping: round down to the nearest multiple of the minimum
	// tradable increment.
	if market.LimitsAmountMin.IsPositive() {
		net = net.Sub(net.Mod(market.LimitsAmountMin))
	}

	return market.ClampAndQuantizeAmount(net), nil
}
