package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Market describes a tradable currency pair together with the exchange-imposed
// precision and min/max band for prices and amounts.
// Metadata is immutable after creation except for periodic refresh from the
// exchange, which happens outside this package.
type Market struct {
	ID              int64
	Base            string // base currency short code, e.g. "TRX"
	Quote           string // quote currency short code, e.g. "BNB"
	Exchange        string
	Active          bool
	PrecisionAmount int // decimal digits allowed in an order amount
	PrecisionPrice  int // decimal digits allowed in an order price
	LimitsAmountMin decimal.Decimal
	LimitsAmountMax decimal.Decimal
	LimitsPriceMin  decimal.Decimal
	LimitsPriceMax  decimal.Decimal
}

// Symbol returns the market symbol in BASE/QUOTE form, e.g. "TRX/BNB".
func (m *Market) Symbol() string {
	return strings.ToUpper(m.Base) + "/" + strings.ToUpper(m.Quote)
}

// ExchangeSymbol returns the concatenated form used by exchange APIs, e.g. "TRXBNB".
func (m *Market) ExchangeSymbol() string {
	return strings.ToUpper(m.Base) + strings.ToUpper(m.Quote)
}

// ClampPrice forces a price into the market's tradable price band.
// Prices are clamped but never quantized; they are compared as-is.
func (m *Market) ClampPrice(price decimal.Decimal) decimal.Decimal {
	if price.LessThan(m.LimitsPriceMin) {
		return m.LimitsPriceMin
	}
	if price.GreaterThan(m.LimitsPriceMax) {
		return m.LimitsPriceMax
	}
	return price
}

// ClampAndQuantizeAmount converts an arbitrary amount into a valid order
// amount for this market. Amounts below the minimum collapse to exactly zero
// ("no tradable amount"), amounts above the maximum are capped, and the result
// is truncated to PrecisionAmount fractional digits. Truncation rounds toward
// zero, never up: the exchange will not honour amount that does not exist.
func (m *Market) ClampAndQuantizeAmount(amount decimal.Decimal) decimal.Decimal {
	if amount.LessThan(m.LimitsAmountMin) {
		return decimal.Zero
	}
	if amount.GreaterThan(m.LimitsAmountMax) {
		amount = m.LimitsAmountMax
	}
	return amount.Truncate(int32(m.PrecisionAmount))
}
