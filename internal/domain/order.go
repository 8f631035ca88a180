package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide represents the side of an order (buy or sell).
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// Opposite returns the counter side, used when chaining a retrade.
func (s OrderSide) Opposite() OrderSide {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// OrderType represents the execution type of an order.
type OrderType string

const (
	TypeLimit  OrderType = "limit"
	TypeMarket OrderType = "market"
)

// OrderStatus represents the lifecycle status of an order.
// An order is created open, moves to closed only via the exchange status
// refresh, and NotMinNotional is the terminal state of an exhausted chain.
type OrderStatus string

const (
	StatusOpen           OrderStatus = "open"
	StatusClosed         OrderStatus = "closed"
	StatusCanceled       OrderStatus = "canceled"
	StatusExpired        OrderStatus = "expired"
	StatusRejected       OrderStatus = "rejected"
	StatusNotMinNotional OrderStatus = "not-min-notional"
)

// Order models one exchange order, shaped after the ccxt order structure.
// Price is quote-currency denominated; Amount and Filled are always base
// currency, regardless of side. NextOrderID links to the retrade successor:
// the chain is a forward-only arena of order rows, never a back reference.
type Order struct {
	ID              int64
	BotID           int64
	MarketID        int64
	ExchangeOrderID string
	Timestamp       time.Time
	Status          OrderStatus
	Type            OrderType
	Side            OrderSide
	Price           decimal.Decimal
	Amount          decimal.Decimal
	Filled          decimal.Decimal
	FeeCurrency     string
	FeeCost         decimal.Decimal
	FeeRate         *decimal.Decimal // nil when the exchange did not report one
	NextOrderID     *int64           // retrade successor, set at most once
	LastPriceTick   *decimal.Decimal // momentum only: trailing high-water price
}

// Remaining returns the amount still to fill.
func (o *Order) Remaining() decimal.Decimal {
	return o.Amount.Sub(o.Filled)
}

// Cost returns filled * price in quote currency.
func (o *Order) Cost() decimal.Decimal {
	return o.Filled.Mul(o.Price)
}

// HasSuccessor reports whether a retrade has already been attached.
func (o *Order) HasSuccessor() bool {
	return o.NextOrderID != nil
}
