package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SavingRecord is an append-only record of value a strategy set aside: either
// the dust left when a chain terminates below the minimum notional, or the
// remainder when a retrade is sized smaller than its parent order.
type SavingRecord struct {
	ID        int64
	OrderID   int64
	BotID     int64
	Amount    decimal.Decimal
	Currency  string
	CreatedAt time.Time
}
