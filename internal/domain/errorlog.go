package domain

import "time"

// OrderErrorKind classifies a failed retrade attempt.
type OrderErrorKind string

const (
	ErrorKindInsufficientFunds OrderErrorKind = "insufficient-funds"
	ErrorKindInvalidOrder      OrderErrorKind = "invalid-order"
)

// OrderErrorLog is one row per failed retrade attempt, linked to the order
// that failed. Logging the failure keeps the order retryable on the next
// cycle without aborting the rest of the batch.
type OrderErrorLog struct {
	ID        int64
	OrderID   int64
	Kind      OrderErrorKind
	Message   string
	CreatedAt time.Time
}
