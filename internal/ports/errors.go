package ports

import "errors"

// Standard application-level errors.
// Adapters wrap underlying infrastructure errors with these sentinels so the
// core can classify failures without knowing the exchange or driver in use.
var (
	// General errors
	ErrUnknown         = errors.New("unknown error occurred")
	ErrNotFound        = errors.New("resource not found")
	ErrContextCanceled = errors.New("operation canceled via context")

	// Band violations: rejected immediately, never retried.
	ErrPriceBelowMinimum = errors.New("price is below the market minimum")
	ErrPriceAboveMaximum = errors.New("price is above the market maximum")

	// Exchange business errors: logged per attempt, never retried.
	ErrInsufficientFunds = errors.New("insufficient funds for order")
	ErrInvalidOrder      = errors.New("order rejected as invalid")

	// Transport errors: retried with a fixed delay.
	ErrTimeout             = errors.New("exchange request timed out")
	ErrExchangeUnavailable = errors.New("exchange API is unavailable")

	// Configuration errors: fatal for the bot being processed.
	ErrMissingStrategyParam = errors.New("required strategy parameter is not configured")

	// Database errors
	ErrDuplicateEntry = errors.New("database record already exists")
	ErrQueryFailed    = errors.New("database query failed")
	ErrUpdateFailed   = errors.New("database update failed")
)

// IsTransport reports whether err is a transient transport failure that a
// bounded retry may recover from. Business and band errors are terminal for
// the attempt and must not be retried.
func IsTransport(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrExchangeUnavailable)
}
