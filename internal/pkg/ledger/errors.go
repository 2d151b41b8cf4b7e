package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for an unknown provider transaction id.
	ErrNotFound = errors.New("ledger: transaction not found")
	// ErrAmountMismatch is returned when the amount differs from the order amount.
	ErrAmountMismatch = errors.New("ledger: amount mismatch")
	// ErrInvalidState is returned when the transition is not permitted from the current state.
	ErrInvalidState = errors.New("ledger: invalid state transition")
	// ErrNotCancellable is returned when cancelling a transaction whose order is fulfilled.
	ErrNotCancellable = fmt.Errorf("%w: order already fulfilled", ErrInvalidState)
	// ErrOrderNotFound is returned by an OrderStore for an unknown order.
	ErrOrderNotFound = errors.New("ledger: order not found")
	// ErrOrderUnavailable is returned when the order cannot be paid right now.
	ErrOrderUnavailable = errors.New("ledger: order not available for payment")
	// ErrDownstreamUnavailable is retryable: the order store failed or timed out.
	ErrDownstreamUnavailable = errors.New("ledger: downstream unavailable")
	// ErrInvalidInput is returned for calls missing a transaction or order id.
	ErrInvalidInput = errors.New("ledger: invalid input")
	// ErrConflict is retryable: another request changed the transaction first.
	ErrConflict = errors.New("ledger: concurrent update")
)

// IsRetryable reports whether the provider should redeliver the callback.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrDownstreamUnavailable) || errors.Is(err, ErrConflict)
}
