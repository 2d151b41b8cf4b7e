package ledger

import (
	"context"
)

const (
	OrderStatusAwaitingPayment = "awaiting_payment"
	OrderStatusPaid            = "paid"
	OrderStatusClosed          = "closed"
)

// Order is the entity a transaction pays for, as seen by the ledger.
type Order struct {
	ID     string
	Amount int64
	Status string
}

func (o *Order) IsPaid() bool {
	return o.Status == OrderStatusPaid
}

// OrderStore is the Team/Join Store collaborator. Implementations return
// ErrOrderNotFound for unknown orders. MarkPaid must be idempotent and
// report alreadyDone when the order was paid before.
type OrderStore interface {
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	MarkPaid(ctx context.Context, orderID string) (alreadyDone bool, err error)
}

// RequestMeta identifies the verified inbound request behind a mutation.
type RequestMeta struct {
	RequestID   string
	PayloadHash string
}

// CreateInput carries the CreateTransaction parameters.
type CreateInput struct {
	ProviderTransactionID string
	OrderID               string
	Amount                int64
	// ProviderTime is the provider's creation time in unix milliseconds.
	ProviderTime int64
}

// Transition describes one state change applied by the repository.
type Transition struct {
	Event       string
	To          string
	PerformTime int64
	CancelTime  int64
	Reason      *int
}
