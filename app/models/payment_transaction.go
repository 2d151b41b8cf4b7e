package models

import "time"

const (
	PaymentStateCreated   = "created"
	PaymentStatePending   = "pending"
	PaymentStatePaid      = "paid"
	PaymentStateCancelled = "cancelled"
)

const (
	PaymentProviderPayme = "payme"
)

// Payme protocol states. Created and pending both report 1.
const (
	PaymeStateCreated            = 1
	PaymeStatePerformed          = 2
	PaymeStateCancelled          = -1
	PaymeStateCancelledAfterPaid = -2
)

// Payme cancel reasons used by the ledger itself.
const (
	CancelReasonTimeout = 4
)

// PaymentTransaction is the ledger row for one provider transaction. Rows are
// never deleted; terminal rows keep their history for audit.
type PaymentTransaction struct {
	ID                    string    `gorm:"type:char(36);primaryKey" json:"id"`
	Provider              string    `gorm:"type:varchar(20);not null;default:'payme'" json:"provider"`
	ProviderTransactionID string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_payment_transactions_provider_tx" json:"provider_transaction_id"`
	InternalOrderID       string    `gorm:"type:varchar(64);not null;index" json:"internal_order_id"`
	Amount                int64     `gorm:"not null" json:"amount"`
	State                 string    `gorm:"type:varchar(16);not null;index" json:"state"`
	Reason                *int      `json:"reason,omitempty"`
	ProviderTime          int64     `gorm:"not null;default:0" json:"provider_time"`
	CreateTime            int64     `gorm:"not null;default:0;index" json:"create_time"`
	PerformTime           int64     `gorm:"not null;default:0" json:"perform_time"`
	CancelTime            int64     `gorm:"not null;default:0" json:"cancel_time"`
	RawPayloadHash        string    `gorm:"type:char(64);not null;default:''" json:"raw_payload_hash"`
	Version               int64     `gorm:"not null;default:1" json:"version"`
	CreatedAt             time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt             time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsTerminal reports whether no further transition is permitted.
func (t *PaymentTransaction) IsTerminal() bool {
	return t.State == PaymentStatePaid || t.State == PaymentStateCancelled
}

// ProviderState maps the ledger state onto the numeric Payme state.
func (t *PaymentTransaction) ProviderState() int {
	switch t.State {
	case PaymentStatePaid:
		return PaymeStatePerformed
	case PaymentStateCancelled:
		if t.PerformTime > 0 {
			return PaymeStateCancelledAfterPaid
		}
		return PaymeStateCancelled
	default:
		return PaymeStateCreated
	}
}
