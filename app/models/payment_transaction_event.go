package models

import "time"

const (
	PaymentEventCreate  = "create"
	PaymentEventClaim   = "claim"
	PaymentEventPerform = "perform"
	PaymentEventCancel  = "cancel"
)

// PaymentTransactionEvent is an append-only audit row written in the same
// database transaction as the state change it describes.
type PaymentTransactionEvent struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	TransactionID  string    `gorm:"type:char(36);not null;index" json:"transaction_id"`
	Event          string    `gorm:"type:varchar(16);not null" json:"event"`
	FromState      string    `gorm:"type:varchar(16);not null;default:''" json:"from_state"`
	ToState        string    `gorm:"type:varchar(16);not null" json:"to_state"`
	RequestID      string    `gorm:"type:varchar(64);not null;default:''" json:"request_id"`
	RawPayloadHash string    `gorm:"type:char(64);not null;default:''" json:"raw_payload_hash"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}
