package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	JoinStatusPendingPayment = "pending_payment"
	JoinStatusPaid           = "paid"
	JoinStatusRejected       = "rejected"
)

// JoinRequest is a player's request to join a team. The join workflow creates
// it with a fee; the payment webhook marks it paid.
type JoinRequest struct {
	ID         string     `gorm:"type:char(36);primaryKey" json:"id"`
	TeamID     string     `gorm:"type:char(36);not null;index" json:"team_id" validate:"required"`
	PlayerName string     `gorm:"type:varchar(255);not null" json:"player_name" validate:"required,min=2,max=255"`
	Phone      string     `gorm:"type:varchar(32);not null;default:''" json:"phone" validate:"omitempty,e164"`
	FeeAmount  int64      `gorm:"not null" json:"fee_amount" validate:"gte=0"`
	Status     string     `gorm:"type:varchar(32);not null;default:'pending_payment';index" json:"status"`
	PaidAt     *time.Time `gorm:"type:timestamp;default:null" json:"paid_at,omitempty"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// IsPaid reports whether the join fee has been settled.
func (j *JoinRequest) IsPaid() bool {
	return j.Status == JoinStatusPaid
}

func (j *JoinRequest) Validate() error {
	v := validator.New()

	return v.Struct(j)
}

// BeforeCreate fills the id and initial status and validates the request.
func (j *JoinRequest) BeforeCreate(tx *gorm.DB) error {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	if j.Status == "" {
		j.Status = JoinStatusPendingPayment
	}
	return j.Validate()
}
