package repository

import (
	"gorm.io/gorm"

	"github.com/futapp/futapp-api/internal/pkg/ledger"
)

// JoinRequestRepository is the Team/Join store used by the payment ledger.
// Join requests themselves are written by the join workflow.
type JoinRequestRepository interface {
	ledger.OrderStore
}

// Repositories struct holds all repository instances
type Repositories struct {
	JoinRequest JoinRequestRepository
	Payment     ledger.Repository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		JoinRequest: NewJoinRequestRepository(db),
		Payment:     ledger.NewRepository(db),
	}
}
