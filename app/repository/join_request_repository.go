package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/futapp/futapp-api/app/models"
	"github.com/futapp/futapp-api/internal/pkg/ledger"
)

// joinRequestRepository implements the JoinRequestRepository interface
type joinRequestRepository struct {
	db *gorm.DB
}

// NewJoinRequestRepository creates a new join request repository instance
func NewJoinRequestRepository(db *gorm.DB) JoinRequestRepository {
	return &joinRequestRepository{db: db}
}

func (r *joinRequestRepository) find(ctx context.Context, id string) (*models.JoinRequest, error) {
	var jr models.JoinRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&jr).Error; err != nil {
		return nil, err
	}
	return &jr, nil
}

// GetOrder exposes a join request as a payable order
func (r *joinRequestRepository) GetOrder(ctx context.Context, orderID string) (*ledger.Order, error) {
	jr, err := r.find(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrOrderNotFound
		}
		return nil, err
	}
	return &ledger.Order{ID: jr.ID, Amount: jr.FeeAmount, Status: orderStatus(jr.Status)}, nil
}

// MarkPaid settles the join fee. Calling it for a paid request reports alreadyDone.
func (r *joinRequestRepository) MarkPaid(ctx context.Context, orderID string) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.JoinRequest{}).
		Where("id = ? AND status = ?", orderID, models.JoinStatusPendingPayment).
		Updates(map[string]interface{}{
			"status":     models.JoinStatusPaid,
			"paid_at":    time.Now().UTC(),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return false, nil
	}

	jr, err := r.find(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ledger.ErrOrderNotFound
		}
		return false, err
	}
	if jr.IsPaid() {
		return true, nil
	}
	return false, fmt.Errorf("%w: join request %s is %s", ledger.ErrOrderUnavailable, orderID, jr.Status)
}

func orderStatus(status string) string {
	switch status {
	case models.JoinStatusPendingPayment:
		return ledger.OrderStatusAwaitingPayment
	case models.JoinStatusPaid:
		return ledger.OrderStatusPaid
	default:
		return ledger.OrderStatusClosed
	}
}
