package ledger

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/futapp/futapp-api/app/models"
)

// Repository persists payment transactions. Transition is a compare-and-set
// on (state, version) and returns ErrConflict when the row moved on.
type Repository interface {
	Get(ctx context.Context, providerTxID string) (*models.PaymentTransaction, error)
	CreateIfNotExists(ctx context.Context, tx *models.PaymentTransaction, meta RequestMeta) (bool, *models.PaymentTransaction, error)
	Transition(ctx context.Context, current *models.PaymentTransaction, next Transition, meta RequestMeta) (*models.PaymentTransaction, error)
	FindActiveByOrder(ctx context.Context, orderID string) (*models.PaymentTransaction, error)
	ListByCreateTime(ctx context.Context, from, to int64) ([]models.PaymentTransaction, error)
	ListEvents(ctx context.Context, transactionID string) ([]models.PaymentTransactionEvent, error)
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a ledger repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Get(ctx context.Context, providerTxID string) (*models.PaymentTransaction, error) {
	var tx models.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("provider_transaction_id = ?", providerTxID).
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &tx, nil
}

func (r *gormRepository) CreateIfNotExists(ctx context.Context, record *models.PaymentTransaction, meta RequestMeta) (bool, *models.PaymentTransaction, error) {
	created := false
	var stored models.PaymentTransaction

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider_transaction_id"}},
			DoNothing: true,
		}).Create(record)
		if res.Error != nil {
			return res.Error
		}

		created = res.RowsAffected > 0
		if created {
			if err := tx.Create(&models.PaymentTransactionEvent{
				TransactionID:  record.ID,
				Event:          models.PaymentEventCreate,
				ToState:        record.State,
				RequestID:      meta.RequestID,
				RawPayloadHash: meta.PayloadHash,
			}).Error; err != nil {
				return err
			}
		}

		return tx.Where("provider_transaction_id = ?", record.ProviderTransactionID).First(&stored).Error
	})
	if err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) Transition(ctx context.Context, current *models.PaymentTransaction, next Transition, meta RequestMeta) (*models.PaymentTransaction, error) {
	var updated models.PaymentTransaction

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"state":      next.To,
			"version":    current.Version + 1,
			"updated_at": time.Now(),
		}
		if next.PerformTime > 0 {
			updates["perform_time"] = next.PerformTime
		}
		if next.CancelTime > 0 {
			updates["cancel_time"] = next.CancelTime
		}
		if next.Reason != nil {
			updates["reason"] = *next.Reason
		}

		res := tx.Model(&models.PaymentTransaction{}).
			Where("id = ? AND state = ? AND version = ?", current.ID, current.State, current.Version).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}

		if err := tx.Create(&models.PaymentTransactionEvent{
			TransactionID:  current.ID,
			Event:          next.Event,
			FromState:      current.State,
			ToState:        next.To,
			RequestID:      meta.RequestID,
			RawPayloadHash: meta.PayloadHash,
		}).Error; err != nil {
			return err
		}

		return tx.Where("id = ?", current.ID).First(&updated).Error
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (r *gormRepository) FindActiveByOrder(ctx context.Context, orderID string) (*models.PaymentTransaction, error) {
	var tx models.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("internal_order_id = ? AND state IN ?", orderID, []string{models.PaymentStateCreated, models.PaymentStatePending}).
		Order("create_time ASC").
		First(&tx).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

func (r *gormRepository) ListByCreateTime(ctx context.Context, from, to int64) ([]models.PaymentTransaction, error) {
	var txs []models.PaymentTransaction
	err := r.db.WithContext(ctx).
		Where("create_time >= ? AND create_time <= ?", from, to).
		Order("create_time ASC").
		Find(&txs).Error
	return txs, err
}

func (r *gormRepository) ListEvents(ctx context.Context, transactionID string) ([]models.PaymentTransactionEvent, error) {
	var events []models.PaymentTransactionEvent
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		Order("id ASC").
		Find(&events).Error
	return events, err
}
