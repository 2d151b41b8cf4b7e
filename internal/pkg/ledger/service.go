// Package ledger applies provider payment callbacks to payment transactions
// exactly once and unlocks the paid order through an OrderStore.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/futapp/futapp-api/app/models"
	"github.com/futapp/futapp-api/internal/pkg/lock"
)

const (
	DefaultDownstreamTimeout  = 3 * time.Second
	DefaultTransactionTimeout = 12 * time.Hour
)

// Options tunes a Service. Zero values fall back to the defaults.
type Options struct {
	DownstreamTimeout  time.Duration
	TransactionTimeout time.Duration
	Now                func() time.Time
}

// Service is the payment state machine. Calls for one provider transaction
// id are serialized by the locker; the repository compare-and-set guards
// against writers the locker cannot see.
type Service struct {
	repo              Repository
	orders            OrderStore
	locker            lock.Locker
	downstreamTimeout time.Duration
	txTimeout         time.Duration
	now               func() time.Time
}

// NewService creates a ledger service from injected collaborators.
func NewService(repo Repository, orders OrderStore, locker lock.Locker, opts Options) *Service {
	s := &Service{
		repo:              repo,
		orders:            orders,
		locker:            locker,
		downstreamTimeout: opts.DownstreamTimeout,
		txTimeout:         opts.TransactionTimeout,
		now:               opts.Now,
	}
	if s.downstreamTimeout <= 0 {
		s.downstreamTimeout = DefaultDownstreamTimeout
	}
	if s.txTimeout <= 0 {
		s.txTimeout = DefaultTransactionTimeout
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// CheckPerform reports whether a transaction for orderID and amount may be created.
func (s *Service) CheckPerform(ctx context.Context, orderID string, amount int64) error {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if amount <= 0 || order.Amount != amount {
		return fmt.Errorf("%w: order %s expects %d, got %d", ErrAmountMismatch, orderID, order.Amount, amount)
	}
	if order.Status != OrderStatusAwaitingPayment {
		return fmt.Errorf("%w: order %s is %s", ErrOrderUnavailable, orderID, order.Status)
	}

	active, err := s.repo.FindActiveByOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if active != nil {
		return fmt.Errorf("%w: order %s is reserved by transaction %s", ErrOrderUnavailable, orderID, active.ProviderTransactionID)
	}
	return nil
}

// CreateTransaction records a new provider transaction in state created. A
// repeated call for the same id returns the stored record unchanged.
func (s *Service) CreateTransaction(ctx context.Context, in CreateInput, meta RequestMeta) (*models.PaymentTransaction, error) {
	if in.ProviderTransactionID == "" || in.OrderID == "" {
		return nil, fmt.Errorf("%w: provider transaction id and order id are required", ErrInvalidInput)
	}

	release, err := s.lock(ctx, txLockKey(in.ProviderTransactionID))
	if err != nil {
		return nil, err
	}
	defer release()

	var result *models.PaymentTransaction
	err = s.retryOnConflict(func() error {
		existing, err := s.repo.Get(ctx, in.ProviderTransactionID)
		switch {
		case err == nil:
			result, err = s.recreate(ctx, existing, in, meta)
			return err
		case !errors.Is(err, ErrNotFound):
			return err
		}

		result, err = s.create(ctx, in, meta)
		return err
	})
	return result, err
}

func (s *Service) create(ctx context.Context, in CreateInput, meta RequestMeta) (*models.PaymentTransaction, error) {
	release, err := s.lock(ctx, orderLockKey(in.OrderID))
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now().UnixMilli()
	if in.ProviderTime > 0 && now-in.ProviderTime > s.txTimeout.Milliseconds() {
		return nil, fmt.Errorf("%w: transaction %s was issued more than %s ago", ErrInvalidState, in.ProviderTransactionID, s.txTimeout)
	}
	if err := s.CheckPerform(ctx, in.OrderID, in.Amount); err != nil {
		return nil, err
	}

	record := &models.PaymentTransaction{
		ID:                    uuid.NewString(),
		Provider:              models.PaymentProviderPayme,
		ProviderTransactionID: in.ProviderTransactionID,
		InternalOrderID:       in.OrderID,
		Amount:                in.Amount,
		State:                 models.PaymentStateCreated,
		ProviderTime:          in.ProviderTime,
		CreateTime:            now,
		RawPayloadHash:        meta.PayloadHash,
		Version:               1,
	}
	created, stored, err := s.repo.CreateIfNotExists(ctx, record, meta)
	if err != nil {
		return nil, err
	}
	if !created {
		// written by another instance between Get and insert
		return s.recreate(ctx, stored, in, meta)
	}

	log.Infof("[Ledger] Transaction %s created for order %s (amount=%d)", stored.ProviderTransactionID, stored.InternalOrderID, stored.Amount)
	return stored, nil
}

// recreate handles CreateTransaction for an id that is already stored.
func (s *Service) recreate(ctx context.Context, tx *models.PaymentTransaction, in CreateInput, meta RequestMeta) (*models.PaymentTransaction, error) {
	if tx.InternalOrderID != in.OrderID || tx.Amount != in.Amount {
		return nil, fmt.Errorf("%w: transaction %s was created for order %s with amount %d", ErrInvalidState, tx.ProviderTransactionID, tx.InternalOrderID, tx.Amount)
	}

	switch tx.State {
	case models.PaymentStateCreated:
		if s.expired(tx) {
			return s.expire(ctx, tx, meta)
		}
		return tx, nil
	case models.PaymentStatePending:
		return tx, nil
	default:
		return nil, fmt.Errorf("%w: transaction %s is %s", ErrInvalidState, tx.ProviderTransactionID, tx.State)
	}
}

// PerformTransaction moves a transaction to paid and unlocks its order. Paid
// transactions return the original result without touching the order again.
func (s *Service) PerformTransaction(ctx context.Context, providerTxID string, meta RequestMeta) (*models.PaymentTransaction, error) {
	release, err := s.lock(ctx, txLockKey(providerTxID))
	if err != nil {
		return nil, err
	}
	defer release()

	var result *models.PaymentTransaction
	err = s.retryOnConflict(func() error {
		tx, err := s.repo.Get(ctx, providerTxID)
		if err != nil {
			return err
		}
		result, err = s.perform(ctx, tx, meta)
		return err
	})
	return result, err
}

func (s *Service) perform(ctx context.Context, tx *models.PaymentTransaction, meta RequestMeta) (*models.PaymentTransaction, error) {
	switch tx.State {
	case models.PaymentStatePaid:
		return tx, nil

	case models.PaymentStateCancelled:
		return nil, fmt.Errorf("%w: transaction %s is cancelled", ErrInvalidState, tx.ProviderTransactionID)

	case models.PaymentStateCreated:
		if s.expired(tx) {
			return s.expire(ctx, tx, meta)
		}
		order, err := s.verifyOrder(ctx, tx)
		if err != nil {
			return nil, err
		}
		if order.Status != OrderStatusAwaitingPayment {
			return nil, fmt.Errorf("%w: order %s is %s", ErrOrderUnavailable, order.ID, order.Status)
		}

		claimed, err := s.repo.Transition(ctx, tx, Transition{
			Event: models.PaymentEventClaim,
			To:    models.PaymentStatePending,
		}, meta)
		if err != nil {
			return nil, err
		}
		return s.complete(ctx, claimed, meta)

	case models.PaymentStatePending:
		// a previous attempt claimed the transaction; the order may already be paid
		if _, err := s.verifyOrder(ctx, tx); err != nil {
			return nil, err
		}
		return s.complete(ctx, tx, meta)

	default:
		return nil, fmt.Errorf("%w: transaction %s has unknown state %q", ErrInvalidState, tx.ProviderTransactionID, tx.State)
	}
}

// complete unlocks the order of a pending transaction and commits paid.
func (s *Service) complete(ctx context.Context, tx *models.PaymentTransaction, meta RequestMeta) (*models.PaymentTransaction, error) {
	alreadyDone, err := s.markPaid(ctx, tx.InternalOrderID)
	if err != nil {
		log.Warnf("[Ledger] Unlocking order %s for transaction %s failed, leaving it pending: %v", tx.InternalOrderID, tx.ProviderTransactionID, err)
		return nil, err
	}
	if alreadyDone {
		log.Infof("[Ledger] Order %s was already marked paid, completing transaction %s", tx.InternalOrderID, tx.ProviderTransactionID)
	}

	paid, err := s.repo.Transition(ctx, tx, Transition{
		Event:       models.PaymentEventPerform,
		To:          models.PaymentStatePaid,
		PerformTime: s.now().UnixMilli(),
	}, meta)
	if err != nil {
		return nil, err
	}

	log.Infof("[Ledger] Transaction %s performed, order %s paid", paid.ProviderTransactionID, paid.InternalOrderID)
	return paid, nil
}

// CancelTransaction cancels a transaction whose order has not been fulfilled.
// For a transaction that cannot be cancelled the stored record is returned
// together with ErrNotCancellable.
func (s *Service) CancelTransaction(ctx context.Context, providerTxID string, reason int, meta RequestMeta) (*models.PaymentTransaction, error) {
	release, err := s.lock(ctx, txLockKey(providerTxID))
	if err != nil {
		return nil, err
	}
	defer release()

	var result *models.PaymentTransaction
	err = s.retryOnConflict(func() error {
		tx, err := s.repo.Get(ctx, providerTxID)
		if err != nil {
			return err
		}
		result, err = s.cancel(ctx, tx, reason, meta)
		return err
	})
	return result, err
}

func (s *Service) cancel(ctx context.Context, tx *models.PaymentTransaction, reason int, meta RequestMeta) (*models.PaymentTransaction, error) {
	switch tx.State {
	case models.PaymentStateCancelled:
		return tx, nil

	case models.PaymentStatePaid:
		return tx, fmt.Errorf("%w: transaction %s", ErrNotCancellable, tx.ProviderTransactionID)

	case models.PaymentStatePending:
		order, err := s.getOrder(ctx, tx.InternalOrderID)
		if err != nil && !errors.Is(err, ErrOrderNotFound) {
			return nil, err
		}
		if order != nil && order.IsPaid() {
			paid, err := s.repo.Transition(ctx, tx, Transition{
				Event:       models.PaymentEventPerform,
				To:          models.PaymentStatePaid,
				PerformTime: s.now().UnixMilli(),
			}, meta)
			if err != nil {
				return nil, err
			}
			log.Warnf("[Ledger] Cancel of transaction %s refused, order %s is already paid", tx.ProviderTransactionID, tx.InternalOrderID)
			return paid, fmt.Errorf("%w: transaction %s", ErrNotCancellable, tx.ProviderTransactionID)
		}
		return s.markCancelled(ctx, tx, reason, meta)

	case models.PaymentStateCreated:
		return s.markCancelled(ctx, tx, reason, meta)

	default:
		return nil, fmt.Errorf("%w: transaction %s has unknown state %q", ErrInvalidState, tx.ProviderTransactionID, tx.State)
	}
}

func (s *Service) markCancelled(ctx context.Context, tx *models.PaymentTransaction, reason int, meta RequestMeta) (*models.PaymentTransaction, error) {
	cancelled, err := s.repo.Transition(ctx, tx, Transition{
		Event:      models.PaymentEventCancel,
		To:         models.PaymentStateCancelled,
		CancelTime: s.now().UnixMilli(),
		Reason:     &reason,
	}, meta)
	if err != nil {
		return nil, err
	}
	log.Infof("[Ledger] Transaction %s cancelled (reason=%d)", cancelled.ProviderTransactionID, reason)
	return cancelled, nil
}

// CheckTransaction returns the stored transaction.
func (s *Service) CheckTransaction(ctx context.Context, providerTxID string) (*models.PaymentTransaction, error) {
	return s.repo.Get(ctx, providerTxID)
}

// Statement lists transactions created within [from, to], in unix milliseconds.
func (s *Service) Statement(ctx context.Context, from, to int64) ([]models.PaymentTransaction, error) {
	if from > to {
		return []models.PaymentTransaction{}, nil
	}
	return s.repo.ListByCreateTime(ctx, from, to)
}

// Events returns the audit trail of a transaction, oldest first.
func (s *Service) Events(ctx context.Context, providerTxID string) ([]models.PaymentTransactionEvent, error) {
	tx, err := s.repo.Get(ctx, providerTxID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListEvents(ctx, tx.ID)
}

func (s *Service) expired(tx *models.PaymentTransaction) bool {
	return tx.State == models.PaymentStateCreated &&
		s.now().UnixMilli()-tx.CreateTime > s.txTimeout.Milliseconds()
}

// expire cancels a timed out transaction and reports it as not performable.
func (s *Service) expire(ctx context.Context, tx *models.PaymentTransaction, meta RequestMeta) (*models.PaymentTransaction, error) {
	if _, err := s.markCancelled(ctx, tx, models.CancelReasonTimeout, meta); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%w: transaction %s expired after %s", ErrInvalidState, tx.ProviderTransactionID, s.txTimeout)
}

func (s *Service) verifyOrder(ctx context.Context, tx *models.PaymentTransaction) (*Order, error) {
	order, err := s.getOrder(ctx, tx.InternalOrderID)
	if err != nil {
		return nil, err
	}
	if order.Amount != tx.Amount {
		return nil, fmt.Errorf("%w: order %s expects %d, transaction %s carries %d", ErrAmountMismatch, order.ID, order.Amount, tx.ProviderTransactionID, tx.Amount)
	}
	return order, nil
}

func (s *Service) getOrder(ctx context.Context, orderID string) (*Order, error) {
	ctx, cancel := context.WithTimeout(ctx, s.downstreamTimeout)
	defer cancel()

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
		}
		return nil, fmt.Errorf("%w: get order %s: %w", ErrDownstreamUnavailable, orderID, err)
	}
	return order, nil
}

func (s *Service) markPaid(ctx context.Context, orderID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.downstreamTimeout)
	defer cancel()

	alreadyDone, err := s.orders.MarkPaid(ctx, orderID)
	if err != nil {
		return false, fmt.Errorf("%w: mark order %s paid: %w", ErrDownstreamUnavailable, orderID, err)
	}
	return alreadyDone, nil
}

func (s *Service) lock(ctx context.Context, key string) (func(), error) {
	release, err := s.locker.Lock(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrConflict, key, err)
	}
	return release, nil
}

// retryOnConflict runs fn again once when it lost a compare-and-set.
func (s *Service) retryOnConflict(fn func() error) error {
	err := fn()
	if errors.Is(err, ErrConflict) {
		log.Warnf("[Ledger] Concurrent update detected, retrying: %v", err)
		err = fn()
	}
	return err
}

func txLockKey(providerTxID string) string {
	return "payme:tx:" + providerTxID
}

func orderLockKey(orderID string) string {
	return "payme:order:" + orderID
}
