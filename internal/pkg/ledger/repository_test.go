package ledger

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/futapp/futapp-api/app/models"
	"github.com/futapp/futapp-api/internal/pkg/database"
)

func newRecord(providerTxID, orderID string) *models.PaymentTransaction {
	return &models.PaymentTransaction{
		ID:                    uuid.NewString(),
		Provider:              models.PaymentProviderPayme,
		ProviderTransactionID: providerTxID,
		InternalOrderID:       orderID,
		Amount:                10000,
		State:                 models.PaymentStateCreated,
		CreateTime:            1000,
		Version:               1,
	}
}

func TestRepository_CreateIfNotExists(t *testing.T) {
	repo := NewRepository(database.OpenTestDB(t))
	ctx := context.Background()

	created, first, err := repo.CreateIfNotExists(ctx, newRecord("tx1", "o1"), RequestMeta{RequestID: "1"})
	require.NoError(t, err)
	assert.True(t, created)

	created, second, err := repo.CreateIfNotExists(ctx, newRecord("tx1", "o2"), RequestMeta{RequestID: "2"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "o1", second.InternalOrderID)

	events, err := repo.ListEvents(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "1", events[0].RequestID)
}

func TestRepository_TransitionCompareAndSet(t *testing.T) {
	repo := NewRepository(database.OpenTestDB(t))
	ctx := context.Background()

	_, stored, err := repo.CreateIfNotExists(ctx, newRecord("tx1", "o1"), RequestMeta{})
	require.NoError(t, err)

	pending, err := repo.Transition(ctx, stored, Transition{Event: models.PaymentEventClaim, To: models.PaymentStatePending}, RequestMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatePending, pending.State)
	assert.Equal(t, stored.Version+1, pending.Version)

	// stale snapshot loses
	_, err = repo.Transition(ctx, stored, Transition{Event: models.PaymentEventCancel, To: models.PaymentStateCancelled}, RequestMeta{})
	assert.ErrorIs(t, err, ErrConflict)

	current, err := repo.Get(ctx, "tx1")
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatePending, current.State)

	events, err := repo.ListEvents(ctx, stored.ID)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestRepository_FindActiveByOrder(t *testing.T) {
	repo := NewRepository(database.OpenTestDB(t))
	ctx := context.Background()

	active, err := repo.FindActiveByOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Nil(t, active)

	_, stored, err := repo.CreateIfNotExists(ctx, newRecord("tx1", "o1"), RequestMeta{})
	require.NoError(t, err)

	active, err = repo.FindActiveByOrder(ctx, "o1")
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, stored.ID, active.ID)

	reason := 3
	_, err = repo.Transition(ctx, stored, Transition{Event: models.PaymentEventCancel, To: models.PaymentStateCancelled, CancelTime: 2000, Reason: &reason}, RequestMeta{})
	require.NoError(t, err)

	active, err = repo.FindActiveByOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Nil(t, active)
}
