package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/futapp/futapp-api/internal/pkg/database"
	"github.com/futapp/futapp-api/internal/pkg/lock"
)

type fakeOrderStore struct {
	mu        sync.Mutex
	orders    map[string]*Order
	markCalls map[string]int
	getErr    error
	markErr   error
	delay     time.Duration
}

func newFakeOrderStore(orders ...Order) *fakeOrderStore {
	f := &fakeOrderStore{orders: make(map[string]*Order), markCalls: make(map[string]int)}
	for i := range orders {
		o := orders[i]
		f.orders[o.ID] = &o
	}
	return f
}

func (f *fakeOrderStore) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	o, ok := f.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderStore) MarkPaid(ctx context.Context, orderID string) (bool, error) {
	if err := f.wait(ctx); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return false, f.markErr
	}
	o, ok := f.orders[orderID]
	if !ok {
		return false, ErrOrderNotFound
	}
	f.markCalls[orderID]++
	if o.Status == OrderStatusPaid {
		return true, nil
	}
	o.Status = OrderStatusPaid
	return false, nil
}

func (f *fakeOrderStore) wait(ctx context.Context) error {
	if f.delay <= 0 {
		return nil
	}
	select {
	case <-time.After(f.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeOrderStore) calls(orderID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.markCalls[orderID]
}

func (f *fakeOrderStore) setOrder(o Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[o.ID] = &o
}

func (f *fakeOrderStore) setErrors(getErr, markErr error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getErr = getErr
	f.markErr = markErr
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	svc    *Service
	repo   Repository
	orders *fakeOrderStore
	clock  *testClock
}

func newFixture(t *testing.T, orders ...Order) *fixture {
	t.Helper()

	db := database.OpenTestDB(t)
	repo := NewRepository(db)
	store := newFakeOrderStore(orders...)
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewService(repo, store, lock.NewKeyedMutex(), Options{
		DownstreamTimeout:  200 * time.Millisecond,
		TransactionTimeout: 12 * time.Hour,
		Now:                clock.Now,
	})
	return &fixture{svc: svc, repo: repo, orders: store, clock: clock}
}

func (f *fixture) create(t *testing.T, id, orderID string, amount int64) {
	t.Helper()
	_, err := f.svc.CreateTransaction(context.Background(), CreateInput{
		ProviderTransactionID: id,
		OrderID:               orderID,
		Amount:                amount,
		ProviderTime:          f.clock.Now().UnixMilli(),
	}, RequestMeta{RequestID: "create-" + id, PayloadHash: "hash-create-" + id})
	require.NoError(t, err)
}

func awaiting(id string, amount int64) Order {
	return Order{ID: id, Amount: amount, Status: OrderStatusAwaitingPayment}
}
