package worker

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billing-ledger/internal/domain"
	"billing-ledger/internal/infrastructure/storage"
	"billing-ledger/internal/repo"
	"billing-ledger/internal/service"
)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func item(name, price string) domain.LineItemInput {
	return domain.LineItemInput{
		Name:     name,
		Quantity: decimal.NewFromInt(1),
		Price:    decimal.NewNullDecimal(decimal.RequireFromString(price)),
	}
}

// failingClear cannot clear an order's pending flag.
type failingClear struct {
	repo.OrderRepo
}

func (failingClear) ClearSpendPending(context.Context, string) error {
	return errors.Wrap(domain.ErrStorage, "disk full")
}

type fixture struct {
	store     storage.Store
	clock     *clock
	customers repo.CustomerRepo
	orders    repo.OrderRepo
	worker    *ReconciliationWorker
}

func setup(t *testing.T) *fixture {
	t.Helper()
	c := &clock{now: time.Date(2024, time.March, 14, 10, 0, 0, 0, time.UTC)}
	store := storage.NewMemoryStore()
	customers := repo.NewCustomerRepo(store, repo.WithClock(c.Now))
	orders := repo.NewOrderRepo(store, repo.WithClock(c.Now))
	ledger := service.NewLedger(store, customers, orders, time.UTC, "")
	return &fixture{
		store:     store,
		clock:     c,
		customers: customers,
		orders:    orders,
		worker:    NewReconciliationWorker(orders, ledger, time.Second, time.Minute),
	}
}

func TestProcessRecordsStuckSpendOnce(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	alice, err := f.customers.Add(ctx, "Alice", "", "")
	require.NoError(t, err)
	// An order saved by a PlaceOrder that never got to the customer.
	order, err := f.orders.Add(ctx, []domain.LineItemInput{item("Tea", "12")}, alice.ID)
	require.NoError(t, err)
	require.True(t, order.SpendPending)

	t.Run("Leaves recent orders alone", func(t *testing.T) {
		fixed, err := f.worker.Process(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, fixed)

		got, _ := f.customers.FindByID(ctx, alice.ID)
		assert.True(t, got.TotalSpent.IsZero())
	})

	f.clock.now = f.clock.now.Add(5 * time.Minute)

	t.Run("Repairs after the grace period", func(t *testing.T) {
		fixed, err := f.worker.Process(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, fixed)

		got, _ := f.customers.FindByID(ctx, alice.ID)
		assert.True(t, got.TotalSpent.Equal(decimal.NewFromInt(12)))
		assert.Equal(t, 1, got.RecentOrders)
	})

	t.Run("Second pass changes nothing", func(t *testing.T) {
		fixed, err := f.worker.Process(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, fixed)

		got, _ := f.customers.FindByID(ctx, alice.ID)
		assert.True(t, got.TotalSpent.Equal(decimal.NewFromInt(12)))
	})
}

func TestProcessAfterFlagClearFailure(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	alice, err := f.customers.Add(ctx, "Alice", "", "")
	require.NoError(t, err)

	// PlaceOrder records the spend but cannot clear the flag.
	stuckOrders := failingClear{f.orders}
	broken := service.NewLedger(f.store, f.customers, stuckOrders, time.UTC, "")
	order, err := broken.PlaceOrder(ctx, []domain.LineItemInput{item("Apple", "7"), item("Bread", "5")}, alice.ID)
	require.NoError(t, err)
	require.True(t, order.SpendPending)

	f.clock.now = f.clock.now.Add(5 * time.Minute)

	t.Run("Fail aborts the pass without counting again", func(t *testing.T) {
		w := NewReconciliationWorker(stuckOrders, broken, time.Second, time.Minute)
		_, err := w.Process(ctx)
		assert.ErrorIs(t, err, domain.ErrStorage)

		got, _ := f.customers.FindByID(ctx, alice.ID)
		assert.True(t, got.TotalSpent.Equal(decimal.NewFromInt(12)))
		assert.Equal(t, 1, got.RecentOrders)
	})

	t.Run("Clears the flag once storage recovers", func(t *testing.T) {
		fixed, err := f.worker.Process(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, fixed)

		got, _ := f.customers.FindByID(ctx, alice.ID)
		assert.True(t, got.TotalSpent.Equal(decimal.NewFromInt(12)))
		assert.Equal(t, 1, got.RecentOrders)
		assert.Empty(t, got.SettledOrders)
		assert.Empty(t, f.orders.FindSpendPending(ctx, time.Minute))
	})
}

func TestProcessDropsOrphanedSpend(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	order, err := f.orders.Add(ctx, []domain.LineItemInput{item("Tea", "3")}, "deleted-customer")
	require.NoError(t, err)
	f.clock.now = f.clock.now.Add(time.Hour)

	fixed, err := f.worker.Process(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, fixed)

	stored, err := f.orders.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, stored.SpendPending)
	assert.Empty(t, f.orders.FindSpendPending(ctx, time.Minute))
}

func TestRunStopsWithContext(t *testing.T) {
	f := setup(t)
	f.worker.interval = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		f.worker.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
