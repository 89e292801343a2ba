package repo

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"billing-ledger/internal/domain"
	"billing-ledger/internal/infrastructure/storage"
)

type OrderRepo interface {
	// List returns orders newest first.
	List(ctx context.Context) []domain.Order
	FindByID(ctx context.Context, id string) (*domain.Order, error)
	Add(ctx context.Context, items []domain.LineItemInput, customerID string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
	ClearSpendPending(ctx context.Context, id string) error
	// FindSpendPending returns orders whose customer spend has not been
	// recorded and that are older than olderThan.
	FindSpendPending(ctx context.Context, olderThan time.Duration) []domain.Order
	DailySales(ctx context.Context, ref time.Time) domain.DailySales
	SalesTrend(ctx context.Context, ref time.Time, windowDays int) []domain.TrendBucket
	DebtOrders(ctx context.Context) []domain.Order
}

type orderRepo struct {
	mu    sync.Mutex
	store storage.Store
	opts  options
}

func NewOrderRepo(store storage.Store, opts ...Option) OrderRepo {
	return &orderRepo{store: store, opts: newOptions(opts)}
}

func (r *orderRepo) load(ctx context.Context) []domain.Order {
	return storage.Read(ctx, r.store, storage.KeyOrders, []domain.Order{})
}

// loadForUpdate must be used wherever the result is written back.
func (r *orderRepo) loadForUpdate(ctx context.Context) ([]domain.Order, error) {
	return storage.Load(ctx, r.store, storage.KeyOrders, []domain.Order{})
}

func (r *orderRepo) List(ctx context.Context) []domain.Order {
	return r.load(ctx)
}

func (r *orderRepo) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	for _, o := range r.load(ctx) {
		if o.ID == id {
			return &o, nil
		}
	}
	return nil, domain.NotFound("order", id)
}

func (r *orderRepo) Add(ctx context.Context, items []domain.LineItemInput, customerID string) (*domain.Order, error) {
	if err := domain.ValidateLineItems(items); err != nil {
		return nil, err
	}

	order := domain.Order{
		ID:          uuid.NewString(),
		Date:        r.opts.now().UTC(),
		Items:       make([]domain.OrderItem, 0, len(items)),
		TotalAmount: decimal.Zero,
		CustomerID:  strings.TrimSpace(customerID),
		Status:      r.opts.defaultStatus,
	}
	order.SpendPending = order.HasCustomer()

	for _, in := range items {
		item := domain.OrderItem{
			ID:       uuid.NewString(),
			Name:     strings.TrimSpace(in.Name),
			Quantity: in.Quantity,
			Price:    in.Price.Decimal,
		}
		order.Items = append(order.Items, item)
		order.TotalAmount = order.TotalAmount.Add(item.LineTotal())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, err := r.loadForUpdate(ctx)
	if err != nil {
		return nil, err
	}
	orders := append([]domain.Order{order}, stored...)
	if err := storage.Write(ctx, r.store, storage.KeyOrders, orders); err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	parsed, err := domain.ParseOrderStatus(string(status))
	if err != nil {
		return nil, err
	}
	return r.update(ctx, id, func(o *domain.Order) { o.Status = parsed })
}

func (r *orderRepo) ClearSpendPending(ctx context.Context, id string) error {
	_, err := r.update(ctx, id, func(o *domain.Order) { o.SpendPending = false })
	return err
}

func (r *orderRepo) update(ctx context.Context, id string, mutate func(*domain.Order)) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	orders, err := r.loadForUpdate(ctx)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		if orders[i].ID != id {
			continue
		}
		mutate(&orders[i])
		if err := storage.Write(ctx, r.store, storage.KeyOrders, orders); err != nil {
			return nil, err
		}
		updated := orders[i]
		return &updated, nil
	}
	return nil, domain.NotFound("order", id)
}

func (r *orderRepo) FindSpendPending(ctx context.Context, olderThan time.Duration) []domain.Order {
	cutoff := r.opts.now().Add(-olderThan)

	var pending []domain.Order
	for _, o := range r.load(ctx) {
		if o.SpendPending && o.HasCustomer() && o.Date.Before(cutoff) {
			pending = append(pending, o)
		}
	}
	return pending
}

func (r *orderRepo) DailySales(ctx context.Context, ref time.Time) domain.DailySales {
	day := r.opts.day(ref)
	sales := domain.DailySales{TotalAmount: decimal.Zero}
	for _, o := range r.load(ctx) {
		if r.opts.day(o.Date) == day {
			sales.TotalAmount = sales.TotalAmount.Add(o.TotalAmount)
			sales.OrderCount++
		}
	}
	return sales
}

func (r *orderRepo) SalesTrend(ctx context.Context, ref time.Time, windowDays int) []domain.TrendBucket {
	if windowDays <= 0 {
		return []domain.TrendBucket{}
	}

	totals := make(map[string]decimal.Decimal)
	for _, o := range r.load(ctx) {
		day := r.opts.day(o.Date)
		totals[day] = totals[day].Add(o.TotalAmount)
	}

	end := ref.In(r.opts.location)
	buckets := make([]domain.TrendBucket, 0, windowDays)
	for i := windowDays - 1; i >= 0; i-- {
		d := end.AddDate(0, 0, -i)
		key := d.Format(domain.DateLayout)
		amount, ok := totals[key]
		if !ok {
			amount = decimal.Zero
		}
		buckets = append(buckets, domain.TrendBucket{
			Label:  d.Format("Mon"),
			Date:   key,
			Amount: amount,
		})
	}
	return buckets
}

func (r *orderRepo) DebtOrders(ctx context.Context) []domain.Order {
	owed := []domain.Order{}
	for _, o := range r.load(ctx) {
		if o.Status == domain.OrderPending {
			owed = append(owed, o)
		}
	}
	return owed
}
