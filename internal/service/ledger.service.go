package service

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"billing-ledger/internal/domain"
	"billing-ledger/internal/infrastructure/storage"
	"billing-ledger/internal/repo"
)

const (
	weekDays        = 7
	walkInCustomer  = "Walk-in"
	unknownCustomer = "Unknown customer"
)

// Ledger keeps orders and customer aggregates consistent with each other.
type Ledger interface {
	// PlaceOrder saves the order and adds its total to the customer's spend.
	// When the order is saved but the spend is not, the saved order is
	// returned together with the error.
	PlaceOrder(ctx context.Context, items []domain.LineItemInput, customerID string) (*domain.Order, error)
	// RecordOrderSpend adds a saved order to its customer's aggregates and
	// clears the order's pending flag.
	RecordOrderSpend(ctx context.Context, order domain.Order) error
	SetOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error)
	DebtSummary(ctx context.Context) domain.DebtSummary
	WeeklyTrend(ctx context.Context, ref time.Time) []domain.TrendBucket
	Dashboard(ctx context.Context, ref time.Time) domain.Dashboard
	Receipt(ctx context.Context, orderID string) (string, error)
	// Reset deletes every customer, order and setting.
	Reset(ctx context.Context) error
}

type ledger struct {
	store     storage.Store
	customers repo.CustomerRepo
	orders    repo.OrderRepo
	location  *time.Location
	shopName  string
}

func NewLedger(
	store storage.Store,
	customers repo.CustomerRepo,
	orders repo.OrderRepo,
	location *time.Location,
	shopName string,
) Ledger {
	if location == nil {
		location = time.UTC
	}
	return &ledger{
		store:     store,
		customers: customers,
		orders:    orders,
		location:  location,
		shopName:  shopName,
	}
}

func (s *ledger) PlaceOrder(ctx context.Context, items []domain.LineItemInput, customerID string) (*domain.Order, error) {
	if err := domain.ValidateLineItems(items); err != nil {
		return nil, err
	}

	customerID = strings.TrimSpace(customerID)
	if customerID != "" {
		if _, err := s.customers.FindByID(ctx, customerID); err != nil {
			return nil, err
		}
	}

	order, err := s.orders.Add(ctx, items, customerID)
	if err != nil {
		return nil, err
	}
	if !order.HasCustomer() {
		return order, nil
	}

	fields := log.Fields{
		"order_id":    order.ID,
		"customer_id": order.CustomerID,
		"amount":      order.TotalAmount.String(),
	}
	applied, err := s.settle(ctx, *order)
	switch {
	case err != nil && !applied:
		log.WithError(err).WithFields(fields).Error("order saved but customer spend not recorded")
		return order, errors.Wrapf(err, "order %s saved but customer spend not recorded", order.ID)
	case err != nil:
		// The reconciliation worker clears the flag; the spend is not applied twice.
		log.WithError(err).WithFields(fields).Warn("customer spend recorded but order still flagged")
	default:
		order.SpendPending = false
	}

	log.WithFields(fields).Info("order placed")
	return order, nil
}

func (s *ledger) RecordOrderSpend(ctx context.Context, order domain.Order) error {
	_, err := s.settle(ctx, order)
	return err
}

// settle applies order to its customer and clears the order's pending flag.
// applied reports whether the customer totals include the order, which can
// be true even when err is not nil.
func (s *ledger) settle(ctx context.Context, order domain.Order) (applied bool, err error) {
	if _, err := s.customers.ApplyOrder(ctx, order); err != nil {
		return false, err
	}
	if err := s.orders.ClearSpendPending(ctx, order.ID); err != nil {
		return true, errors.Wrapf(err, "order %s spend recorded but still flagged", order.ID)
	}
	if err := s.customers.ForgetOrder(ctx, order.CustomerID, order.ID); err != nil {
		log.WithError(err).WithField("order_id", order.ID).Warn("settled order not pruned from customer")
	}
	return true, nil
}

func (s *ledger) SetOrderStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	parsed, err := domain.ParseOrderStatus(string(status))
	if err != nil {
		return nil, err
	}
	current, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Settle under the old status first so the payment delta below applies
	// to an order the customer totals already include.
	if current.HasCustomer() && current.SpendPending {
		applied, err := s.settle(ctx, *current)
		if err != nil && !applied && !errors.Is(err, domain.ErrNotFound) {
			return nil, errors.Wrapf(err, "order %s spend not recorded, status unchanged", id)
		}
	}

	updated, err := s.orders.UpdateStatus(ctx, id, parsed)
	if err != nil {
		return nil, err
	}

	if !updated.HasCustomer() {
		return updated, nil
	}

	wasPaid := current.Status == domain.OrderPaid
	isPaid := updated.Status == domain.OrderPaid
	if wasPaid == isPaid {
		return updated, nil
	}

	delta := updated.TotalAmount
	if wasPaid {
		delta = delta.Neg()
	}
	if _, err := s.customers.RecordPayment(ctx, updated.CustomerID, delta); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			log.WithField("order_id", id).Warn("order customer no longer exists, payment not recorded")
			return updated, nil
		}
		return updated, errors.Wrapf(err, "order %s status changed but customer payment not recorded", id)
	}
	return updated, nil
}

func (s *ledger) DebtSummary(ctx context.Context) domain.DebtSummary {
	owed := s.orders.DebtOrders(ctx)

	names := make(map[string]domain.Customer)
	for _, c := range s.customers.List(ctx) {
		names[c.ID] = c
	}

	summary := domain.DebtSummary{
		TotalOutstanding: decimal.Zero,
		OrderCount:       len(owed),
		Customers:        []domain.CustomerDebt{},
		Orders:           owed,
	}
	index := make(map[string]int)
	for _, o := range owed {
		summary.TotalOutstanding = summary.TotalOutstanding.Add(o.TotalAmount)

		i, ok := index[o.CustomerID]
		if !ok {
			debt := domain.CustomerDebt{CustomerID: o.CustomerID, Name: walkInCustomer, Amount: decimal.Zero}
			if o.HasCustomer() {
				debt.Name = unknownCustomer
				if c, found := names[o.CustomerID]; found {
					debt.Name = c.Name
					debt.Phone = c.Phone
				}
			}
			i = len(summary.Customers)
			index[o.CustomerID] = i
			summary.Customers = append(summary.Customers, debt)
		}
		summary.Customers[i].Amount = summary.Customers[i].Amount.Add(o.TotalAmount)
		summary.Customers[i].OrderCount++
	}

	slices.SortStableFunc(summary.Customers, func(a, b domain.CustomerDebt) int {
		return b.Amount.Cmp(a.Amount)
	})
	return summary
}

func (s *ledger) WeeklyTrend(ctx context.Context, ref time.Time) []domain.TrendBucket {
	return s.orders.SalesTrend(ctx, ref, weekDays)
}

func (s *ledger) Dashboard(ctx context.Context, ref time.Time) domain.Dashboard {
	day := ref.In(s.location).Format(domain.DateLayout)

	newCustomers := 0
	for _, c := range s.customers.List(ctx) {
		if !c.CreatedAt.IsZero() && c.CreatedAt.In(s.location).Format(domain.DateLayout) == day {
			newCustomers++
		}
	}

	return domain.Dashboard{
		Date:         day,
		TodaySales:   s.orders.DailySales(ctx, ref),
		NewCustomers: newCustomers,
		Outstanding:  s.DebtSummary(ctx).TotalOutstanding,
		SalesTrend:   s.WeeklyTrend(ctx, ref),
	}
}

func (s *ledger) Receipt(ctx context.Context, orderID string) (string, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return "", err
	}

	var customer *domain.Customer
	if order.HasCustomer() {
		customer, err = s.customers.FindByID(ctx, order.CustomerID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return "", err
		}
	}
	return renderReceipt(s.shopName, *order, customer, s.location)
}

func (s *ledger) Reset(ctx context.Context) error {
	if err := storage.Clear(ctx, s.store); err != nil {
		return err
	}
	log.Warn("ledger reset, all data cleared")
	return nil
}
