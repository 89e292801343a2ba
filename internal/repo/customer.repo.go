package repo

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"billing-ledger/internal/domain"
	"billing-ledger/internal/infrastructure/storage"
)

type CustomerRepo interface {
	// List returns customers newest first, in stored order.
	List(ctx context.Context) []domain.Customer
	Add(ctx context.Context, name, phone, email string) (*domain.Customer, error)
	FindByID(ctx context.Context, id string) (*domain.Customer, error)
	Search(ctx context.Context, query string) []domain.Customer
	// RecordSpend adds amount to the customer's total spend.
	RecordSpend(ctx context.Context, id string, amount decimal.Decimal) (*domain.Customer, error)
	// RecordPayment moves totalPaid by delta, which is negative when a paid
	// order is reopened. totalPaid never drops below zero.
	RecordPayment(ctx context.Context, id string, delta decimal.Decimal) (*domain.Customer, error)
	// ApplyOrder adds order to its customer's spend, and to totalPaid when
	// the order is paid, in a single write. The order is remembered until
	// ForgetOrder, so applying it again changes nothing.
	ApplyOrder(ctx context.Context, order domain.Order) (*domain.Customer, error)
	ForgetOrder(ctx context.Context, customerID, orderID string) error
}

type customerRepo struct {
	mu       sync.Mutex
	store    storage.Store
	opts     options
	validate *validator.Validate
}

func NewCustomerRepo(store storage.Store, opts ...Option) CustomerRepo {
	return &customerRepo{
		store:    store,
		opts:     newOptions(opts),
		validate: validator.New(),
	}
}

func (r *customerRepo) load(ctx context.Context) []domain.Customer {
	return storage.Read(ctx, r.store, storage.KeyCustomers, []domain.Customer{})
}

// loadForUpdate must be used wherever the result is written back.
func (r *customerRepo) loadForUpdate(ctx context.Context) ([]domain.Customer, error) {
	return storage.Load(ctx, r.store, storage.KeyCustomers, []domain.Customer{})
}

func (r *customerRepo) List(ctx context.Context) []domain.Customer {
	return r.load(ctx)
}

func (r *customerRepo) Add(ctx context.Context, name, phone, email string) (*domain.Customer, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	email = strings.TrimSpace(email)

	if name == "" {
		return nil, domain.NewValidationError("name", "name is required")
	}
	if email != "" {
		if err := r.validate.Var(email, "email"); err != nil {
			return nil, domain.NewValidationError("email", "invalid email address")
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	customers, err := r.loadForUpdate(ctx)
	if err != nil {
		return nil, err
	}
	if phone != "" {
		for _, c := range customers {
			if c.Phone == phone {
				return nil, domain.NewValidationError("phone", "a customer with this phone already exists")
			}
		}
	}

	customer := domain.Customer{
		ID:            uuid.NewString(),
		Name:          name,
		Phone:         phone,
		Email:         email,
		TotalSpent:    decimal.Zero,
		TotalPaid:     decimal.Zero,
		LastOrderDate: r.opts.today(),
		CreatedAt:     r.opts.now().UTC(),
	}

	updated := append([]domain.Customer{customer}, customers...)
	if err := storage.Write(ctx, r.store, storage.KeyCustomers, updated); err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepo) FindByID(ctx context.Context, id string) (*domain.Customer, error) {
	for _, c := range r.load(ctx) {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, domain.NotFound("customer", id)
}

func (r *customerRepo) Search(ctx context.Context, query string) []domain.Customer {
	customers := r.load(ctx)
	matched := make([]domain.Customer, 0, len(customers))
	for _, c := range customers {
		if c.Matches(query) {
			matched = append(matched, c)
		}
	}
	return matched
}

func (r *customerRepo) RecordSpend(ctx context.Context, id string, amount decimal.Decimal) (*domain.Customer, error) {
	if amount.IsNegative() {
		return nil, domain.NewValidationError("amount", "amount cannot be negative")
	}
	return r.update(ctx, id, func(c *domain.Customer) {
		c.TotalSpent = c.TotalSpent.Add(amount)
		c.RecentOrders++
		c.LastOrderDate = r.opts.today()
	})
}

func (r *customerRepo) RecordPayment(ctx context.Context, id string, delta decimal.Decimal) (*domain.Customer, error) {
	return r.update(ctx, id, func(c *domain.Customer) {
		c.TotalPaid = c.TotalPaid.Add(delta)
		if c.TotalPaid.IsNegative() {
			c.TotalPaid = decimal.Zero
		}
	})
}

func (r *customerRepo) ApplyOrder(ctx context.Context, order domain.Order) (*domain.Customer, error) {
	if order.TotalAmount.IsNegative() {
		return nil, domain.NewValidationError("amount", "amount cannot be negative")
	}
	return r.update(ctx, order.CustomerID, func(c *domain.Customer) {
		if c.HasSettled(order.ID) {
			return
		}
		c.TotalSpent = c.TotalSpent.Add(order.TotalAmount)
		c.RecentOrders++
		c.LastOrderDate = r.opts.today()
		if order.Status == domain.OrderPaid {
			c.TotalPaid = c.TotalPaid.Add(order.TotalAmount)
		}
		c.SettledOrders = append(c.SettledOrders, order.ID)
	})
}

func (r *customerRepo) ForgetOrder(ctx context.Context, customerID, orderID string) error {
	_, err := r.update(ctx, customerID, func(c *domain.Customer) {
		c.SettledOrders = slices.DeleteFunc(c.SettledOrders, func(id string) bool { return id == orderID })
		if len(c.SettledOrders) == 0 {
			c.SettledOrders = nil
		}
	})
	return err
}

func (r *customerRepo) update(ctx context.Context, id string, mutate func(*domain.Customer)) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	customers, err := r.loadForUpdate(ctx)
	if err != nil {
		return nil, err
	}
	for i := range customers {
		if customers[i].ID != id {
			continue
		}
		mutate(&customers[i])
		if err := storage.Write(ctx, r.store, storage.KeyCustomers, customers); err != nil {
			return nil, err
		}
		updated := customers[i]
		return &updated, nil
	}
	return nil, domain.NotFound("customer", id)
}
