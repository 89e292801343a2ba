package domain

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending" // owed, 赊欠
	OrderPaid      OrderStatus = "paid"    // 已付
	OrderCancelled OrderStatus = "cancelled"
)

// ParseOrderStatus accepts the canonical values plus the vocabularies older
// ledgers were written with.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending", "owed", "赊欠":
		return OrderPending, nil
	case "paid", "completed", "已付":
		return OrderPaid, nil
	case "cancelled", "canceled":
		return OrderCancelled, nil
	}
	return "", NewValidationError("status", "unknown order status "+s)
}

// UnmarshalJSON never fails: stored values outside the known set are treated
// as owed so the operator sees them in the debt list.
func (s *OrderStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		*s = OrderPending
		return nil
	}
	parsed, err := ParseOrderStatus(raw)
	if err != nil {
		parsed = OrderPending
	}
	*s = parsed
	return nil
}

type OrderItem struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Quantity decimal.Decimal `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Quantity.Mul(i.Price)
}

type Order struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Items       []OrderItem     `json:"items"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	CustomerID  string          `json:"customerId,omitempty"`
	Status      OrderStatus     `json:"status"`
	// SpendPending is set while the referenced customer's totals do not yet
	// include this order.
	SpendPending bool `json:"spendPending,omitempty"`
}

func (o Order) HasCustomer() bool {
	return o.CustomerID != ""
}

// SumLineTotals recomputes the total from the items. TotalAmount is frozen at
// creation and is not kept in sync with this afterwards.
func (o Order) SumLineTotals() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal())
	}
	return total
}
