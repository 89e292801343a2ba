package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-day format used for lastOrderDate and trend buckets.
const DateLayout = "2006-01-02"

type Customer struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone"`
	Email         string          `json:"email,omitempty"`
	TotalSpent    decimal.Decimal `json:"totalSpent"`
	TotalPaid     decimal.Decimal `json:"totalPaid"`
	RecentOrders  int             `json:"recentOrders"`
	LastOrderDate string          `json:"lastOrderDate"`
	CreatedAt     time.Time       `json:"createdAt"`
	// SettledOrders holds orders already counted in the totals whose
	// spendPending flag has not been cleared yet.
	SettledOrders []string `json:"settledOrders,omitempty"`
}

// HasSettled reports whether orderID is already counted in the totals.
func (c Customer) HasSettled(orderID string) bool {
	return slices.Contains(c.SettledOrders, orderID)
}

// Outstanding is what the customer still owes.
func (c Customer) Outstanding() decimal.Decimal {
	return c.TotalSpent.Sub(c.TotalPaid)
}

// Matches reports whether query occurs in the name, phone or email,
// ignoring case. An empty query matches everything.
func (c Customer) Matches(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(c.Name), q) ||
		strings.Contains(strings.ToLower(c.Phone), q) ||
		strings.Contains(strings.ToLower(c.Email), q)
}
