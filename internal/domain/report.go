package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DailySales struct {
	TotalAmount decimal.Decimal `json:"totalAmount"`
	OrderCount  int             `json:"orderCount"`
}

// TrendBucket is one calendar day of a sales trend.
type TrendBucket struct {
	Label  string          `json:"label"`
	Date   string          `json:"date"`
	Amount decimal.Decimal `json:"amount"`
}

type CustomerDebt struct {
	CustomerID string          `json:"customerId,omitempty"`
	Name       string          `json:"name"`
	Phone      string          `json:"phone,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	OrderCount int             `json:"orderCount"`
}

type DebtSummary struct {
	TotalOutstanding decimal.Decimal `json:"totalOutstanding"`
	OrderCount       int             `json:"orderCount"`
	Customers        []CustomerDebt  `json:"customers"`
	Orders           []Order         `json:"orders"`
}

type Dashboard struct {
	Date         string          `json:"date"`
	TodaySales   DailySales      `json:"todaySales"`
	NewCustomers int             `json:"newCustomers"`
	Outstanding  decimal.Decimal `json:"outstanding"`
	SalesTrend   []TrendBucket   `json:"salesTrend"`
}

// AnalysisContext is the summary handed to the demand analysis model.
type AnalysisContext struct {
	TotalOrders     int               `json:"totalOrders"`
	TotalCustomers  int               `json:"totalCustomers"`
	RecentOrders    []Order           `json:"recentOrders"`
	CustomerSummary []CustomerSummary `json:"customerSummary"`
	Date            string            `json:"date"`
	GeneratedAt     time.Time         `json:"generatedAt"`
}

type CustomerSummary struct {
	Name       string          `json:"name"`
	TotalSpent decimal.Decimal `json:"totalSpent"`
}
